package validate

import (
	"fmt"
	"time"

	"github.com/musicfed/aggregator/internal/schema"
)

// ValidateForStorage implements Phase C: pre-persistence checks on a
// UnifiedTrack bound for the playlist service's Postgres tables. It returns
// every violation found rather than stopping at the first, matching
// data_validator.py's validate_for_storage.
func ValidateForStorage(t schema.UnifiedTrack) []string {
	var errs []string

	if t.Title == "" {
		errs = append(errs, "title is required")
	} else if len(t.Title) > MaxTitleLength {
		errs = append(errs, fmt.Sprintf("title too long (max %d chars)", MaxTitleLength))
	}

	if t.DurationMs != 0 {
		if t.DurationMs < MinDurationMs {
			errs = append(errs, "duration too short (min 1 second)")
		} else if t.DurationMs > MaxDurationMs {
			errs = append(errs, "duration too long (max 4 hours)")
		}
	}

	for name, record := range t.Platforms {
		for _, field := range []struct {
			label string
			value string
		}{
			{fmt.Sprintf("%s.preview_url", name), record.PreviewURL},
			{fmt.Sprintf("%s.url", name), record.URL},
		} {
			if field.value == "" {
				continue
			}
			if len(field.value) > MaxURLLength {
				errs = append(errs, fmt.Sprintf("%s too long (max %d chars)", field.label, MaxURLLength))
			} else if !IsValidURL(field.value) {
				errs = append(errs, fmt.Sprintf("%s is not a valid URL", field.label))
			}
		}
	}

	return errs
}

// PreparedTrack is the storage-ready shape produced by PrepareForStorage:
// truncated fields, bounded metadata, and stamped timestamps.
type PreparedTrack struct {
	Title      string
	Artist     string
	Album      string
	DurationMs int
	Metadata   map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PrepareForStorage implements Phase C's prepare_for_storage: truncates the
// title to MaxTitleLength, cleans nested metadata for JSONB storage, and
// stamps created/updated timestamps. now is passed in rather than read
// internally, since workflows and tests must stay deterministic.
func PrepareForStorage(t schema.UnifiedTrack, metadata map[string]any, now time.Time) PreparedTrack {
	title := t.Title
	if len(title) > MaxTitleLength {
		title = title[:MaxTitleLength]
	}

	return PreparedTrack{
		Title:      title,
		Artist:     t.Artist,
		Album:      t.Album,
		DurationMs: t.DurationMs,
		Metadata:   SanitizeMetadata(metadata),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
