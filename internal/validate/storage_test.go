package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/musicfed/aggregator/internal/schema"
)

func TestValidateForStorage_RequiresTitle(t *testing.T) {
	errs := ValidateForStorage(schema.UnifiedTrack{})
	assert.Contains(t, errs, "title is required")
}

func TestValidateForStorage_RejectsShortDuration(t *testing.T) {
	errs := ValidateForStorage(schema.UnifiedTrack{Title: "Song", DurationMs: 500})
	assert.Contains(t, errs, "duration too short (min 1 second)")
}

func TestValidateForStorage_RejectsLongDuration(t *testing.T) {
	errs := ValidateForStorage(schema.UnifiedTrack{Title: "Song", DurationMs: MaxDurationMs + 1})
	assert.Contains(t, errs, "duration too long (max 4 hours)")
}

func TestValidateForStorage_RejectsBadPlatformURL(t *testing.T) {
	track := schema.UnifiedTrack{
		Title: "Song",
		Platforms: map[string]schema.PlatformRecord{
			"spotify": {PreviewURL: "not a url"},
		},
	}
	errs := ValidateForStorage(track)
	assert.Contains(t, errs, "spotify.preview_url is not a valid URL")
}

func TestValidateForStorage_ValidTrackHasNoErrors(t *testing.T) {
	track := schema.UnifiedTrack{
		Title:      "Song",
		DurationMs: 200000,
		Platforms: map[string]schema.PlatformRecord{
			"spotify": {PreviewURL: "https://p.scdn.co/preview/abc", URL: "https://open.spotify.com/track/abc"},
		},
	}
	assert.Empty(t, ValidateForStorage(track))
}

func TestPrepareForStorage_TruncatesTitleAndStampsTimestamps(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	longTitle := make([]byte, MaxTitleLength+50)
	for i := range longTitle {
		longTitle[i] = 'a'
	}

	track := schema.UnifiedTrack{Title: string(longTitle)}
	prepared := PrepareForStorage(track, map[string]any{"bpm": 128}, now)

	assert.Len(t, prepared.Title, MaxTitleLength)
	assert.Equal(t, now, prepared.CreatedAt)
	assert.Equal(t, now, prepared.UpdatedAt)
	assert.Equal(t, 128, prepared.Metadata["bpm"])
}
