package unified

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/musicfed/aggregator/internal/schema"
)

// Format is an export target named in spec.md §6's PLAYLIST_EXPORT contract.
type Format string

const (
	FormatM3U  Format = "m3u"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ContentType returns the MIME type PLAYLIST_EXPORT must respond with for
// the given format.
func (f Format) ContentType() string {
	switch f {
	case FormatM3U:
		return "audio/x-mpegurl"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/json"
	}
}

// Export renders a playlist in the requested format. The playlist's Tracks
// must already be hydrated (via Service.GetPlaylist).
func Export(playlist *schema.UniversalPlaylist, format Format) ([]byte, error) {
	switch format {
	case FormatM3U:
		return exportM3U(playlist), nil
	case FormatJSON:
		return exportJSON(playlist)
	case FormatCSV:
		return exportCSV(playlist)
	default:
		return nil, fmt.Errorf("unified: unknown export format %q", format)
	}
}

// firstPlatformURL picks the first non-empty platform URL in Go's
// randomized map-iteration order, so the pick can differ between calls for
// a track with several platforms; the export formats here just need any
// one playable link.
func firstPlatformURL(t *schema.UnifiedTrack) string {
	for _, rec := range t.Platforms {
		if rec.URL != "" {
			return rec.URL
		}
	}
	return ""
}

func exportM3U(playlist *schema.UniversalPlaylist) []byte {
	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")
	for _, t := range playlist.Tracks {
		durationSeconds := -1
		if t.DurationMs > 0 {
			durationSeconds = t.DurationMs / 1000
		}
		fmt.Fprintf(&buf, "#EXTINF:%d,%s - %s\n", durationSeconds, t.Artist, t.Title)
		buf.WriteString(firstPlatformURL(t))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

type jsonPlaylist struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	OwnerID     string      `json:"owner_id"`
	Tracks      []jsonTrack `json:"tracks"`
}

type jsonTrack struct {
	UnifiedID       string   `json:"unified_id"`
	Title           string   `json:"title"`
	Artist          string   `json:"artist"`
	Album           string   `json:"album"`
	DurationMs      int      `json:"duration_ms"`
	PopularityScore float64  `json:"popularity_score"`
	Platforms       []string `json:"platforms"`
}

func exportJSON(playlist *schema.UniversalPlaylist) ([]byte, error) {
	out := jsonPlaylist{
		ID: playlist.ID, Name: playlist.Name, Description: playlist.Description, OwnerID: playlist.OwnerID,
		Tracks: make([]jsonTrack, 0, len(playlist.Tracks)),
	}
	for _, t := range playlist.Tracks {
		platforms := make([]string, 0, len(t.Platforms))
		for name := range t.Platforms {
			platforms = append(platforms, name)
		}
		out.Tracks = append(out.Tracks, jsonTrack{
			UnifiedID: t.UnifiedID, Title: t.Title, Artist: t.Artist, Album: t.Album,
			DurationMs: t.DurationMs, PopularityScore: t.PopularityScore, Platforms: platforms,
		})
	}
	return json.Marshal(out)
}

func exportCSV(playlist *schema.UniversalPlaylist) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"title", "artist", "platforms", "url"}); err != nil {
		return nil, fmt.Errorf("unified: write csv header: %w", err)
	}

	for _, t := range playlist.Tracks {
		platformNames := make([]string, 0, len(t.Platforms))
		for name := range t.Platforms {
			platformNames = append(platformNames, name)
		}
		row := []string{t.Title, t.Artist, strings.Join(platformNames, "|"), firstPlatformURL(t)}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("unified: write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("unified: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
