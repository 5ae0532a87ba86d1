package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/musicfed/aggregator/internal/schema"
)

func TestParseDuration_AllFormats(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"225", 225000},
		{"3:45", 225000},
		{"1:02:30", 3750000},
		{"3m 45s", 225000},
		{"PT3M45S", 225000},
		{"PT1H2M30S", 3750000},
	}
	for _, c := range cases {
		got, ok := ParseDuration(c.in)
		assert.True(t, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	_, ok := ParseDuration("")
	assert.False(t, ok)
	_, ok = ParseDuration("not a duration")
	assert.False(t, ok)
}

func TestNormalizeArtist_StripsFeaturedClause(t *testing.T) {
	assert.Equal(t, "Artist1", NormalizeArtist("Artist1 feat. Artist2"))
	assert.Equal(t, "Artist1", NormalizeArtist("Artist1 ft. Artist2"))
	assert.Equal(t, "Artist1 & Artist2", NormalizeArtist("Artist1 & Artist2"))
}

func TestExtractFeaturedArtists(t *testing.T) {
	got := ExtractFeaturedArtists("Artist1 feat. Artist2, Artist3")
	assert.Equal(t, []string{"Artist1", "Artist2", "Artist3"}, got)
}

func TestExtractYear(t *testing.T) {
	y, ok := ExtractYear("2023-04-15")
	assert.True(t, ok)
	assert.Equal(t, 2023, y)

	y, ok = ExtractYear("April 15, 2023")
	assert.True(t, ok)
	assert.Equal(t, 2023, y)
}

func TestStableKey_Deterministic(t *testing.T) {
	a := StableKey("Song", "https://example.com/a")
	b := StableKey("Song", "https://example.com/a")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	c := StableKey("Other Song", "https://example.com/a")
	assert.NotEqual(t, a, c)
}

func TestStandardize_FullMapping(t *testing.T) {
	raw := schema.RawResult{
		Engine: "bandcamp",
		Title:  "One More Time",
		URL:    "https://bandcamp.com/track/one-more-time",
		Fields: map[string]any{
			"artist":       "Daft Punk feat. Someone",
			"album":        "Discovery",
			"duration":     "3:45",
			"preview_url":  "https://bandcamp.com/preview.mp3",
			"release_date": "2001-03-07",
			"genres":       []any{"House", "Electronic"},
			"isrc":         "GBUM71029604",
			"bpm":          123,
		},
	}

	result := Standardize(raw, "Bandcamp")

	assert.Equal(t, "Daft Punk", result.Artist)
	assert.Equal(t, []string{"Daft Punk", "Someone"}, result.Artists)
	assert.Equal(t, "Discovery", result.Album)
	assert.Equal(t, 225000, result.DurationMs)
	assert.Equal(t, 2001, result.Year)
	assert.Equal(t, []string{"House", "Electronic"}, result.Genres)
	assert.Equal(t, "GBUM71029604", result.ISRC)
	assert.Equal(t, 123, result.Metadata["bpm"])
	assert.Equal(t, "Daft Punk • Album: Discovery • 3:45", result.Content)
	assert.Len(t, result.StableKey, 16)
}

func TestStandardize_Idempotent(t *testing.T) {
	raw := schema.RawResult{
		Engine: "bandcamp",
		Title:  "Track",
		URL:    "https://bandcamp.com/track",
		Fields: map[string]any{"artist": "Someone"},
	}

	first := Standardize(raw, "Bandcamp")
	second := Standardize(raw, "Bandcamp")
	assert.Equal(t, first, second)
}

func TestStandardize_MissingFieldsYieldZeroValues(t *testing.T) {
	raw := schema.RawResult{Engine: "generic", Title: "Bare", URL: "https://example.com"}
	result := Standardize(raw, "Generic")
	assert.Equal(t, "", result.Artist)
	assert.Equal(t, 0, result.DurationMs)
	assert.Equal(t, "", result.Content)
}
