package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/musicfed/aggregator/internal/schema"
)

func TestClassify_EngineOverrides(t *testing.T) {
	ct, conf := Classify(schema.NormalizedResult{Engine: "radio browser", Title: "Anything"})
	assert.Equal(t, schema.ContentRadioStation, ct)
	assert.Equal(t, 0.95, conf)

	ct, conf = Classify(schema.NormalizedResult{Engine: "Genius", Title: "Some Lyrics"})
	assert.Equal(t, schema.ContentLyrics, ct)
	assert.Equal(t, 0.95, conf)
}

func TestClassify_RadioStationByPattern(t *testing.T) {
	ct, conf := Classify(schema.NormalizedResult{
		Engine: "generic",
		Title:  "KROQ Radio - Live Stream",
		URL:    "https://radio.example.com/stream",
	})
	assert.Equal(t, schema.ContentRadioStation, ct)
	assert.Greater(t, conf, 0.7)
}

func TestClassify_MusicTrackByArtistAndEngine(t *testing.T) {
	ct, _ := Classify(schema.NormalizedResult{
		Engine:  "bandcamp",
		Title:   "Daft Punk - One More Time",
		Artist:  "Daft Punk",
		Content: "3:45",
	})
	assert.Equal(t, schema.ContentMusicTrack, ct)
}

func TestClassify_Podcast(t *testing.T) {
	ct, conf := Classify(schema.NormalizedResult{
		Engine: "generic",
		Title:  "Episode 42: Interview with a producer",
	})
	assert.Equal(t, schema.ContentPodcast, ct)
	assert.Equal(t, 0.8, conf)
}

func TestClassify_YoutubeVideoWithMetadata(t *testing.T) {
	ct, _ := Classify(schema.NormalizedResult{
		Engine: "youtube",
		URL:    "https://youtube.com/watch?v=abc",
		Title:  "Random Video",
		Artist: "Some Artist",
	})
	assert.Equal(t, schema.ContentVideo, ct)
}

func TestClassify_Unknown(t *testing.T) {
	ct, conf := Classify(schema.NormalizedResult{
		Engine: "generic",
		Title:  "Some unrelated webpage",
		URL:    "https://example.com/article",
	})
	assert.Equal(t, schema.ContentUnknown, ct)
	assert.Equal(t, 0.0, conf)
}

func TestFilterResults_DefaultExcludesLyrics(t *testing.T) {
	results := []schema.NormalizedResult{
		{Engine: "genius", Title: "Some Lyrics"},
		{Engine: "bandcamp", Title: "Daft Punk - One More Time", Artist: "Daft Punk", Content: "3:45"},
	}

	filtered := FilterResults(results, nil)
	assert.Len(t, filtered, 1)
	assert.Equal(t, schema.ContentMusicTrack, filtered[0].ContentType)
}

func TestFilterResults_CustomAllowedTypes(t *testing.T) {
	results := []schema.NormalizedResult{
		{Engine: "genius", Title: "Some Lyrics"},
	}

	filtered := FilterResults(results, []schema.ContentType{schema.ContentLyrics})
	assert.Len(t, filtered, 1)
	assert.Equal(t, schema.ContentLyrics, filtered[0].ContentType)
}

func TestEnhanceMetadata_ExtractsArtistFromTitle(t *testing.T) {
	r := schema.NormalizedResult{
		ContentType: schema.ContentMusicTrack,
		Title:       "Daft Punk - One More Time (Radio Edit)",
	}

	enhanced := EnhanceMetadata(r)
	assert.Equal(t, "Daft Punk", enhanced.Artist)
	assert.Equal(t, "One More Time", enhanced.BaseTrack)
}

func TestEnhanceMetadata_SkipsNonMusicTracks(t *testing.T) {
	r := schema.NormalizedResult{
		ContentType: schema.ContentPodcast,
		Title:       "Episode 1 - Interview",
	}

	enhanced := EnhanceMetadata(r)
	assert.Empty(t, enhanced.Artist)
	assert.Empty(t, enhanced.BaseTrack)
}

func TestEnhanceMetadata_TrackByArtistPattern(t *testing.T) {
	r := schema.NormalizedResult{
		ContentType: schema.ContentMusicTrack,
		Title:       "One More Time by Daft Punk",
	}

	enhanced := EnhanceMetadata(r)
	assert.Equal(t, "Daft Punk", enhanced.Artist)
	assert.Equal(t, "One More Time", enhanced.BaseTrack)
}
