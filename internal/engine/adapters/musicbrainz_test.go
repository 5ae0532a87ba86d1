package adapters

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicfed/aggregator/internal/engine"
)

func TestMusicBrainz_Descriptor(t *testing.T) {
	d := MusicBrainz{}.Descriptor()
	assert.Equal(t, "musicbrainz", d.Name)
	assert.False(t, d.RequiresAPIKey)
	assert.True(t, d.Enabled)
}

func TestMusicBrainz_BuildRequest_ArtistPrefix(t *testing.T) {
	req, err := MusicBrainz{}.BuildRequest(context.Background(), engine.SearchParams{Query: "artist:Daft Punk"})
	require.NoError(t, err)
	assert.Contains(t, req.URL.String(), "/artist/")
	assert.Contains(t, req.URL.String(), "Daft")
}

func TestMusicBrainz_BuildRequest_DefaultIsRecording(t *testing.T) {
	req, err := MusicBrainz{}.BuildRequest(context.Background(), engine.SearchParams{Query: "one more time"})
	require.NoError(t, err)
	assert.Contains(t, req.URL.String(), "/recording/")
}

func TestMusicBrainz_ParseResponse(t *testing.T) {
	body := `{"recordings":[{"id":"abc123","title":"One More Time","length":320000,
		"artist-credit":[{"artist":{"name":"Daft Punk"}}],
		"releases":[{"title":"Discovery","date":"2001-03-12"}],
		"isrcs":["GBDUW0000059"]}]}`

	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}
	results, err := MusicBrainz{}.ParseResponse(resp, engine.SearchParams{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "One More Time", results[0].Title)
	assert.Equal(t, "Daft Punk", results[0].Fields["artist"])
	assert.Equal(t, "Discovery", results[0].Fields["album"])
	assert.Equal(t, "GBDUW0000059", results[0].Fields["isrc"])
}

func TestMusicBrainz_ParseResponse_RateLimited(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Body: io.NopCloser(strings.NewReader(""))}
	_, err := MusicBrainz{}.ParseResponse(resp, engine.SearchParams{})
	require.Error(t, err)
	var rlErr *engine.RateLimitError
	assert.ErrorAs(t, err, &rlErr)
}

func TestMusicBrainz_Integration_ViaHTTPServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recordings":[{"id":"x","title":"Test Track","length":1000,"artist-credit":[{"artist":{"name":"Tester"}}]}]}`))
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	results, err := MusicBrainz{}.ParseResponse(resp, engine.SearchParams{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Test Track", results[0].Title)
}
