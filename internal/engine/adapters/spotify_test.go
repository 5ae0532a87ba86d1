package adapters

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicfed/aggregator/internal/engine"
)

func TestSpotify_Descriptor_DisabledWithoutCredentials(t *testing.T) {
	assert.False(t, NewSpotify("", "").Descriptor().Enabled)
	assert.True(t, NewSpotify("id", "secret").Descriptor().Enabled)
}

func TestSpotify_BuildRequest_RequiresCredentials(t *testing.T) {
	_, err := NewSpotify("", "").BuildRequest(context.Background(), engine.SearchParams{Query: "x"})
	assert.Error(t, err)
}

func TestSpotify_ParseResponse_RateLimited(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Retry-After": []string{"2"}},
		Body:       io.NopCloser(strings.NewReader("")),
	}
	_, err := NewSpotify("id", "secret").ParseResponse(resp, engine.SearchParams{})
	require.Error(t, err)
	var rlErr *engine.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 2*time.Second, rlErr.RetryAfter)
}

func TestSpotify_ParseResponse_TracksMapped(t *testing.T) {
	body := `{"tracks":{"items":[
		{"name":"One More Time","id":"0DiWol3AO6WpXZgp0goxAV",
		 "artists":[{"name":"Daft Punk"}],
		 "album":{"name":"Discovery","release_date":"2001-03-12","images":[{"url":"https://img.example/cover.jpg"}]},
		 "duration_ms":320000,"preview_url":"https://p.scdn.co/preview",
		 "external_ids":{"isrc":"GBDUW0000059"}}
	]}}`

	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}
	results, err := NewSpotify("id", "secret").ParseResponse(resp, engine.SearchParams{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "One More Time", results[0].Title)
	assert.Equal(t, "Daft Punk", results[0].Fields["artist"])
	assert.Equal(t, "Discovery", results[0].Fields["album"])
}
