package adapters

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicfed/aggregator/internal/engine"
)

func TestRadioBrowser_Descriptor(t *testing.T) {
	d := RadioBrowser{}.Descriptor()
	assert.Equal(t, "radio browser", d.Name)
	assert.False(t, d.RequiresAPIKey)
	assert.True(t, d.Enabled)
}

func TestRadioBrowser_BuildRequest(t *testing.T) {
	req, err := RadioBrowser{}.BuildRequest(context.Background(), engine.SearchParams{Query: "jazz fm"})
	require.NoError(t, err)
	parsed, err := url.Parse(req.URL.String())
	require.NoError(t, err)
	assert.Equal(t, "jazz fm", parsed.Query().Get("name"))
}

func TestRadioBrowser_ParseResponse(t *testing.T) {
	body := `[{"name":"Jazz FM","url_resolved":"https://stream.example/jazz","homepage":"https://jazzfm.example",
		"favicon":"https://jazzfm.example/icon.png","tags":"jazz,smooth","countrycode":"GB"}]`
	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}

	results, err := RadioBrowser{}.ParseResponse(resp, engine.SearchParams{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "radio browser", results[0].Engine)
	assert.Equal(t, "Jazz FM", results[0].Title)
	assert.Equal(t, "https://stream.example/jazz", results[0].URL)
	assert.Equal(t, "jazz,smooth", results[0].Fields["genre"])
}

func TestRadioBrowser_ParseResponse_SkipsIncompleteStations(t *testing.T) {
	body := `[{"name":"","url_resolved":"https://stream.example/nameless"},{"name":"No URL"}]`
	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}

	results, err := RadioBrowser{}.ParseResponse(resp, engine.SearchParams{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRadioBrowser_ParseResponse_NonOKStatus(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(strings.NewReader(""))}
	results, err := RadioBrowser{}.ParseResponse(resp, engine.SearchParams{})
	require.NoError(t, err)
	assert.Nil(t, results)
}
