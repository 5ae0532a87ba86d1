package adapters

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicfed/aggregator/internal/engine"
)

func TestTidalWeb_ParseResponse_ExtractsEmbeddedState(t *testing.T) {
	html := `<html><body><script>
		window.__INITIAL_STATE__ = {"search":{"tracks":[
			{"id":"123","title":"Around The World","duration":428,
			 "artists":[{"name":"Daft Punk"}],"album":{"title":"Homework"}}
		]}};
	</script></body></html>`

	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(html))}
	results, err := TidalWeb{}.ParseResponse(resp, engine.SearchParams{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Around The World", results[0].Title)
	assert.Equal(t, "https://listen.tidal.com/track/123", results[0].URL)
	assert.Equal(t, "Daft Punk", results[0].Fields["artist"])
}

func TestTidalWeb_ParseResponse_NoScriptTagIsEmptyNotError(t *testing.T) {
	html := `<html><body><p>nothing here</p></body></html>`
	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(html))}
	results, err := TidalWeb{}.ParseResponse(resp, engine.SearchParams{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTidalWeb_ParseResponse_NonOKStatus(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusServiceUnavailable, Body: io.NopCloser(strings.NewReader(""))}
	results, err := TidalWeb{}.ParseResponse(resp, engine.SearchParams{})
	require.NoError(t, err)
	assert.Nil(t, results)
}
