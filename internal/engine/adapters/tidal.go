package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/musicfed/aggregator/internal/engine"
	"github.com/musicfed/aggregator/internal/schema"
)

// TidalWeb is the embedded-JSON-in-HTML adapter class: the search page is a
// React app whose initial state is serialized into a <script> tag; the
// adapter locates it and slices the JSON out between literal delimiters,
// grounded on original_source/engines/tidal_web.py.
type TidalWeb struct{}

func (TidalWeb) Descriptor() schema.EngineDescriptor {
	return schema.EngineDescriptor{
		Name:           "tidal",
		DisplayName:    "Tidal",
		Shortcut:       "tid",
		Features:       []string{"streaming", "preview", "enhanced_metadata"},
		DefaultTimeout: 6 * time.Second,
		RateLimit:      20,
		RatePeriod:     time.Minute,
		CacheTTL:       30 * time.Minute,
		Enabled:        true,
		RequiresAPIKey: false,
	}
}

func (TidalWeb) BuildRequest(ctx context.Context, params engine.SearchParams) (*http.Request, error) {
	reqURL := "https://listen.tidal.com/search?q=" + url.QueryEscape(params.Query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("tidal: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; musicfed-aggregator/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	return req, nil
}

var tidalInitialState = regexp.MustCompile(`(?s)window\.__(?:INITIAL|PRELOADED)_STATE__\s*=\s*(\{.*?\});`)

type tidalTrack struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	Artists  []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Title string `json:"title"`
	} `json:"album"`
}

type tidalState struct {
	Search struct {
		Tracks []tidalTrack `json:"tracks"`
	} `json:"search"`
}

// ParseResponse locates the first <script> tag containing a serialized
// window.__INITIAL_STATE__/__PRELOADED_STATE__ assignment and extracts the
// embedded JSON. A missing or malformed script is a silent empty result,
// never an error — the page layout shifting shouldn't fail the whole
// search.
func (TidalWeb) ParseResponse(resp *http.Response, params engine.SearchParams) ([]schema.RawResult, error) {
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &engine.RateLimitError{Engine: "tidal", RetryAfter: time.Second}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tidal: parse html: %w", err)
	}

	var raw []byte
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if m := tidalInitialState.FindStringSubmatch(text); m != nil {
			raw = []byte(m[1])
			return false
		}
		return true
	})

	if raw == nil {
		return nil, nil
	}

	var state tidalState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, nil
	}

	results := make([]schema.RawResult, 0, len(state.Search.Tracks))
	for _, tr := range state.Search.Tracks {
		if tr.Title == "" {
			continue
		}
		artist := ""
		if len(tr.Artists) > 0 {
			artist = tr.Artists[0].Name
		}
		results = append(results, schema.RawResult{
			Engine:  "tidal",
			Title:   tr.Title,
			URL:     "https://listen.tidal.com/track/" + tr.ID,
			Content: artist,
			Fields: map[string]any{
				"artist":   artist,
				"album":    tr.Album.Title,
				"duration": tr.Duration,
			},
		})
	}

	return results, nil
}
