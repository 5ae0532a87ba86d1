package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/musicfed/aggregator/internal/engine"
	"github.com/musicfed/aggregator/internal/schema"
)

const geniusSearchURL = "https://api.genius.com/search"

// Genius only ever returns song metadata and a link to the lyrics page —
// never playable audio — which is why Classify hard-codes "genius" as a
// lyrics-only engine override. Grounded on
// original_source/searxng-core/.../genius_lyrics.py.
type Genius struct {
	apiToken string
}

func NewGenius(apiToken string) Genius {
	return Genius{apiToken: apiToken}
}

func (g Genius) Descriptor() schema.EngineDescriptor {
	return schema.EngineDescriptor{
		Name:           "genius",
		DisplayName:    "Genius",
		Shortcut:       "gen",
		Features:       []string{"lyrics", "metadata"},
		DefaultTimeout: 5 * time.Second,
		RateLimit:      60,
		RatePeriod:     time.Minute,
		CacheTTL:       12 * time.Hour,
		Enabled:        g.apiToken != "",
		RequiresAPIKey: true,
		HasCredentials: g.apiToken != "",
	}
}

func (g Genius) BuildRequest(ctx context.Context, params engine.SearchParams) (*http.Request, error) {
	if g.apiToken == "" {
		return nil, fmt.Errorf("genius: no API token configured")
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	values := url.Values{"q": {params.Query}, "per_page": {"20"}, "page": {strconv.Itoa(page)}, "text_format": {"plain"}}
	reqURL := geniusSearchURL + "?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("genius: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiToken)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

type geniusSearchResponse struct {
	Response struct {
		Hits []geniusHit `json:"hits"`
	} `json:"response"`
}

type geniusHit struct {
	Type   string `json:"type"`
	Result struct {
		Title        string `json:"title"`
		ArtistNames  string `json:"artist_names"`
		URL          string `json:"url"`
		ReleaseDate  string `json:"release_date_for_display"`
		ThumbnailURL string `json:"header_image_thumbnail_url"`
		Album        *struct {
			Name string `json:"name"`
		} `json:"album"`
	} `json:"result"`
}

func (g Genius) ParseResponse(resp *http.Response, params engine.SearchParams) ([]schema.RawResult, error) {
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("genius: invalid or missing API token")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &engine.RateLimitError{Engine: "genius", RetryAfter: time.Second}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("genius: read body: %w", err)
	}

	var parsed geniusSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil
	}

	var results []schema.RawResult
	for _, hit := range parsed.Response.Hits {
		if hit.Type != "song" || hit.Result.URL == "" {
			continue
		}

		album := ""
		if hit.Result.Album != nil {
			album = hit.Result.Album.Name
		}

		results = append(results, schema.RawResult{
			Engine:  "genius",
			Title:   hit.Result.Title,
			URL:     hit.Result.URL,
			Content: hit.Result.ArtistNames,
			Fields: map[string]any{
				"artist":       hit.Result.ArtistNames,
				"album":        album,
				"release_date": hit.Result.ReleaseDate,
				"thumbnail":    hit.Result.ThumbnailURL,
			},
		})
	}

	return results, nil
}
