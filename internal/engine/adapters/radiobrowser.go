package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/musicfed/aggregator/internal/engine"
	"github.com/musicfed/aggregator/internal/schema"
)

const radioBrowserSearchURL = "https://de1.api.radio-browser.info/json/stations/search"

// RadioBrowser only ever returns live radio stations, matching Classify's
// "radio browser" engine override — a JSON-API-without-token adapter class
// member, same shape as MusicBrainz.
type RadioBrowser struct{}

func (RadioBrowser) Descriptor() schema.EngineDescriptor {
	return schema.EngineDescriptor{
		Name:           "radio browser",
		DisplayName:    "Radio Browser",
		Shortcut:       "rb",
		Features:       []string{"radio"},
		DefaultTimeout: 5 * time.Second,
		RateLimit:      60,
		RatePeriod:     time.Minute,
		CacheTTL:       time.Hour,
		Enabled:        true,
		RequiresAPIKey: false,
	}
}

func (RadioBrowser) BuildRequest(ctx context.Context, params engine.SearchParams) (*http.Request, error) {
	values := url.Values{"name": {params.Query}, "limit": {"20"}}
	reqURL := radioBrowserSearchURL + "?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("radiobrowser: build request: %w", err)
	}
	req.Header.Set("User-Agent", "musicfed-aggregator/1.0")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

type radioStation struct {
	Name      string `json:"name"`
	URL       string `json:"url_resolved"`
	Homepage  string `json:"homepage"`
	Favicon   string `json:"favicon"`
	Tags      string `json:"tags"`
	CountryID string `json:"countrycode"`
}

func (RadioBrowser) ParseResponse(resp *http.Response, params engine.SearchParams) ([]schema.RawResult, error) {
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &engine.RateLimitError{Engine: "radio browser", RetryAfter: time.Second}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("radiobrowser: read body: %w", err)
	}

	var stations []radioStation
	if err := json.Unmarshal(body, &stations); err != nil {
		return nil, nil
	}

	results := make([]schema.RawResult, 0, len(stations))
	for _, s := range stations {
		if s.Name == "" || s.URL == "" {
			continue
		}
		results = append(results, schema.RawResult{
			Engine:  "radio browser",
			Title:   s.Name,
			URL:     s.URL,
			Content: s.Tags,
			Fields: map[string]any{
				"thumbnail":   s.Favicon,
				"audio_url":   s.URL,
				"genre":       s.Tags,
				"external_id": s.Homepage,
			},
		})
	}

	return results, nil
}
