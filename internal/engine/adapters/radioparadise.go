package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/musicfed/aggregator/internal/engine"
	"github.com/musicfed/aggregator/internal/schema"
)

const radioParadiseHistoryURL = "https://api.radioparadise.com/api/playlist"

// RadioParadise is the curated-feed adapter class: there is no real search
// endpoint, so the adapter fetches the recent playlist history feed and
// filters it locally by substring match against title/artist/album,
// grounded on original_source/engines/radio_paradise.py.
type RadioParadise struct{}

func (RadioParadise) Descriptor() schema.EngineDescriptor {
	return schema.EngineDescriptor{
		Name:           "radioparadise",
		DisplayName:    "Radio Paradise",
		Shortcut:       "rp",
		Features:       []string{"curated", "radio"},
		DefaultTimeout: 5 * time.Second,
		RateLimit:      30,
		RatePeriod:     time.Minute,
		CacheTTL:       5 * time.Minute,
		Enabled:        true,
		RequiresAPIKey: false,
	}
}

func (RadioParadise) BuildRequest(ctx context.Context, params engine.SearchParams) (*http.Request, error) {
	reqURL := radioParadiseHistoryURL + "?chan=0"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("radioparadise: build request: %w", err)
	}
	req.Header.Set("User-Agent", "musicfed-aggregator/1.0")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

type rpSong struct {
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	Album    string `json:"album"`
	Year     int    `json:"year"`
	Duration int    `json:"duration"`
}

type rpFeed struct {
	Songs []rpSong `json:"songs"`
	Items []rpSong `json:"items"`
}

// ParseResponse fetches the feed's full song list and filters by
// params.Query as a case-insensitive substring of artist/title/album —
// this is a curated feed, not a search endpoint, so all the "search" logic
// lives on our side.
func (RadioParadise) ParseResponse(resp *http.Response, params engine.SearchParams) ([]schema.RawResult, error) {
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &engine.RateLimitError{Engine: "radioparadise", RetryAfter: time.Second}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("radioparadise: read body: %w", err)
	}

	var songs []rpSong
	var asList []rpSong
	if err := json.Unmarshal(body, &asList); err == nil {
		songs = asList
	} else {
		var feed rpFeed
		if err := json.Unmarshal(body, &feed); err != nil {
			return nil, nil
		}
		songs = feed.Songs
		if len(songs) == 0 {
			songs = feed.Items
		}
	}

	query := strings.ToLower(params.Query)

	var results []schema.RawResult
	for _, s := range songs {
		if s.Artist == "" || s.Title == "" {
			continue
		}
		if query != "" {
			haystack := strings.ToLower(s.Artist + " " + s.Title + " " + s.Album)
			if !strings.Contains(haystack, query) {
				continue
			}
		}

		results = append(results, schema.RawResult{
			Engine:  "radioparadise",
			Title:   s.Title,
			URL:     "https://radioparadise.com/player?song=" + strconv.Itoa(hashSong(s)),
			Content: s.Artist,
			Fields: map[string]any{
				"artist":       s.Artist,
				"album":        s.Album,
				"release_date": strconv.Itoa(s.Year),
				"duration":     strconv.Itoa(s.Duration),
			},
		})
	}

	return results, nil
}

func hashSong(s rpSong) int {
	h := 0
	for _, c := range s.Artist + s.Title {
		h = h*31 + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
