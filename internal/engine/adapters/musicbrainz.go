// Package adapters holds the concrete engine.Adapter implementations: one
// per upstream music source, covering the five parse-strategy classes named
// in the adapter framework.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/musicfed/aggregator/internal/engine"
	"github.com/musicfed/aggregator/internal/schema"
)

const musicBrainzBaseURL = "https://musicbrainz.org/ws/2"
const musicBrainzPageSize = 20

// MusicBrainz is the JSON-API-without-token adapter class: no credentials,
// a single fixed 1rps rate limit enforced by the shared ratelimit package,
// grounded on original_source/engines/musicbrainz.py.
type MusicBrainz struct{}

func (MusicBrainz) Descriptor() schema.EngineDescriptor {
	return schema.EngineDescriptor{
		Name:           "musicbrainz",
		DisplayName:    "MusicBrainz",
		Shortcut:       "mb",
		Features:       []string{"metadata", "isrc"},
		DefaultTimeout: 5 * time.Second,
		RateLimit:      1,
		RatePeriod:     time.Second,
		CacheTTL:       24 * time.Hour,
		Enabled:        true,
		RequiresAPIKey: false,
	}
}

func (MusicBrainz) BuildRequest(ctx context.Context, params engine.SearchParams) (*http.Request, error) {
	offset := params.Page * musicBrainzPageSize
	searchType := "recording"
	query := params.Query

	switch {
	case strings.HasPrefix(query, "artist:"):
		searchType = "artist"
		query = strings.TrimSpace(strings.TrimPrefix(query, "artist:"))
	case strings.HasPrefix(query, "album:"), strings.HasPrefix(query, "release:"):
		searchType = "release"
		query = strings.TrimSpace(query[strings.Index(query, ":")+1:])
	}

	reqURL := fmt.Sprintf("%s/%s/?query=%s&fmt=json&limit=%d&offset=%d",
		musicBrainzBaseURL, searchType, url.QueryEscape(query), musicBrainzPageSize, offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("musicbrainz: build request: %w", err)
	}
	req.Header.Set("User-Agent", "musicfed-aggregator/1.0 (+https://example.invalid)")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

type mbRecording struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Length        int    `json:"length"`
	ArtistCredit  []mbArtistCredit `json:"artist-credit"`
	Releases      []mbRelease      `json:"releases"`
	ISRCs         []string         `json:"isrcs"`
}

type mbArtistCredit struct {
	Artist      mbArtist `json:"artist"`
	JoinPhrase  string   `json:"joinphrase"`
}

type mbArtist struct {
	Name string `json:"name"`
}

type mbRelease struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

type mbResponse struct {
	Recordings []mbRecording `json:"recordings"`
}

func (MusicBrainz) ParseResponse(resp *http.Response, params engine.SearchParams) ([]schema.RawResult, error) {
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &engine.RateLimitError{Engine: "musicbrainz", RetryAfter: time.Second}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("musicbrainz: read body: %w", err)
	}

	var parsed mbResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil
	}

	results := make([]schema.RawResult, 0, len(parsed.Recordings))
	for _, rec := range parsed.Recordings {
		if rec.Title == "" {
			continue
		}

		artistName, _ := joinArtistCredit(rec.ArtistCredit)

		album, releaseDate := "", ""
		if len(rec.Releases) > 0 {
			album = rec.Releases[0].Title
			releaseDate = rec.Releases[0].Date
		}

		isrc := ""
		if len(rec.ISRCs) > 0 {
			isrc = rec.ISRCs[0]
		}

		results = append(results, schema.RawResult{
			Engine:  "musicbrainz",
			Title:   rec.Title,
			URL:     "https://musicbrainz.org/recording/" + rec.ID,
			Content: artistName,
			Fields: map[string]any{
				"artist":       artistName,
				"album":        album,
				"release_date": releaseDate,
				"duration":     strconv.Itoa(rec.Length / 1000),
				"isrc":         isrc,
				"mbid":         rec.ID,
			},
		})
	}

	return results, nil
}

func joinArtistCredit(credits []mbArtistCredit) (string, []string) {
	var sb strings.Builder
	var names []string
	for _, c := range credits {
		if c.Artist.Name != "" {
			sb.WriteString(c.Artist.Name)
			names = append(names, c.Artist.Name)
		}
		sb.WriteString(c.JoinPhrase)
	}
	return strings.TrimSpace(sb.String()), names
}
