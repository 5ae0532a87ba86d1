package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/musicfed/aggregator/internal/engine"
	"github.com/musicfed/aggregator/internal/schema"
)

const spotifySearchURL = "https://api.spotify.com/v1/search"

// Spotify is the JSON-API-with-token adapter class: every request carries
// a Bearer token minted by the app-only client-credentials flow (the
// token source NewSpotify builds from a clientcredentials.Config). ParseResponse decodes into
// zmb3/spotify/v2's own wire types, since the real Spotify API response
// shape is exactly what that library already models.
type Spotify struct {
	tokenSource oauth2.TokenSource
	hasCreds    bool
}

// NewSpotify builds the adapter. An empty clientID/clientSecret produces an
// adapter with HasCredentials=false — the Registry excludes it from
// Enabled() rather than failing the process, per the config rule that
// missing credentials disable an engine.
func NewSpotify(clientID, clientSecret string) Spotify {
	if clientID == "" || clientSecret == "" {
		return Spotify{}
	}
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return Spotify{tokenSource: cfg.TokenSource(context.Background()), hasCreds: true}
}

func (s Spotify) Descriptor() schema.EngineDescriptor {
	return schema.EngineDescriptor{
		Name:           "spotify",
		DisplayName:    "Spotify",
		Shortcut:       "sp",
		Features:       []string{"streaming", "preview", "enhanced_metadata"},
		DefaultTimeout: 5 * time.Second,
		RateLimit:      180,
		RatePeriod:     time.Minute,
		CacheTTL:       30 * time.Minute,
		Enabled:        s.hasCreds,
		RequiresAPIKey: true,
		HasCredentials: s.hasCreds,
	}
}

func (s Spotify) BuildRequest(ctx context.Context, params engine.SearchParams) (*http.Request, error) {
	if !s.hasCreds {
		return nil, fmt.Errorf("spotify: no credentials configured")
	}

	token, err := s.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("spotify: token fetch: %w", err)
	}

	values := url.Values{
		"q":     {params.Query},
		"type":  {"track"},
		"limit": {"20"},
	}
	reqURL := spotifySearchURL + "?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("spotify: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

type spotifySearchResponse struct {
	Tracks spotify.FullTrackPage `json:"tracks"`
}

func (s Spotify) ParseResponse(resp *http.Response, params engine.SearchParams) ([]schema.RawResult, error) {
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := time.ParseDuration(ra + "s"); err == nil {
				retryAfter = secs
			}
		}
		return nil, &engine.RateLimitError{Engine: "spotify", RetryAfter: retryAfter}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("spotify: read body: %w", err)
	}

	var parsed spotifySearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil
	}

	results := make([]schema.RawResult, 0, len(parsed.Tracks.Tracks))
	for _, track := range parsed.Tracks.Tracks {
		if track.Name == "" {
			continue
		}

		artistNames := make([]string, 0, len(track.Artists))
		for _, a := range track.Artists {
			artistNames = append(artistNames, a.Name)
		}

		thumbnail := ""
		if len(track.Album.Images) > 0 {
			thumbnail = track.Album.Images[0].URL
		}

		isrc := ""
		if v, ok := track.ExternalIDs["isrc"]; ok {
			isrc = v
		}

		results = append(results, schema.RawResult{
			Engine:  "spotify",
			Title:   track.Name,
			URL:     "https://open.spotify.com/track/" + track.ID.String(),
			Content: strings.Join(artistNames, ", "),
			Fields: map[string]any{
				"artist":       strings.Join(artistNames, " & "),
				"album":        track.Album.Name,
				"duration":     int(track.Duration),
				"thumbnail":    thumbnail,
				"preview_url":  track.PreviewURL,
				"release_date": track.Album.ReleaseDate,
				"isrc":         isrc,
				"external_id":  track.ID.String(),
			},
		})
	}

	return results, nil
}
