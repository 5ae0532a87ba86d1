package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/musicfed/aggregator/internal/engine"
	"github.com/musicfed/aggregator/internal/schema"
)

const musicToScrapeBaseURL = "https://music-to-scrape.org"

// MusicToScrape is the HTML-scrape-with-CSS-selectors adapter class: a
// prioritized list of item selectors, each with its own prioritized list of
// field selectors. When no item selector matches it falls back to
// "#results div[class]", then to "main article, main div[class]"; it does
// not scrape bare links. Grounded on original_source/engines/musictoscrape.py.
type MusicToScrape struct{}

func (MusicToScrape) Descriptor() schema.EngineDescriptor {
	return schema.EngineDescriptor{
		Name:           "musictoscrape",
		DisplayName:    "MusicToScrape",
		Shortcut:       "mts",
		Features:       []string{"scraping"},
		DefaultTimeout: 6 * time.Second,
		RateLimit:      30,
		RatePeriod:     time.Minute,
		CacheTTL:       time.Hour,
		Enabled:        true,
		RequiresAPIKey: false,
	}
}

func (MusicToScrape) BuildRequest(ctx context.Context, params engine.SearchParams) (*http.Request, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	values := url.Values{"q": {params.Query}, "page": {strconv.Itoa(page)}}
	reqURL := musicToScrapeBaseURL + "/search?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("musictoscrape: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; musicfed-aggregator)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	return req, nil
}

var itemSelectors = []string{
	"div.track-item", "div.album-item", "article.music-item",
	"div[class*=result]", "div.song", "li.track", "div.music-card", "div.item",
}

var titleSelectors = []string{"h2, h3, h4", ".title, .track-title, .song-title", "a.title", "span.title"}
var artistSelectors = []string{".artist, .artist-name", "span[class*=artist]", "a[class*=artist]", ".by"}
var albumSelectors = []string{".album", "span[class*=album]"}
var durationSelectors = []string{".duration", "time", "span[class*=time]"}
var genreSelectors = []string{".genre", "span[class*=genre]"}

func (MusicToScrape) ParseResponse(resp *http.Response, params engine.SearchParams) ([]schema.RawResult, error) {
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &engine.RateLimitError{Engine: "musictoscrape", RetryAfter: time.Second}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("musictoscrape: parse html: %w", err)
	}

	var items *goquery.Selection
	for _, sel := range itemSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			items = found
			break
		}
	}
	if items == nil {
		items = doc.Find("#results div[class]")
	}
	if items.Length() == 0 {
		items = doc.Find("main article, main div[class]")
	}

	var results []schema.RawResult
	items.EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= 20 {
			return false
		}

		title := firstText(item, titleSelectors)
		if title == "" {
			return true
		}

		artist := firstText(item, artistSelectors)
		if artist == "" {
			artist = "Unknown Artist"
		}

		itemURL := ""
		if href, ok := item.Find("a[href]").First().Attr("href"); ok {
			if strings.HasPrefix(href, "http") {
				itemURL = href
			} else {
				itemURL = musicToScrapeBaseURL + href
			}
		}
		if itemURL == "" {
			slug := strings.ReplaceAll(strings.ToLower(title), " ", "-")
			itemURL = fmt.Sprintf("%s/track/%s", musicToScrapeBaseURL, url.PathEscape(slug))
		}

		fields := map[string]any{"artist": artist}
		if album := firstText(item, albumSelectors); album != "" {
			fields["album"] = album
		}
		if durationText := firstText(item, durationSelectors); durationText != "" {
			fields["duration"] = durationText
		}
		if genre := firstText(item, genreSelectors); genre != "" {
			fields["genre"] = genre
		}

		results = append(results, schema.RawResult{
			Engine:  "musictoscrape",
			Title:   title,
			URL:     itemURL,
			Content: artist,
			Fields:  fields,
		})
		return true
	})

	return results, nil
}

func firstText(item *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(item.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}
