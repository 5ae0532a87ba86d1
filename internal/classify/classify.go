// Package classify implements C3: scoring NormalizedResults into a
// ContentType (music track, radio station, podcast, lyrics, video) and
// filtering a batch down to the caller's allowed set.
package classify

import (
	"log"
	"regexp"
	"strings"

	"github.com/musicfed/aggregator/internal/schema"
)

var radioPatterns = compileAll(
	`\bradio\b`, `\bfm\b`, `\bam\b`, `\bstation\b`,
	`\bbroadcast`, `\blive\s+stream`, `\bonline\s+radio`,
	`exclusive\.radio`, `radio\.com`, `tunein\.com`,
	`#\s*TOP\s*\d+\s*DJ`, `CHARTS\s*RADIO`,
)

var musicPatterns = compileAll(
	`^([^-]+)\s*-\s*([^-]+)$`,
	`^([^-]+)\s+by\s+([^-]+)$`,
	`feat\.?\s+`, `ft\.?\s+`,
	`\((original|remix|mix|edit|version)\)`,
	`\[.*(?:remix|mix|edit)\]`,
)

var podcastPatterns = compileAll(
	`\bpodcast\b`, `\bepisode\b`, `\bep\.\s*\d+`,
	`\bshow\b`, `\binterview\b`, `\btalk\b`,
)

var durationPattern = regexp.MustCompile(`(\d+):(\d{2})(?::(\d{2}))?`)

var artistDashTrack = regexp.MustCompile(`^([^-]+)\s*-\s*(.+)$`)
var trackByArtist = regexp.MustCompile(`(?i)^(.+)\s+by\s+([^-]+)$`)
var trailingParenthetical = regexp.MustCompile(`\s*\([^)]+\)\s*$`)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

var musicEngines = []string{"bandcamp", "soundcloud", "jamendo", "mixcloud"}

// Classify scores a NormalizedResult and returns its ContentType plus a
// confidence in [0,1]. Engine-based overrides take precedence over pattern
// scoring: an engine known to only ever return one kind of content (radio
// directories, lyrics sites) is trusted outright.
func Classify(r schema.NormalizedResult) (schema.ContentType, float64) {
	title := strings.TrimSpace(r.Title)
	url := strings.ToLower(r.URL)
	content := strings.ToLower(r.Content)
	engine := strings.ToLower(r.Engine)

	switch engine {
	case "radio browser":
		return schema.ContentRadioStation, 0.95
	case "genius", "genius lyrics":
		return schema.ContentLyrics, 0.95
	}

	if radioScore := calculateRadioScore(title, url, content); radioScore > 0.7 {
		return schema.ContentRadioStation, radioScore
	}

	if isPodcast(title, content) {
		return schema.ContentPodcast, 0.8
	}

	if musicScore := calculateMusicScore(r); musicScore > 0.5 {
		return schema.ContentMusicTrack, musicScore
	}

	if engine == "youtube" && strings.Contains(url, "youtube.com") {
		if hasMusicMetadata(r) {
			return schema.ContentVideo, 0.7
		}
		return schema.ContentUnknown, 0.3
	}

	return schema.ContentUnknown, 0.0
}

func calculateRadioScore(title, url, content string) float64 {
	score := 0.0

	for _, p := range radioPatterns {
		if p.MatchString(title) {
			score += 0.3
			break
		}
	}

	radioDomains := []string{"radio", "fm", "stream", "live", "broadcast"}
	for _, d := range radioDomains {
		if strings.Contains(url, d) {
			score += 0.3
			break
		}
	}

	for _, p := range radioPatterns[:5] {
		if p.MatchString(content) {
			score += 0.2
			break
		}
	}

	duration, ok := parseDurationSeconds(content)
	if !ok || duration > 3600 {
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func calculateMusicScore(r schema.NormalizedResult) float64 {
	score := 0.0

	for _, p := range musicPatterns[:2] {
		if loc := p.FindStringIndex(r.Title); loc != nil && loc[0] == 0 {
			score += 0.4
			break
		}
	}

	if hasMusicMetadata(r) {
		score += 0.3
	}

	if duration, ok := parseDurationSeconds(strings.ToLower(r.Content)); ok && duration >= 30 && duration <= 900 {
		score += 0.2
	}

	engineLower := strings.ToLower(r.Engine)
	for _, e := range musicEngines {
		if strings.Contains(engineLower, e) {
			score += 0.3
			break
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func isPodcast(title, content string) bool {
	combined := strings.ToLower(title + " " + content)
	for _, p := range podcastPatterns {
		if p.MatchString(combined) {
			return true
		}
	}
	return false
}

func hasMusicMetadata(r schema.NormalizedResult) bool {
	return r.Artist != "" || r.Album != "" || r.DurationMs > 0 || r.ISRC != ""
}

func parseDurationSeconds(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	if m[3] != "" {
		return atoi(m[1])*3600 + atoi(m[2])*60 + atoi(m[3]), true
	}
	return atoi(m[1])*60 + atoi(m[2]), true
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// DefaultAllowedTypes is used when a caller doesn't supply an AllowedTypes
// override (spec Open Question E: lyrics are excluded by default).
var DefaultAllowedTypes = []schema.ContentType{schema.ContentMusicTrack, schema.ContentVideo}

// FilterResults classifies every result, stamps ContentType/Confidence onto
// it, and returns only the ones matching allowedTypes (DefaultAllowedTypes
// if empty).
func FilterResults(results []schema.NormalizedResult, allowedTypes []schema.ContentType) []schema.NormalizedResult {
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedTypes
	}
	allowed := make(map[schema.ContentType]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = struct{}{}
	}

	stats := map[schema.ContentType]int{}
	filtered := make([]schema.NormalizedResult, 0, len(results))

	for _, r := range results {
		contentType, confidence := Classify(r)
		stats[contentType]++

		r.ContentType = contentType
		r.Confidence = confidence
		r = EnhanceMetadata(r)

		if _, ok := allowed[contentType]; ok {
			filtered = append(filtered, r)
		}
	}

	log.Printf("[CLASSIFY] stats=%v filtered=%d/%d", stats, len(filtered), len(results))

	return filtered
}

// EnhanceMetadata extracts artist/title from a bare title when the engine
// didn't supply them directly, and derives BaseTrack by stripping a trailing
// parenthetical version marker ("Song (Radio Edit)" -> "Song"). Only
// applies to results already classified as music tracks.
func EnhanceMetadata(r schema.NormalizedResult) schema.NormalizedResult {
	if r.ContentType != schema.ContentMusicTrack {
		return r
	}

	title := r.Title
	if r.Artist == "" || title == "" {
		if m := artistDashTrack.FindStringSubmatch(title); m != nil {
			if r.Artist == "" {
				r.Artist = strings.TrimSpace(m[1])
			}
			title = strings.TrimSpace(m[2])
		} else if m := trackByArtist.FindStringSubmatch(title); m != nil {
			title = strings.TrimSpace(m[1])
			if r.Artist == "" {
				r.Artist = strings.TrimSpace(m[2])
			}
		}
		if len(r.Artists) == 0 && r.Artist != "" {
			r.Artists = []string{r.Artist}
		}
	}

	base := title
	if base == "" {
		base = r.Title
	}
	r.BaseTrack = strings.TrimSpace(trailingParenthetical.ReplaceAllString(base, ""))

	return r
}
