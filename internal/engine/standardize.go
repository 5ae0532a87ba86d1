package engine

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/musicfed/aggregator/internal/schema"
)

var (
	featuringPattern   = regexp.MustCompile(`(?i)\s+(?:feat\.|ft\.|featuring)\s+.*$`)
	featuredListPattern = regexp.MustCompile(`(?i)(?:feat\.|ft\.|featuring)\s+(.+)$`)
	featuredSplit      = regexp.MustCompile(`[,&]`)
	yearPattern        = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	durationColon      = regexp.MustCompile(`^\d+(?::\d{2}){1,2}$`)
	durationMinutes    = regexp.MustCompile(`(?i)(\d+)\s*m`)
	durationSeconds    = regexp.MustCompile(`(?i)(\d+)\s*s`)
	isoDurationPattern = regexp.MustCompile(`(?i)^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)
)

// ParseDuration converts the many duration spellings adapters hand back
// (bare seconds, "MM:SS", "HH:MM:SS", ISO-8601 "PT3M45S", "3m 45s") into
// milliseconds. Returns 0, false when the string doesn't match any of them.
func ParseDuration(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(raw); err == nil {
		return n * 1000, true
	}

	if durationColon.MatchString(raw) {
		parts := strings.Split(raw, ":")
		nums := make([]int, len(parts))
		for i, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return 0, false
			}
			nums[i] = n
		}
		switch len(nums) {
		case 2:
			return (nums[0]*60 + nums[1]) * 1000, true
		case 3:
			return (nums[0]*3600 + nums[1]*60 + nums[2]) * 1000, true
		}
	}

	if m := isoDurationPattern.FindStringSubmatch(raw); m != nil && (m[1] != "" || m[2] != "" || m[3] != "") {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		s, _ := strconv.Atoi(m[3])
		return (h*3600 + mm*60 + s) * 1000, true
	}

	minutes, seconds := 0, 0
	found := false
	if m := durationMinutes.FindStringSubmatch(raw); m != nil {
		minutes, _ = strconv.Atoi(m[1])
		found = true
	}
	if m := durationSeconds.FindStringSubmatch(raw); m != nil {
		seconds, _ = strconv.Atoi(m[1])
		found = true
	}
	if found {
		return (minutes*60 + seconds) * 1000, true
	}

	return 0, false
}

// NormalizeArtist strips a trailing "feat./ft./featuring ..." clause and
// collapses whitespace, keeping genuine collaborations ("A & B") intact.
func NormalizeArtist(artist string) string {
	if artist == "" {
		return ""
	}
	artist = featuringPattern.ReplaceAllString(artist, "")
	return strings.Join(strings.Fields(artist), " ")
}

// ExtractFeaturedArtists returns the primary artist followed by every
// featured artist named after a feat./ft./featuring clause.
func ExtractFeaturedArtists(artist string) []string {
	if artist == "" {
		return nil
	}

	var artists []string
	if primary := NormalizeArtist(artist); primary != "" {
		artists = append(artists, primary)
	}

	if m := featuredListPattern.FindStringSubmatch(artist); m != nil {
		for _, a := range featuredSplit.Split(m[1], -1) {
			a = strings.TrimSpace(a)
			if a != "" {
				artists = append(artists, a)
			}
		}
	}

	return artists
}

// ExtractYear pulls a 4-digit year out of a free-form release-date string.
func ExtractYear(dateStr string) (int, bool) {
	if dateStr == "" {
		return 0, false
	}
	if m := yearPattern.FindString(dateStr); m != "" {
		y, err := strconv.Atoi(m)
		if err == nil {
			return y, true
		}
	}
	for _, layout := range []string{"2006-01-02", "2006/01/02", "02/01/2006", "January 2, 2006", "2 January 2006"} {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

// StableKey computes the 16-hex stable_key used to dedup identical results
// returned by the same search across cache hits, matching
// base_music.py's "key" field (md5(title+url)[:16]).
func StableKey(title, url string) string {
	sum := md5.Sum([]byte(title + url))
	return hex.EncodeToString(sum[:])[:16]
}

// Standardize maps a sanitized RawResult into the canonical
// NormalizedResult shape, porting base_music.py's standardize_result field
// by field. It does not classify content or compute popularity — those are
// Classifier (C3) and Ranker (C9) concerns layered on afterward.
func Standardize(raw schema.RawResult, engineName string) schema.NormalizedResult {
	result := schema.NormalizedResult{
		URL:        raw.URL,
		Title:      raw.Title,
		Engine:     raw.Engine,
		EngineName: engineName,
		Metadata:   map[string]any{},
	}

	artistStr, _ := stringField(raw.Fields, "artist")
	result.Artist = NormalizeArtist(artistStr)
	result.Artists = ExtractFeaturedArtists(artistStr)

	if album, ok := stringField(raw.Fields, "album"); ok {
		result.Album = album
	}

	if durationRaw, ok := raw.Fields["duration"]; ok {
		switch v := durationRaw.(type) {
		case string:
			if ms, ok := ParseDuration(v); ok {
				result.DurationMs = ms
			}
		case int:
			result.DurationMs = v
		case float64:
			result.DurationMs = int(v)
		}
	}

	if preview, ok := stringField(raw.Fields, "preview_url"); ok {
		result.PreviewURL = preview
	}

	if thumb, ok := stringField(raw.Fields, "thumbnail"); ok {
		result.Thumbnail = thumb
	} else if img, ok := stringField(raw.Fields, "image"); ok {
		result.Thumbnail = img
	}

	if releaseDate, ok := stringField(raw.Fields, "release_date"); ok {
		result.ReleaseDate = releaseDate
		if year, ok := ExtractYear(releaseDate); ok {
			result.Year = year
		}
	}

	result.Genres = extractGenres(raw.Fields)

	if isrc, ok := stringField(raw.Fields, "isrc"); ok {
		result.ISRC = isrc
	}
	if id, ok := stringField(raw.Fields, "external_id"); ok {
		result.ExternalID = id
	} else if id, ok := stringField(raw.Fields, "mbid"); ok {
		result.ExternalID = id
	}

	if iframe, ok := stringField(raw.Fields, "iframe_src"); ok {
		result.IframeSrc = iframe
	}
	if audio, ok := stringField(raw.Fields, "audio_url"); ok {
		result.AudioURL = audio
	}

	known := map[string]struct{}{
		"artist": {}, "album": {}, "duration": {}, "preview_url": {},
		"thumbnail": {}, "image": {}, "release_date": {}, "genres": {},
		"genre": {}, "isrc": {}, "external_id": {}, "mbid": {},
		"iframe_src": {}, "audio_url": {},
	}
	for k, v := range raw.Fields {
		if _, ok := known[k]; !ok {
			result.Metadata[k] = v
		}
	}

	result.Content = buildContentLine(result)
	result.StableKey = StableKey(result.Title, result.URL)

	return result
}

func buildContentLine(r schema.NormalizedResult) string {
	var parts []string
	if r.Artist != "" {
		parts = append(parts, r.Artist)
	}
	if r.Album != "" {
		parts = append(parts, "Album: "+r.Album)
	}
	if r.DurationMs > 0 {
		seconds := r.DurationMs / 1000
		parts = append(parts, fmt.Sprintf("%d:%02d", seconds/60, seconds%60))
	}
	return strings.Join(parts, " • ")
}

func extractGenres(fields map[string]any) []string {
	if v, ok := fields["genres"]; ok {
		switch g := v.(type) {
		case []string:
			return g
		case []any:
			out := make([]string, 0, len(g))
			for _, item := range g {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case string:
			return []string{g}
		}
	}
	if g, ok := stringField(fields, "genre"); ok {
		return []string{g}
	}
	return nil
}

func stringField(fields map[string]any, key string) (string, bool) {
	if fields == nil {
		return "", false
	}
	v, ok := fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
