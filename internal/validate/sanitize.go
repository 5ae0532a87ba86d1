package validate

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/musicfed/aggregator/internal/schema"
)

var whitespacePattern = regexp.MustCompile(`\s+`)
var durationStringPattern = regexp.MustCompile(`^(?:(\d+):)?(\d+):(\d{2})$`)

// SanitizeText implements Phase B's _sanitize_text: entity-decode, strip
// dangerous patterns, collapse whitespace, trim.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	text = html.UnescapeString(text)
	for _, p := range dangerousPatterns {
		text = p.ReplaceAllString(text, "")
	}
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// SanitizeURL enforces the http(s)-only, non-script-scheme URL policy from
// Phase B and truncates to MaxURLLength.
func SanitizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return ""
	}
	lower := strings.ToLower(rawURL)
	for _, bad := range []string{"javascript:", "data:", "vbscript:"} {
		if strings.Contains(lower, bad) {
			return ""
		}
	}
	if len(rawURL) > MaxURLLength {
		rawURL = rawURL[:MaxURLLength]
	}
	return rawURL
}

// MaxURLLength, MaxTitleLength, MaxContentLength, and the duration bounds
// mirror data_validator.py's class constants.
const (
	MaxTitleLength   = 500
	MaxURLLength     = 2000
	MaxContentLength = 5000
	MinDurationMs    = 1000
	MaxDurationMs    = 14400000
)

// SanitizeResult runs Phase B over a RawResult's text fields, URL, and
// nested metadata, producing the sanitized values Standardize builds a
// NormalizedResult out of.
func SanitizeResult(r schema.RawResult) schema.RawResult {
	r.Title = SanitizeText(r.Title)
	r.Content = SanitizeText(r.Content)
	r.URL = SanitizeURL(r.URL)

	if r.Fields == nil {
		return r
	}

	for _, field := range []string{"artist", "album", "track"} {
		if v, ok := r.Fields[field].(string); ok && v != "" {
			r.Fields[field] = SanitizeText(v)
		}
	}

	if d, ok := r.Fields["duration"]; ok {
		r.Fields["duration"] = ValidateDuration(d)
	}

	if meta, ok := r.Fields["metadata"].(map[string]any); ok {
		r.Fields["metadata"] = SanitizeMetadata(meta)
	}

	return r
}

// SanitizeMetadata implements Phase B's _sanitize_metadata: key/value
// length caps, list truncation to 20 items, one level of nested-map
// sanitation truncated to 10 keys — keeps engine-supplied metadata blobs
// bounded before they reach the cache or the database.
func SanitizeMetadata(metadata map[string]any) map[string]any {
	clean := make(map[string]any, len(metadata))

	for key, value := range metadata {
		cleanKey := truncate(SanitizeText(key), 50)

		switch v := value.(type) {
		case string:
			clean[cleanKey] = truncate(SanitizeText(v), 500)
		case int, int64, float64, bool:
			clean[cleanKey] = v
		case []any:
			limit := v
			if len(limit) > 20 {
				limit = limit[:20]
			}
			cleanList := make([]any, 0, len(limit))
			for _, item := range limit {
				switch it := item.(type) {
				case string:
					cleanList = append(cleanList, truncate(SanitizeText(it), 100))
				case int, int64, float64, bool:
					cleanList = append(cleanList, it)
				}
			}
			clean[cleanKey] = cleanList
		case map[string]any:
			nested := map[string]any{}
			count := 0
			for k, nv := range v {
				if count >= 10 {
					break
				}
				nested[truncate(SanitizeText(k), 50)] = truncate(SanitizeText(toString(nv)), 100)
				count++
			}
			clean[cleanKey] = nested
		}
	}

	return clean
}

// ValidateDuration normalizes a duration value (string "3:45"/"1:23:45", or
// a numeric seconds/ms value) to milliseconds, returning 0 if it's absent
// or out of [MinDurationMs, MaxDurationMs].
func ValidateDuration(duration any) int {
	switch v := duration.(type) {
	case string:
		ms, ok := ParseDurationString(v)
		if ok && ms >= MinDurationMs && ms <= MaxDurationMs {
			return ms
		}
	case int:
		return clampDurationMs(float64(v))
	case int64:
		return clampDurationMs(float64(v))
	case float64:
		return clampDurationMs(v)
	}
	return 0
}

func clampDurationMs(v float64) int {
	var ms int
	if v < 1000 {
		ms = int(v * 1000)
	} else {
		ms = int(v)
	}
	if ms < MinDurationMs || ms > MaxDurationMs {
		return 0
	}
	return ms
}

// ParseDurationString parses "MM:SS" or "HH:MM:SS" into milliseconds.
func ParseDurationString(s string) (int, bool) {
	m := durationStringPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	hours := 0
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1])
	}
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	return (hours*3600 + minutes*60 + seconds) * 1000, true
}

// IsValidURL reports whether s parses as an absolute URL with a scheme and
// host, per Phase C's _is_valid_url.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

var isrcPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{3}\d{7}$`)

// IsValidISRC validates ISRC codes with or without hyphens (CC-XXX-YY-NNNNN
// or CCXXXYYNNNNN). An empty string is valid since ISRC is optional.
func IsValidISRC(isrc string) bool {
	if isrc == "" {
		return true
	}
	stripped := strings.ToUpper(strings.ReplaceAll(isrc, "-", ""))
	return isrcPattern.MatchString(stripped)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
