package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Query length bounds from spec.md §4.5 Phase A.
const (
	MinQueryLength = 2
	MaxQueryLength = 200
)

// dangerousPatterns mirrors original_source/orchestrator/services/data_validator.py's
// DANGEROUS_PATTERNS: script tags, javascript: URLs, inline event handlers,
// data:text/html URLs. Used by both Phase A (reject) and Phase B (strip).
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)data:text/html`),
}

// ContainsDangerousContent reports whether s matches any of the dangerous
// patterns enumerated in spec.md §4.5.
func ContainsDangerousContent(s string) bool {
	for _, p := range dangerousPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// ValidateSearchInput implements Phase A: input validation (spec.md §4.5).
// knownEngines is the set of engine names the Registry currently resolves;
// unknown names are an InvalidInput failure here (the Dispatcher itself
// silently drops unknown names per §4.3's Resolve contract — Phase A instead
// guards against a caller asking for engines that don't exist at all).
func ValidateSearchInput(query string, engines []string, knownEngines map[string]struct{}) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", fmt.Errorf("%w: search query cannot be empty", ErrInvalidInput)
	}
	if len(trimmed) < MinQueryLength {
		return "", fmt.Errorf("%w: search query must be at least %d characters", ErrInvalidInput, MinQueryLength)
	}
	if len(trimmed) > MaxQueryLength {
		return "", fmt.Errorf("%w: search query too long (max %d characters)", ErrInvalidInput, MaxQueryLength)
	}
	if ContainsDangerousContent(trimmed) {
		return "", fmt.Errorf("%w: search query contains invalid characters", ErrInvalidInput)
	}

	if len(engines) > 0 && knownEngines != nil {
		var invalid []string
		for _, e := range engines {
			if _, ok := knownEngines[e]; !ok {
				invalid = append(invalid, e)
			}
		}
		if len(invalid) > 0 {
			return "", fmt.Errorf("%w: unknown engines: %s", ErrInvalidInput, strings.Join(invalid, ", "))
		}
	}

	return trimmed, nil
}

// NormalizeQuery trims and collapses internal whitespace (spec.md §4.4 step 2).
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
