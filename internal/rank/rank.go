// Package rank implements C9: cross-source deduplication of
// NormalizedResults into UnifiedTracks, and popularity scoring of the
// merged entities.
package rank

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/musicfed/aggregator/internal/schema"
)

// platformWeights are the fixed per-engine presence weights spec.md §4.6
// names explicitly; anything absent falls back to defaultWeight.
var platformWeights = map[string]float64{
	"youtube":    30,
	"spotify":    25,
	"soundcloud": 20,
	"bandcamp":   15,
	"deezer":     10,
	"mixcloud":   10,
	"genius":     5,
}

const defaultWeight = 5
const coverageBonusPerPlatform = 10
const maxScore = 100

var featuredClause = regexp.MustCompile(`(?i)\s+(?:feat\.|ft\.)\s+.*$`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// normalize implements the unified_id normalization rule: lowercase, strip
// feat./ft. clauses, collapse whitespace.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = featuredClause.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// UnifiedID computes the 12-hex cross-source dedup key:
// md5(normalize(artist)+":"+normalize(title))[0:12].
func UnifiedID(artist, title string) string {
	sum := md5.Sum([]byte(normalize(artist) + ":" + normalize(title)))
	return hex.EncodeToString(sum[:])[:12]
}

// Ranker walks a dispatcher's aggregated NormalizedResult stream and builds
// UnifiedTracks, preserving first-seen insertion order for tie-breaking.
type Ranker struct {
	now func() time.Time
}

// New builds a Ranker. now lets callers inject a deterministic clock in
// tests; a nil now defaults to time.Now.
func New(now func() time.Time) *Ranker {
	if now == nil {
		now = time.Now
	}
	return &Ranker{now: now}
}

// Unify merges a stream of NormalizedResults into UnifiedTracks, one per
// distinct (artist, title) pair, in the order spec.md §4.6 describes: new
// unified_id creates an entry, an existing one merges platform and genre
// data and fills empty album/release_date/duration fields. Tags are not
// merged: NormalizedResult carries no tags, so Tags stays empty.
func (r *Ranker) Unify(results []schema.NormalizedResult) []*schema.UnifiedTrack {
	order := make([]string, 0, len(results))
	byID := make(map[string]*schema.UnifiedTrack, len(results))

	for _, res := range results {
		id := UnifiedID(res.Artist, res.Title)

		track, exists := byID[id]
		if !exists {
			track = schema.NewUnifiedTrack(id, res.Title, res.Artist, r.now())
			byID[id] = track
			order = append(order, id)
		}

		track.Platforms[res.EngineName] = schema.PlatformRecord{
			URL:        res.URL,
			SourceURI:  res.ExternalID,
			Metadata:   res.Metadata,
			Quality:    res.QualityScore,
			PreviewURL: res.PreviewURL,
			IframeSrc:  res.IframeSrc,
		}

		for _, g := range res.Genres {
			if g != "" {
				track.Genres[g] = struct{}{}
			}
		}

		if track.Album == "" && res.Album != "" {
			track.Album = res.Album
		}
		if track.ReleaseDate == "" && res.ReleaseDate != "" {
			track.ReleaseDate = res.ReleaseDate
		}
		if track.DurationMs == 0 && res.DurationMs > 0 {
			track.DurationMs = res.DurationMs
		}
	}

	tracks := make([]*schema.UnifiedTrack, 0, len(order))
	for _, id := range order {
		tracks = append(tracks, byID[id])
	}
	return tracks
}

// Score computes each UnifiedTrack's PopularityScore: a fixed per-engine
// presence weight summed across its platforms, plus a coverage bonus of 10
// per platform (a single platform included), capped at 100.
func (r *Ranker) Score(tracks []*schema.UnifiedTrack) {
	for _, t := range tracks {
		var score float64
		for engineName := range t.Platforms {
			w, ok := platformWeights[strings.ToLower(engineName)]
			if !ok {
				w = defaultWeight
			}
			score += w
		}
		score += coverageBonusPerPlatform * float64(len(t.Platforms))
		if score > maxScore {
			score = maxScore
		}
		t.PopularityScore = score
	}
}

// Rank unifies and scores in one pass, then orders the result by descending
// PopularityScore with ties broken by insertion order (the order Unify
// already produced, which is itself engine-worker-completion order).
func (r *Ranker) Rank(results []schema.NormalizedResult) []*schema.UnifiedTrack {
	tracks := r.Unify(results)
	r.Score(tracks)

	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].PopularityScore > tracks[j].PopularityScore
	})

	return tracks
}
