package unified

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/musicfed/aggregator/internal/dispatch"
	"github.com/musicfed/aggregator/internal/rank"
	"github.com/musicfed/aggregator/internal/schema"
	"github.com/musicfed/aggregator/internal/validate"
)

// platformHosts maps a URL's hostname fragment to the engine name
// AddTrackByURL restricts its search to. youtube, soundcloud and bandcamp
// have no adapter in internal/engine/adapters, so a URL on those hosts
// resolves to no results.
var platformHosts = map[string]string{
	"spotify.com":        "spotify",
	"youtube.com":        "youtube",
	"youtu.be":           "youtube",
	"soundcloud.com":     "soundcloud",
	"bandcamp.com":       "bandcamp",
	"tidal.com":          "tidal",
	"listen.tidal.com":   "tidal",
	"music-to-scrape.org": "musictoscrape",
	"musicbrainz.org":    "musicbrainz",
	"genius.com":         "genius",
}

// Service is the process-facing C10 API: playlist CRUD backed by Store,
// plus track resolution that can reach back into the Dispatcher when a
// caller references a track by search query or third-party URL rather than
// a UnifiedID already produced by a ranked search.
type Service struct {
	store      *Store
	dispatcher *dispatch.Dispatcher
	ranker     *rank.Ranker

	mu    sync.RWMutex
	known map[string]*schema.UnifiedTrack
}

func NewService(store *Store, dispatcher *dispatch.Dispatcher, ranker *rank.Ranker) *Service {
	return &Service{store: store, dispatcher: dispatcher, ranker: ranker, known: make(map[string]*schema.UnifiedTrack)}
}

// RegisterTracks caches UnifiedTracks produced by a completed search so a
// later AddTrackByReference can resolve them without re-dispatching.
func (s *Service) RegisterTracks(tracks []*schema.UnifiedTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tracks {
		s.known[t.UnifiedID] = t
	}
}

func (s *Service) resolve(unifiedID string) (*schema.UnifiedTrack, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.known[unifiedID]
	return t, ok
}

func (s *Service) CreatePlaylist(ctx context.Context, name, description, ownerID string) (*schema.UniversalPlaylist, error) {
	return s.store.Create(ctx, name, description, ownerID)
}

// GetPlaylist loads a playlist and hydrates its track list from whatever
// UnifiedTracks are currently known to this process. A ref with no known
// track becomes a bare placeholder carrying only its UnifiedID — the caller
// decides whether to re-resolve it via a fresh search.
func (s *Service) GetPlaylist(ctx context.Context, id string) (*schema.UniversalPlaylist, error) {
	playlist, refs, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	playlist.Tracks = make([]*schema.UnifiedTrack, 0, len(refs))
	for _, ref := range refs {
		if track, ok := s.resolve(ref.UnifiedID); ok {
			playlist.Tracks = append(playlist.Tracks, track)
		} else {
			playlist.Tracks = append(playlist.Tracks, &schema.UnifiedTrack{UnifiedID: ref.UnifiedID})
		}
	}

	return playlist, nil
}

func (s *Service) UpdatePlaylist(ctx context.Context, id, name, description string) error {
	return s.store.Update(ctx, id, name, description)
}

func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) ListPlaylists(ctx context.Context, ownerID string, limit, offset int) ([]*schema.UniversalPlaylist, error) {
	return s.store.List(ctx, ownerID, limit, offset)
}

// AddTrackByReference adds a UnifiedID already known to this process
// (typically produced by a prior AGGREGATED_SEARCH) at the given position.
func (s *Service) AddTrackByReference(ctx context.Context, playlistID, unifiedID string, position int) error {
	track, ok := s.resolve(unifiedID)
	if !ok {
		return fmt.Errorf("unified: unknown track reference %s", unifiedID)
	}
	if errs := validate.ValidateForStorage(*track); len(errs) > 0 {
		return fmt.Errorf("unified: track fails storage validation: %s", strings.Join(errs, "; "))
	}
	return s.store.AddTrackRef(ctx, playlistID, unifiedID, position)
}

// AddTrackByQuery dispatches a search across all enabled engines, ranks the
// results, and adds the top UnifiedTrack.
func (s *Service) AddTrackByQuery(ctx context.Context, playlistID, query string, position int) (*schema.UnifiedTrack, error) {
	if s.dispatcher == nil {
		return nil, fmt.Errorf("unified: no dispatcher configured for query resolution")
	}

	resp, err := s.dispatcher.Dispatch(ctx, dispatch.Request{Query: query})
	if err != nil {
		return nil, fmt.Errorf("unified: resolve query: %w", err)
	}

	ranked := s.ranker.Rank(resp.Results)
	if len(ranked) == 0 {
		return nil, fmt.Errorf("unified: no results for query %q", query)
	}

	top := ranked[0]
	s.RegisterTracks(ranked)

	if errs := validate.ValidateForStorage(*top); len(errs) > 0 {
		return nil, fmt.Errorf("unified: resolved track fails storage validation: %s", strings.Join(errs, "; "))
	}
	if err := s.store.AddTrackRef(ctx, playlistID, top.UnifiedID, position); err != nil {
		return nil, err
	}
	return top, nil
}

// AddTrackByURL detects the source platform from the URL's host, derives a
// coarse search query from its path, and resolves it the same way
// AddTrackByQuery does.
func (s *Service) AddTrackByURL(ctx context.Context, playlistID, trackURL string, position int) (*schema.UnifiedTrack, error) {
	parsed, err := url.Parse(trackURL)
	if err != nil {
		return nil, fmt.Errorf("unified: invalid URL: %w", err)
	}

	host := strings.ToLower(parsed.Host)
	var platform string
	for fragment, name := range platformHosts {
		if strings.Contains(host, fragment) {
			platform = name
			break
		}
	}

	query := coarseQueryFromPath(parsed.Path)
	if query == "" {
		return nil, fmt.Errorf("unified: could not derive a search query from URL %s", trackURL)
	}

	if platform == "" {
		return s.AddTrackByQuery(ctx, playlistID, query, position)
	}

	resp, err := s.dispatcher.Dispatch(ctx, dispatch.Request{Query: query, Engines: []string{platform}})
	if err != nil {
		return nil, fmt.Errorf("unified: resolve URL: %w", err)
	}
	ranked := s.ranker.Rank(resp.Results)
	if len(ranked) == 0 {
		return nil, fmt.Errorf("unified: no results resolving URL %s", trackURL)
	}

	top := ranked[0]
	s.RegisterTracks(ranked)
	if errs := validate.ValidateForStorage(*top); len(errs) > 0 {
		return nil, fmt.Errorf("unified: resolved track fails storage validation: %s", strings.Join(errs, "; "))
	}
	if err := s.store.AddTrackRef(ctx, playlistID, top.UnifiedID, position); err != nil {
		return nil, err
	}
	return top, nil
}

func coarseQueryFromPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	last := segments[len(segments)-1]
	last = strings.ReplaceAll(last, "-", " ")
	last = strings.ReplaceAll(last, "_", " ")
	return strings.TrimSpace(last)
}

func (s *Service) RemoveTrack(ctx context.Context, playlistID, unifiedID string) error {
	return s.store.RemoveTrackRef(ctx, playlistID, unifiedID)
}

func (s *Service) ReorderTracks(ctx context.Context, playlistID string, positions map[string]int) error {
	return s.store.ReorderTracks(ctx, playlistID, positions)
}
