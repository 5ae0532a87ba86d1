// Command musicsearchd is the thin HTTP entrypoint that wires the Registry,
// Dispatcher, Ranker, and UniversalPlaylist service together and exposes
// the operations described in §6 as plain JSON endpoints, the way the
// teacher's server.go wires its GraphQL resolver but without a GraphQL
// layer, authentication, or any other surface §1 places out of scope.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/musicfed/aggregator/internal/cache"
	"github.com/musicfed/aggregator/internal/config"
	"github.com/musicfed/aggregator/internal/dispatch"
	"github.com/musicfed/aggregator/internal/engine/adapters"
	"github.com/musicfed/aggregator/internal/interactionlog"
	"github.com/musicfed/aggregator/internal/ratelimit"
	"github.com/musicfed/aggregator/internal/rank"
	"github.com/musicfed/aggregator/internal/registry"
	"github.com/musicfed/aggregator/internal/schema"
	"github.com/musicfed/aggregator/internal/store"
	"github.com/musicfed/aggregator/internal/unified"
	"github.com/musicfed/aggregator/internal/validate"
)

// outboundLimiter caps this process's own outbound HTTP request rate at 50
// requests per second (burst 50), independent of the per-engine distributed limiter
// in internal/ratelimit which is Redis-backed and shared across processes.
var outboundLimiter = rate.NewLimiter(rate.Limit(50), 50)

// rateLimitedTransport gates every outbound request through outboundLimiter
// before handing it to the wrapped RoundTripper.
type rateLimitedTransport struct {
	base http.RoundTripper
}

func (t rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := outboundLimiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

type server struct {
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	ranker     *rank.Ranker
	unified    *unified.Service
	logSink    interactionlog.Sink
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[REQUEST] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[RESPONSE] %s %s - Duration: %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleSearch implements §6's SEARCH operation.
func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")
	var engines []string
	if raw := q.Get("engines"); raw != "" {
		engines = strings.Split(raw, ",")
	}

	known := map[string]struct{}{}
	for _, d := range s.registry.List() {
		known[d.Name] = struct{}{}
	}

	normalized, err := validate.ValidateSearchInput(query, engines, known)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false, "query": query, "engines_queried": 0,
			"error": err.Error(),
		})
		return
	}

	resp, err := s.dispatcher.Dispatch(r.Context(), dispatch.Request{Query: normalized, Engines: engines})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.logSink.Append(r.Context(), interactionlog.Event{
		Type: interactionlog.EventSearch, Payload: map[string]string{"query": normalized},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"query":             resp.Query,
		"engines_queried":    resp.TotalQueried,
		"total_results":      len(resp.Results),
		"response_time_ms":   resp.ElapsedMs,
		"per_engine_status":  resp.PerEngineStatus,
		"results":            resp.Results,
	})
}

// handleAggregatedSearch implements §6's AGGREGATED_SEARCH operation: the
// same fan-out, but deduplicated and ranked into UnifiedTracks.
func (s *server) handleAggregatedSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("query")

	known := map[string]struct{}{}
	for _, d := range s.registry.List() {
		known[d.Name] = struct{}{}
	}
	normalized, err := validate.ValidateSearchInput(query, nil, known)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	resp, err := s.dispatcher.Dispatch(r.Context(), dispatch.Request{Query: normalized})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	tracks := s.ranker.Rank(resp.Results)
	s.unified.RegisterTracks(tracks)

	writeJSON(w, http.StatusOK, map[string]any{
		"query":          resp.Query,
		"total_results":  len(tracks),
		"search_time_ms": time.Since(start).Milliseconds(),
		"results":        tracks,
	})
}

// handleEngineStatus implements §6's ENGINE_STATUS operation.
func (s *server) handleEngineStatus(w http.ResponseWriter, r *http.Request) {
	all := s.registry.List()
	type engineStatus struct {
		ID       string   `json:"id"`
		Display  string   `json:"display"`
		Shortcut string   `json:"shortcut"`
		Status   string   `json:"status"`
		Features []string `json:"features"`
	}

	active, failed := 0, 0
	engines := make([]engineStatus, 0, len(all))
	for _, d := range all {
		status := "active"
		if !d.Enabled {
			status = "disabled"
			failed++
		} else {
			active++
		}
		engines = append(engines, engineStatus{
			ID: d.Name, Display: d.DisplayName, Shortcut: d.Shortcut,
			Status: status, Features: d.Features,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total": len(all), "active": active, "failed": failed, "engines": engines,
	})
}

func (s *server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var body struct{ Name, Description, OwnerID string }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		playlist, err := s.unified.CreatePlaylist(r.Context(), body.Name, body.Description, body.OwnerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, playlist)
	case http.MethodGet:
		ownerID := r.URL.Query().Get("owner_id")
		limit, offset := pagination(r)
		playlists, err := s.unified.ListPlaylists(r.Context(), ownerID, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, playlists)
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *server) handlePlaylistByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/playlists/")
	if idx := strings.Index(id, "/"); idx >= 0 {
		s.handlePlaylistSubresource(w, r, id[:idx], id[idx+1:])
		return
	}

	switch r.Method {
	case http.MethodGet:
		playlist, err := s.unified.GetPlaylist(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, playlist)
	case http.MethodPut:
		var body struct{ Name, Description string }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.unified.UpdatePlaylist(r.Context(), id, body.Name, body.Description); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	case http.MethodDelete:
		if err := s.unified.DeletePlaylist(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

// handlePlaylistSubresource dispatches /playlists/{id}/tracks and
// /playlists/{id}/export, the two nested §6 operations.
func (s *server) handlePlaylistSubresource(w http.ResponseWriter, r *http.Request, id, sub string) {
	switch {
	case sub == "tracks" && r.Method == http.MethodPost:
		var body struct {
			UnifiedID string `json:"unified_id"`
			Query     string `json:"query"`
			URL       string `json:"url"`
			Position  int    `json:"position"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		var err error
		switch {
		case body.UnifiedID != "":
			err = s.unified.AddTrackByReference(r.Context(), id, body.UnifiedID, body.Position)
		case body.URL != "":
			_, err = s.unified.AddTrackByURL(r.Context(), id, body.URL, body.Position)
		default:
			_, err = s.unified.AddTrackByQuery(r.Context(), id, body.Query, body.Position)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.logSink.Append(r.Context(), interactionlog.Event{
			Type: interactionlog.EventTrackAdded, Payload: map[string]string{"playlist_id": id},
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "added"})

	case strings.HasPrefix(sub, "tracks/") && r.Method == http.MethodDelete:
		unifiedID := strings.TrimPrefix(sub, "tracks/")
		if err := s.unified.RemoveTrack(r.Context(), id, unifiedID); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})

	case sub == "export" && r.Method == http.MethodGet:
		format := unified.Format(r.URL.Query().Get("format"))
		if format == "" {
			format = unified.FormatJSON
		}
		playlist, err := s.unified.GetPlaylist(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		out, err := unified.Export(playlist, format)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)

	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("no such playlist subresource"))
	}
}

func pagination(r *http.Request) (limit, offset int) {
	limit, offset = 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	return limit, offset
}

func buildRegistry(cfg *config.Config) *registry.Registry {
	return registry.New(
		adapters.MusicBrainz{},
		adapters.TidalWeb{},
		adapters.MusicToScrape{},
		adapters.RadioParadise{},
		adapters.RadioBrowser{},
		adapters.NewSpotify(cfg.SpotifyClientID, cfg.SpotifyClientSecret),
		adapters.NewGenius(cfg.GeniusAPIToken),
	)
}

func main() {
	log.Println("[INIT] starting musicsearchd...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERROR] failed to load configuration: %v", err)
	}
	log.Printf("[CONFIG] listening on port %s in %s environment", cfg.Port, cfg.Environment)

	redisClient, err := store.NewRedisConnection(cfg.RedisURL)
	if err != nil {
		log.Fatalf("[ERROR] failed to connect to redis: %v", err)
	}

	var logSink interactionlog.Sink = interactionlog.NoopSink{}
	var pgDB *store.PostgresDB
	if cfg.InteractionLogEnabled || cfg.DatabaseURL != "" || cfg.DBPassword != "" {
		pgDB, err = store.NewPostgresConnection(cfg.GetDatabaseDSN())
		if err != nil {
			log.Fatalf("[ERROR] failed to connect to postgres: %v", err)
		}
		defer pgDB.Close()
		if cfg.InteractionLogEnabled {
			logSink = interactionlog.NewPostgresSink(pgDB)
		}
	}

	reg := buildRegistry(cfg)
	musicCache := cache.New(redisClient, cache.Config{Enabled: true, Compression: true, KeyPrefix: "music"})
	limiter := ratelimit.NewEngineLimiter(ratelimit.New(redisClient))

	httpClient := &http.Client{Timeout: 20 * time.Second, Transport: rateLimitedTransport{base: http.DefaultTransport}}
	// Widened deliberately beyond classify.DefaultAllowedTypes: this deployment
	// wants radio stations in its default search results, not just tracks/video.
	dispatcherCfg := dispatch.Config{
		OverallDeadline: cfg.DispatcherOverallDeadline,
		SoftTimeout:     cfg.DispatcherSoftTimeout,
		AllowedTypes:    []schema.ContentType{schema.ContentMusicTrack, schema.ContentRadioStation, schema.ContentVideo},
	}
	dispatcher := dispatch.New(reg, musicCache, limiter, httpClient, dispatcherCfg)

	ranker := rank.New(time.Now)

	var playlistStore *unified.Store
	if pgDB != nil {
		playlistStore = unified.NewStore(pgDB)
	}
	unifiedService := unified.NewService(playlistStore, dispatcher, ranker)

	srv := &server{registry: reg, dispatcher: dispatcher, ranker: ranker, unified: unifiedService, logSink: logSink}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", srv.handleSearch)
	mux.HandleFunc("/aggregated-search", srv.handleAggregatedSearch)
	mux.HandleFunc("/engines", srv.handleEngineStatus)
	mux.HandleFunc("/playlists", srv.handlePlaylists)
	mux.HandleFunc("/playlists/", srv.handlePlaylistByID)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	handler := corsMiddleware(loggingMiddleware(mux))
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[INIT] musicsearchd ready at http://localhost:%s/", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[ERROR] server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[SHUTDOWN] shutting down musicsearchd...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("[ERROR] forced shutdown: %v", err)
	}
	log.Println("[SHUTDOWN] musicsearchd exited")
}
