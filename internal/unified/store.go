// Package unified implements C10: UniversalPlaylist CRUD with dense
// position enforcement, track resolution by reference/query/URL, and
// M3U/JSON/CSV export.
package unified

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/musicfed/aggregator/internal/schema"
	"github.com/musicfed/aggregator/internal/store"
)

// PlaylistTrackRef is the persisted row shape for one playlist/track
// membership: only the unified_id and its dense position are stored, never
// a copy of the track's own data, since UnifiedTracks are re-derived from
// live search results rather than owned by the playlist service.
type PlaylistTrackRef struct {
	UnifiedID string
	Position  int
	AddedAt   time.Time
}

// Store is the Postgres-backed persistence layer for C10, grounded on
// playlist_repository.go's query shapes and transactional position
// maintenance.
type Store struct {
	db *store.PostgresDB
}

func NewStore(db *store.PostgresDB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, name, description, ownerID string) (*schema.UniversalPlaylist, error) {
	now := time.Now()
	playlist := &schema.UniversalPlaylist{
		ID: uuid.New().String(), Name: name, Description: description,
		OwnerID: ownerID, CreatedAt: now, UpdatedAt: now,
	}

	query := `
		INSERT INTO universal_playlists (id, name, description, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.Pool.Exec(ctx, query, playlist.ID, playlist.Name, playlist.Description,
		playlist.OwnerID, playlist.CreatedAt, playlist.UpdatedAt); err != nil {
		return nil, fmt.Errorf("unified: create playlist: %w", err)
	}

	return playlist, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*schema.UniversalPlaylist, []PlaylistTrackRef, error) {
	query := `
		SELECT id, name, description, owner_id, created_at, updated_at
		FROM universal_playlists WHERE id = $1
	`
	playlist := &schema.UniversalPlaylist{}
	err := s.db.Pool.QueryRow(ctx, query, id).Scan(
		&playlist.ID, &playlist.Name, &playlist.Description,
		&playlist.OwnerID, &playlist.CreatedAt, &playlist.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, fmt.Errorf("unified: playlist not found")
		}
		return nil, nil, fmt.Errorf("unified: get playlist: %w", err)
	}

	refs, err := s.tracksForPlaylist(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return playlist, refs, nil
}

func (s *Store) tracksForPlaylist(ctx context.Context, playlistID string) ([]PlaylistTrackRef, error) {
	query := `
		SELECT unified_id, position, added_at
		FROM universal_playlist_tracks
		WHERE playlist_id = $1
		ORDER BY position ASC
	`
	rows, err := s.db.Pool.Query(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("unified: list playlist tracks: %w", err)
	}
	defer rows.Close()

	var refs []PlaylistTrackRef
	for rows.Next() {
		var ref PlaylistTrackRef
		if err := rows.Scan(&ref.UnifiedID, &ref.Position, &ref.AddedAt); err != nil {
			return nil, fmt.Errorf("unified: scan playlist track: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unified: iterate playlist tracks: %w", err)
	}
	return refs, nil
}

func (s *Store) Update(ctx context.Context, id, name, description string) error {
	query := `
		UPDATE universal_playlists SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.Pool.Exec(ctx, query, id, name, description)
	if err != nil {
		return fmt.Errorf("unified: update playlist: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("unified: playlist not found")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("unified: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM universal_playlist_tracks WHERE playlist_id = $1`, id); err != nil {
		return fmt.Errorf("unified: delete playlist tracks: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM universal_playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("unified: delete playlist: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("unified: playlist not found")
	}

	return tx.Commit(ctx)
}

func (s *Store) List(ctx context.Context, ownerID string, limit, offset int) ([]*schema.UniversalPlaylist, error) {
	query := `
		SELECT id, name, description, owner_id, created_at, updated_at
		FROM universal_playlists WHERE owner_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	rows, err := s.db.Pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("unified: list playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*schema.UniversalPlaylist
	for rows.Next() {
		p := &schema.UniversalPlaylist{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("unified: scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unified: iterate playlists: %w", err)
	}
	return playlists, nil
}

// AddTrackRef inserts a unified_id at position, shifting later tracks down
// to keep positions dense. position <= 0 appends to the end.
func (s *Store) AddTrackRef(ctx context.Context, playlistID, unifiedID string, position int) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("unified: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if position <= 0 {
		var maxPosition int
		query := `SELECT COALESCE(MAX(position), -1) FROM universal_playlist_tracks WHERE playlist_id = $1`
		if err := tx.QueryRow(ctx, query, playlistID).Scan(&maxPosition); err != nil {
			return fmt.Errorf("unified: get max position: %w", err)
		}
		position = maxPosition + 1
	} else {
		shift := `UPDATE universal_playlist_tracks SET position = position + 1 WHERE playlist_id = $1 AND position >= $2`
		if _, err := tx.Exec(ctx, shift, playlistID, position); err != nil {
			return fmt.Errorf("unified: shift track positions: %w", err)
		}
	}

	insert := `
		INSERT INTO universal_playlist_tracks (playlist_id, unified_id, position, added_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := tx.Exec(ctx, insert, playlistID, unifiedID, position); err != nil {
		return fmt.Errorf("unified: add track: %w", err)
	}

	return tx.Commit(ctx)
}

// RemoveTrackRef deletes a unified_id's row and shifts later tracks up so
// positions stay dense with no gaps.
func (s *Store) RemoveTrackRef(ctx context.Context, playlistID, unifiedID string) error {
	var position int
	getPos := `SELECT position FROM universal_playlist_tracks WHERE playlist_id = $1 AND unified_id = $2`
	if err := s.db.Pool.QueryRow(ctx, getPos, playlistID, unifiedID).Scan(&position); err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("unified: track not in playlist")
		}
		return fmt.Errorf("unified: get track position: %w", err)
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("unified: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	remove := `DELETE FROM universal_playlist_tracks WHERE playlist_id = $1 AND unified_id = $2`
	result, err := tx.Exec(ctx, remove, playlistID, unifiedID)
	if err != nil {
		return fmt.Errorf("unified: remove track: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("unified: track not in playlist")
	}

	shift := `UPDATE universal_playlist_tracks SET position = position - 1 WHERE playlist_id = $1 AND position > $2`
	if _, err := tx.Exec(ctx, shift, playlistID, position); err != nil {
		return fmt.Errorf("unified: shift track positions: %w", err)
	}

	return tx.Commit(ctx)
}

// ReorderTracks applies an arbitrary new position assignment in one
// transaction. Callers are responsible for handing in a dense 0..n-1
// assignment; ReorderTracks does not itself validate density.
func (s *Store) ReorderTracks(ctx context.Context, playlistID string, positions map[string]int) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("unified: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for unifiedID, position := range positions {
		query := `UPDATE universal_playlist_tracks SET position = $1 WHERE playlist_id = $2 AND unified_id = $3`
		if _, err := tx.Exec(ctx, query, position, playlistID, unifiedID); err != nil {
			return fmt.Errorf("unified: reorder track: %w", err)
		}
	}

	return tx.Commit(ctx)
}
