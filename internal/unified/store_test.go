package unified

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicfed/aggregator/internal/store"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		t.Skip("No DATABASE_URL or TEST_DATABASE_URL set, skipping database test")
	}

	db, err := store.NewPostgresConnection(databaseURL)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewStore(db)
}

func TestStore_CreateAndGetByID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	playlist, err := s.Create(ctx, "Road Trip", "Songs for the drive", "owner-1")
	require.NoError(t, err)
	defer s.Delete(ctx, playlist.ID)

	fetched, refs, err := s.GetByID(ctx, playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, "Road Trip", fetched.Name)
	assert.Empty(t, refs)
}

func TestStore_AddTrackRef_AppendsAndKeepsDensePositions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	playlist, err := s.Create(ctx, "Dense", "", "owner-1")
	require.NoError(t, err)
	defer s.Delete(ctx, playlist.ID)

	require.NoError(t, s.AddTrackRef(ctx, playlist.ID, "track-a", 0))
	require.NoError(t, s.AddTrackRef(ctx, playlist.ID, "track-b", 0))
	require.NoError(t, s.AddTrackRef(ctx, playlist.ID, "track-c", 0))

	_, refs, err := s.GetByID(ctx, playlist.ID)
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{refs[0].Position, refs[1].Position, refs[2].Position})
}

func TestStore_RemoveTrackRef_ShiftsPositionsDown(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	playlist, err := s.Create(ctx, "Shifty", "", "owner-1")
	require.NoError(t, err)
	defer s.Delete(ctx, playlist.ID)

	require.NoError(t, s.AddTrackRef(ctx, playlist.ID, "a", 0))
	require.NoError(t, s.AddTrackRef(ctx, playlist.ID, "b", 0))
	require.NoError(t, s.AddTrackRef(ctx, playlist.ID, "c", 0))

	require.NoError(t, s.RemoveTrackRef(ctx, playlist.ID, "b"))

	_, refs, err := s.GetByID(ctx, playlist.ID)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "a", refs[0].UnifiedID)
	assert.Equal(t, 0, refs[0].Position)
	assert.Equal(t, "c", refs[1].UnifiedID)
	assert.Equal(t, 1, refs[1].Position)
}

func TestStore_List_FiltersByOwner(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p1, err := s.Create(ctx, "Mine", "", "owner-x")
	require.NoError(t, err)
	defer s.Delete(ctx, p1.ID)

	p2, err := s.Create(ctx, "Also Mine", "", "owner-x")
	require.NoError(t, err)
	defer s.Delete(ctx, p2.ID)

	playlists, err := s.List(ctx, "owner-x", 10, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(playlists), 2)
}

func TestStore_Delete_RemovesPlaylistAndTracks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	playlist, err := s.Create(ctx, "Ephemeral", "", "owner-1")
	require.NoError(t, err)
	require.NoError(t, s.AddTrackRef(ctx, playlist.ID, "a", 0))

	require.NoError(t, s.Delete(ctx, playlist.ID))

	_, _, err = s.GetByID(ctx, playlist.ID)
	assert.Error(t, err)
}
