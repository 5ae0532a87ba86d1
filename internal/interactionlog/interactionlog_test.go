package interactionlog

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicfed/aggregator/internal/store"
)

func TestNoopSink_AlwaysSucceeds(t *testing.T) {
	var s Sink = NoopSink{}
	err := s.Append(context.Background(), Event{Type: EventSearch, UserID: "u1"})
	assert.NoError(t, err)
}

func TestPayloadToJSON_NilPayloadIsEmptyObject(t *testing.T) {
	assert.Equal(t, []byte("{}"), payloadToJSON(nil))
}

func TestPayloadToJSON_EncodesMap(t *testing.T) {
	out := payloadToJSON(map[string]string{"query": "daft punk"})
	assert.Contains(t, string(out), `"query":"daft punk"`)
}

func TestPostgresSink_Append(t *testing.T) {
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
	defer db.Close()

	sink := NewPostgresSink(db)
	evt := Event{Type: EventSearch, UserID: "test-user", Payload: map[string]string{"query": "test"}}
	err = sink.Append(context.Background(), evt)
	require.NoError(t, err)

	defer db.Pool.Exec(context.Background(), "DELETE FROM interaction_log WHERE user_id = $1", "test-user")
}
