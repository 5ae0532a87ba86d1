package unified

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/musicfed/aggregator/internal/schema"
)

func TestService_AddTrackByReference_RejectsUnknownTrack(t *testing.T) {
	s := NewService(nil, nil, nil)
	err := s.AddTrackByReference(context.Background(), "playlist-1", "nonexistent", 0)
	assert.Error(t, err)
}

func TestService_AddTrackByReference_RejectsTrackFailingStorageValidation(t *testing.T) {
	s := NewService(nil, nil, nil)
	track := schema.NewUnifiedTrack("abc123", "", "Artist", time.Now())
	s.RegisterTracks([]*schema.UnifiedTrack{track})

	err := s.AddTrackByReference(context.Background(), "playlist-1", "abc123", 0)
	assert.Error(t, err)
}

func TestService_RegisterTracks_MakesReferenceResolvable(t *testing.T) {
	s := NewService(nil, nil, nil)
	track := schema.NewUnifiedTrack("abc123", "Title", "Artist", time.Now())
	s.RegisterTracks([]*schema.UnifiedTrack{track})

	resolved, ok := s.resolve("abc123")
	assert.True(t, ok)
	assert.Equal(t, "Title", resolved.Title)
}

func TestService_AddTrackByURL_RequiresParseableQuery(t *testing.T) {
	s := NewService(nil, nil, nil)
	_, err := s.AddTrackByURL(context.Background(), "playlist-1", "https://spotify.com/", 0)
	assert.Error(t, err)
}
