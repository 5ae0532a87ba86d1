package registry

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicfed/aggregator/internal/engine"
	"github.com/musicfed/aggregator/internal/schema"
)

type fakeAdapter struct {
	descriptor schema.EngineDescriptor
}

func (f fakeAdapter) Descriptor() schema.EngineDescriptor { return f.descriptor }
func (f fakeAdapter) BuildRequest(ctx context.Context, params engine.SearchParams) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, "https://example.invalid", nil)
}
func (f fakeAdapter) ParseResponse(resp *http.Response, params engine.SearchParams) ([]schema.RawResult, error) {
	return nil, nil
}

func newFake(name string, enabled, requiresKey, hasCreds bool, features ...string) fakeAdapter {
	return fakeAdapter{descriptor: schema.EngineDescriptor{
		Name: name, DisplayName: name, Enabled: enabled,
		RequiresAPIKey: requiresKey, HasCredentials: hasCreds, Features: features,
	}}
}

func TestRegistry_List_PreservesRegistrationOrder(t *testing.T) {
	r := New(newFake("b", true, false, false), newFake("a", true, false, false))
	names := []string{}
	for _, d := range r.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"b", "a"}, names)
}

func TestRegistry_Resolve_DropsUnknownNames(t *testing.T) {
	r := New(newFake("musicbrainz", true, false, false))
	resolved := r.Resolve([]string{"musicbrainz", "nonexistent"})
	require.Len(t, resolved, 1)
	assert.Equal(t, "musicbrainz", resolved[0].Name)
}

func TestRegistry_Resolve_EmptyNamesReturnsEnabled(t *testing.T) {
	r := New(
		newFake("enabled-one", true, false, false),
		newFake("disabled-one", false, false, false),
	)
	resolved := r.Resolve(nil)
	require.Len(t, resolved, 1)
	assert.Equal(t, "enabled-one", resolved[0].Name)
}

func TestRegistry_Enabled_ExcludesMissingCredentials(t *testing.T) {
	r := New(
		newFake("spotify", true, true, false),
		newFake("genius", true, true, true),
		newFake("musicbrainz", true, false, false),
	)
	enabled := r.Enabled()
	names := map[string]bool{}
	for _, d := range enabled {
		names[d.Name] = true
	}
	assert.False(t, names["spotify"])
	assert.True(t, names["genius"])
	assert.True(t, names["musicbrainz"])
}

func TestRegistry_Adapter_LookupByName(t *testing.T) {
	a := newFake("musicbrainz", true, false, false)
	r := New(a)
	found, ok := r.Adapter("musicbrainz")
	require.True(t, ok)
	assert.Equal(t, "musicbrainz", found.Descriptor().Name)

	_, ok = r.Adapter("missing")
	assert.False(t, ok)
}

func TestRegistry_FeatureReport(t *testing.T) {
	r := New(newFake("genius", true, true, true, "lyrics", "metadata"))
	report := r.FeatureReport()
	require.Len(t, report, 1)
	assert.Equal(t, "genius", report[0].Name)
	assert.Equal(t, []string{"lyrics", "metadata"}, report[0].Features)
}

func TestRegistry_Reconfigure_PublishesNewSnapshot(t *testing.T) {
	r := New(newFake("old", true, false, false))
	require.Len(t, r.List(), 1)

	r.Reconfigure(newFake("new-one", true, false, false), newFake("new-two", true, false, false))
	assert.Len(t, r.List(), 2)
	_, ok := r.Adapter("old")
	assert.False(t, ok)
}
