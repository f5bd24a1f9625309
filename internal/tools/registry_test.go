package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", Descriptor{Name: "a", AutoSafe: true}))

	d, err := r.Lookup("a")
	require.NoError(t, err)
	require.True(t, d.AutoSafe)
}

func TestRegisterEmptyNameFails(t *testing.T) {
	r := NewRegistry()
	err := r.Register("", Descriptor{})
	require.Error(t, err)
}

func TestRegisterIsIdempotentLastWriteWins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", Descriptor{Name: "a", Description: "first"}))
	require.NoError(t, r.Register("a", Descriptor{Name: "a", Description: "second"}))

	d, ok := r.Get("a")
	require.True(t, ok)
	require.Equal(t, "second", d.Description)
	require.Equal(t, 1, r.Count())
}

func TestListIsSortedByName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("c", Descriptor{Name: "c"}))
	require.NoError(t, r.Register("a", Descriptor{Name: "a"}))
	require.NoError(t, r.Register("b", Descriptor{Name: "b"}))

	var names []string
	for _, d := range r.List() {
		names = append(names, d.Name)
	}
	require.Equal(t, []string{"a", "b", "c"}, names)
}

func TestLookupUnknownReturnsRegistryError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("missing")
	require.Error(t, err)
	var regErr *RegistryError
	require.ErrorAs(t, err, &regErr)
}

func TestIsAutoSafe(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("safe", Descriptor{Name: "safe", AutoSafe: true}))
	require.NoError(t, r.Register("unsafe", Descriptor{Name: "unsafe", AutoSafe: false}))

	require.True(t, r.IsAutoSafe("safe"))
	require.False(t, r.IsAutoSafe("unsafe"))
	require.False(t, r.IsAutoSafe("nonexistent"))
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", Descriptor{Name: "a"}))
	require.NoError(t, r.Remove("a"))

	_, ok := r.Get("a")
	require.False(t, ok)

	err := r.Remove("a")
	require.Error(t, err)
}

func TestClear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", Descriptor{Name: "a"}))
	require.NoError(t, r.Register("b", Descriptor{Name: "b"}))
	r.Clear()
	require.Equal(t, 0, r.Count())
}

func TestSchemasProjectsWithoutHandler(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", Descriptor{
		Name:        "a",
		Description: "does a",
		Schema:      Schema{Type: "object"},
		Handler:     func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
	}))

	views := r.Schemas()
	require.Len(t, views, 1)
	require.Equal(t, "a", views[0].Name)
	require.Equal(t, "does a", views[0].Description)
}
