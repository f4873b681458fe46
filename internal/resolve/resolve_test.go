package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/contentgraph/internal/identifier"
	"github.com/hanpama/contentgraph/internal/query"
)

var (
	idA = identifier.MustNormalize("AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE")
	idB = identifier.MustNormalize("F1111111-2222-3333-4444-555555555555")
)

// mapLookup resolves by exact absolute path. It records every batched call.
type mapLookup struct {
	byPath map[string]identifier.ID
	calls  [][]string
	errAt  int // 1-based call index that fails, 0 for never
}

func (m *mapLookup) LookupPaths(_ context.Context, _ identifier.ID, specs []query.PathSpec, _ string) (map[string]identifier.ID, error) {
	var paths []string
	for _, s := range specs {
		paths = append(paths, s.Path)
	}
	m.calls = append(m.calls, paths)
	if m.errAt == len(m.calls) {
		return nil, errors.New("backend unavailable")
	}
	out := map[string]identifier.ID{}
	for _, s := range specs {
		if id, ok := m.byPath[s.Path]; ok {
			out[s.Alias] = id
		}
	}
	return out, nil
}

func TestResolveAll(t *testing.T) {
	const page = "/content/home"

	t.Run("first strategy resolves everything in one call", func(t *testing.T) {
		lk := &mapLookup{byPath: map[string]identifier.ID{
			"/content/home/banner": idA,
			"/content/home/teaser": idB,
		}}
		r := New(lk, nil)
		got := r.ResolveAll(context.Background(), []string{"banner", "teaser"}, page, "", "en")
		require.Equal(t, Resolved{"banner": idA, "teaser": idB}, got)
		require.Len(t, lk.calls, 1, "cascade must stop at the first fully resolving strategy")
	})

	t.Run("later strategies see only pending paths", func(t *testing.T) {
		lk := &mapLookup{byPath: map[string]identifier.ID{
			"/content/home/banner":      idA,
			"/content/home/Data/teaser": idB,
		}}
		r := New(lk, nil)
		got := r.ResolveAll(context.Background(), []string{"banner", "teaser"}, page, "", "en")
		require.Equal(t, Resolved{"banner": idA, "teaser": idB}, got)
		require.Len(t, lk.calls, 2)
		require.Equal(t, []string{"/content/home/teaser"}, lk.calls[1],
			"already-resolved paths must not be re-looked-up")
	})

	t.Run("grouping prefix stripped by later strategies", func(t *testing.T) {
		lk := &mapLookup{byPath: map[string]identifier.ID{
			"/content/home/Data/banner": idA,
		}}
		r := New(lk, nil)
		got := r.ResolveAll(context.Background(), []string{"local:/banner"}, page, "", "en")
		require.Equal(t, Resolved{"local:/banner": idA}, got)
		require.Len(t, lk.calls, 4, "strategies run in order until one hits")
	})

	t.Run("exhausted cascade leaves zero identifiers", func(t *testing.T) {
		lk := &mapLookup{byPath: map[string]identifier.ID{}}
		r := New(lk, nil)
		got := r.ResolveAll(context.Background(), []string{"ghost"}, page, "", "en")
		require.Equal(t, Resolved{"ghost": ""}, got)
		require.Equal(t, []string{"ghost"}, got.Unresolved())
		require.Len(t, lk.calls, len(r.Strategies()), "at most one batched call per strategy")
	})

	t.Run("failed strategy is skipped, not fatal", func(t *testing.T) {
		lk := &mapLookup{
			byPath: map[string]identifier.ID{"/content/home/banner": idA},
			errAt:  1,
		}
		r := New(lk, nil)
		got := r.ResolveAll(context.Background(), []string{"banner"}, page, "", "en")
		// Strategy 1 failed; strategy 2 builds /content/home/Data/banner which
		// misses; strategies 3 and 4 rebuild the same candidates, and the
		// stripped variant of strategy 1's candidate hits on call 3.
		require.Equal(t, Resolved{"banner": idA}, got)
	})

	t.Run("empty input makes no calls", func(t *testing.T) {
		lk := &mapLookup{}
		r := New(lk, nil)
		got := r.ResolveAll(context.Background(), nil, page, "", "en")
		require.Empty(t, got)
		require.Empty(t, lk.calls)
	})
}

func TestJoinPath(t *testing.T) {
	require.Equal(t, "/content/home/banner", joinPath("/content/home/", "/banner"))
	require.Equal(t, "/content/home/Data/banner", joinPath("/content/home", "Data", "banner"))
	require.Equal(t, "/banner", joinPath("", "banner"))
}
