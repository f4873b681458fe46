package hostctx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/contentgraph/internal/identifier"
)

type fakeProvider struct {
	page    map[string]any
	app     map[string]any
	pageErr error
	appErr  error
}

func (f fakeProvider) PageContext(context.Context) (map[string]any, error) {
	return f.page, f.pageErr
}

func (f fakeProvider) AppContext(context.Context) (map[string]any, error) {
	return f.app, f.appErr
}

var (
	idA = identifier.MustNormalize("AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE")
	idB = identifier.MustNormalize("F1111111-2222-3333-4444-555555555555")
)

func TestPage(t *testing.T) {
	e := New()

	t.Run("nested route shape wins over flat", func(t *testing.T) {
		p := fakeProvider{page: map[string]any{
			"itemId": "{f1111111-2222-3333-4444-555555555555}",
			"route": map[string]any{
				"itemId":   "{aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee}",
				"path":     "/content/home",
				"language": "da",
				"renderings": []any{
					map[string]any{"dataSource": "{F1111111-2222-3333-4444-555555555555}"},
					map[string]any{"dataSource": "local:/banner"},
					map[string]any{"dataSource": "local:/banner"},
					map[string]any{"dataSource": "/content/shared/footer"},
					map[string]any{"other": "x"},
				},
			},
		}}
		info, err := e.Page(context.Background(), p)
		require.NoError(t, err)
		require.Equal(t, idA, info.ItemID)
		require.Equal(t, "/content/home", info.Path)
		require.Equal(t, "da", info.Language)
		require.Equal(t, []identifier.ID{idA, idB}, info.IDs)
		require.Equal(t, []string{"local:/banner"}, info.LocalPaths)
	})

	t.Run("flat shape fallback and language default", func(t *testing.T) {
		p := fakeProvider{page: map[string]any{
			"itemId": "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
			"path":   "/content/home",
		}}
		info, err := e.Page(context.Background(), p)
		require.NoError(t, err)
		require.Equal(t, "en", info.Language)
		require.Equal(t, []identifier.ID{idA}, info.IDs)
		require.Empty(t, info.LocalPaths)
	})

	t.Run("bare-string renderings", func(t *testing.T) {
		p := fakeProvider{page: map[string]any{
			"itemId":     "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
			"renderings": []any{"teasers/primary"},
		}}
		info, err := e.Page(context.Background(), p)
		require.NoError(t, err)
		require.Equal(t, []string{"teasers/primary"}, info.LocalPaths)
	})

	t.Run("zero identifiers", func(t *testing.T) {
		p := fakeProvider{page: map[string]any{"path": "/content/home"}}
		_, err := e.Page(context.Background(), p)
		require.ErrorIs(t, err, ErrNoIdentifiers)
	})

	t.Run("provider failure", func(t *testing.T) {
		p := fakeProvider{pageErr: errors.New("host down")}
		_, err := e.Page(context.Background(), p)
		require.ErrorIs(t, err, ErrContextUnavailable)
	})

	t.Run("nil context blob", func(t *testing.T) {
		_, err := e.Page(context.Background(), fakeProvider{})
		require.ErrorIs(t, err, ErrContextUnavailable)
	})
}

func TestContextID(t *testing.T) {
	e := New()

	t.Run("priority order", func(t *testing.T) {
		p := fakeProvider{app: map[string]any{
			"contextId": "f1111111-2222-3333-4444-555555555555",
			"siteContext": map[string]any{
				"contextId": "{aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee}",
			},
		}}
		id, err := e.ContextID(context.Background(), p)
		require.NoError(t, err)
		require.Equal(t, idA, id)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := e.ContextID(context.Background(), fakeProvider{app: map[string]any{}})
		require.ErrorIs(t, err, ErrContextIDUnresolved)
	})

	t.Run("malformed", func(t *testing.T) {
		p := fakeProvider{app: map[string]any{"contextId": "nope"}}
		_, err := e.ContextID(context.Background(), p)
		require.ErrorIs(t, err, ErrContextIDUnresolved)
	})

	t.Run("provider failure", func(t *testing.T) {
		p := fakeProvider{appErr: errors.New("host down")}
		_, err := e.ContextID(context.Background(), p)
		require.ErrorIs(t, err, ErrContextIDUnresolved)
	})
}
