package recent

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/kanban/internal/store"
)

type memSettings struct {
	values map[string]string
	writes int
}

func newMemSettings() *memSettings {
	return &memSettings{values: make(map[string]string)}
}

func (m *memSettings) Setting(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("setting %s: %w", key, store.ErrNotFound)
	}
	return v, nil
}

func (m *memSettings) SetSetting(_ context.Context, key, value string) error {
	m.values[key] = value
	m.writes++
	return nil
}

func TestPrepend(t *testing.T) {
	l := New(newMemSettings(), 0, nil)
	yes := true

	l.Prepend("a", "A", nil)
	l.Prepend("b", "B", &yes)
	l.Prepend("c", "C", nil)
	require.Equal(t, []Item{
		{NoteID: "c", Title: "C"},
		{NoteID: "b", Title: "B", Bookmarked: true},
		{NoteID: "a", Title: "A"},
	}, l.Items())

	l.Prepend("b", "B renamed", nil)
	require.Equal(t, []Item{
		{NoteID: "b", Title: "B renamed", Bookmarked: true},
		{NoteID: "c", Title: "C"},
		{NoteID: "a", Title: "A"},
	}, l.Items())

	no := false
	l.Prepend("b", "B renamed", &no)
	require.False(t, l.Items()[0].Bookmarked)
}

func TestPrependCapsSize(t *testing.T) {
	l := New(newMemSettings(), 3, nil)
	for i := 0; i < 5; i++ {
		l.Prepend(fmt.Sprint(i), "", nil)
	}

	items := l.Items()
	require.Len(t, items, 3)
	require.Equal(t, "4", items[0].NoteID)
	require.Equal(t, "2", items[2].NoteID)
}

func TestRemove(t *testing.T) {
	l := New(newMemSettings(), 0, nil)
	l.Prepend("a", "A", nil)
	l.Prepend("b", "B", nil)

	l.Remove("a")
	l.Remove("missing")
	require.Equal(t, []Item{{NoteID: "b", Title: "B"}}, l.Items())
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	settings := newMemSettings()

	l := New(settings, 0, nil)
	require.NoError(t, l.Load(ctx))
	require.Empty(t, l.Items())

	l.Prepend("a", "A", nil)
	require.NoError(t, l.Save(ctx))
	require.Equal(t, `[{"noteId":"a","title":"A","bookmarked":false}]`, settings.values[StorageKey])
	require.Equal(t, 1, settings.writes)

	require.NoError(t, l.Save(ctx))
	require.Equal(t, 1, settings.writes)

	other := New(settings, 0, nil)
	require.NoError(t, other.Load(ctx))
	require.Equal(t, l.Items(), other.Items())
}

func TestLoadDiscardsBadValue(t *testing.T) {
	settings := newMemSettings()
	settings.values[StorageKey] = "{not json"

	logger, hook := test.NewNullLogger()
	l := New(settings, 0, logger)
	require.NoError(t, l.Load(context.Background()))
	require.Empty(t, l.Items())
	require.Equal(t, "discarding unreadable recent boards", hook.LastEntry().Message)
}
