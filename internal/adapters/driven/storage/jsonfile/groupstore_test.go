package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

func setupTestStore(t *testing.T) *GroupStore {
	t.Helper()
	store, err := NewGroupStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewGroupStore_CreatesDefaultGroup(t *testing.T) {
	store := setupTestStore(t)

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var layout fileLayout
	require.NoError(t, json.Unmarshal(raw, &layout))
	require.Len(t, layout.Groups, 1)
	assert.Equal(t, domain.DefaultGroupName, layout.Groups[0].Name)

	groups, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].DocIDs)
}

func TestNewGroupStore_ReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "groups": [{"name": "Uncategorized", "description": ""}, {"name": "Bids", "description": "won"}],
  "group_documents": {"Bids": ["a", "b"]}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600))

	store, err := NewGroupStore(dir)
	require.NoError(t, err)

	g, err := store.Get(context.Background(), "Bids")
	require.NoError(t, err)
	assert.Equal(t, "won", g.Description)
	assert.Equal(t, []string{"a", "b"}, g.DocIDs)
	assert.Equal(t, 2, g.DocumentCount())
}

func TestNewGroupStore_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0600))

	_, err := NewGroupStore(dir)
	assert.Error(t, err)
}

func TestGroupStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewGroupStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, "HSE", "health and safety"))
	require.NoError(t, store.AddDocument(ctx, "HSE", "d1"))
	require.NoError(t, store.AddDocument(ctx, "HSE", "d1"))
	require.NoError(t, store.AddDocument(ctx, "Auto", "d2"))

	reopened, err := NewGroupStore(dir)
	require.NoError(t, err)

	groups, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "HSE", groups[1].Name)
	assert.Equal(t, []string{"d1"}, groups[1].DocIDs)
	assert.Equal(t, "Auto", groups[2].Name)
	assert.Equal(t, []string{"d2"}, groups[2].DocIDs)
}

func TestGroupStore_CreateDuplicate(t *testing.T) {
	store := setupTestStore(t)
	err := store.Create(context.Background(), domain.DefaultGroupName, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestGroupStore_DeleteReturnsReferences(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AddDocument(ctx, "HSE", "d1"))
	require.NoError(t, store.AddDocument(ctx, "HSE", "d2"))

	ids, err := store.Delete(ctx, "HSE")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, ids)

	_, err = store.Get(ctx, "HSE")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Delete(ctx, "HSE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGroupStore_RemoveDocumentFromEveryGroup(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AddDocument(ctx, "A", "shared"))
	require.NoError(t, store.AddDocument(ctx, "B", "shared"))
	require.NoError(t, store.AddDocument(ctx, "B", "other"))

	require.NoError(t, store.RemoveDocument(ctx, "shared"))
	require.NoError(t, store.RemoveDocument(ctx, "unknown"))

	a, _ := store.Get(ctx, "A")
	b, _ := store.Get(ctx, "B")
	assert.Empty(t, a.DocIDs)
	assert.Equal(t, []string{"other"}, b.DocIDs)
}

func TestGroupStore_ClearDocumentsKeepsGroups(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AddDocument(ctx, "A", "x"))

	require.NoError(t, store.ClearDocuments(ctx))

	groups, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.Empty(t, g.DocIDs)
	}
}

func TestGroupStore_ReturnedSlicesAreCopies(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AddDocument(ctx, "A", "x"))

	g, _ := store.Get(ctx, "A")
	g.DocIDs[0] = "mutated"

	again, _ := store.Get(ctx, "A")
	assert.Equal(t, []string{"x"}, again.DocIDs)
}

func TestGroupStore_HandleEvent(t *testing.T) {
	store := setupTestStore(t)
	other := filepath.Join(filepath.Dir(store.Path()), "knowledge.db")

	tests := []struct {
		name   string
		event  fsnotify.Event
		reload bool
	}{
		{"write", fsnotify.Event{Name: store.Path(), Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: store.Path(), Op: fsnotify.Create}, true},
		{"chmod", fsnotify.Event{Name: store.Path(), Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: store.Path(), Op: fsnotify.Remove}, false},
		{"other file", fsnotify.Event{Name: other, Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reload, store.handleEvent(tt.event))
		})
	}
}

func TestGroupStore_WatchReloadsExternalEdits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()

	store, err := NewGroupStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Watch(ctx))

	writer, err := NewGroupStore(dir)
	require.NoError(t, err)
	require.NoError(t, writer.AddDocument(ctx, "External", "e1"))

	assert.Eventually(t, func() bool {
		g, err := store.Get(ctx, "External")
		return err == nil && len(g.DocIDs) == 1
	}, 2*time.Second, 20*time.Millisecond)
}
