package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

func TestGroupStore_StartsWithDefaultGroup(t *testing.T) {
	groups, err := NewGroupStore().List(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, domain.DefaultGroupName, groups[0].Name)
}

func TestGroupStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewGroupStore()
	require.NoError(t, s.Create(ctx, "legal", "contracts"))
	assert.ErrorIs(t, s.Create(ctx, "legal", ""), domain.ErrAlreadyExists)
}

func TestGroupStore_AddDocument_AutoCreatesAndDedupes(t *testing.T) {
	ctx := context.Background()
	s := NewGroupStore()
	require.NoError(t, s.AddDocument(ctx, "hr", "d1"))
	require.NoError(t, s.AddDocument(ctx, "hr", "d1"))

	g, err := s.Get(ctx, "hr")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, g.DocIDs)
}

func TestGroupStore_RemoveDocument_FromAllGroups(t *testing.T) {
	ctx := context.Background()
	s := NewGroupStore()
	require.NoError(t, s.AddDocument(ctx, "a", "d1"))
	require.NoError(t, s.AddDocument(ctx, "b", "d1"))
	require.NoError(t, s.AddDocument(ctx, "b", "d2"))

	require.NoError(t, s.RemoveDocument(ctx, "d1"))

	a, _ := s.Get(ctx, "a")
	b, _ := s.Get(ctx, "b")
	assert.Empty(t, a.DocIDs)
	assert.Equal(t, []string{"d2"}, b.DocIDs)
}

func TestGroupStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewGroupStore()
	require.NoError(t, s.AddDocument(ctx, "a", "d1"))

	ids, err := s.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids)

	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Delete(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGroupStore_Get_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewGroupStore()
	require.NoError(t, s.AddDocument(ctx, "a", "d1"))

	g, _ := s.Get(ctx, "a")
	g.DocIDs[0] = "changed"

	again, _ := s.Get(ctx, "a")
	assert.Equal(t, "d1", again.DocIDs[0])
}

func TestGroupStore_ClearDocuments(t *testing.T) {
	ctx := context.Background()
	s := NewGroupStore()
	require.NoError(t, s.AddDocument(ctx, "a", "d1"))
	require.NoError(t, s.ClearDocuments(ctx))

	groups, _ := s.List(ctx)
	assert.Len(t, groups, 2)
	for _, g := range groups {
		assert.Empty(t, g.DocIDs)
	}
}
