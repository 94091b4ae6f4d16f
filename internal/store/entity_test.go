package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/showcase-server/internal/store"
)

type testItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"ownerId"`
}

func newItems(t *testing.T) (*store.Store, *store.Entity[testItem]) {
	t.Helper()
	s := setupTestStore(t, store.Options{})
	items := store.NewEntity(s, store.Collection("items"), func(it *testItem, id string) { it.ID = id })
	return s, items
}

func TestEntity_CreateGet(t *testing.T) {
	_, items := newItems(t)
	ctx := context.Background()

	require.NoError(t, items.Create(ctx, "i1", &testItem{Name: "Lamp", Owner: "u1"}))

	got, err := items.Get(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "i1", got.ID)
	assert.Equal(t, "Lamp", got.Name)

	err = items.Create(ctx, "i1", &testItem{Name: "Other"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_KeyWinsOverBodyID(t *testing.T) {
	s, items := newItems(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, store.Doc("items", "real"), map[string]any{"id": "bogus", "name": "Mug"}))

	got, err := items.Get(ctx, "real")
	require.NoError(t, err)
	assert.Equal(t, "real", got.ID)
}

func TestEntity_GetNotFound(t *testing.T) {
	_, items := newItems(t)

	got, err := items.Get(context.Background(), "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Nil(t, got)
}

func TestEntity_ReplaceAndUpdate(t *testing.T) {
	_, items := newItems(t)
	ctx := context.Background()

	err := items.Replace(ctx, "i1", &testItem{Name: "Lamp"})
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, items.Put(ctx, "i1", &testItem{Name: "Lamp"}))
	require.NoError(t, items.Replace(ctx, "i1", &testItem{Name: "Desk Lamp"}))
	require.NoError(t, items.Update(ctx, "i1", store.Fields{"ownerId": "u9"}))

	got, err := items.Get(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", got.Name)
	assert.Equal(t, "u9", got.Owner)
}

func TestEntity_DeleteIdempotent(t *testing.T) {
	_, items := newItems(t)
	ctx := context.Background()

	require.NoError(t, items.Put(ctx, "i1", &testItem{Name: "Lamp"}))
	require.NoError(t, items.Delete(ctx, "i1"))
	require.NoError(t, items.Delete(ctx, "i1"))
}

func TestEntity_ListAndFind(t *testing.T) {
	_, items := newItems(t)
	ctx := context.Background()

	for i, owner := range []string{"u1", "u2", "u1"} {
		require.NoError(t, items.Put(ctx, fmt.Sprintf("i%d", i), &testItem{Name: fmt.Sprintf("n%d", i), Owner: owner}))
	}

	var ids []string
	for it, err := range items.List(ctx) {
		require.NoError(t, err)
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"i0", "i1", "i2"}, ids)

	mine, err := items.Find(ctx, store.Query{}.Where("ownerId", store.OpEqual, "u1"))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "i0", mine[0].ID)
	assert.Equal(t, "i2", mine[1].ID)
}

func TestEntity_ListPage(t *testing.T) {
	_, items := newItems(t)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, items.Put(ctx, fmt.Sprintf("i%d", i), &testItem{Name: "x"}))
	}

	page, err := items.ListPage(ctx, store.PaginationParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "i1", page.Items[1].ID)

	page, err = items.ListPage(ctx, store.PaginationParams{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "i2", page.Items[0].ID)

	page, err = items.ListPage(ctx, store.PaginationParams{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
}
