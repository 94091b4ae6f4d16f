// Package storetest holds the behavioral suite every store.DocumentStore
// backend must pass.
package storetest

import (
	"context"
	"encoding/json/jsontext"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/showcase-server/internal/store"
)

// Opener opens a fresh, empty backend for one test.
type Opener func(t *testing.T, opts store.Options) store.DocumentStore

// Run executes the suite against open.
func Run(t *testing.T, open Opener) {
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, open) })
	t.Run("SetGet", func(t *testing.T) { testSetGet(t, open) })
	t.Run("SetRejectsNonObject", func(t *testing.T) { testSetRejectsNonObject(t, open) })
	t.Run("InvalidPaths", func(t *testing.T) { testInvalidPaths(t, open) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, open) })
	t.Run("UpdateTransforms", func(t *testing.T) { testUpdateTransforms(t, open) })
	t.Run("UpdateKeepsFieldOrder", func(t *testing.T) { testUpdateKeepsFieldOrder(t, open) })
	t.Run("ConcurrentIncrement", func(t *testing.T) { testConcurrentIncrement(t, open) })
	t.Run("DeleteIdempotent", func(t *testing.T) { testDeleteIdempotent(t, open) })
	t.Run("Add", func(t *testing.T) { testAdd(t, open) })
	t.Run("QueryScope", func(t *testing.T) { testQueryScope(t, open) })
	t.Run("QueryFiltersOrderLimit", func(t *testing.T) { testQueryFiltersOrderLimit(t, open) })
	t.Run("CollectionGroup", func(t *testing.T) { testCollectionGroup(t, open) })
	t.Run("ReadOnlyCollection", func(t *testing.T) { testReadOnlyCollection(t, open) })
	t.Run("Subscribe", func(t *testing.T) { testSubscribe(t, open) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, open) })
}

type showcase struct {
	Title   string   `json:"title"`
	UserID  string   `json:"userId"`
	Public  bool     `json:"isPublic"`
	Likes   int      `json:"likes"`
	Tags    []string `json:"tags,omitempty"`
	Created string   `json:"createdAt,omitempty"`
}

func testGetMissing(t *testing.T, open Opener) {
	s := open(t, store.Options{})

	_, err := s.Get(context.Background(), store.Doc("publicShowcases", "nope"))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testSetGet(t *testing.T, open Opener) {
	s := open(t, store.Options{})
	ctx := context.Background()
	p := store.Doc("users", "u1", "showcases", "sc1")

	require.NoError(t, s.Set(ctx, p, showcase{Title: "Desk", UserID: "u1", Likes: 2}))

	doc, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, p, doc.Path)
	assert.Equal(t, "sc1", doc.ID())
	assert.False(t, doc.UpdatedAt.IsZero())

	var got showcase
	require.NoError(t, doc.Decode(&got))
	assert.Equal(t, "Desk", got.Title)
	assert.Equal(t, 2, got.Likes)

	// Set replaces the body entirely.
	require.NoError(t, s.Set(ctx, p, map[string]any{"title": "Shelf"}))
	doc, err = s.Get(ctx, p)
	require.NoError(t, err)
	_, hasLikes := doc.Field("likes")
	assert.False(t, hasLikes)
}

func testSetRejectsNonObject(t *testing.T, open Opener) {
	s := open(t, store.Options{})

	err := s.Set(context.Background(), store.Doc("items", "i1"), []string{"a"})
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func testInvalidPaths(t *testing.T, open Opener) {
	s := open(t, store.Options{})
	ctx := context.Background()

	_, err := s.Get(ctx, store.Collection("items"))
	require.ErrorIs(t, err, store.ErrInvalidPath)

	err = s.Set(ctx, store.Doc("users", "", "showcases", "x"), map[string]any{})
	require.ErrorIs(t, err, store.ErrInvalidPath)

	_, err = s.Query(ctx, store.From(store.Doc("items", "i1")))
	require.ErrorIs(t, err, store.ErrInvalidPath)
}

func testUpdateMissing(t *testing.T, open Opener) {
	s := open(t, store.Options{})

	err := s.Update(context.Background(), store.Doc("publicShowcases", "gone"), store.Fields{"likes": store.Increment(1)})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testUpdateTransforms(t *testing.T, open Opener) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := open(t, store.Options{Now: func() time.Time { return now }})
	ctx := context.Background()
	p := store.Doc("publicShowcases", "sc1")

	require.NoError(t, s.Set(ctx, p, map[string]any{
		"title":   "Desk",
		"likes":   3,
		"itemIds": []string{"a", "b", "a"},
		"stale":   true,
	}))

	require.NoError(t, s.Update(ctx, p, store.Fields{
		"likes":     store.Increment(2),
		"visits":    store.Increment(1),
		"updatedAt": store.ServerTimestamp,
		"stale":     store.DeleteField,
		"title":     "Desk v2",
	}))
	require.NoError(t, s.Update(ctx, p, store.Fields{"itemIds": store.ArrayRemove("a")}))
	require.NoError(t, s.Update(ctx, p, store.Fields{"itemIds": store.ArrayUnion("b", "c")}))

	doc, err := s.Get(ctx, p)
	require.NoError(t, err)
	fields, err := doc.Fields()
	require.NoError(t, err)

	assert.Equal(t, float64(5), fields["likes"])
	assert.Equal(t, float64(1), fields["visits"])
	assert.Equal(t, "2026-03-01T12:00:00Z", fields["updatedAt"])
	assert.Equal(t, "Desk v2", fields["title"])
	assert.NotContains(t, fields, "stale")
	assert.Equal(t, []any{"b", "c"}, fields["itemIds"])
}

func testUpdateKeepsFieldOrder(t *testing.T, open Opener) {
	s := open(t, store.Options{})
	ctx := context.Background()
	p := store.Doc("publicShowcases", "sc1")

	raw := jsontext.Value(`{"title":"Desk","itemIds":{"zeta":true,"alpha":true,"mid":true}}`)
	require.NoError(t, s.Set(ctx, p, raw))
	require.NoError(t, s.Update(ctx, p, store.Fields{"likes": store.Increment(1)}))

	doc, err := s.Get(ctx, p)
	require.NoError(t, err)
	itemIDs, ok := doc.RawField("itemIds")
	require.True(t, ok)
	assert.Equal(t, `{"zeta":true,"alpha":true,"mid":true}`, string(itemIDs))
}

func testConcurrentIncrement(t *testing.T, open Opener) {
	s := open(t, store.Options{})
	ctx := context.Background()
	p := store.Doc("publicShowcases", "hot")
	require.NoError(t, s.Set(ctx, p, map[string]any{"likes": 0}))

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			assert.NoError(t, s.Update(ctx, p, store.Fields{"likes": store.Increment(1)}))
		})
	}
	wg.Wait()

	doc, err := s.Get(ctx, p)
	require.NoError(t, err)
	likes, _ := doc.Field("likes")
	assert.Equal(t, float64(n), likes)
}

func testDeleteIdempotent(t *testing.T, open Opener) {
	s := open(t, store.Options{})
	ctx := context.Background()
	p := store.Doc("items", "i1")

	require.NoError(t, s.Set(ctx, p, map[string]any{"name": "lamp"}))
	require.NoError(t, s.Delete(ctx, p))
	require.NoError(t, s.Delete(ctx, p))

	_, err := s.Get(ctx, p)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testAdd(t *testing.T, open Opener) {
	s := open(t, store.Options{})
	ctx := context.Background()
	likes := store.Collection("publicShowcases", "sc1", "likes")

	p1, err := s.Add(ctx, likes, map[string]any{"userId": "u1"})
	require.NoError(t, err)
	p2, err := s.Add(ctx, likes, map[string]any{"userId": "u1"})
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
	assert.Equal(t, likes, p1.Parent())

	_, err = s.Add(ctx, store.Doc("publicShowcases", "sc1"), map[string]any{})
	require.ErrorIs(t, err, store.ErrInvalidPath)
}

func testQueryScope(t *testing.T, open Opener) {
	s := open(t, store.Options{})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, store.Doc("publicShowcases", "a"), map[string]any{"n": 1}))
	require.NoError(t, s.Set(ctx, store.Doc("publicShowcases", "b"), map[string]any{"n": 2}))
	require.NoError(t, s.Set(ctx, store.Doc("publicShowcases", "a", "likes", "l1"), map[string]any{"n": 3}))
	require.NoError(t, s.Set(ctx, store.Doc("publicShowcasesArchive", "c"), map[string]any{"n": 4}))

	docs, err := s.Query(ctx, store.From(store.Collection("publicShowcases")))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID())
	assert.Equal(t, "b", docs[1].ID())
}

func testQueryFiltersOrderLimit(t *testing.T, open Opener) {
	s := open(t, store.Options{})
	ctx := context.Background()
	col := store.Collection("users", "u1", "showcases")

	fixtures := map[string]showcase{
		"s1": {Title: "One", UserID: "u1", Public: true, Likes: 5, Tags: []string{"desk"}, Created: "2026-01-01T00:00:00Z"},
		"s2": {Title: "Two", UserID: "u1", Public: false, Likes: 9, Tags: []string{"shelf"}, Created: "2026-01-03T00:00:00Z"},
		"s3": {Title: "Three", UserID: "u1", Public: true, Likes: 1, Tags: []string{"desk", "shelf"}, Created: "2026-01-02T00:00:00Z"},
	}
	for id, sc := range fixtures {
		require.NoError(t, s.Set(ctx, col.Child(id), sc))
	}

	docs, err := s.Query(ctx, store.From(col).Where("isPublic", store.OpEqual, true).Order("likes", true))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "s1", docs[0].ID())
	assert.Equal(t, "s3", docs[1].ID())

	docs, err = s.Query(ctx, store.From(col).Where("tags", store.OpArrayContains, "shelf").Order("createdAt", false))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "s3", docs[0].ID())
	assert.Equal(t, "s2", docs[1].ID())

	since := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	docs, err = s.Query(ctx, store.From(col).Where("createdAt", store.OpGreaterEqual, since).Order("createdAt", true).Take(1))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "s2", docs[0].ID())

	docs, err = s.Query(ctx, store.From(col).Where("title", store.OpIn, []string{"One", "Two"}))
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func testCollectionGroup(t *testing.T, open Opener) {
	s := open(t, store.Options{})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, store.Doc("users", "u1", "showcases", "a"), map[string]any{"isPublic": true}))
	require.NoError(t, s.Set(ctx, store.Doc("users", "u2", "showcases", "b"), map[string]any{"isPublic": false}))
	require.NoError(t, s.Set(ctx, store.Doc("showcases", "c"), map[string]any{"isPublic": true}))
	require.NoError(t, s.Set(ctx, store.Doc("publicShowcases", "a"), map[string]any{"isPublic": true}))

	docs, err := s.Query(ctx, store.FromGroup("showcases").Where("isPublic", store.OpEqual, true))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, store.Doc("showcases", "c"), docs[0].Path)
	assert.Equal(t, store.Doc("users", "u1", "showcases", "a"), docs[1].Path)
}

func testReadOnlyCollection(t *testing.T, open Opener) {
	s := open(t, store.Options{ReadOnlyCollections: []string{"legacyShowcases"}})
	ctx := context.Background()

	err := s.Set(ctx, store.Doc("legacyShowcases", "x"), map[string]any{"a": 1})
	require.ErrorIs(t, err, store.ErrPermissionDenied)
	err = s.Update(ctx, store.Doc("legacyShowcases", "x"), store.Fields{"a": 2})
	require.ErrorIs(t, err, store.ErrPermissionDenied)
	err = s.Delete(ctx, store.Doc("legacyShowcases", "x"))
	require.ErrorIs(t, err, store.ErrPermissionDenied)

	// Reads are still allowed.
	_, err = s.Get(ctx, store.Doc("legacyShowcases", "x"))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testSubscribe(t *testing.T, open Opener) {
	s := open(t, store.Options{})
	ctx := context.Background()
	likes := store.Collection("publicShowcases", "sc1", "likes")

	require.NoError(t, s.Set(ctx, likes.Child("l1"), map[string]any{"userId": "u1"}))

	snapshots := make(chan []*store.Document, 16)
	unsubscribe, err := s.Subscribe(ctx, store.From(likes), func(docs []*store.Document) {
		snapshots <- docs
	}, nil)
	require.NoError(t, err)

	next := func() []*store.Document {
		select {
		case docs := <-snapshots:
			return docs
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}

	assert.Len(t, next(), 1)

	require.NoError(t, s.Set(ctx, likes.Child("l2"), map[string]any{"userId": "u2"}))
	assert.Len(t, next(), 2)

	// Writes outside the scope do not wake the subscriber.
	require.NoError(t, s.Set(ctx, store.Doc("publicShowcases", "sc1"), map[string]any{"likes": 2}))

	require.NoError(t, s.Delete(ctx, likes.Child("l1")))
	assert.Len(t, next(), 1)

	unsubscribe()
	unsubscribe()

	require.NoError(t, s.Set(ctx, likes.Child("l3"), map[string]any{"userId": "u3"}))
	select {
	case docs := <-snapshots:
		t.Fatalf("snapshot after unsubscribe: %d docs", len(docs))
	case <-time.After(100 * time.Millisecond):
	}
}

func testClosed(t *testing.T, open Opener) {
	s := open(t, store.Options{})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), store.Doc("items", "i1"))
	require.ErrorIs(t, err, store.ErrClosed)
}
