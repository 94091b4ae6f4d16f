package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/store"
)

func TestItemService_CRUD(t *testing.T) {
	e := setupEngine(t, nil)
	ctx := context.Background()

	it, err := e.items.Create(ctx, "u1", ItemInput{
		Name:  " 1952 Topps Mantle ",
		Year:  "1952",
		Tags:  []string{"Baseball", "baseball", "HOF"},
		Price: 1200,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(it.ID, "itm-"))
	assert.Equal(t, "1952 Topps Mantle", it.Name)
	assert.Equal(t, []string{"Baseball", "HOF"}, it.Tags)

	cond := "PSA 8"
	updated, err := e.items.Update(ctx, "u1", it.ID, ItemUpdate{Condition: &cond})
	require.NoError(t, err)
	assert.Equal(t, "PSA 8", updated.Condition)

	got, err := e.items.Get(ctx, "u1", it.ID)
	require.NoError(t, err)
	assert.Equal(t, "PSA 8", got.Condition)
	assert.Equal(t, "u1", got.OwnerID)

	_, err = e.items.Get(ctx, "u2", it.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestItemService_Validation(t *testing.T) {
	e := setupEngine(t, nil)
	ctx := context.Background()

	_, err := e.items.Create(ctx, "", ItemInput{Name: "card"})
	assert.Equal(t, domainerrors.CodeUnauthorized, domainerrors.CodeOf(err))

	_, err = e.items.Create(ctx, "u1", ItemInput{Name: "card", Price: -1})
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	_, err = e.items.Create(ctx, "u1", ItemInput{Name: "card", ImageURL: "not a url"})
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestItemService_UpdateInSecondaryStore(t *testing.T) {
	e := setupEngine(t, func(_ context.Context, docs store.DocumentStore) {
		seedDoc(t, docs, secondaryItems("u1").Child("c"), item("c", "Jordan"))
	})
	ctx := context.Background()

	tags := []string{"basketball"}
	_, err := e.items.Update(ctx, "u1", "c", ItemUpdate{Tags: &tags})
	require.NoError(t, err)

	doc, err := e.docs.Get(ctx, secondaryItems("u1").Child("c"))
	require.NoError(t, err)
	var stored domain.Item
	require.NoError(t, doc.Decode(&stored))
	assert.Equal(t, []string{"basketball"}, stored.Tags)
}

func TestItemService_ListForOwner(t *testing.T) {
	e := setupEngine(t, func(_ context.Context, docs store.DocumentStore) { seedItems(t, docs) })

	items, err := e.items.ListForOwner(context.Background(), "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, itemIDsOf(items))

	_, err = e.items.ListForOwner(context.Background(), "")
	assert.Equal(t, domainerrors.CodeUnauthorized, domainerrors.CodeOf(err))
}

func TestItemService_DeleteCascadesAcrossShapes(t *testing.T) {
	e := setupEngine(t, func(_ context.Context, docs store.DocumentStore) {
		seedItems(t, docs)
		seedDoc(t, docs, privateShowcasePath("u1", "list"), &domain.Showcase{OwnerID: "u1", ItemIDs: domain.ItemIDs{"a", "b"}})
		seedDoc(t, docs, publicShowcasePath("list"), &domain.Showcase{OwnerID: "u1", ItemIDs: domain.ItemIDs{"b", "a"}})
		seedDoc(t, docs, privateShowcasePath("u1", "drifted"), map[string]any{
			"userId":  "u1",
			"name":    "drifted",
			"itemIds": map[string]any{"0": "a", "1": "c"},
		})
		seedDoc(t, docs, privateShowcasePath("u1", "other"), &domain.Showcase{OwnerID: "u1", ItemIDs: domain.ItemIDs{"c"}})
	})
	ctx := context.Background()

	report, err := e.items.Delete(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, 2, report.ShowcasesUpdated)
	assert.Equal(t, 1, report.MirrorsUpdated)
	assert.Zero(t, report.Failures)

	_, err = e.docs.Get(ctx, primaryItems("u1").Child("a"))
	require.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, domain.ItemIDs{"b"}, readShowcaseAt(t, e.docs, privateShowcasePath("u1", "list")).ItemIDs)
	assert.Equal(t, domain.ItemIDs{"b"}, readShowcaseAt(t, e.docs, publicShowcasePath("list")).ItemIDs)
	assert.Equal(t, domain.ItemIDs{"c"}, readShowcaseAt(t, e.docs, privateShowcasePath("u1", "drifted")).ItemIDs)
	assert.Equal(t, domain.ItemIDs{"c"}, readShowcaseAt(t, e.docs, privateShowcasePath("u1", "other")).ItemIDs)

	// The drifted shape is rewritten as a plain list.
	doc, err := e.docs.Get(ctx, privateShowcasePath("u1", "drifted"))
	require.NoError(t, err)
	raw, ok := doc.RawField("itemIds")
	require.True(t, ok)
	_, shape := domain.ParseItemIDs(raw)
	assert.Equal(t, domain.ShapeList, shape)
}

func TestItemService_DeleteCountsFailures(t *testing.T) {
	e := setupEngine(t, func(_ context.Context, docs store.DocumentStore) {
		seedItems(t, docs)
		seedDoc(t, docs, privateShowcasePath("u1", "sc1"), &domain.Showcase{OwnerID: "u1", ItemIDs: domain.ItemIDs{"b"}})
		seedDoc(t, docs, privateShowcasePath("u1", "sc2"), &domain.Showcase{OwnerID: "u1", ItemIDs: domain.ItemIDs{"b"}})
	})
	e.docs.FailPath(privateShowcasePath("u1", "sc2"))

	report, err := e.items.Delete(context.Background(), "u1", "b")
	require.NoError(t, err)
	assert.Equal(t, 1, report.ShowcasesUpdated)
	assert.Equal(t, 1, report.Failures)
}

func TestItemService_DeleteMissing(t *testing.T) {
	e := setupEngine(t, nil)

	_, err := e.items.Delete(context.Background(), "u1", "nope")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}
