package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/store"
)

func seedLikedShowcase(_ context.Context, t *testing.T, docs store.DocumentStore) {
	t.Helper()
	seedDoc(t, docs, privateShowcasePath("owner", "sc1"), &domain.Showcase{OwnerID: "owner", ItemIDs: domain.ItemIDs{"a"}})
	seedDoc(t, docs, publicShowcasePath("sc1"), &domain.Showcase{OwnerID: "owner", ItemIDs: domain.ItemIDs{"a"}, IsPublic: true})
}

func TestNewAnonymousActorID(t *testing.T) {
	a, b := NewAnonymousActorID(), NewAnonymousActorID()
	assert.True(t, domain.IsAnonymousID(a))
	assert.NotEqual(t, a, b)
}

func TestLikeLedger_AddRemoveRoundTrip(t *testing.T) {
	e := setupEngine(t, func(ctx context.Context, docs store.DocumentStore) { seedLikedShowcase(ctx, t, docs) })
	ctx := context.Background()

	before, err := e.ledger.Count(ctx, "sc1")
	require.NoError(t, err)

	n, err := e.ledger.AddLike(ctx, "sc1", "owner", "fan")
	require.NoError(t, err)
	assert.Equal(t, before+1, n)

	liked, err := e.ledger.HasLiked(ctx, "sc1", "fan")
	require.NoError(t, err)
	assert.True(t, liked)

	// Recount caches the ledger count on both records.
	assert.Equal(t, 1, readShowcaseAt(t, e.docs, privateShowcasePath("owner", "sc1")).Likes)
	assert.Equal(t, 1, readShowcaseAt(t, e.docs, publicShowcasePath("sc1")).Likes)

	n, err = e.ledger.RemoveLike(ctx, "sc1", "owner", "fan")
	require.NoError(t, err)
	assert.Equal(t, before, n)

	liked, err = e.ledger.HasLiked(ctx, "sc1", "fan")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, readShowcaseAt(t, e.docs, publicShowcasePath("sc1")).Likes)
}

func TestLikeLedger_DuplicateRowsTolerated(t *testing.T) {
	e := setupEngine(t, func(ctx context.Context, docs store.DocumentStore) { seedLikedShowcase(ctx, t, docs) })
	ctx := context.Background()

	_, err := e.ledger.AddLike(ctx, "sc1", "owner", "fan")
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	n, err := e.ledger.AddLike(ctx, "sc1", "owner", "fan")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Unlike removes a single row; the actor still has one.
	n, err = e.ledger.RemoveLike(ctx, "sc1", "owner", "fan")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	liked, err := e.ledger.HasLiked(ctx, "sc1", "fan")
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestLikeLedger_RemoveWithoutLike(t *testing.T) {
	e := setupEngine(t, func(ctx context.Context, docs store.DocumentStore) { seedLikedShowcase(ctx, t, docs) })

	n, err := e.ledger.RemoveLike(context.Background(), "sc1", "owner", "stranger")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLikeLedger_RequiresActor(t *testing.T) {
	e := setupEngine(t, nil)
	ctx := context.Background()

	_, err := e.ledger.AddLike(ctx, "sc1", "", " ")
	assert.Equal(t, domainerrors.CodeUnauthorized, domainerrors.CodeOf(err))

	_, err = e.ledger.RemoveLike(ctx, "", "", "fan")
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	liked, err := e.ledger.HasLiked(ctx, "sc1", "")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestLikeLedger_RecountFindsOwnerFromMirror(t *testing.T) {
	e := setupEngine(t, func(ctx context.Context, docs store.DocumentStore) { seedLikedShowcase(ctx, t, docs) })
	ctx := context.Background()

	_, err := e.docs.Add(ctx, likesCollection(), &domain.Like{ShowcaseID: "sc1", ActorID: "a"})
	require.NoError(t, err)
	_, err = e.docs.Add(ctx, likesCollection(), &domain.Like{ShowcaseID: "sc1", ActorID: "b"})
	require.NoError(t, err)

	n, err := e.ledger.Recount(ctx, "sc1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, readShowcaseAt(t, e.docs, privateShowcasePath("owner", "sc1")).Likes)
}

func TestLikeLedger_CacheFailureKeepsLedgerCount(t *testing.T) {
	e := setupEngine(t, func(ctx context.Context, docs store.DocumentStore) { seedLikedShowcase(ctx, t, docs) })
	e.docs.FailPath(privateShowcasePath("owner", "sc1"))
	e.docs.FailPath(publicShowcasePath("sc1"))

	n, err := e.ledger.AddLike(context.Background(), "sc1", "owner", "fan")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLikeLedger_Subscribe(t *testing.T) {
	e := setupEngine(t, func(ctx context.Context, docs store.DocumentStore) { seedLikedShowcase(ctx, t, docs) })
	ctx := context.Background()

	var (
		mu    sync.Mutex
		snaps []LikeSnapshot
		calls atomic.Int32
	)
	unsubscribe, err := e.ledger.Subscribe(ctx, "sc1", "fan", func(s LikeSnapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
		calls.Add(1)
	}, nil)
	require.NoError(t, err)

	_, err = e.ledger.AddLike(ctx, "sc1", "owner", "fan")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		if len(snaps) == 0 {
			return false
		}
		last := snaps[len(snaps)-1]
		return last.Count == 1 && last.HasLiked
	}, 2*time.Second, 10*time.Millisecond)

	unsubscribe()
	after := calls.Load()

	_, err = e.ledger.AddLike(ctx, "sc1", "owner", "other")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no callback after unsubscribe returns")

	mu.Lock()
	first := snaps[0]
	mu.Unlock()
	assert.Equal(t, first.Count, len(first.Rows))
}
