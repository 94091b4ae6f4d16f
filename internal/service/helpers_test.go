package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/showcase-server/internal/domain"
	"github.com/listenupapp/showcase-server/internal/store"
	"github.com/listenupapp/showcase-server/internal/store/sqlite"
)

var errTransport = errors.New("connection reset")

// testClock is a settable clock shared by every component of a test engine.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// faultyStore fails reads and writes on chosen paths with a transport error.
type faultyStore struct {
	store.DocumentStore

	mu     sync.Mutex
	failOn map[store.Path]bool
	failQ  bool
}

func newFaultyStore(inner store.DocumentStore) *faultyStore {
	return &faultyStore{DocumentStore: inner, failOn: make(map[store.Path]bool)}
}

func (f *faultyStore) FailPath(p store.Path) {
	f.mu.Lock()
	f.failOn[p] = true
	f.mu.Unlock()
}

func (f *faultyStore) FailQueries() {
	f.mu.Lock()
	f.failQ = true
	f.mu.Unlock()
}

func (f *faultyStore) fails(p store.Path) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failOn[p]
}

func (f *faultyStore) Get(ctx context.Context, p store.Path) (*store.Document, error) {
	if f.fails(p) {
		return nil, errTransport
	}
	return f.DocumentStore.Get(ctx, p)
}

func (f *faultyStore) Update(ctx context.Context, p store.Path, fields store.Fields) error {
	if f.fails(p) {
		return errTransport
	}
	return f.DocumentStore.Update(ctx, p, fields)
}

func (f *faultyStore) Query(ctx context.Context, q store.Query) ([]*store.Document, error) {
	f.mu.Lock()
	failQ := f.failQ
	f.mu.Unlock()
	if failQ {
		return nil, errTransport
	}
	return f.DocumentStore.Query(ctx, q)
}

// testEngine wires every component over one SQLite store.
type testEngine struct {
	docs      *faultyStore
	clock     *testClock
	cfg       EngineConfig
	locator   *Locator
	fetcher   *ItemFetcher
	mirror    *MirrorSync
	ledger    *LikeLedger
	guard     *AbuseGuard
	showcases *ShowcaseService
	items     *ItemService
	reconcile *ReconcileService
}

// setupEngine opens a fresh store. seed runs against a writable handle before
// the legacy collection is made read-only.
func setupEngine(t *testing.T, seed func(ctx context.Context, docs store.DocumentStore)) *testEngine {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.DiscardHandler)
	clock := newTestClock()

	if seed != nil {
		raw, err := sqlite.Open(dbPath, nil, store.Options{Now: clock.Now})
		require.NoError(t, err)
		seed(context.Background(), raw)
		require.NoError(t, raw.Close())
	}

	s, err := sqlite.Open(dbPath, nil, store.Options{
		ReadOnlyCollections: []string{LegacyCollection},
		Now:                 clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	docs := newFaultyStore(s)
	cfg := DefaultEngineConfig()

	e := &testEngine{docs: docs, clock: clock, cfg: cfg}
	e.locator = NewLocator(docs, logger)
	e.fetcher = NewItemFetcher(docs, cfg, logger)
	e.mirror = NewMirrorSync(docs, cfg, logger)
	e.mirror.now = clock.Now
	e.ledger = NewLikeLedger(docs, e.locator, e.mirror, logger)
	e.ledger.now = clock.Now
	e.guard = NewAbuseGuard(docs, logger)
	e.guard.now = clock.Now
	e.showcases = NewShowcaseService(docs, e.locator, e.fetcher, e.mirror, e.ledger, e.guard, cfg, logger)
	e.showcases.now = clock.Now
	e.items = NewItemService(docs, e.fetcher, logger)
	e.items.now = clock.Now
	e.reconcile = NewReconcileService(docs, e.locator, e.mirror, e.ledger, logger)
	return e
}

func seedDoc(t *testing.T, docs store.DocumentStore, p store.Path, data any) {
	t.Helper()
	require.NoError(t, docs.Set(context.Background(), p, data))
}

func item(id, name string, tags ...string) *domain.Item {
	return &domain.Item{ID: id, Name: name, Tags: tags}
}

func readShowcaseAt(t *testing.T, docs store.DocumentStore, p store.Path) *domain.Showcase {
	t.Helper()
	doc, err := docs.Get(context.Background(), p)
	require.NoError(t, err)
	sc, err := decodeShowcase(doc)
	require.NoError(t, err)
	return sc
}

func itemIDsOf(items []domain.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
