package sqlite

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/showcase-server/internal/store"
	"github.com/listenupapp/showcase-server/internal/store/storetest"
)

func newTestStore(t *testing.T, opts store.Options) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger, opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t, store.Options{})

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var name string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='documents'").Scan(&name)
	require.NoError(t, err)
}

func TestStore_IndexesParentAndGroup(t *testing.T) {
	s := newTestStore(t, store.Options{})
	ctx := t.Context()

	p := store.Doc("users", "u1", "showcases", "sc1")
	require.NoError(t, s.Set(ctx, p, map[string]any{"title": "Desk"}))

	var parent, collectionID string
	err := s.db.QueryRow("SELECT parent, collection_id FROM documents WHERE path = ?", p.String()).Scan(&parent, &collectionID)
	require.NoError(t, err)
	assert.Equal(t, "users/u1/showcases", parent)
	assert.Equal(t, "showcases", collectionID)
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, opts store.Options) store.DocumentStore {
		return newTestStore(t, opts)
	})
}
