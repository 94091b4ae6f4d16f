package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json/jsontext"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/listenupapp/showcase-server/internal/id"
	"github.com/listenupapp/showcase-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store is a SQLite-backed store.DocumentStore.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	hub    *store.Hub
	rules  store.Rules
	now    func() time.Time
	closed atomic.Bool

	// writeMu keeps a single writer; SQLite cannot upgrade concurrent
	// deferred transactions from read to write.
	writeMu sync.Mutex
}

var _ store.DocumentStore = (*Store)(nil)

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger, opts store.Options) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("SQLite database opened", "path", path)
	}

	return &Store{
		db:     db,
		logger: logger,
		hub:    store.NewHub(),
		rules:  store.NewRules(opts),
		now:    opts.Clock(),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// Hub exposes the change hub.
func (s *Store) Hub() *store.Hub { return s.hub }

func (s *Store) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return store.ErrClosed
	}
	return nil
}

// Get reads one document.
func (s *Store) Get(ctx context.Context, path store.Path) (*store.Document, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if !path.IsDocument() {
		return nil, store.ErrInvalidPath.WithMessage(fmt.Sprintf("not a document path: %q", path))
	}

	var data, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT data, updated_at FROM documents WHERE path = ?", path.String(),
	).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}

	return newDocument(path, data, updatedAt)
}

// Set writes a whole document, replacing any existing body.
func (s *Store) Set(ctx context.Context, path store.Path, data any) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := s.rules.CheckWrite(path); err != nil {
		return err
	}

	body, err := store.EncodeBody(data)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	err = upsert(ctx, s.db, path, body, s.now())
	s.writeMu.Unlock()
	if err != nil {
		return err
	}

	s.hub.Emit(store.ChangeEvent{Path: path})
	return nil
}

// Update merges fields into an existing document inside one transaction.
func (s *Store) Update(ctx context.Context, path store.Path, fields store.Fields) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := s.rules.CheckWrite(path); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var data string
	err = tx.QueryRowContext(ctx, "SELECT data FROM documents WHERE path = ?", path.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}

	now := s.now()
	body, err := store.ApplyFields(jsontext.Value(data), fields, now)
	if err != nil {
		return err
	}

	if err := upsert(ctx, tx, path, body, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.hub.Emit(store.ChangeEvent{Path: path})
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, path store.Path) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := s.rules.CheckWrite(path); err != nil {
		return err
	}

	s.writeMu.Lock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path.String())
	s.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}

	s.hub.Emit(store.ChangeEvent{Path: path, Deleted: true})
	return nil
}

// Add writes a document under an auto-generated id and returns its path.
func (s *Store) Add(ctx context.Context, collection store.Path, data any) (store.Path, error) {
	if !collection.IsCollection() {
		return "", store.ErrInvalidPath.WithMessage(fmt.Sprintf("not a collection path: %q", collection))
	}
	docID, err := id.New()
	if err != nil {
		return "", err
	}
	path := collection.Child(docID)
	if err := s.Set(ctx, path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Query loads the documents in scope through the parent or collection_id
// index and evaluates q against them.
func (s *Store) Query(ctx context.Context, q store.Query) ([]*store.Document, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		rows *sql.Rows
		err  error
	)
	if q.Group != "" {
		rows, err = s.db.QueryContext(ctx,
			"SELECT path, data, updated_at FROM documents WHERE collection_id = ?", q.Group)
	} else {
		rows, err = s.db.QueryContext(ctx,
			"SELECT path, data, updated_at FROM documents WHERE parent = ?", q.Collection.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var candidates []*store.Document
	for rows.Next() {
		var path, data, updatedAt string
		if err := rows.Scan(&path, &data, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := newDocument(store.Path(path), data, updatedAt)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return q.Run(candidates)
}

// Subscribe delivers live result sets for q.
func (s *Store) Subscribe(ctx context.Context, q store.Query, onSnapshot func([]*store.Document), onError func(error)) (func(), error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	return store.Subscribe(ctx, s, s.hub, q, onSnapshot, onError)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, path store.Path, body jsontext.Value, now time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO documents (path, parent, collection_id, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		path.String(), path.Parent().String(), path.CollectionID(), string(body), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", path, err)
	}
	return nil
}

func newDocument(path store.Path, data, updatedAt string) (*store.Document, error) {
	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for %s: %w", path, err)
	}
	return &store.Document{Path: path, Data: jsontext.Value(data), UpdatedAt: t}, nil
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
