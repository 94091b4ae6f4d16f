package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/showcase-server/internal/id"
)

// DocumentStore is the path-addressed document store the engine runs on.
// A miss is reported as ErrNotFound; any other error is a transport failure.
type DocumentStore interface {
	Get(ctx context.Context, path Path) (*Document, error)
	Set(ctx context.Context, path Path, data any) error
	Update(ctx context.Context, path Path, fields Fields) error
	Delete(ctx context.Context, path Path) error
	Add(ctx context.Context, collection Path, data any) (Path, error)
	Query(ctx context.Context, q Query) ([]*Document, error)
	Subscribe(ctx context.Context, q Query, onSnapshot func([]*Document), onError func(error)) (func(), error)
	Close() error
}

// Options configures behavior shared by both backends.
type Options struct {
	// ReadOnlyCollections lists top-level collections that reject writes
	// with ErrPermissionDenied.
	ReadOnlyCollections []string
	// Now overrides the clock used for timestamps (tests).
	Now func() time.Time
}

// Rules enforces Options on a write path.
type Rules struct {
	readOnly []string
}

// NewRules builds the write rules for opts.
func NewRules(opts Options) Rules {
	return Rules{readOnly: slices.Clone(opts.ReadOnlyCollections)}
}

// CheckWrite rejects invalid document paths and writes to read-only collections.
func (r Rules) CheckWrite(p Path) error {
	if !p.IsDocument() {
		return ErrInvalidPath.WithMessage(fmt.Sprintf("not a document path: %q", p))
	}
	if slices.Contains(r.readOnly, p.Root()) {
		return ErrPermissionDenied.WithMessage(fmt.Sprintf("collection %q is read-only", p.Root()))
	}
	return nil
}

// Clock returns opts.Now or time.Now.
func (opts Options) Clock() func() time.Time {
	if opts.Now != nil {
		return opts.Now
	}
	return time.Now
}

// maxTxnRetries bounds retries of read-modify-write transactions on conflict.
const maxTxnRetries = 5

// Store is the badger-backed DocumentStore.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	hub    *Hub
	rules  Rules
	now    func() time.Time
	closed atomic.Bool

	// updateMu serializes read-modify-write transactions so hot counters do
	// not burn through conflict retries.
	updateMu sync.Mutex
}

var _ DocumentStore = (*Store)(nil)

// New opens (or creates) a badger database at path.
func New(path string, logger *slog.Logger, opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(path)
	bopts.Logger = nil            // Disable Badger's internal logging
	bopts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	bopts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		hub:    NewHub(),
		rules:  NewRules(opts),
		now:    opts.Clock(),
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Hub exposes the change hub, mainly for tests and diagnostics.
func (s *Store) Hub() *Hub { return s.hub }

func (s *Store) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Get reads one document.
func (s *Store) Get(ctx context.Context, path Path) (*Document, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if !path.IsDocument() {
		return nil, ErrInvalidPath.WithMessage(fmt.Sprintf("not a document path: %q", path))
	}

	key := buildKey(path)
	defer releaseKey(key)

	var rec record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get key: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}

	return &Document{Path: path, Data: rec.Data, UpdatedAt: rec.UpdatedAt}, nil
}

// Set writes a whole document, replacing any existing body.
func (s *Store) Set(ctx context.Context, path Path, data any) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := s.rules.CheckWrite(path); err != nil {
		return err
	}

	body, err := EncodeBody(data)
	if err != nil {
		return err
	}
	val, err := json.Marshal(record{Data: body, UpdatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(path), val)
	})
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}

	s.hub.Emit(ChangeEvent{Path: path})
	return nil
}

// Update merges fields into an existing document. Returns ErrNotFound when the
// document does not exist.
func (s *Store) Update(ctx context.Context, path Path, fields Fields) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := s.rules.CheckWrite(path); err != nil {
		return err
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	var err error
	for range maxTxnRetries {
		err = s.db.Update(func(txn *badger.Txn) error {
			key := recordKey(path)
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to get key: %w", err)
			}

			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}

			now := s.now()
			body, err := ApplyFields(rec.Data, fields, now)
			if err != nil {
				return err
			}
			val, err := json.Marshal(record{Data: body, UpdatedAt: now.UTC()})
			if err != nil {
				return fmt.Errorf("failed to marshal record: %w", err)
			}
			return txn.Set(key, val)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return err
	}

	s.hub.Emit(ChangeEvent{Path: path})
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, path Path) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := s.rules.CheckWrite(path); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(path))
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}

	s.hub.Emit(ChangeEvent{Path: path, Deleted: true})
	return nil
}

// Add writes a document under an auto-generated id and returns its path.
func (s *Store) Add(ctx context.Context, collection Path, data any) (Path, error) {
	if !collection.IsCollection() {
		return "", ErrInvalidPath.WithMessage(fmt.Sprintf("not a collection path: %q", collection))
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

// Query scans the collection (or the whole key space for collection groups)
// and evaluates q against every document in scope.
func (s *Store) Query(ctx context.Context, q Query) ([]*Document, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	prefix := []byte(docKeyPrefix + q.ScanPrefix())
	var candidates []*Document

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			path := pathFromKey(it.Item().KeyCopy(nil))
			if !q.Covers(path) {
				continue
			}

			var rec record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal %s: %w", path, err)
			}
			candidates = append(candidates, &Document{Path: path, Data: rec.Data, UpdatedAt: rec.UpdatedAt})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return q.Run(candidates)
}

// Subscribe delivers live result sets for q. See the package-level Subscribe.
func (s *Store) Subscribe(ctx context.Context, q Query, onSnapshot func([]*Document), onError func(error)) (func(), error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	return Subscribe(ctx, s, s.hub, q, onSnapshot, onError)
}
