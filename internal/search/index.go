package search

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// SearchIndex wraps a Bleve index of public showcases.
//
// Reads and single-document writes share the lock; Replace takes it
// exclusively only for the final swap.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Uses discard if nil
}

// mappingVersion changes whenever buildIndexMapping does; a mismatch on disk
// drops the index on open.
const mappingVersion = "1"

const (
	indexDirName    = "showcases.bleve"
	versionFileName = "showcases.version"
	batchSize       = 500
)

// NewSearchIndex opens the index under opts.DataPath, creating it when it is
// missing, unreadable or built with another mapping version.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	indexPath := filepath.Join(opts.DataPath, indexDirName)
	versionPath := filepath.Join(opts.DataPath, versionFileName)

	index, err := openCurrent(indexPath, versionPath, logger)
	if err != nil {
		return nil, err
	}
	if index == nil {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		if index, err = bleve.New(indexPath, buildIndexMapping()); err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)
	}

	return &SearchIndex{index: index, path: indexPath, logger: logger}, nil
}

// openCurrent returns the existing index when it can be reused, or nil when
// it has to be created from scratch.
func openCurrent(indexPath, versionPath string, logger *slog.Logger) (bleve.Index, error) {
	if _, err := os.Stat(indexPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat index: %w", err)
	}

	version, err := os.ReadFile(versionPath)
	if err != nil || string(version) != mappingVersion {
		logger.Info("search index mapping is stale, rebuilding",
			"old_version", string(version),
			"new_version", mappingVersion,
		)
		return nil, nil
	}

	index, err := bleve.Open(indexPath)
	if err != nil {
		logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
		return nil, nil
	}
	logger.Info("opened search index", "path", indexPath)
	return index, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocument adds or replaces one showcase.
func (s *SearchIndex) IndexDocument(doc *SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// ToMap keeps field names aligned with the mapping.
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments adds or replaces showcases in batches.
func (s *SearchIndex) IndexDocuments(docs []*SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexBatches(s.index, docs)
}

func indexBatches(index bleve.Index, docs []*SearchDocument) error {
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteDocument removes a showcase from the index. Unknown ids are ignored.
func (s *SearchIndex) DeleteDocument(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Replace swaps the index contents for docs. The new index is built beside
// the live one, so searches keep answering from the old contents until the
// swap.
func (s *SearchIndex) Replace(docs []*SearchDocument) error {
	nextPath := s.path + ".next"
	if err := os.RemoveAll(nextPath); err != nil {
		return fmt.Errorf("clear staging index: %w", err)
	}

	next, err := bleve.New(nextPath, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create staging index: %w", err)
	}
	if err := indexBatches(next, docs); err != nil {
		_ = next.Close()
		_ = os.RemoveAll(nextPath)
		return err
	}
	if err := next.Close(); err != nil {
		return fmt.Errorf("close staging index: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	if err := os.Rename(nextPath, s.path); err != nil {
		return fmt.Errorf("promote staging index: %w", err)
	}
	index, err := bleve.Open(s.path)
	if err != nil {
		return fmt.Errorf("open replaced index: %w", err)
	}
	s.index = index

	s.logger.Info("replaced search index", "path", s.path, "documents", len(docs))
	return nil
}
