package service

import (
	"context"
	"log/slog"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/search"
	"github.com/listenupapp/showcase-server/internal/store"
)

// SearchService keeps the full-text index in step with the public mirrors
// and answers discovery queries. It implements MirrorIndexer.
type SearchService struct {
	index  *search.SearchIndex
	docs   store.DocumentStore
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, docs store.DocumentStore, logger *slog.Logger) *SearchService {
	return &SearchService{index: index, docs: docs, logger: logger}
}

// IndexShowcase adds or replaces a public showcase in the index.
func (s *SearchService) IndexShowcase(_ context.Context, sc *domain.Showcase) error {
	if sc == nil || sc.ID == "" {
		return nil
	}
	return s.index.IndexDocument(search.ShowcaseToSearchDocument(sc))
}

// RemoveShowcase drops a showcase from the index.
func (s *SearchService) RemoveShowcase(_ context.Context, showcaseID string) error {
	return s.index.DeleteDocument(showcaseID)
}

// Search runs a discovery query over public showcases.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	res, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "search failed")
	}
	return res, nil
}

// Reindex rebuilds the index from every public mirror and returns how many
// were indexed. Records that fail to decode are skipped.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	docs, err := s.docs.Query(ctx, store.From(publicShowcases()))
	if err != nil {
		return 0, translate(err, "failed to list public showcases")
	}

	batch := make([]*search.SearchDocument, 0, len(docs))
	for _, doc := range docs {
		sc, err := decodeShowcase(doc)
		if err != nil {
			s.logger.Warn("skipping undecodable mirror", "path", doc.Path, "error", err)
			continue
		}
		batch = append(batch, search.ShowcaseToSearchDocument(sc))
	}

	if err := s.index.Replace(batch); err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to rebuild search index")
	}

	s.logger.Info("search index rebuilt", "showcases", len(batch))
	return len(batch), nil
}

// DocumentCount reports how many showcases the index holds.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}
