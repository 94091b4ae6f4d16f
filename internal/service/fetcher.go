package service

import (
	"context"
	"log/slog"
	"regexp"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/store"
)

// ItemFetcher resolves item ids to payloads across the owner's primary and
// secondary item stores and the global item store.
type ItemFetcher struct {
	docs          store.DocumentStore
	logger        *slog.Logger
	globalPattern *regexp.Regexp
	concurrency   int
}

// NewItemFetcher creates a new item fetcher.
func NewItemFetcher(docs store.DocumentStore, cfg EngineConfig, logger *slog.Logger) *ItemFetcher {
	concurrency := cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ItemFetcher{
		docs:          docs,
		logger:        logger,
		globalPattern: cfg.GlobalItemPattern,
		concurrency:   concurrency,
	}
}

// FetchItems resolves each id independently and concurrently. Unresolved
// ids are dropped, input order is kept, and duplicate input ids yield one
// item. A transport failure on one id never affects its siblings; the call
// fails with UNAVAILABLE only when every id failed that way.
func (f *ItemFetcher) FetchItems(ctx context.Context, itemIDs []string, ownerID string) ([]domain.Item, error) {
	ids := domain.NewItemIDs(itemIDs...)
	if len(ids) == 0 {
		return []domain.Item{}, nil
	}

	results := make([]*domain.Item, len(ids))
	var failed atomic.Int32

	// A plain Group: per-id errors are absorbed below so nothing cancels siblings.
	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, itemID := range ids {
		g.Go(func() error {
			item, err := f.fetchOne(ctx, itemID, ownerID)
			if err != nil {
				failed.Add(1)
				f.logger.Warn("item lookup failed",
					"item_id", itemID,
					"owner_id", ownerID,
					"error", err,
				)
				return nil
			}
			results[i] = item
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if int(failed.Load()) == len(ids) {
		return nil, domainerrors.Unavailable("item storage is unreachable, try again")
	}

	items := make([]domain.Item, 0, len(ids))
	for _, item := range results {
		if item != nil {
			items = append(items, *item)
		}
	}
	return items, nil
}

// fetchOne probes the item locations for one id. It returns (nil, nil) when
// the id resolves nowhere, and an error only when no probe hit and at least
// one probe failed.
func (f *ItemFetcher) fetchOne(ctx context.Context, itemID, ownerID string) (*domain.Item, error) {
	var paths []store.Path
	if ownerID != "" {
		paths = append(paths, primaryItems(ownerID).Child(itemID), secondaryItems(ownerID).Child(itemID))
	}
	if f.globalPattern != nil && f.globalPattern.MatchString(itemID) {
		paths = append(paths, globalItemPath(itemID))
	}

	var lastErr error
	for _, p := range paths {
		doc, err := f.docs.Get(ctx, p)
		if isMiss(err) {
			continue
		}
		if err != nil {
			lastErr = err
			continue
		}

		item, err := decodeItem(doc)
		if err != nil {
			lastErr = err
			continue
		}
		if item.OwnerID == "" && p != globalItemPath(itemID) {
			item.OwnerID = ownerID
		}
		return item, nil
	}

	if lastErr == nil {
		f.logger.Debug("item not found", "item_id", itemID, "owner_id", ownerID)
	}
	return nil, lastErr
}

// ListOwnerItems returns the owner's items from both item stores, first
// occurrence of an id winning. It fails only when neither store could be read.
func (f *ItemFetcher) ListOwnerItems(ctx context.Context, ownerID string) ([]domain.Item, error) {
	if ownerID == "" {
		return []domain.Item{}, nil
	}

	var (
		lists  [][]domain.Item
		failed int
	)
	for _, col := range []store.Path{primaryItems(ownerID), secondaryItems(ownerID)} {
		items, err := f.listCollection(ctx, col, ownerID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			f.logger.Warn("item store listing failed", "collection", col, "error", err)
			continue
		}
		lists = append(lists, items)
	}
	if failed == 2 {
		return nil, domainerrors.Unavailable("item storage is unreachable, try again")
	}

	merged := MergeCandidates(lists...)
	if merged == nil {
		merged = []domain.Item{}
	}
	return merged, nil
}

func (f *ItemFetcher) listCollection(ctx context.Context, col store.Path, ownerID string) ([]domain.Item, error) {
	docs, err := f.docs.Query(ctx, store.From(col).Order("createdAt", false))
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(docs))
	for _, doc := range docs {
		item, err := decodeItem(doc)
		if err != nil {
			f.logger.Warn("skipping undecodable item", "path", doc.Path, "error", err)
			continue
		}
		if item.OwnerID == "" {
			item.OwnerID = ownerID
		}
		items = append(items, *item)
	}
	return items, nil
}

// decodeItem decodes an item document; the document key wins over any id
// field in the payload.
func decodeItem(doc *store.Document) (*domain.Item, error) {
	var item domain.Item
	if err := doc.Decode(&item); err != nil {
		return nil, err
	}
	item.ID = doc.ID()
	return &item, nil
}
