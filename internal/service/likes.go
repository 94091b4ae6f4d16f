package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/store"
)

// NewAnonymousActorID returns a fresh id for a client without an account.
// The client persists it and reuses it for its lifetime.
func NewAnonymousActorID() string {
	return domain.AnonymousPrefix + uuid.NewString()
}

// LikeSnapshot is one consistent view of a showcase's like rows. Count and
// HasLiked are derived from the same row set.
type LikeSnapshot struct {
	Rows     []domain.Like `json:"-"`
	Count    int           `json:"count"`
	HasLiked bool          `json:"hasLiked"`
}

// LikeLedger is the source of truth for likes. The likes field cached on
// showcase records is a display hint kept close to the ledger by Recount.
//
// AddLike inserts without an existence check, so racing inserts can leave
// duplicate rows for one actor. Recount counts rows as they are.
type LikeLedger struct {
	docs    store.DocumentStore
	locator *Locator
	mirror  *MirrorSync
	logger  *slog.Logger
	now     func() time.Time
}

// NewLikeLedger creates a new like ledger.
func NewLikeLedger(docs store.DocumentStore, locator *Locator, mirror *MirrorSync, logger *slog.Logger) *LikeLedger {
	return &LikeLedger{
		docs:    docs,
		locator: locator,
		mirror:  mirror,
		logger:  logger,
		now:     time.Now,
	}
}

func likeQuery(showcaseID string) store.Query {
	return store.From(likesCollection()).Where("showcaseId", store.OpEqual, showcaseID)
}

func checkLikeArgs(showcaseID, actorID string) error {
	if strings.TrimSpace(showcaseID) == "" {
		return domainerrors.Validation("showcase id is required")
	}
	if strings.TrimSpace(actorID) == "" {
		return domainerrors.Unauthorized("an actor id is required to like")
	}
	return nil
}

// AddLike inserts a ledger row and recounts. It returns the recounted total.
func (l *LikeLedger) AddLike(ctx context.Context, showcaseID, ownerHint, actorID string) (int, error) {
	if err := checkLikeArgs(showcaseID, actorID); err != nil {
		return 0, err
	}

	row := domain.Like{
		CreatedAt:  l.now().UTC(),
		ShowcaseID: showcaseID,
		ActorID:    actorID,
	}
	if _, err := l.docs.Add(ctx, likesCollection(), &row); err != nil {
		return 0, translate(err, "failed to record like")
	}

	return l.Recount(ctx, showcaseID, ownerHint)
}

// RemoveLike deletes the oldest row of actorID for the showcase, if any,
// and recounts.
func (l *LikeLedger) RemoveLike(ctx context.Context, showcaseID, ownerHint, actorID string) (int, error) {
	if err := checkLikeArgs(showcaseID, actorID); err != nil {
		return 0, err
	}

	rows, err := l.docs.Query(ctx, likeQuery(showcaseID).
		Where("actorId", store.OpEqual, actorID).
		Order("createdAt", false).
		Take(1))
	if err != nil {
		return 0, translate(err, "failed to read likes")
	}
	if len(rows) > 0 {
		if err := l.docs.Delete(ctx, rows[0].Path); err != nil {
			return 0, translate(err, "failed to remove like")
		}
	}

	return l.Recount(ctx, showcaseID, ownerHint)
}

// HasLiked reports whether actorID has at least one row for the showcase.
func (l *LikeLedger) HasLiked(ctx context.Context, showcaseID, actorID string) (bool, error) {
	if strings.TrimSpace(actorID) == "" {
		return false, nil
	}
	rows, err := l.docs.Query(ctx, likeQuery(showcaseID).
		Where("actorId", store.OpEqual, actorID).
		Take(1))
	if err != nil {
		return false, translate(err, "failed to read likes")
	}
	return len(rows) > 0, nil
}

// Count returns the number of ledger rows for the showcase.
func (l *LikeLedger) Count(ctx context.Context, showcaseID string) (int, error) {
	rows, err := l.docs.Query(ctx, likeQuery(showcaseID))
	if err != nil {
		return 0, translate(err, "failed to count likes")
	}
	return len(rows), nil
}

// Recount writes the ledger count into the cached likes field of the private
// record and of the mirror. Cache writes are best effort; the returned count
// is the ledger's.
func (l *LikeLedger) Recount(ctx context.Context, showcaseID, ownerHint string) (int, error) {
	n, err := l.Count(ctx, showcaseID)
	if err != nil {
		return 0, err
	}

	owner := strings.TrimSpace(ownerHint)
	if owner == "" {
		// Public and legacy records carry their owner.
		if hit, err := l.locator.Locate(ctx, showcaseID, ""); err == nil {
			owner = hit.OwnerID
		}
	}

	if owner != "" && owner != SystemOwner {
		err := l.docs.Update(ctx, privateShowcasePath(owner, showcaseID), store.Fields{"likes": n})
		switch {
		case isMiss(err):
			l.logger.Debug("no private showcase to cache likes on", "showcase_id", showcaseID, "owner_id", owner)
		case err != nil:
			l.logger.Warn("failed to cache like count",
				"showcase_id", showcaseID,
				"owner_id", owner,
				"error", err,
			)
		}
	}

	l.mirror.Propagate(ctx, owner, showcaseID, Delta{SetLikes: &n})
	return n, nil
}

// Subscribe delivers a LikeSnapshot now and after every change to the
// showcase's rows. No callback runs after the returned function returns.
func (l *LikeLedger) Subscribe(ctx context.Context, showcaseID, actorID string, onChange func(LikeSnapshot), onError func(error)) (func(), error) {
	if strings.TrimSpace(showcaseID) == "" {
		return nil, domainerrors.Validation("showcase id is required")
	}

	unsubscribe, err := l.docs.Subscribe(ctx, likeQuery(showcaseID), func(docs []*store.Document) {
		onChange(l.snapshot(docs, actorID))
	}, onError)
	if err != nil {
		return nil, translate(err, "failed to subscribe to likes")
	}
	return unsubscribe, nil
}

func (l *LikeLedger) snapshot(docs []*store.Document, actorID string) LikeSnapshot {
	snap := LikeSnapshot{Rows: make([]domain.Like, 0, len(docs))}
	for _, doc := range docs {
		var row domain.Like
		if err := doc.Decode(&row); err != nil {
			l.logger.Warn("skipping undecodable like row", "path", doc.Path, "error", err)
			continue
		}
		row.ID = doc.ID()
		snap.Rows = append(snap.Rows, row)
		if actorID != "" && row.ActorID == actorID {
			snap.HasLiked = true
		}
	}
	snap.Count = len(snap.Rows)
	return snap
}
