package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/spam"
	"github.com/listenupapp/showcase-server/internal/store"
)

// Reputation scoring bounds.
const (
	reputationBase        = 5
	reputationMax         = 10
	reputationSample      = 50
	reputationBusyAt      = 30
	reputationBusyPenalty = 2
)

// AbuseGuard rate-limits social actions from the action ledger and screens
// free text. It fails closed on a missing actor and open on its own storage
// errors.
type AbuseGuard struct {
	docs   store.DocumentStore
	logger *slog.Logger
	now    func() time.Time
}

// NewAbuseGuard creates a new abuse guard.
func NewAbuseGuard(docs store.DocumentStore, logger *slog.Logger) *AbuseGuard {
	return &AbuseGuard{docs: docs, logger: logger, now: time.Now}
}

// CheckRateLimit reports whether actorID must be blocked from another
// action of the given type: true when more than maxActions rows fall inside
// the trailing window.
func (g *AbuseGuard) CheckRateLimit(ctx context.Context, actorID string, action domain.ActionType, window time.Duration, maxActions int) bool {
	if strings.TrimSpace(actorID) == "" {
		return true
	}

	since := g.now().Add(-window).UTC()
	rows, err := g.docs.Query(ctx, store.From(userActionsCollection()).
		Where("userId", store.OpEqual, actorID).
		Where("actionType", store.OpEqual, string(action)).
		Where("timestamp", store.OpGreaterEqual, since).
		Order("timestamp", true).
		Take(maxActions+1))
	if err != nil {
		g.logger.Warn("rate limit check failed, allowing action",
			"actor_id", actorID,
			"action", action,
			"error", err,
		)
		return false
	}

	blocked := len(rows) > maxActions
	if blocked {
		g.logger.Info("rate limit hit", "actor_id", actorID, "action", action, "window", window)
	}
	return blocked
}

// Allow applies rule to actorID and returns a RATE_LIMITED error when blocked.
func (g *AbuseGuard) Allow(ctx context.Context, actorID string, action domain.ActionType, rule RateRule) error {
	if g.CheckRateLimit(ctx, actorID, action, rule.Window, rule.Max) {
		return domainerrors.RateLimited("you're doing that too often, slow down")
	}
	return nil
}

// RecordAction appends a row to the action ledger.
func (g *AbuseGuard) RecordAction(ctx context.Context, actorID string, action domain.ActionType, targetID string) error {
	if strings.TrimSpace(actorID) == "" {
		return domainerrors.Validation("actor id is required")
	}
	if !action.Valid() {
		return domainerrors.Validationf("unknown action type %q", action)
	}

	row := domain.UserAction{
		Timestamp:  g.now().UTC(),
		UserID:     actorID,
		ActionType: action,
		TargetID:   targetID,
	}
	if _, err := g.docs.Add(ctx, userActionsCollection(), &row); err != nil {
		return translate(err, "failed to record action")
	}
	return nil
}

// ScreenContent reports whether text matches any spam pattern.
func (g *AbuseGuard) ScreenContent(text string) bool {
	res := spam.Screen(text)
	if res.Flagged {
		g.logger.Info("content flagged", "reasons", res.Reasons)
	}
	return res.Flagged
}

// Reputation scores an actor from 0 to 10 on recent activity volume. An
// unknown actor scores 0; a storage failure yields the neutral base score.
func (g *AbuseGuard) Reputation(ctx context.Context, actorID string) int {
	if strings.TrimSpace(actorID) == "" {
		return 0
	}

	rows, err := g.docs.Query(ctx, store.From(userActionsCollection()).
		Where("userId", store.OpEqual, actorID).
		Order("timestamp", true).
		Take(reputationSample))
	if err != nil {
		g.logger.Warn("reputation lookup failed", "actor_id", actorID, "error", err)
		return reputationBase
	}

	score := reputationBase
	if len(rows) > reputationBusyAt {
		score -= reputationBusyPenalty
	}
	return min(max(score, 0), reputationMax)
}
