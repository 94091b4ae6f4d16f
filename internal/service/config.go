package service

import (
	"regexp"
	"time"

	"github.com/listenupapp/showcase-server/internal/domain"
)

// RateRule is a sliding-window limit for one action type.
type RateRule struct {
	Window time.Duration
	Max    int
}

// Limits holds the per-action rate rules callers apply through the AbuseGuard.
type Limits struct {
	Comment RateRule
	Like    RateRule
	Share   RateRule
	Message RateRule
}

// For returns the rule for an action type.
func (l Limits) For(action domain.ActionType) RateRule {
	switch action {
	case domain.ActionComment:
		return l.Comment
	case domain.ActionLike:
		return l.Like
	case domain.ActionShare:
		return l.Share
	default:
		return l.Message
	}
}

// EngineConfig carries the tunables of the resolution engine.
type EngineConfig struct {
	// PlaceholderItemIDs is written as membership when a mirror must be
	// repaired and no real membership can be recovered.
	PlaceholderItemIDs []string
	// GlobalItemPattern gates the globalItems probe of the item fetcher.
	GlobalItemPattern *regexp.Regexp
	Membership        MembershipPolicy
	FetchConcurrency  int
	Limits            Limits
}

// DefaultEngineConfig returns the defaults used when nothing is configured.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PlaceholderItemIDs: []string{"item1", "item2", "item3"},
		GlobalItemPattern:  regexp.MustCompile(`^item\d+$`),
		Membership:         MembershipPolicy{AllowArbitraryFallback: false, ArbitraryLimit: 4},
		FetchConcurrency:   8,
		Limits: Limits{
			Comment: RateRule{Window: 30 * time.Second, Max: 5},
			Like:    RateRule{Window: 10 * time.Second, Max: 5},
			Share:   RateRule{Window: 10 * time.Second, Max: 5},
			Message: RateRule{Window: 60 * time.Second, Max: 5},
		},
	}
}
