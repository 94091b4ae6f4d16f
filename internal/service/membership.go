package service

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/listenupapp/showcase-server/internal/domain"
)

// MembershipPolicy controls the fallbacks of ResolveMembership.
type MembershipPolicy struct {
	// AllowArbitraryFallback returns the first ArbitraryLimit candidates when
	// tag matching finds nothing. Off unless the caller opts in.
	AllowArbitraryFallback bool
	ArbitraryLimit         int
}

// MembershipResult is the resolved, ordered membership of a showcase.
type MembershipResult struct {
	ItemIDs       []string
	UsedFallback  bool
	UsedArbitrary bool
}

// NeedsCandidates reports whether resolving sc can use a candidate pool at
// all, so callers can skip loading one.
func NeedsCandidates(sc *domain.Showcase) bool {
	return !sc.HasMembership() && len(foldTags(sc.Tags)) > 0
}

// ResolveMembership computes a showcase's member item ids. Explicit ids win
// verbatim; otherwise candidates are matched on tags (case-insensitive),
// keeping discovery order and dropping duplicate ids. A showcase with no
// ids and no tags has no members.
func ResolveMembership(sc *domain.Showcase, candidates []domain.Item, policy MembershipPolicy) MembershipResult {
	if sc.HasMembership() {
		return MembershipResult{ItemIDs: sc.ItemIDs.Strings()}
	}

	wanted := foldTags(sc.Tags)
	if len(wanted) == 0 {
		return MembershipResult{ItemIDs: []string{}}
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, item := range candidates {
		if item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		if !intersects(wanted, item.Tags) {
			continue
		}
		seen[item.ID] = struct{}{}
		ids = append(ids, item.ID)
	}

	if len(ids) == 0 && policy.AllowArbitraryFallback && policy.ArbitraryLimit > 0 {
		for _, item := range MergeCandidates(candidates) {
			if len(ids) == policy.ArbitraryLimit {
				break
			}
			if item.ID != "" {
				ids = append(ids, item.ID)
			}
		}
		return MembershipResult{ItemIDs: ids, UsedFallback: true, UsedArbitrary: len(ids) > 0}
	}

	if ids == nil {
		ids = []string{}
	}
	return MembershipResult{ItemIDs: ids, UsedFallback: true}
}

// MergeCandidates concatenates item lists discovered through several item
// stores, keeping the first occurrence of each id.
func MergeCandidates(lists ...[]domain.Item) []domain.Item {
	var out []domain.Item
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, item := range list {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

func foldTag(tag string) string {
	return cases.Fold().String(strings.TrimSpace(tag))
}

func foldTags(tags []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if f := foldTag(t); f != "" {
			out[f] = struct{}{}
		}
	}
	return out
}

func intersects(wanted map[string]struct{}, tags []string) bool {
	for _, t := range tags {
		if _, ok := wanted[foldTag(t)]; ok {
			return true
		}
	}
	return false
}
