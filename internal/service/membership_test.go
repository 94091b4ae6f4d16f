package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/listenupapp/showcase-server/internal/domain"
)

func candidates() []domain.Item {
	return []domain.Item{
		*item("a", "Mantle", "Baseball", "rookie"),
		*item("b", "Gretzky", "hockey"),
		*item("c", "Jordan", "basketball", "ROOKIE"),
		*item("a", "Mantle copy", "baseball"),
		*item("d", "Untagged"),
	}
}

func TestResolveMembership_ExplicitIDsWinVerbatim(t *testing.T) {
	sc := &domain.Showcase{ItemIDs: domain.ItemIDs{"z", "b"}, Tags: []string{"hockey"}}

	res := ResolveMembership(sc, candidates(), MembershipPolicy{})
	assert.Equal(t, []string{"z", "b"}, res.ItemIDs)
	assert.False(t, res.UsedFallback)
	assert.False(t, NeedsCandidates(sc))
}

func TestResolveMembership_TagsCaseInsensitiveInDiscoveryOrder(t *testing.T) {
	sc := &domain.Showcase{Tags: []string{" Rookie "}}

	res := ResolveMembership(sc, candidates(), MembershipPolicy{})
	assert.Equal(t, []string{"a", "c"}, res.ItemIDs)
	assert.True(t, res.UsedFallback)
	assert.False(t, res.UsedArbitrary)
	assert.True(t, NeedsCandidates(sc))
}

func TestResolveMembership_NoIDsNoTags(t *testing.T) {
	sc := &domain.Showcase{Tags: []string{"", "  "}}

	res := ResolveMembership(sc, candidates(), MembershipPolicy{AllowArbitraryFallback: true, ArbitraryLimit: 4})
	assert.Empty(t, res.ItemIDs)
	assert.NotNil(t, res.ItemIDs)
	assert.False(t, res.UsedFallback)
	assert.False(t, NeedsCandidates(sc))
}

func TestResolveMembership_ArbitraryFallbackIsOptIn(t *testing.T) {
	sc := &domain.Showcase{Tags: []string{"football"}}

	res := ResolveMembership(sc, candidates(), MembershipPolicy{})
	assert.Empty(t, res.ItemIDs)
	assert.True(t, res.UsedFallback)
	assert.False(t, res.UsedArbitrary)

	res = ResolveMembership(sc, candidates(), MembershipPolicy{AllowArbitraryFallback: true, ArbitraryLimit: 2})
	assert.Equal(t, []string{"a", "b"}, res.ItemIDs)
	assert.True(t, res.UsedArbitrary)
}

func TestResolveMembership_Idempotent(t *testing.T) {
	sc := &domain.Showcase{Tags: []string{"hockey", "baseball"}}
	first := ResolveMembership(sc, candidates(), MembershipPolicy{})
	second := ResolveMembership(sc, candidates(), MembershipPolicy{})
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a", "b"}, first.ItemIDs)
}

func TestMergeCandidates_FirstOccurrenceWins(t *testing.T) {
	merged := MergeCandidates(
		[]domain.Item{*item("a", "first"), *item("b", "b")},
		[]domain.Item{*item("a", "second"), *item("c", "c")},
	)
	assert.Equal(t, []string{"a", "b", "c"}, itemIDsOf(merged))
	assert.Equal(t, "first", merged[0].Name)
}

func TestFoldTag(t *testing.T) {
	assert.Equal(t, foldTag("Straße"), foldTag("STRASSE"))
	assert.Equal(t, "rookie", foldTag("  ROOKIE "))
}
