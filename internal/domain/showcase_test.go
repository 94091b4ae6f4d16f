package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShowcase_RemoveItem(t *testing.T) {
	before := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	at := before.Add(time.Hour)
	sc := &Showcase{
		ID:        "sc-1",
		ItemIDs:   ItemIDs{"item-1", "item-2", "item-3", "item-2"},
		UpdatedAt: before,
	}

	assert.True(t, sc.RemoveItem("item-2", at))
	assert.Equal(t, ItemIDs{"item-1", "item-3"}, sc.ItemIDs)
	assert.Equal(t, at, sc.UpdatedAt)

	assert.False(t, sc.RemoveItem("item-nonexistent", at.Add(time.Hour)))
	assert.Equal(t, ItemIDs{"item-1", "item-3"}, sc.ItemIDs)
	assert.Equal(t, at, sc.UpdatedAt)
}

func TestShowcase_RemoveLastItemLeavesEmptyList(t *testing.T) {
	sc := &Showcase{ItemIDs: ItemIDs{"item-1"}}

	assert.True(t, sc.RemoveItem("item-1", time.Now()))
	assert.NotNil(t, sc.ItemIDs)
	assert.Empty(t, sc.ItemIDs)
	assert.False(t, sc.HasMembership())
}

func TestShowcase_OwnerAndMembership(t *testing.T) {
	sc := &Showcase{}
	assert.False(t, sc.HasOwner())
	assert.False(t, sc.HasMembership())

	sc.OwnerID = "  "
	assert.False(t, sc.HasOwner())

	sc.OwnerID = "u1"
	sc.ItemIDs = ItemIDs{"a"}
	assert.True(t, sc.HasOwner())
	assert.True(t, sc.HasMembership())
}

func TestTheme(t *testing.T) {
	assert.True(t, ThemeVelvet.Valid())
	assert.False(t, Theme("neon").Valid())
	assert.Equal(t, ThemeWood, Theme("").OrDefault())
	assert.Equal(t, ThemeGlass, ThemeGlass.OrDefault())
}

func TestIsAnonymousID(t *testing.T) {
	assert.True(t, IsAnonymousID("anon-0b6f8a44-8a8e-4d55-9b43-3f2a1f7c2b11"))
	assert.False(t, IsAnonymousID("anon-"))
	assert.False(t, IsAnonymousID("user-1"))
}
