package domain

import (
	"slices"
	"strings"
	"time"
)

// Theme is the visual style of a showcase.
type Theme string

const (
	ThemeWood   Theme = "wood"
	ThemeVelvet Theme = "velvet"
	ThemeGlass  Theme = "glass"
)

// Valid checks if the theme is valid.
func (t Theme) Valid() bool {
	switch t {
	case ThemeWood, ThemeVelvet, ThemeGlass:
		return true
	default:
		return false
	}
}

// OrDefault returns t, or ThemeWood when t is not a known theme.
func (t Theme) OrDefault() Theme {
	if t.Valid() {
		return t
	}
	return ThemeWood
}

// Showcase is a named, ownable collection of item references.
// The same id exists as two separate records: the private instance under its
// owner and the public mirror. They are reconciled, never merged.
type Showcase struct {
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ID          string    `json:"id"`
	OwnerID     string    `json:"userId,omitempty"` // Absent on corrupt mirrors
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Theme       Theme     `json:"theme"`
	Tags        []string  `json:"tags"`
	ItemIDs     ItemIDs   `json:"itemIds"`
	Comments    []Comment `json:"comments,omitempty"`
	Likes       int       `json:"likes"`  // Cache of the like ledger, display only
	Visits      int       `json:"visits"`
	IsPublic    bool      `json:"isPublic"`
	Recovered   bool      `json:"recovered,omitempty"` // Mirror synthesized by recovery
}

// HasOwner reports whether the record names its owner.
func (s *Showcase) HasOwner() bool {
	return strings.TrimSpace(s.OwnerID) != ""
}

// HasMembership reports whether the record carries explicit item ids.
func (s *Showcase) HasMembership() bool {
	return len(s.ItemIDs) > 0
}

// RemoveItem drops every occurrence of itemID and stamps UpdatedAt with at.
// Returns false, leaving the showcase untouched, if the item was not present.
func (s *Showcase) RemoveItem(itemID string, at time.Time) bool {
	if !slices.Contains(s.ItemIDs, itemID) {
		return false
	}
	s.ItemIDs = slices.DeleteFunc(s.ItemIDs, func(id string) bool { return id == itemID })
	s.UpdatedAt = at
	return true
}

// Location is where a showcase record was found.
type Location string

const (
	LocationPrivate Location = "private"
	LocationPublic  Location = "public"
	LocationLegacy  Location = "legacy"
)
