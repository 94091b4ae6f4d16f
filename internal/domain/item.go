package domain

import (
	"slices"
	"time"
)

// Item is a catalogued collector's object.
type Item struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId,omitempty"`
	Name      string    `json:"name"`
	Year      string    `json:"year,omitempty"`
	Set       string    `json:"set,omitempty"`
	Number    string    `json:"number,omitempty"`
	Variation string    `json:"variation,omitempty"`
	Condition string    `json:"condition,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Tags      []string  `json:"tags"`
	Price     float64   `json:"price,omitempty"`
}

// HasTag reports whether the item carries tag exactly.
func (i *Item) HasTag(tag string) bool {
	return slices.Contains(i.Tags, tag)
}
