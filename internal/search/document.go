// Package search provides full-text search over public showcases using Bleve.
// Only public mirrors are indexed; private showcases never reach the index.
package search

import (
	"github.com/listenupapp/showcase-server/internal/domain"
)

// DocType represents the type of document in the index.
type DocType string

// Document types for the search index.
const (
	DocTypeShowcase DocType = "showcase"
)

// SearchDocument is the indexed form of a public showcase.
type SearchDocument struct {
	ID   string  `json:"id"`
	Type DocType `json:"type"`

	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	OwnerID     string   `json:"owner_id,omitempty"`
	Theme       string   `json:"theme,omitempty"`

	ItemCount int `json:"item_count,omitempty"`
	Likes     int `json:"likes,omitempty"`
	Visits    int `json:"visits,omitempty"`

	CreatedAt int64 `json:"created_at"` // Unix millis
	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map keyed by the mapping's field names.
func (d *SearchDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"type":       string(d.Type),
		"name":       d.Name,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
		"item_count": d.ItemCount,
		"likes":      d.Likes,
		"visits":     d.Visits,
	}

	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if d.OwnerID != "" {
		m["owner_id"] = d.OwnerID
	}
	if d.Theme != "" {
		m["theme"] = d.Theme
	}

	return m
}

// ShowcaseToSearchDocument converts a public showcase to a SearchDocument.
// Tags are indexed lowercased so tag filters are case-insensitive.
func ShowcaseToSearchDocument(sc *domain.Showcase) *SearchDocument {
	tags := make([]string, 0, len(sc.Tags))
	for _, t := range sc.Tags {
		if t = normalizeTag(t); t != "" {
			tags = append(tags, t)
		}
	}

	return &SearchDocument{
		ID:          sc.ID,
		Type:        DocTypeShowcase,
		Name:        sc.Name,
		Description: sc.Description,
		Tags:        tags,
		OwnerID:     sc.OwnerID,
		Theme:       string(sc.Theme.OrDefault()),
		ItemCount:   len(sc.ItemIDs),
		Likes:       sc.Likes,
		Visits:      sc.Visits,
		CreatedAt:   sc.CreatedAt.UnixMilli(),
		UpdatedAt:   sc.UpdatedAt.UnixMilli(),
	}
}
