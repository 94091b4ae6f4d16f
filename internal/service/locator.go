package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/store"
)

// Located is a showcase record together with where it was found.
type Located struct {
	Showcase *domain.Showcase
	Doc      *store.Document
	Location domain.Location
	// OwnerID is the owner the hit implies: the scope of a private hit, or
	// the record's own userId for public and legacy hits (may be empty).
	OwnerID string
}

// Locator finds showcase records across the private, public and legacy
// locations. It never writes.
type Locator struct {
	docs   store.DocumentStore
	logger *slog.Logger
}

// NewLocator creates a new record locator.
func NewLocator(docs store.DocumentStore, logger *slog.Logger) *Locator {
	return &Locator{docs: docs, logger: logger}
}

type probe struct {
	location domain.Location
	path     store.Path
}

func (l *Locator) probes(showcaseID, ownerID string) []probe {
	out := make([]probe, 0, 3)
	if ownerID != "" {
		out = append(out, probe{domain.LocationPrivate, privateShowcasePath(ownerID, showcaseID)})
	}
	return append(out,
		probe{domain.LocationPublic, publicShowcasePath(showcaseID)},
		probe{domain.LocationLegacy, legacyShowcasePath(showcaseID)},
	)
}

// Locate returns the first location holding the showcase, probing private
// (when the owner is known), then public, then legacy. A miss on one probe
// is not an error. When nothing is found the error is NOT_FOUND, or
// UNAVAILABLE if any probe failed to complete.
func (l *Locator) Locate(ctx context.Context, showcaseID, ownerID string) (*Located, error) {
	if strings.TrimSpace(showcaseID) == "" {
		return nil, domainerrors.Validation("showcase id is required")
	}

	failed := 0
	for _, p := range l.probes(showcaseID, ownerID) {
		hit, err := l.read(ctx, p, ownerID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			l.logger.Warn("showcase probe failed",
				"showcase_id", showcaseID,
				"location", p.location,
				"error", err,
			)
			continue
		}
		if hit != nil {
			return hit, nil
		}
	}

	if failed > 0 {
		return nil, domainerrors.Unavailable("showcase storage is unreachable, try again")
	}
	return nil, domainerrors.NotFoundf("showcase %s not found", showcaseID)
}

// LocateAll returns every location that currently holds the showcase, in
// probe order. Probe failures are logged and skipped.
func (l *Locator) LocateAll(ctx context.Context, showcaseID, ownerID string) ([]*Located, error) {
	if strings.TrimSpace(showcaseID) == "" {
		return nil, domainerrors.Validation("showcase id is required")
	}

	var out []*Located
	for _, p := range l.probes(showcaseID, ownerID) {
		hit, err := l.read(ctx, p, ownerID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.logger.Warn("showcase probe failed",
				"showcase_id", showcaseID,
				"location", p.location,
				"error", err,
			)
			continue
		}
		if hit != nil {
			out = append(out, hit)
		}
	}
	return out, nil
}

// read performs one probe. It returns (nil, nil) on a miss.
func (l *Locator) read(ctx context.Context, p probe, ownerID string) (*Located, error) {
	doc, err := l.docs.Get(ctx, p.path)
	if isMiss(err) {
		l.logger.Debug("showcase probe miss", "path", p.path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sc, err := decodeShowcase(doc)
	if err != nil {
		return nil, err
	}

	owner := sc.OwnerID
	if p.location == domain.LocationPrivate {
		owner = ownerID
	}
	return &Located{Showcase: sc, Doc: doc, Location: p.location, OwnerID: owner}, nil
}

// decodeShowcase decodes a showcase document. The document key is
// authoritative for the id.
func decodeShowcase(doc *store.Document) (*domain.Showcase, error) {
	var sc domain.Showcase
	if err := doc.Decode(&sc); err != nil {
		return nil, err
	}
	sc.ID = doc.ID()
	return &sc, nil
}
