package service

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/listenupapp/showcase-server/internal/domain"
	"github.com/listenupapp/showcase-server/internal/store"
)

// ReconcileOptions scopes a reconciliation run. With neither OwnerID nor
// ShowcaseID set, every showcase is examined.
type ReconcileOptions struct {
	OwnerID    string `json:"ownerId,omitempty"`
	ShowcaseID string `json:"showcaseId,omitempty"`
	DryRun     bool   `json:"dryRun"`
}

// ShowcaseRepair is the reconciliation outcome for one showcase.
type ShowcaseRepair struct {
	ShowcaseID string      `json:"showcaseId"`
	OwnerID    string      `json:"ownerId,omitempty"`
	Before     MirrorState `json:"before"`
	Actions    []string    `json:"actions"`
	Partial    bool        `json:"partial,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ReconcileReport summarizes a reconciliation run.
type ReconcileReport struct {
	DryRun          bool             `json:"dryRun"`
	Examined        int              `json:"examined"`
	Repairs         []ShowcaseRepair `json:"repairs"`
	LikesRecounted  int              `json:"likesRecounted"`
	ItemsBackfilled int              `json:"itemsBackfilled"`
	Errors          []string         `json:"errors,omitempty"`
}

// ReconcileService is the one generic repair operation: it re-runs mirror
// recovery, like recounts and item owner backfill over a scope.
type ReconcileService struct {
	docs    store.DocumentStore
	locator *Locator
	mirror  *MirrorSync
	ledger  *LikeLedger
	logger  *slog.Logger
}

// NewReconcileService creates a new reconcile service.
func NewReconcileService(docs store.DocumentStore, locator *Locator, mirror *MirrorSync, ledger *LikeLedger, logger *slog.Logger) *ReconcileService {
	return &ReconcileService{
		docs:    docs,
		locator: locator,
		mirror:  mirror,
		ledger:  ledger,
		logger:  logger,
	}
}

// Reconcile runs the repair pass. Individual failures are recorded in the
// report and do not stop the run; only a failure to enumerate the scope is
// returned as an error.
func (s *ReconcileService) Reconcile(ctx context.Context, opts ReconcileOptions) (*ReconcileReport, error) {
	targets, err := s.targets(ctx, opts)
	if err != nil {
		return nil, translate(err, "failed to enumerate showcases")
	}

	report := &ReconcileReport{DryRun: opts.DryRun, Repairs: []ShowcaseRepair{}}
	owners := make(map[string]struct{})

	for _, showcaseID := range slices.Sorted(maps.Keys(targets)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ownerID := targets[showcaseID]
		report.Examined++

		if repair, ok := s.repairMirror(ctx, showcaseID, ownerID, opts.DryRun); ok {
			report.Repairs = append(report.Repairs, repair)
			if repair.Error != "" {
				report.Errors = append(report.Errors, showcaseID+": "+repair.Error)
			}
			if ownerID == "" && repair.OwnerID != SystemOwner {
				ownerID = repair.OwnerID
			}
		}

		if !opts.DryRun {
			if _, err := s.ledger.Recount(ctx, showcaseID, ownerID); err != nil {
				report.Errors = append(report.Errors, showcaseID+": recount: "+err.Error())
			} else {
				report.LikesRecounted++
			}
		}

		if ownerID != "" && ownerID != SystemOwner {
			owners[ownerID] = struct{}{}
		}
	}
	if opts.OwnerID != "" {
		owners[opts.OwnerID] = struct{}{}
	}

	for _, ownerID := range slices.Sorted(maps.Keys(owners)) {
		n, err := s.backfillItemOwners(ctx, ownerID, opts.DryRun)
		report.ItemsBackfilled += n
		if err != nil {
			report.Errors = append(report.Errors, "items of "+ownerID+": "+err.Error())
		}
	}

	s.logger.Info("reconcile finished",
		"dry_run", opts.DryRun,
		"examined", report.Examined,
		"repairs", len(report.Repairs),
		"likes_recounted", report.LikesRecounted,
		"items_backfilled", report.ItemsBackfilled,
		"errors", len(report.Errors),
	)
	return report, nil
}

// targets maps each showcase id in scope to its best known owner.
func (s *ReconcileService) targets(ctx context.Context, opts ReconcileOptions) (map[string]string, error) {
	out := make(map[string]string)
	add := func(showcaseID, ownerID string) {
		if showcaseID == "" {
			return
		}
		if existing, ok := out[showcaseID]; !ok || existing == "" {
			out[showcaseID] = strings.TrimSpace(ownerID)
		}
	}

	if opts.ShowcaseID != "" {
		add(opts.ShowcaseID, opts.OwnerID)
		return out, nil
	}

	var privateQuery, mirrorQuery store.Query
	if opts.OwnerID != "" {
		privateQuery = store.From(privateShowcases(opts.OwnerID))
		mirrorQuery = store.From(publicShowcases()).Where("userId", store.OpEqual, opts.OwnerID)
	} else {
		privateQuery = store.FromGroup(colShowcases)
		mirrorQuery = store.From(publicShowcases())
	}

	docs, err := s.docs.Query(ctx, privateQuery)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if owner, ok := ownerFromPrivatePath(doc.Path); ok {
			add(doc.ID(), owner)
		}
	}

	mirrors, err := s.docs.Query(ctx, mirrorQuery)
	if err != nil {
		return nil, err
	}
	for _, doc := range mirrors {
		owner, _ := doc.Field("userId")
		ownerID, _ := owner.(string)
		add(doc.ID(), ownerID)
	}
	return out, nil
}

// repairMirror runs EnsurePublic (or Inspect) for a showcase that is meant to
// be public: it has a mirror, or its private or legacy record says public.
// Private-only showcases are never published here.
func (s *ReconcileService) repairMirror(ctx context.Context, showcaseID, ownerID string, dryRun bool) (ShowcaseRepair, bool) {
	hits, err := s.locator.LocateAll(ctx, showcaseID, ownerID)
	if err != nil {
		return ShowcaseRepair{ShowcaseID: showcaseID, OwnerID: ownerID, Error: err.Error()}, true
	}
	if !meantPublic(hits) {
		return ShowcaseRepair{}, false
	}

	var res *EnsureResult
	if dryRun {
		res, err = s.mirror.Inspect(ctx, showcaseID, ownerID)
	} else {
		res, err = s.mirror.EnsurePublic(ctx, showcaseID, ownerID)
	}
	repair := ShowcaseRepair{ShowcaseID: showcaseID, OwnerID: ownerID, Actions: []string{}}
	if err != nil {
		repair.Error = err.Error()
		return repair, true
	}

	repair.Before = res.Before
	repair.Actions = res.Actions
	repair.Partial = res.Partial
	if res.Mirror != nil && res.Mirror.HasOwner() {
		repair.OwnerID = res.Mirror.OwnerID
	}
	return repair, true
}

func meantPublic(hits []*Located) bool {
	for _, hit := range hits {
		if hit.Location == domain.LocationPublic || hit.Showcase.IsPublic {
			return true
		}
	}
	return false
}

// backfillItemOwners stamps ownerId on the owner's items that lack it.
func (s *ReconcileService) backfillItemOwners(ctx context.Context, ownerID string, dryRun bool) (int, error) {
	backfilled := 0
	var firstErr error

	for _, col := range []store.Path{primaryItems(ownerID), secondaryItems(ownerID)} {
		docs, err := s.docs.Query(ctx, store.From(col))
		if err != nil {
			if firstErr == nil {
				firstErr = translate(err, "failed to list items")
			}
			continue
		}

		for _, doc := range docs {
			if v, ok := doc.Field("ownerId"); ok {
				if owner, _ := v.(string); strings.TrimSpace(owner) != "" {
					continue
				}
			}
			if dryRun {
				backfilled++
				continue
			}
			if err := s.docs.Update(ctx, doc.Path, store.Fields{"ownerId": ownerID}); err != nil {
				s.logger.Warn("item owner backfill failed", "path", doc.Path, "error", err)
				if firstErr == nil {
					firstErr = translate(err, "failed to backfill item owner")
				}
				continue
			}
			backfilled++
		}
	}
	return backfilled, firstErr
}
