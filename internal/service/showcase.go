package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/id"
	"github.com/listenupapp/showcase-server/internal/store"
	"github.com/listenupapp/showcase-server/internal/validation"
)

// MaxCommentLength bounds comment text, in characters.
const MaxCommentLength = 1000

// ShowcaseInput contains fields for creating a showcase.
type ShowcaseInput struct {
	Name        string       `json:"name" validate:"required,max=100"`
	Description string       `json:"description" validate:"max=2000"`
	Theme       domain.Theme `json:"theme" validate:"theme"`
	Tags        []string     `json:"tags" validate:"max=50,dive,max=50,tag"`
	ItemIDs     []string     `json:"itemIds" validate:"max=500,dive,docid"`
	IsPublic    bool         `json:"isPublic"`
}

// ShowcaseUpdate contains the fields to change; nil fields are left alone.
type ShowcaseUpdate struct {
	Name        *string       `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string       `json:"description,omitempty" validate:"omitempty,max=2000"`
	Theme       *domain.Theme `json:"theme,omitempty" validate:"omitempty,theme"`
	Tags        *[]string     `json:"tags,omitempty"`
	ItemIDs     *[]string     `json:"itemIds,omitempty"`
	IsPublic    *bool         `json:"isPublic,omitempty"`
}

// ShowcaseView is a showcase resolved for display.
type ShowcaseView struct {
	Showcase      *domain.Showcase `json:"showcase"`
	Items         []domain.Item    `json:"items"`
	Location      domain.Location  `json:"location"`
	OwnerID       string           `json:"ownerId,omitempty"`
	UsedFallback  bool             `json:"usedFallback"`
	UsedArbitrary bool             `json:"usedArbitrary"`
	Repaired      bool             `json:"repaired"`
	LikeCount     int              `json:"likeCount"`
	ViewerLiked   bool             `json:"viewerLiked"`
}

// LikeState is the outcome of a like or unlike.
type LikeState struct {
	Count    int  `json:"count"`
	HasLiked bool `json:"hasLiked"`
}

// ShareResult carries the id to share and the mirror state it was shared from.
type ShareResult struct {
	ShowcaseID string        `json:"showcaseId"`
	Mirror     *EnsureResult `json:"mirror"`
}

// ShowcaseService orchestrates the resolution components for showcase reads
// and writes.
type ShowcaseService struct {
	docs      store.DocumentStore
	locator   *Locator
	fetcher   *ItemFetcher
	mirror    *MirrorSync
	ledger    *LikeLedger
	guard     *AbuseGuard
	validator *validation.Validator
	cfg       EngineConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewShowcaseService creates a new showcase service.
func NewShowcaseService(
	docs store.DocumentStore,
	locator *Locator,
	fetcher *ItemFetcher,
	mirror *MirrorSync,
	ledger *LikeLedger,
	guard *AbuseGuard,
	cfg EngineConfig,
	logger *slog.Logger,
) *ShowcaseService {
	return &ShowcaseService{
		docs:      docs,
		locator:   locator,
		fetcher:   fetcher,
		mirror:    mirror,
		ledger:    ledger,
		guard:     guard,
		validator: validation.New(),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func setShowcaseID(sc *domain.Showcase, id string) { sc.ID = id }

func (s *ShowcaseService) private(ownerID string) *store.Entity[domain.Showcase] {
	return store.NewEntity(s.docs, privateShowcases(ownerID), setShowcaseID)
}

func (s *ShowcaseService) public() *store.Entity[domain.Showcase] {
	return store.NewEntity(s.docs, publicShowcases(), setShowcaseID)
}

// Create writes a new private showcase and publishes it when requested. A
// failed publish leaves the private record in place, flagged private.
func (s *ShowcaseService) Create(ctx context.Context, ownerID string, in ShowcaseInput) (*domain.Showcase, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domainerrors.Unauthorized("sign in to create a showcase")
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	showcaseID, err := id.Generate(id.PrefixShowcase)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to generate showcase id")
	}

	now := s.now().UTC()
	sc := &domain.Showcase{
		CreatedAt:   now,
		UpdatedAt:   now,
		ID:          showcaseID,
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Theme:       in.Theme.OrDefault(),
		Tags:        cleanTags(in.Tags),
		ItemIDs:     domain.NewItemIDs(in.ItemIDs...),
	}

	if err := s.private(ownerID).Create(ctx, showcaseID, sc); err != nil {
		return nil, translate(err, "failed to create showcase")
	}
	s.logger.Info("showcase created", "showcase_id", showcaseID, "owner_id", ownerID)

	if in.IsPublic {
		if _, err := s.mirror.Publish(ctx, ownerID, showcaseID); err != nil {
			s.logger.Warn("showcase created but not published",
				"showcase_id", showcaseID,
				"owner_id", ownerID,
				"error", err,
			)
		} else {
			sc.IsPublic = true
		}
	}
	return sc, nil
}

// Get returns the owner's private showcase.
func (s *ShowcaseService) Get(ctx context.Context, ownerID, showcaseID string) (*domain.Showcase, error) {
	sc, err := s.private(ownerID).Get(ctx, showcaseID)
	if err != nil {
		return nil, translate(err, "showcase not found")
	}
	return sc, nil
}

// Update patches the owner's private showcase. A public showcase is
// re-published so the mirror follows; flipping IsPublic publishes or
// unpublishes.
func (s *ShowcaseService) Update(ctx context.Context, ownerID, showcaseID string, upd ShowcaseUpdate) (*domain.Showcase, error) {
	if err := s.validator.Validate(upd); err != nil {
		return nil, err
	}

	sc, err := s.Get(ctx, ownerID, showcaseID)
	if err != nil {
		return nil, err
	}

	fields := store.Fields{}
	if upd.Name != nil {
		sc.Name = strings.TrimSpace(*upd.Name)
		fields["name"] = sc.Name
	}
	if upd.Description != nil {
		sc.Description = strings.TrimSpace(*upd.Description)
		fields["description"] = sc.Description
	}
	if upd.Theme != nil {
		sc.Theme = upd.Theme.OrDefault()
		fields["theme"] = sc.Theme
	}
	if upd.Tags != nil {
		sc.Tags = cleanTags(*upd.Tags)
		fields["tags"] = sc.Tags
	}
	if upd.ItemIDs != nil {
		sc.ItemIDs = domain.NewItemIDs(*upd.ItemIDs...)
		fields["itemIds"] = sc.ItemIDs.Strings()
	}

	if len(fields) > 0 {
		sc.UpdatedAt = s.now().UTC()
		fields["updatedAt"] = sc.UpdatedAt
		if err := s.private(ownerID).Update(ctx, showcaseID, fields); err != nil {
			return nil, translate(err, "failed to update showcase")
		}
	}

	wasPublic := sc.IsPublic
	wantPublic := wasPublic
	if upd.IsPublic != nil {
		wantPublic = *upd.IsPublic
	}

	switch {
	case wantPublic && (len(fields) > 0 || !wasPublic):
		if _, err := s.mirror.Publish(ctx, ownerID, showcaseID); err != nil {
			if !wasPublic {
				return nil, err
			}
			s.logger.Warn("showcase updated but mirror not refreshed",
				"showcase_id", showcaseID,
				"error", err,
			)
		}
		sc.IsPublic = true
	case !wantPublic && wasPublic:
		if err := s.mirror.Unpublish(ctx, ownerID, showcaseID); err != nil {
			return nil, err
		}
		sc.IsPublic = false
	}

	return sc, nil
}

// Delete removes the owner's private showcase and, best effort, its mirror.
func (s *ShowcaseService) Delete(ctx context.Context, ownerID, showcaseID string) error {
	if _, err := s.Get(ctx, ownerID, showcaseID); err != nil {
		return err
	}
	if err := s.private(ownerID).Delete(ctx, showcaseID); err != nil {
		return translate(err, "failed to delete showcase")
	}

	if err := s.mirror.RemoveMirror(ctx, ownerID, showcaseID); err != nil {
		s.logger.Warn("showcase deleted but mirror kept",
			"showcase_id", showcaseID,
			"owner_id", ownerID,
			"error", err,
		)
	}

	s.logger.Info("showcase deleted", "showcase_id", showcaseID, "owner_id", ownerID)
	return nil
}

// ListByOwner returns the owner's private showcases, newest first.
func (s *ShowcaseService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Showcase, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domainerrors.Unauthorized("sign in to list your showcases")
	}
	out, err := s.private(ownerID).Find(ctx, store.Query{}.Order("createdAt", true))
	if err != nil {
		return nil, translate(err, "failed to list showcases")
	}
	return out, nil
}

// ListPublic returns one page of public mirrors.
func (s *ShowcaseService) ListPublic(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Showcase], error) {
	page, err := s.public().ListPage(ctx, params)
	if err != nil {
		return nil, translate(err, "failed to list public showcases")
	}
	return page, nil
}

// View locates a showcase, resolves its membership and fetches its items.
// Viewing an incomplete mirror, or a public legacy record with no mirror,
// runs EnsurePublic first.
func (s *ShowcaseService) View(ctx context.Context, showcaseID, ownerHint, viewerID string) (*ShowcaseView, error) {
	hit, err := s.locate(ctx, showcaseID, ownerHint, viewerID)
	if err != nil {
		return nil, err
	}

	view := &ShowcaseView{Location: hit.Location, OwnerID: hit.OwnerID}
	sc := s.recoverOnRead(ctx, hit, ownerHint, view)
	view.Showcase = sc
	if view.OwnerID == "" && sc.HasOwner() {
		view.OwnerID = sc.OwnerID
	}

	var candidates []domain.Item
	if NeedsCandidates(sc) && view.OwnerID != "" {
		candidates, err = s.fetcher.ListOwnerItems(ctx, view.OwnerID)
		if err != nil {
			s.logger.Warn("candidate items unavailable", "showcase_id", showcaseID, "error", err)
			candidates = nil
		}
	}

	members := ResolveMembership(sc, candidates, s.cfg.Membership)
	view.UsedFallback = members.UsedFallback
	view.UsedArbitrary = members.UsedArbitrary

	if members.UsedFallback {
		view.Items = pickItems(candidates, members.ItemIDs)
	} else {
		view.Items, err = s.fetcher.FetchItems(ctx, members.ItemIDs, view.OwnerID)
		if err != nil {
			return nil, err
		}
	}

	view.LikeCount = sc.Likes
	if n, err := s.ledger.Count(ctx, showcaseID); err != nil {
		s.logger.Warn("like count unavailable, using cached value", "showcase_id", showcaseID, "error", err)
	} else {
		view.LikeCount = n
	}
	if viewerID != "" {
		if liked, err := s.ledger.HasLiked(ctx, showcaseID, viewerID); err == nil {
			view.ViewerLiked = liked
		}
	}

	return view, nil
}

// locate finds a showcase on behalf of viewerID. A private record its owner
// has not made public is visible to that owner only.
func (s *ShowcaseService) locate(ctx context.Context, showcaseID, ownerHint, viewerID string) (*Located, error) {
	hit, err := s.locator.Locate(ctx, showcaseID, ownerHint)
	if err != nil {
		return nil, err
	}
	if hit.Location == domain.LocationPrivate && !hit.Showcase.IsPublic && viewerID != hit.OwnerID {
		return nil, domainerrors.NotFoundf("showcase %s not found", showcaseID)
	}
	return hit, nil
}

func (s *ShowcaseService) recoverOnRead(ctx context.Context, hit *Located, ownerHint string, view *ShowcaseView) *domain.Showcase {
	needsRepair := false
	switch hit.Location {
	case domain.LocationPublic:
		needsRepair = ClassifyMirror(hit.Showcase) != MirrorComplete
	case domain.LocationLegacy:
		needsRepair = hit.Showcase.IsPublic
	}
	if !needsRepair {
		return hit.Showcase
	}

	res, err := s.mirror.EnsurePublic(ctx, hit.Showcase.ID, ownerHint)
	if err != nil {
		s.logger.Warn("read-time mirror recovery failed", "showcase_id", hit.Showcase.ID, "error", err)
		return hit.Showcase
	}
	if !res.Wrote || res.Mirror == nil {
		return hit.Showcase
	}

	view.Repaired = true
	view.Location = domain.LocationPublic
	view.OwnerID = res.Mirror.OwnerID
	if view.OwnerID == SystemOwner {
		view.OwnerID = ""
	}
	return res.Mirror
}

// RecordVisit counts a visit where the record lives and propagates it to the
// mirror. Legacy records are read-only and are not counted.
func (s *ShowcaseService) RecordVisit(ctx context.Context, showcaseID, ownerHint, viewerID string) error {
	hit, err := s.locate(ctx, showcaseID, ownerHint, viewerID)
	if err != nil {
		return err
	}

	err = s.applySocial(ctx, hit, store.Fields{"visits": store.Increment(1)}, Delta{Visits: 1})
	if domainerrors.Is(err, domainerrors.ErrForbidden) && hit.Location == domain.LocationLegacy {
		s.logger.Debug("visit not counted on legacy showcase", "showcase_id", showcaseID)
		return nil
	}
	return err
}

// AddComment screens, rate-limits and appends a comment.
func (s *ShowcaseService) AddComment(ctx context.Context, actor domain.Actor, showcaseID, ownerHint, text string) (*domain.Comment, error) {
	if strings.TrimSpace(actor.ID) == "" {
		return nil, domainerrors.Unauthorized("sign in to comment")
	}
	if actor.Anonymous {
		return nil, domainerrors.Forbidden("anonymous visitors can only like showcases")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domainerrors.Validation("comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, domainerrors.Validationf("comment must not exceed %d characters", MaxCommentLength)
	}

	if s.guard.ScreenContent(text) {
		return nil, domainerrors.ContentFlagged("your comment looks like spam and was not posted")
	}
	if err := s.guard.Allow(ctx, actor.ID, domain.ActionComment, s.cfg.Limits.Comment); err != nil {
		return nil, err
	}

	hit, err := s.locate(ctx, showcaseID, ownerHint, actor.ID)
	if err != nil {
		return nil, err
	}

	comment := domain.Comment{
		Timestamp:   s.now().UTC(),
		ActorID:     actor.ID,
		DisplayName: actor.Name(),
		PhotoURL:    actor.PhotoURL,
		Text:        text,
	}
	fields := store.Fields{"comments": store.ArrayUnion(comment)}
	if err := s.applySocial(ctx, hit, fields, Delta{Comments: []domain.Comment{comment}}); err != nil {
		return nil, err
	}

	s.recordAction(ctx, actor.ID, domain.ActionComment, showcaseID)
	return &comment, nil
}

// applySocial writes fields to the private record when it is reachable and
// propagates delta to the mirror; otherwise it writes to the record where it
// was found.
func (s *ShowcaseService) applySocial(ctx context.Context, hit *Located, fields store.Fields, delta Delta) error {
	showcaseID := hit.Showcase.ID

	if owner := hit.OwnerID; owner != "" && owner != SystemOwner {
		err := s.docs.Update(ctx, privateShowcasePath(owner, showcaseID), fields)
		if err == nil {
			s.mirror.Propagate(ctx, owner, showcaseID, delta)
			return nil
		}
		if !isMiss(err) {
			return translate(err, "failed to update showcase")
		}
	}

	var path store.Path
	switch hit.Location {
	case domain.LocationPublic:
		path = publicShowcasePath(showcaseID)
	case domain.LocationLegacy:
		path = legacyShowcasePath(showcaseID)
	default:
		return domainerrors.NotFoundf("showcase %s not found", showcaseID)
	}
	if err := s.docs.Update(ctx, path, fields); err != nil {
		return translate(err, "failed to update showcase")
	}
	return nil
}

// Like records a like for actorID. A repeat like adds no row; racing
// requests can still leave a duplicate, which the ledger tolerates.
func (s *ShowcaseService) Like(ctx context.Context, actorID, showcaseID, ownerHint string) (*LikeState, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if err := s.guard.Allow(ctx, actorID, domain.ActionLike, s.cfg.Limits.Like); err != nil {
		return nil, err
	}
	hit, err := s.locate(ctx, showcaseID, ownerHint, actorID)
	if err != nil {
		return nil, err
	}

	liked, err := s.ledger.HasLiked(ctx, showcaseID, actorID)
	if err != nil {
		return nil, err
	}

	var count int
	if liked {
		count, err = s.ledger.Count(ctx, showcaseID)
	} else {
		count, err = s.ledger.AddLike(ctx, showcaseID, hit.OwnerID, actorID)
	}
	if err != nil {
		return nil, err
	}

	s.recordAction(ctx, actorID, domain.ActionLike, showcaseID)
	return &LikeState{Count: count, HasLiked: true}, nil
}

// Unlike removes actorID's like.
func (s *ShowcaseService) Unlike(ctx context.Context, actorID, showcaseID, ownerHint string) (*LikeState, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if err := s.guard.Allow(ctx, actorID, domain.ActionLike, s.cfg.Limits.Like); err != nil {
		return nil, err
	}
	hit, err := s.locate(ctx, showcaseID, ownerHint, actorID)
	if err != nil {
		return nil, err
	}

	count, err := s.ledger.RemoveLike(ctx, showcaseID, hit.OwnerID, actorID)
	if err != nil {
		return nil, err
	}
	liked, err := s.ledger.HasLiked(ctx, showcaseID, actorID)
	if err != nil {
		return nil, err
	}

	s.recordAction(ctx, actorID, domain.ActionLike, showcaseID)
	return &LikeState{Count: count, HasLiked: liked}, nil
}

// Likes returns the ledger's like state for a viewer.
func (s *ShowcaseService) Likes(ctx context.Context, showcaseID, viewerID string) (*LikeState, error) {
	count, err := s.ledger.Count(ctx, showcaseID)
	if err != nil {
		return nil, err
	}
	liked, err := s.ledger.HasLiked(ctx, showcaseID, viewerID)
	if err != nil {
		return nil, err
	}
	return &LikeState{Count: count, HasLiked: liked}, nil
}

// Reputation returns the abuse guard's activity score for an actor.
func (s *ShowcaseService) Reputation(ctx context.Context, actorID string) int {
	return s.guard.Reputation(ctx, actorID)
}

// Share makes sure a public showcase has a complete mirror and returns the
// id to share. A showcase its owner keeps private cannot be shared.
func (s *ShowcaseService) Share(ctx context.Context, actorID, showcaseID, ownerHint string) (*ShareResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if err := s.guard.Allow(ctx, actorID, domain.ActionShare, s.cfg.Limits.Share); err != nil {
		return nil, err
	}
	hit, err := s.locate(ctx, showcaseID, ownerHint, actorID)
	if err != nil {
		return nil, err
	}
	if hit.Location != domain.LocationPublic && !hit.Showcase.IsPublic {
		return nil, domainerrors.Forbidden("this showcase is private")
	}

	res, err := s.mirror.EnsurePublic(ctx, showcaseID, hit.OwnerID)
	if err != nil {
		return nil, err
	}

	s.recordAction(ctx, actorID, domain.ActionShare, showcaseID)
	return &ShareResult{ShowcaseID: showcaseID, Mirror: res}, nil
}

func (s *ShowcaseService) recordAction(ctx context.Context, actorID string, action domain.ActionType, targetID string) {
	if err := s.guard.RecordAction(ctx, actorID, action, targetID); err != nil {
		s.logger.Warn("failed to record action",
			"actor_id", actorID,
			"action", action,
			"target_id", targetID,
			"error", err,
		)
	}
}

func requireActor(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return domainerrors.Unauthorized("an actor id is required")
	}
	return nil
}

// cleanTags trims tags and drops empty and case-insensitive duplicates.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := foldTag(t)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// pickItems returns the candidates named by ids, in ids order.
func pickItems(candidates []domain.Item, ids []string) []domain.Item {
	byID := make(map[string]domain.Item, len(candidates))
	for _, item := range candidates {
		if _, ok := byID[item.ID]; !ok {
			byID[item.ID] = item
		}
	}
	out := make([]domain.Item, 0, len(ids))
	for _, itemID := range ids {
		if item, ok := byID[itemID]; ok {
			out = append(out, item)
		}
	}
	return out
}
