package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/id"
	"github.com/listenupapp/showcase-server/internal/store"
	"github.com/listenupapp/showcase-server/internal/validation"
)

// ItemInput contains fields for creating an item.
type ItemInput struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Year      string   `json:"year" validate:"max=10"`
	Set       string   `json:"set" validate:"max=200"`
	Number    string   `json:"number" validate:"max=50"`
	Variation string   `json:"variation" validate:"max=200"`
	Condition string   `json:"condition" validate:"max=50"`
	ImageURL  string   `json:"imageUrl" validate:"omitempty,url"`
	Tags      []string `json:"tags" validate:"max=50,dive,max=50,tag"`
	Price     float64  `json:"price" validate:"gte=0"`
}

// ItemUpdate contains the item fields to change; nil fields are left alone.
type ItemUpdate struct {
	Name      *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Year      *string   `json:"year,omitempty" validate:"omitempty,max=10"`
	Set       *string   `json:"set,omitempty" validate:"omitempty,max=200"`
	Number    *string   `json:"number,omitempty" validate:"omitempty,max=50"`
	Variation *string   `json:"variation,omitempty" validate:"omitempty,max=200"`
	Condition *string   `json:"condition,omitempty" validate:"omitempty,max=50"`
	ImageURL  *string   `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Tags      *[]string `json:"tags,omitempty"`
	Price     *float64  `json:"price,omitempty" validate:"omitempty,gte=0"`
}

// CascadeReport summarizes the showcase updates of an item deletion.
type CascadeReport struct {
	ShowcasesUpdated int `json:"showcasesUpdated"`
	MirrorsUpdated   int `json:"mirrorsUpdated"`
	Failures         int `json:"failures"`
}

// ItemService manages an owner's items across the primary and secondary
// item stores.
type ItemService struct {
	docs      store.DocumentStore
	fetcher   *ItemFetcher
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewItemService creates a new item service.
func NewItemService(docs store.DocumentStore, fetcher *ItemFetcher, logger *slog.Logger) *ItemService {
	return &ItemService{
		docs:      docs,
		fetcher:   fetcher,
		validator: validation.New(),
		logger:    logger,
		now:       time.Now,
	}
}

func setItemID(item *domain.Item, id string) { item.ID = id }

func (s *ItemService) primary(ownerID string) *store.Entity[domain.Item] {
	return store.NewEntity(s.docs, primaryItems(ownerID), setItemID)
}

func (s *ItemService) secondary(ownerID string) *store.Entity[domain.Item] {
	return store.NewEntity(s.docs, secondaryItems(ownerID), setItemID)
}

// Create writes a new item to the owner's primary store.
func (s *ItemService) Create(ctx context.Context, ownerID string, in ItemInput) (*domain.Item, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domainerrors.Unauthorized("sign in to add items")
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	itemID, err := id.Generate(id.PrefixItem)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to generate item id")
	}

	now := s.now().UTC()
	item := &domain.Item{
		CreatedAt: now,
		UpdatedAt: now,
		ID:        itemID,
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(in.Name),
		Year:      in.Year,
		Set:       in.Set,
		Number:    in.Number,
		Variation: in.Variation,
		Condition: in.Condition,
		ImageURL:  in.ImageURL,
		Tags:      cleanTags(in.Tags),
		Price:     in.Price,
	}

	if err := s.primary(ownerID).Create(ctx, itemID, item); err != nil {
		return nil, translate(err, "failed to create item")
	}
	return item, nil
}

// Get returns an owner's item from either store.
func (s *ItemService) Get(ctx context.Context, ownerID, itemID string) (*domain.Item, error) {
	item, _, err := s.find(ctx, ownerID, itemID)
	return item, err
}

// find returns the item and the entity it was found in.
func (s *ItemService) find(ctx context.Context, ownerID, itemID string) (*domain.Item, *store.Entity[domain.Item], error) {
	for _, e := range []*store.Entity[domain.Item]{s.primary(ownerID), s.secondary(ownerID)} {
		item, err := e.Get(ctx, itemID)
		if isMiss(err) {
			continue
		}
		if err != nil {
			return nil, nil, translate(err, "failed to read item")
		}
		if item.OwnerID == "" {
			item.OwnerID = ownerID
		}
		return item, e, nil
	}
	return nil, nil, domainerrors.NotFoundf("item %s not found", itemID)
}

// Update patches an item in whichever store holds it.
func (s *ItemService) Update(ctx context.Context, ownerID, itemID string, upd ItemUpdate) (*domain.Item, error) {
	if err := s.validator.Validate(upd); err != nil {
		return nil, err
	}

	item, entity, err := s.find(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	fields := store.Fields{}
	setString := func(name string, src *string, dst *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
			fields[name] = *dst
		}
	}
	setString("name", upd.Name, &item.Name)
	setString("year", upd.Year, &item.Year)
	setString("set", upd.Set, &item.Set)
	setString("number", upd.Number, &item.Number)
	setString("variation", upd.Variation, &item.Variation)
	setString("condition", upd.Condition, &item.Condition)
	setString("imageUrl", upd.ImageURL, &item.ImageURL)
	if upd.Tags != nil {
		item.Tags = cleanTags(*upd.Tags)
		fields["tags"] = item.Tags
	}
	if upd.Price != nil {
		item.Price = *upd.Price
		fields["price"] = item.Price
	}
	if len(fields) == 0 {
		return item, nil
	}

	item.UpdatedAt = s.now().UTC()
	fields["updatedAt"] = item.UpdatedAt
	if err := entity.Update(ctx, itemID, fields); err != nil {
		return nil, translate(err, "failed to update item")
	}
	return item, nil
}

// ListForOwner returns the owner's items from both stores, deduplicated.
func (s *ItemService) ListForOwner(ctx context.Context, ownerID string) ([]domain.Item, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domainerrors.Unauthorized("sign in to list your items")
	}
	return s.fetcher.ListOwnerItems(ctx, ownerID)
}

// Delete removes an item from the primary store, else the secondary store,
// then removes its id from every showcase of the owner and their mirrors.
// The cascade is best effort; per-showcase failures are counted and logged.
func (s *ItemService) Delete(ctx context.Context, ownerID, itemID string) (*CascadeReport, error) {
	_, entity, err := s.find(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}
	if err := entity.Delete(ctx, itemID); err != nil {
		return nil, translate(err, "failed to delete item")
	}

	report := &CascadeReport{}
	showcases, err := s.docs.Query(ctx, store.From(privateShowcases(ownerID)))
	if err != nil {
		s.logger.Warn("item deleted but showcases not updated", "item_id", itemID, "error", err)
		report.Failures++
		return report, nil
	}

	for _, doc := range showcases {
		if !s.dropMember(ctx, doc, itemID, report) {
			continue
		}
		report.ShowcasesUpdated++

		mirror, err := s.docs.Get(ctx, publicShowcasePath(doc.ID()))
		if isMiss(err) {
			continue
		}
		if err != nil {
			s.logger.Warn("mirror read failed during item cascade", "showcase_id", doc.ID(), "error", err)
			report.Failures++
			continue
		}
		if s.dropMember(ctx, mirror, itemID, report) {
			report.MirrorsUpdated++
		}
	}

	s.logger.Info("item deleted",
		"item_id", itemID,
		"owner_id", ownerID,
		"showcases_updated", report.ShowcasesUpdated,
		"failures", report.Failures,
	)
	return report, nil
}

// dropMember removes itemID from a showcase document's membership. List
// memberships use ArrayRemove; drifted shapes are rewritten as a list.
func (s *ItemService) dropMember(ctx context.Context, doc *store.Document, itemID string, report *CascadeReport) bool {
	raw, _ := doc.RawField("itemIds")
	ids, shape := domain.ParseItemIDs(raw)

	sc := domain.Showcase{ItemIDs: ids}
	if !sc.RemoveItem(itemID, s.now().UTC()) {
		return false
	}

	fields := store.Fields{"updatedAt": sc.UpdatedAt}
	if shape == domain.ShapeList {
		fields["itemIds"] = store.ArrayRemove(itemID)
	} else {
		fields["itemIds"] = sc.ItemIDs.Strings()
	}

	if err := s.docs.Update(ctx, doc.Path, fields); err != nil {
		s.logger.Warn("failed to remove item from showcase",
			"item_id", itemID,
			"path", doc.Path,
			"error", err,
		)
		report.Failures++
		return false
	}
	return true
}
