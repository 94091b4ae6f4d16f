package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listenupapp/showcase-server/internal/domain"
	"github.com/listenupapp/showcase-server/internal/service"
	"github.com/listenupapp/showcase-server/internal/store"
)

// seedOwner owns every seeded showcase and item.
const seedOwner = "collector-1"

type seedDoc struct {
	path store.Path
	data any
}

// seedDocs returns sample data covering every drift the engine repairs:
// membership stored as list, map and scalar, a public showcase with no mirror,
// a mirror without an owner, a stale like cache, an item without an owner and
// a legacy record.
func seedDocs() []seedDoc {
	item := func(id, name string, owned bool, tags ...string) *domain.Item {
		it := &domain.Item{ID: id, Name: name, Tags: tags}
		if owned {
			it.OwnerID = seedOwner
		}
		return it
	}

	return []seedDoc{
		{service.PrimaryItemPath(seedOwner, "card-1"), item("card-1", "1952 Topps Mickey Mantle", true, "baseball", "hof")},
		{service.PrimaryItemPath(seedOwner, "card-2"), item("card-2", "1986 Fleer Michael Jordan", false, "basketball")},
		{service.PrimaryItemPath(seedOwner, "card-3"), item("card-3", "1979 O-Pee-Chee Wayne Gretzky", true, "hockey")},
		{service.SecondaryItemPath(seedOwner, "card-4"), item("card-4", "1909 T206 Honus Wagner", true, "baseball")},
		{service.GlobalItemPath("item1"), &domain.Item{ID: "item1", Name: "Sample Card", Tags: []string{"sample"}}},

		// Plain list membership with a healthy mirror and a stale like cache.
		{service.PrivateShowcasePath(seedOwner, "sc-list"), &domain.Showcase{
			OwnerID: seedOwner, Name: "Hall of Famers", Theme: domain.ThemeWood,
			ItemIDs: domain.ItemIDs{"card-1", "card-4"}, IsPublic: true, Likes: 7,
		}},
		{service.PublicShowcasePath("sc-list"), &domain.Showcase{
			OwnerID: seedOwner, Name: "Hall of Famers", Theme: domain.ThemeWood,
			ItemIDs: domain.ItemIDs{"card-1", "card-4"}, IsPublic: true, Likes: 7,
		}},
		{service.LikesCollection().Child("seed-like-1"), &domain.Like{ShowcaseID: "sc-list", ActorID: "fan-1"}},

		// Map shaped membership, public in intent but never mirrored.
		{service.PrivateShowcasePath(seedOwner, "sc-map"), map[string]any{
			"userId":   seedOwner,
			"name":     "Rookie Cards",
			"theme":    "velvet",
			"itemIds":  map[string]any{"0": "card-2", "1": "card-3"},
			"isPublic": true,
		}},

		// Scalar membership, private only.
		{service.PrivateShowcasePath(seedOwner, "sc-scalar"), map[string]any{
			"userId":  seedOwner,
			"name":    "The One",
			"itemIds": "card-1",
		}},

		// Tag membership with a mirror that lost its owner and members.
		{service.PrivateShowcasePath(seedOwner, "sc-tags"), &domain.Showcase{
			OwnerID: seedOwner, Name: "Baseball", Theme: domain.ThemeGlass,
			Tags: []string{"baseball"}, IsPublic: true,
		}},
		{service.PublicShowcasePath("sc-tags"), map[string]any{
			"name":     "Baseball",
			"isPublic": true,
		}},

		// Pre-migration record.
		{service.LegacyShowcasePath("sc-legacy"), map[string]any{
			"userId":  seedOwner,
			"name":    "Old Binder",
			"itemIds": []string{"card-3"},
		}},
	}
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write sample showcases, items and drift for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := rootOpts.openEngine(cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			n, err := seed(cmd.Context(), e.docs)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d documents for %s\n", n, seedOwner)
			return err
		},
	}
}

func seed(ctx context.Context, docs store.DocumentStore) (int, error) {
	all := seedDocs()
	for _, d := range all {
		if err := docs.Set(ctx, d.path, d.data); err != nil {
			return 0, fmt.Errorf("seed %s: %w", d.path, err)
		}
	}
	return len(all), nil
}
