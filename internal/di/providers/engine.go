package providers

import (
	"fmt"
	"regexp"

	"github.com/samber/do/v2"

	"github.com/listenupapp/showcase-server/internal/config"
	"github.com/listenupapp/showcase-server/internal/logger"
	"github.com/listenupapp/showcase-server/internal/service"
)

// ProvideEngineConfig translates configuration into engine tunables.
func ProvideEngineConfig(i do.Injector) (service.EngineConfig, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return EngineConfigFrom(cfg)
}

// EngineConfigFrom builds the engine tunables from cfg.
func EngineConfigFrom(cfg *config.Config) (service.EngineConfig, error) {
	pattern, err := regexp.Compile(cfg.Engine.GlobalItemPattern)
	if err != nil {
		return service.EngineConfig{}, fmt.Errorf("compile global item pattern: %w", err)
	}

	ec := service.DefaultEngineConfig()
	ec.PlaceholderItemIDs = cfg.Engine.PlaceholderItemIDs
	ec.GlobalItemPattern = pattern
	ec.Membership = service.MembershipPolicy{
		AllowArbitraryFallback: cfg.Engine.AllowArbitraryFallback,
		ArbitraryLimit:         cfg.Engine.ArbitraryFallbackLimit,
	}
	ec.FetchConcurrency = cfg.Engine.FetchConcurrency
	ec.Limits.Comment = service.RateRule{Window: cfg.Limits.CommentWindow, Max: cfg.Limits.CommentMax}
	ec.Limits.Like = service.RateRule{Window: cfg.Limits.LikeWindow, Max: cfg.Limits.LikeMax}
	ec.Limits.Share = service.RateRule{Window: cfg.Limits.ShareWindow, Max: cfg.Limits.ShareMax}
	return ec, nil
}

// ProvideLocator provides the record locator.
func ProvideLocator(i do.Injector) (*service.Locator, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewLocator(storeHandle.DocumentStore, log.Component("locator")), nil
}

// ProvideItemFetcher provides the item fetcher.
func ProvideItemFetcher(i do.Injector) (*service.ItemFetcher, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ec := do.MustInvoke[service.EngineConfig](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewItemFetcher(storeHandle.DocumentStore, ec, log.Component("fetcher")), nil
}

// ProvideMirrorSync provides the mirror synchronizer.
func ProvideMirrorSync(i do.Injector) (*service.MirrorSync, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ec := do.MustInvoke[service.EngineConfig](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewMirrorSync(storeHandle.DocumentStore, ec, log.Component("mirror")), nil
}

// ProvideLikeLedger provides the like ledger.
func ProvideLikeLedger(i do.Injector) (*service.LikeLedger, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	locator := do.MustInvoke[*service.Locator](i)
	mirror := do.MustInvoke[*service.MirrorSync](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewLikeLedger(storeHandle.DocumentStore, locator, mirror, log.Component("likes")), nil
}

// ProvideAbuseGuard provides the abuse guard.
func ProvideAbuseGuard(i do.Injector) (*service.AbuseGuard, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewAbuseGuard(storeHandle.DocumentStore, log.Component("guard")), nil
}

// ProvideShowcaseService provides the showcase service.
func ProvideShowcaseService(i do.Injector) (*service.ShowcaseService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	locator := do.MustInvoke[*service.Locator](i)
	fetcher := do.MustInvoke[*service.ItemFetcher](i)
	mirror := do.MustInvoke[*service.MirrorSync](i)
	ledger := do.MustInvoke[*service.LikeLedger](i)
	guard := do.MustInvoke[*service.AbuseGuard](i)
	ec := do.MustInvoke[service.EngineConfig](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewShowcaseService(storeHandle.DocumentStore, locator, fetcher, mirror, ledger, guard, ec, log.Component("showcases")), nil
}

// ProvideItemService provides the item service.
func ProvideItemService(i do.Injector) (*service.ItemService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	fetcher := do.MustInvoke[*service.ItemFetcher](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewItemService(storeHandle.DocumentStore, fetcher, log.Component("items")), nil
}

// ProvideReconcileService provides the reconciliation service.
func ProvideReconcileService(i do.Injector) (*service.ReconcileService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	locator := do.MustInvoke[*service.Locator](i)
	mirror := do.MustInvoke[*service.MirrorSync](i)
	ledger := do.MustInvoke[*service.LikeLedger](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewReconcileService(storeHandle.DocumentStore, locator, mirror, ledger, log.Component("reconcile")), nil
}
