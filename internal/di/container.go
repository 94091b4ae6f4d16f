// Package di provides dependency injection configuration for the showcase server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/showcase-server/internal/auth"
	"github.com/listenupapp/showcase-server/internal/config"
	"github.com/listenupapp/showcase-server/internal/di/providers"
	"github.com/listenupapp/showcase-server/internal/logger"
	"github.com/listenupapp/showcase-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Resolution engine
	do.Provide(injector, providers.ProvideEngineConfig)
	do.Provide(injector, providers.ProvideLocator)
	do.Provide(injector, providers.ProvideItemFetcher)
	do.Provide(injector, providers.ProvideMirrorSync)
	do.Provide(injector, providers.ProvideLikeLedger)
	do.Provide(injector, providers.ProvideAbuseGuard)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideShowcaseService)
	do.Provide(injector, providers.ProvideItemService)
	do.Provide(injector, providers.ProvideReconcileService)

	// Workers
	do.Provide(injector, providers.ProvideReconcileJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[providers.AuthKey](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}

	// Search must be wired into the mirror before any service writes.
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.ShowcaseService](injector)
	_ = do.MustInvoke[*service.ItemService](injector)
	_ = do.MustInvoke[*service.ReconcileService](injector)

	// Workers
	_ = do.MustInvoke[*providers.ReconcileJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
