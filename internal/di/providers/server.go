package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/listenupapp/showcase-server/internal/api"
	"github.com/listenupapp/showcase-server/internal/auth"
	"github.com/listenupapp/showcase-server/internal/config"
	"github.com/listenupapp/showcase-server/internal/logger"
	"github.com/listenupapp/showcase-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Showcases: do.MustInvoke[*service.ShowcaseService](i),
		Items:     do.MustInvoke[*service.ItemService](i),
		Mirror:    do.MustInvoke[*service.MirrorSync](i),
		Reconcile: do.MustInvoke[*service.ReconcileService](i),
		Search:    do.MustInvoke[*service.SearchService](i),
		Tokens:    do.MustInvoke[*auth.TokenService](i),
	}

	handler := api.NewServer(storeHandle.DocumentStore, services, api.Options{
		CORSOrigins:           cfg.Server.CORSOrigins,
		AdminUserIDs:          cfg.Auth.AdminUserIDs,
		HTTPRequestsPerMinute: cfg.Limits.HTTPRequestsPerMinute,
		HTTPBurst:             cfg.Limits.HTTPBurst,
	}, log.Component("api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
