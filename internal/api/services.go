package api

import (
	"github.com/listenupapp/showcase-server/internal/auth"
	"github.com/listenupapp/showcase-server/internal/service"
)

// Services groups the engine services used by the API server.
type Services struct {
	Showcases *service.ShowcaseService
	Items     *service.ItemService
	Mirror    *service.MirrorSync
	Reconcile *service.ReconcileService
	Search    *service.SearchService // Optional; search routes answer 503 without it
	Tokens    *auth.TokenService
}
