package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/showcase-server/internal/service"
)

func (s *Server) registerActorRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createAnonymousActor",
		Method:        http.MethodPost,
		Path:          "/api/v1/actors/anonymous",
		Summary:       "Create anonymous actor",
		Description:   "Issues an anonymous actor id. Send it back in the X-Actor-ID header to like showcases without signing in.",
		Tags:          []string{"Actors"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateAnonymousActor)

	huma.Register(s.api, huma.Operation{
		OperationID: "whoAmI",
		Method:      http.MethodGet,
		Path:        "/api/v1/actors/me",
		Summary:     "Current actor",
		Description: "Returns the actor resolved from the request",
		Tags:        []string{"Actors"},
	}, s.handleWhoAmI)
}

// AnonymousActorResponse carries a freshly issued anonymous id.
type AnonymousActorResponse struct {
	ActorID string `json:"actorId" doc:"Anonymous actor ID"`
}

// AnonymousActorOutput wraps the anonymous actor response.
type AnonymousActorOutput struct {
	Body AnonymousActorResponse
}

// ActorResponse describes the resolved actor.
type ActorResponse struct {
	ID          string `json:"id" doc:"Actor ID"`
	DisplayName string `json:"displayName,omitempty" doc:"Display name"`
	PhotoURL    string `json:"photoUrl,omitempty" doc:"Photo URL"`
	Anonymous   bool   `json:"anonymous" doc:"Whether the actor is anonymous"`
	Admin       bool   `json:"admin" doc:"Whether the actor may use admin routes"`
	Reputation  int    `json:"reputation" minimum:"0" maximum:"10" doc:"Activity score from 0 to 10"`
}

// ActorOutput wraps the actor response.
type ActorOutput struct {
	Body ActorResponse
}

func (s *Server) handleCreateAnonymousActor(_ context.Context, _ *struct{}) (*AnonymousActorOutput, error) {
	return &AnonymousActorOutput{Body: AnonymousActorResponse{ActorID: service.NewAnonymousActorID()}}, nil
}

func (s *Server) handleWhoAmI(ctx context.Context, _ *struct{}) (*ActorOutput, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return &ActorOutput{Body: ActorResponse{
		ID:          actor.ID,
		DisplayName: actor.DisplayName,
		PhotoURL:    actor.PhotoURL,
		Anonymous:   actor.Anonymous,
		Admin:       !actor.Anonymous && s.isAdmin(actor.ID),
		Reputation:  s.services.Showcases.Reputation(ctx, actor.ID),
	}}, nil
}
