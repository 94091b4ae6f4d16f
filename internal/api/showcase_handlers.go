package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/showcase-server/internal/domain"
	"github.com/listenupapp/showcase-server/internal/service"
	"github.com/listenupapp/showcase-server/internal/store"
)

func (s *Server) registerShowcaseRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID:   "createShowcase",
		Method:        http.MethodPost,
		Path:          "/api/v1/showcases",
		Summary:       "Create showcase",
		Description:   "Creates a private showcase and publishes it when isPublic is set",
		Tags:          []string{"Showcases"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateShowcase)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyShowcases",
		Method:      http.MethodGet,
		Path:        "/api/v1/showcases",
		Summary:     "List my showcases",
		Description: "Returns the caller's showcases, newest first",
		Tags:        []string{"Showcases"},
		Security:    bearer,
	}, s.handleListMyShowcases)

	huma.Register(s.api, huma.Operation{
		OperationID: "viewShowcase",
		Method:      http.MethodGet,
		Path:        "/api/v1/showcases/{id}",
		Summary:     "View showcase",
		Description: "Resolves a showcase wherever it lives, repairing its public mirror on the way, and returns its items",
		Tags:        []string{"Showcases"},
	}, s.handleViewShowcase)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateShowcase",
		Method:      http.MethodPatch,
		Path:        "/api/v1/showcases/{id}",
		Summary:     "Update showcase",
		Description: "Patches the caller's showcase; the public mirror follows",
		Tags:        []string{"Showcases"},
		Security:    bearer,
	}, s.handleUpdateShowcase)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteShowcase",
		Method:        http.MethodDelete,
		Path:          "/api/v1/showcases/{id}",
		Summary:       "Delete showcase",
		Description:   "Deletes the caller's showcase and its public mirror",
		Tags:          []string{"Showcases"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteShowcase)

	huma.Register(s.api, huma.Operation{
		OperationID: "publishShowcase",
		Method:      http.MethodPost,
		Path:        "/api/v1/showcases/{id}/publish",
		Summary:     "Publish showcase",
		Description: "Writes the public mirror from the caller's private showcase",
		Tags:        []string{"Showcases"},
		Security:    bearer,
	}, s.handlePublishShowcase)

	huma.Register(s.api, huma.Operation{
		OperationID:   "unpublishShowcase",
		Method:        http.MethodPost,
		Path:          "/api/v1/showcases/{id}/unpublish",
		Summary:       "Unpublish showcase",
		Description:   "Removes the public mirror and marks the showcase private",
		Tags:          []string{"Showcases"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleUnpublishShowcase)

	huma.Register(s.api, huma.Operation{
		OperationID: "ensurePublicShowcase",
		Method:      http.MethodPost,
		Path:        "/api/v1/showcases/{id}/ensure-public",
		Summary:     "Ensure public mirror",
		Description: "Creates or repairs the public mirror from the best available source. The owner query is accepted from that owner or an admin only.",
		Tags:        []string{"Showcases"},
		Middlewares: s.socialLimit(),
	}, s.handleEnsurePublic)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPublicShowcases",
		Method:      http.MethodGet,
		Path:        "/api/v1/public/showcases",
		Summary:     "List public showcases",
		Description: "Pages through public mirrors",
		Tags:        []string{"Showcases"},
	}, s.handleListPublicShowcases)
}

// === DTOs ===

// ShowcaseBody is the payload for creating a showcase.
type ShowcaseBody struct {
	Name        string   `json:"name" minLength:"1" maxLength:"100" doc:"Display name"`
	Description string   `json:"description,omitempty" maxLength:"2000" doc:"Free text description"`
	Theme       string   `json:"theme,omitempty" enum:"wood,velvet,glass" doc:"Visual theme (default wood)"`
	Tags        []string `json:"tags,omitempty" maxItems:"50" doc:"Tags used to resolve membership when no item ids are set"`
	ItemIDs     []string `json:"itemIds,omitempty" maxItems:"500" doc:"Explicit member item ids, in display order"`
	IsPublic    bool     `json:"isPublic,omitempty" doc:"Publish immediately"`
}

// CreateShowcaseInput contains the request for creating a showcase.
type CreateShowcaseInput struct {
	Body ShowcaseBody
}

// ShowcasePatchBody lists the showcase fields to change.
type ShowcasePatchBody struct {
	Name        *string   `json:"name,omitempty" minLength:"1" maxLength:"100"`
	Description *string   `json:"description,omitempty" maxLength:"2000"`
	Theme       *string   `json:"theme,omitempty" enum:"wood,velvet,glass"`
	Tags        *[]string `json:"tags,omitempty"`
	ItemIDs     *[]string `json:"itemIds,omitempty"`
	IsPublic    *bool     `json:"isPublic,omitempty"`
}

// UpdateShowcaseInput contains the request for patching a showcase.
type UpdateShowcaseInput struct {
	ID   string `path:"id" doc:"Showcase ID"`
	Body ShowcasePatchBody
}

// ShowcaseIDInput addresses one of the caller's showcases.
type ShowcaseIDInput struct {
	ID string `path:"id" doc:"Showcase ID"`
}

// ShowcaseLookupInput addresses a showcase with an optional owner hint.
type ShowcaseLookupInput struct {
	ID    string `path:"id" doc:"Showcase ID"`
	Owner string `query:"owner" doc:"Owner hint; enables the private probe"`
}

// ListPublicInput contains pagination for the public listing.
type ListPublicInput struct {
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" doc:"Page size (default 100)"`
	Cursor string `query:"cursor" doc:"Cursor from the previous page"`
}

// ShowcaseOutput wraps a single showcase.
type ShowcaseOutput struct {
	Body *domain.Showcase
}

// ShowcaseListResponse is a list of showcases.
type ShowcaseListResponse struct {
	Showcases []*domain.Showcase `json:"showcases"`
}

// ShowcaseListOutput wraps a showcase list.
type ShowcaseListOutput struct {
	Body ShowcaseListResponse
}

// ShowcaseViewOutput wraps a resolved view.
type ShowcaseViewOutput struct {
	Body *service.ShowcaseView
}

// EnsurePublicOutput wraps a mirror recovery result.
type EnsurePublicOutput struct {
	Body *service.EnsureResult
}

// PublicShowcasesOutput wraps a page of public mirrors.
type PublicShowcasesOutput struct {
	Body *store.PaginatedResult[*domain.Showcase]
}

// === Handlers ===

func (s *Server) handleCreateShowcase(ctx context.Context, input *CreateShowcaseInput) (*ShowcaseOutput, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}

	sc, err := s.services.Showcases.Create(ctx, actor.ID, service.ShowcaseInput{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		Theme:       domain.Theme(input.Body.Theme),
		Tags:        input.Body.Tags,
		ItemIDs:     input.Body.ItemIDs,
		IsPublic:    input.Body.IsPublic,
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &ShowcaseOutput{Body: sc}, nil
}

func (s *Server) handleListMyShowcases(ctx context.Context, _ *struct{}) (*ShowcaseListOutput, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.services.Showcases.ListByOwner(ctx, actor.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if list == nil {
		list = []*domain.Showcase{}
	}
	return &ShowcaseListOutput{Body: ShowcaseListResponse{Showcases: list}}, nil
}

func (s *Server) handleViewShowcase(ctx context.Context, input *ShowcaseLookupInput) (*ShowcaseViewOutput, error) {
	view, err := s.services.Showcases.View(ctx, input.ID, input.Owner, viewerID(ctx))
	if err != nil {
		return nil, apiError(err)
	}
	return &ShowcaseViewOutput{Body: view}, nil
}

func (s *Server) handleUpdateShowcase(ctx context.Context, input *UpdateShowcaseInput) (*ShowcaseOutput, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}

	upd := service.ShowcaseUpdate{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		Tags:        input.Body.Tags,
		ItemIDs:     input.Body.ItemIDs,
		IsPublic:    input.Body.IsPublic,
	}
	if input.Body.Theme != nil {
		theme := domain.Theme(*input.Body.Theme)
		upd.Theme = &theme
	}

	sc, err := s.services.Showcases.Update(ctx, actor.ID, input.ID, upd)
	if err != nil {
		return nil, apiError(err)
	}
	return &ShowcaseOutput{Body: sc}, nil
}

func (s *Server) handleDeleteShowcase(ctx context.Context, input *ShowcaseIDInput) (*struct{}, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Showcases.Delete(ctx, actor.ID, input.ID); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}

func (s *Server) handlePublishShowcase(ctx context.Context, input *ShowcaseIDInput) (*ShowcaseOutput, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}

	mirror, err := s.services.Mirror.Publish(ctx, actor.ID, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &ShowcaseOutput{Body: mirror}, nil
}

func (s *Server) handleUnpublishShowcase(ctx context.Context, input *ShowcaseIDInput) (*struct{}, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Mirror.Unpublish(ctx, actor.ID, input.ID); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}

func (s *Server) handleEnsurePublic(ctx context.Context, input *ShowcaseLookupInput) (*EnsurePublicOutput, error) {
	owner, err := s.actingOwner(ctx, input.Owner)
	if err != nil {
		return nil, err
	}
	res, err := s.services.Mirror.EnsurePublic(ctx, input.ID, owner)
	if err != nil {
		return nil, apiError(err)
	}
	return &EnsurePublicOutput{Body: res}, nil
}

func (s *Server) handleListPublicShowcases(ctx context.Context, input *ListPublicInput) (*PublicShowcasesOutput, error) {
	params := store.DefaultPaginationParams()
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Cursor = input.Cursor
	params.Validate()

	page, err := s.services.Showcases.ListPublic(ctx, params)
	if err != nil {
		return nil, apiError(err)
	}
	return &PublicShowcasesOutput{Body: page}, nil
}
