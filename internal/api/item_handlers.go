package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/showcase-server/internal/domain"
	"github.com/listenupapp/showcase-server/internal/service"
)

func (s *Server) registerItemRoutes() {
	security := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID:   "createItem",
		Method:        http.MethodPost,
		Path:          "/api/v1/items",
		Summary:       "Create item",
		Description:   "Adds an item to the caller's collection",
		Tags:          []string{"Items"},
		Security:      security,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "listItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "List items",
		Description: "Lists the caller's items from both item stores",
		Tags:        []string{"Items"},
		Security:    security,
	}, s.handleListItems)

	huma.Register(s.api, huma.Operation{
		OperationID: "getItem",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{id}",
		Summary:     "Get item",
		Tags:        []string{"Items"},
		Security:    security,
	}, s.handleGetItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateItem",
		Method:      http.MethodPatch,
		Path:        "/api/v1/items/{id}",
		Summary:     "Update item",
		Description: "Changes the given fields of an item in whichever store holds it",
		Tags:        []string{"Items"},
		Security:    security,
	}, s.handleUpdateItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteItem",
		Method:      http.MethodDelete,
		Path:        "/api/v1/items/{id}",
		Summary:     "Delete item",
		Description: "Deletes the item and removes it from every showcase and mirror that lists it",
		Tags:        []string{"Items"},
		Security:    security,
	}, s.handleDeleteItem)
}

// === DTOs ===

// ItemBody is the payload for a new item.
type ItemBody struct {
	Name      string   `json:"name" minLength:"1" maxLength:"200" doc:"Item name"`
	Year      string   `json:"year,omitempty" maxLength:"10" doc:"Year"`
	Set       string   `json:"set,omitempty" maxLength:"200" doc:"Set or series"`
	Number    string   `json:"number,omitempty" maxLength:"50" doc:"Card or catalogue number"`
	Variation string   `json:"variation,omitempty" maxLength:"200" doc:"Variation"`
	Condition string   `json:"condition,omitempty" maxLength:"50" doc:"Condition or grade"`
	ImageURL  string   `json:"imageUrl,omitempty" doc:"Image URL"`
	Tags      []string `json:"tags,omitempty" maxItems:"50" doc:"Tags"`
	Price     float64  `json:"price,omitempty" minimum:"0" doc:"Price"`
}

// CreateItemInput contains the request for creating an item.
type CreateItemInput struct {
	Body ItemBody
}

// ItemPatchBody holds the fields to change on an item.
type ItemPatchBody struct {
	Name      *string   `json:"name,omitempty" maxLength:"200" doc:"Item name"`
	Year      *string   `json:"year,omitempty" maxLength:"10" doc:"Year"`
	Set       *string   `json:"set,omitempty" maxLength:"200" doc:"Set or series"`
	Number    *string   `json:"number,omitempty" maxLength:"50" doc:"Card or catalogue number"`
	Variation *string   `json:"variation,omitempty" maxLength:"200" doc:"Variation"`
	Condition *string   `json:"condition,omitempty" maxLength:"50" doc:"Condition or grade"`
	ImageURL  *string   `json:"imageUrl,omitempty" doc:"Image URL"`
	Tags      *[]string `json:"tags,omitempty" doc:"Tags"`
	Price     *float64  `json:"price,omitempty" doc:"Price"`
}

// UpdateItemInput contains the request for updating an item.
type UpdateItemInput struct {
	ID   string `path:"id" doc:"Item ID"`
	Body ItemPatchBody
}

// ItemIDInput contains an item id path parameter.
type ItemIDInput struct {
	ID string `path:"id" doc:"Item ID"`
}

// ItemOutput wraps a single item.
type ItemOutput struct {
	Body *domain.Item
}

// ItemListResponse contains the caller's items.
type ItemListResponse struct {
	Items []domain.Item `json:"items" doc:"Items"`
	Total int           `json:"total" doc:"Number of items"`
}

// ItemListOutput wraps the item list response.
type ItemListOutput struct {
	Body ItemListResponse
}

// DeleteItemOutput wraps the cascade report of a deletion.
type DeleteItemOutput struct {
	Body *service.CascadeReport
}

// === Handlers ===

func (s *Server) handleCreateItem(ctx context.Context, input *CreateItemInput) (*ItemOutput, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}

	b := input.Body
	item, err := s.services.Items.Create(ctx, actor.ID, service.ItemInput{
		Name:      b.Name,
		Year:      b.Year,
		Set:       b.Set,
		Number:    b.Number,
		Variation: b.Variation,
		Condition: b.Condition,
		ImageURL:  b.ImageURL,
		Tags:      b.Tags,
		Price:     b.Price,
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &ItemOutput{Body: item}, nil
}

func (s *Server) handleListItems(ctx context.Context, _ *struct{}) (*ItemListOutput, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.services.Items.ListForOwner(ctx, actor.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if items == nil {
		items = []domain.Item{}
	}
	return &ItemListOutput{Body: ItemListResponse{Items: items, Total: len(items)}}, nil
}

func (s *Server) handleGetItem(ctx context.Context, input *ItemIDInput) (*ItemOutput, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}

	item, err := s.services.Items.Get(ctx, actor.ID, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &ItemOutput{Body: item}, nil
}

func (s *Server) handleUpdateItem(ctx context.Context, input *UpdateItemInput) (*ItemOutput, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}

	b := input.Body
	item, err := s.services.Items.Update(ctx, actor.ID, input.ID, service.ItemUpdate{
		Name:      b.Name,
		Year:      b.Year,
		Set:       b.Set,
		Number:    b.Number,
		Variation: b.Variation,
		Condition: b.Condition,
		ImageURL:  b.ImageURL,
		Tags:      b.Tags,
		Price:     b.Price,
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &ItemOutput{Body: item}, nil
}

func (s *Server) handleDeleteItem(ctx context.Context, input *ItemIDInput) (*DeleteItemOutput, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.services.Items.Delete(ctx, actor.ID, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &DeleteItemOutput{Body: report}, nil
}
