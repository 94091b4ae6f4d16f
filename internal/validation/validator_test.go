package validation_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/validation"
)

type showcaseRequest struct {
	Name    string       `json:"name" validate:"required,max=100"`
	Theme   domain.Theme `json:"theme" validate:"theme"`
	Tags    []string     `json:"tags" validate:"max=3,dive,max=10,tag"`
	ItemIDs []string     `json:"itemIds" validate:"dive,docid"`
	Price   float64      `json:"price" validate:"gte=0"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(showcaseRequest{
		Name:    "Rookie cards",
		Theme:   domain.ThemeVelvet,
		Tags:    []string{"baseball", " "},
		ItemIDs: []string{"card-1", "item1"},
		Price:   12.5,
	})
	assert.NoError(t, err)

	// An empty theme falls back to the default downstream.
	assert.NoError(t, v.Validate(showcaseRequest{Name: "Case"}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       showcaseRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing required field",
			req:       showcaseRequest{Name: ""},
			wantField: "name",
			wantMsg:   "is required",
		},
		{
			name:      "name too long",
			req:       showcaseRequest{Name: strings.Repeat("x", 101)},
			wantField: "name",
			wantMsg:   "must not exceed 100 characters",
		},
		{
			name:      "unknown theme",
			req:       showcaseRequest{Name: "Case", Theme: "neon"},
			wantField: "theme",
			wantMsg:   "must be one of: wood velvet glass",
		},
		{
			name:      "too many tags",
			req:       showcaseRequest{Name: "Case", Tags: []string{"a", "b", "c", "d"}},
			wantField: "tags",
			wantMsg:   "must not exceed 3 entries",
		},
		{
			name:      "tag with separator",
			req:       showcaseRequest{Name: "Case", Tags: []string{"ok", "a/b"}},
			wantField: "tags[1]",
			wantMsg:   "must be a printable tag without '/'",
		},
		{
			name:      "item id with separator",
			req:       showcaseRequest{Name: "Case", ItemIDs: []string{"users/x"}},
			wantField: "itemIds[0]",
			wantMsg:   "must be an id without '/' or surrounding spaces",
		},
		{
			name:      "blank item id",
			req:       showcaseRequest{Name: "Case", ItemIDs: []string{"a", ""}},
			wantField: "itemIds[1]",
			wantMsg:   "must be an id without '/' or surrounding spaces",
		},
		{
			name:      "negative price",
			req:       showcaseRequest{Name: "Case", Price: -1},
			wantField: "price",
			wantMsg:   "must be greater than or equal to 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField], "details: %v", details)
		})
	}
}
