package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/showcase-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchShowcases",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search showcases",
		Description: "Full-text search over published showcases",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching public showcases.
type SearchInput struct {
	Query  string `query:"q" maxLength:"200" doc:"Search query; empty matches everything"`
	Tags   string `query:"tags" maxLength:"200" doc:"Comma-separated tags to filter by"`
	Theme  string `query:"theme" enum:"wood,velvet,glass" doc:"Theme filter"`
	Owner  string `query:"owner" maxLength:"128" doc:"Owner filter"`
	Limit  int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset int    `query:"offset" minimum:"0" doc:"Pagination offset"`
	Sort   string `query:"sort" enum:"relevance,name,recent,likes" doc:"Sort field"`
	Order  string `query:"order" enum:"asc,desc" doc:"Sort order"`
	Facets bool   `query:"facets" doc:"Include facets in response"`
}

// SearchOutput wraps the search result.
type SearchOutput struct {
	Body *search.SearchResult
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if s.services.Search == nil {
		return nil, huma.Error503ServiceUnavailable("Search is not available")
	}

	params := search.DefaultSearchParams()
	params.Query = strings.TrimSpace(input.Query)
	params.Theme = input.Theme
	params.OwnerID = input.Owner
	params.Offset = input.Offset
	params.IncludeFacets = input.Facets
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Sort != "" {
		params.SortBy = input.Sort
	}
	if input.Order != "" {
		params.SortOrder = input.Order
	}
	for tag := range strings.SplitSeq(input.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			params.Tags = append(params.Tags, tag)
		}
	}

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		s.logger.Error("search failed", "error", err, "query", params.Query)
		return nil, apiError(err)
	}

	s.logger.Debug("search completed",
		"query", params.Query,
		"total", result.Total,
		"took_ms", result.TookMs,
	)
	return &SearchOutput{Body: result}, nil
}
