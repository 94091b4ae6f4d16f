package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/showcase-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	security := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "reconcile",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/reconcile",
		Summary:     "Reconcile showcases",
		Description: "Re-runs mirror recovery, like recounts and item owner backfill over the given scope",
		Tags:        []string{"Admin"},
		Security:    security,
	}, s.handleReconcile)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexSearch",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/search/reindex",
		Summary:     "Rebuild search index",
		Description: "Re-indexes every public showcase",
		Tags:        []string{"Admin"},
		Security:    security,
	}, s.handleReindex)
}

// === DTOs ===

// ReconcileBody scopes a reconciliation run.
type ReconcileBody struct {
	OwnerID    string `json:"ownerId,omitempty" doc:"Only examine this owner's showcases"`
	ShowcaseID string `json:"showcaseId,omitempty" doc:"Only examine this showcase"`
	DryRun     bool   `json:"dryRun,omitempty" doc:"Report without writing"`
}

// ReconcileInput contains the request for a reconciliation run.
type ReconcileInput struct {
	Body ReconcileBody
}

// ReconcileOutput wraps the reconciliation report.
type ReconcileOutput struct {
	Body *service.ReconcileReport
}

// ReindexResponse reports how many showcases were indexed.
type ReindexResponse struct {
	Indexed int `json:"indexed" doc:"Showcases indexed"`
}

// ReindexOutput wraps the reindex response.
type ReindexOutput struct {
	Body ReindexResponse
}

// === Handlers ===

func (s *Server) requireAdmin(ctx context.Context) error {
	actor, err := requireMember(ctx)
	if err != nil {
		return err
	}
	if !s.isAdmin(actor.ID) {
		return huma.Error403Forbidden("Admin access required")
	}
	return nil
}

func (s *Server) handleReconcile(ctx context.Context, input *ReconcileInput) (*ReconcileOutput, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	report, err := s.services.Reconcile.Reconcile(ctx, service.ReconcileOptions{
		OwnerID:    input.Body.OwnerID,
		ShowcaseID: input.Body.ShowcaseID,
		DryRun:     input.Body.DryRun,
	})
	if err != nil {
		return nil, apiError(err)
	}

	s.logger.Info("reconcile finished",
		"dry_run", report.DryRun,
		"examined", report.Examined,
		"errors", len(report.Errors),
	)
	return &ReconcileOutput{Body: report}, nil
}

func (s *Server) handleReindex(ctx context.Context, _ *struct{}) (*ReindexOutput, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if s.services.Search == nil {
		return nil, huma.Error503ServiceUnavailable("Search is not available")
	}

	n, err := s.services.Search.Reindex(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &ReindexOutput{Body: ReindexResponse{Indexed: n}}, nil
}
