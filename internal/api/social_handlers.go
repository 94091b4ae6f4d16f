package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/showcase-server/internal/domain"
	"github.com/listenupapp/showcase-server/internal/service"
)

func (s *Server) registerSocialRoutes() {
	limited := s.socialLimit()

	huma.Register(s.api, huma.Operation{
		OperationID:   "recordVisit",
		Method:        http.MethodPost,
		Path:          "/api/v1/showcases/{id}/visits",
		Summary:       "Record visit",
		Description:   "Counts a visit on the showcase",
		Tags:          []string{"Social"},
		DefaultStatus: http.StatusNoContent,
		Middlewares:   limited,
	}, s.handleRecordVisit)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addComment",
		Method:        http.MethodPost,
		Path:          "/api/v1/showcases/{id}/comments",
		Summary:       "Add comment",
		Description:   "Screens, rate-limits and appends a comment. Requires a signed-in actor.",
		Tags:          []string{"Social"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
		Middlewares:   limited,
	}, s.handleAddComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "likeShowcase",
		Method:      http.MethodPut,
		Path:        "/api/v1/showcases/{id}/like",
		Summary:     "Like showcase",
		Description: "Likes the showcase as the caller; anonymous actors are accepted",
		Tags:        []string{"Social"},
		Middlewares: limited,
	}, s.handleLike)

	huma.Register(s.api, huma.Operation{
		OperationID: "unlikeShowcase",
		Method:      http.MethodDelete,
		Path:        "/api/v1/showcases/{id}/like",
		Summary:     "Unlike showcase",
		Description: "Removes the caller's like",
		Tags:        []string{"Social"},
		Middlewares: limited,
	}, s.handleUnlike)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLikes",
		Method:      http.MethodGet,
		Path:        "/api/v1/showcases/{id}/likes",
		Summary:     "Get likes",
		Description: "Returns the like count from the ledger and whether the caller liked the showcase",
		Tags:        []string{"Social"},
	}, s.handleGetLikes)

	huma.Register(s.api, huma.Operation{
		OperationID: "shareShowcase",
		Method:      http.MethodPost,
		Path:        "/api/v1/showcases/{id}/share",
		Summary:     "Share showcase",
		Description: "Ensures the public mirror exists and returns the id to share",
		Tags:        []string{"Social"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: limited,
	}, s.handleShare)
}

// === DTOs ===

// CommentBody is the payload for a new comment.
type CommentBody struct {
	Text string `json:"text" minLength:"1" maxLength:"1000" doc:"Comment text"`
}

// AddCommentInput contains the request for adding a comment.
type AddCommentInput struct {
	ID    string `path:"id" doc:"Showcase ID"`
	Owner string `query:"owner" doc:"Owner hint"`
	Body  CommentBody
}

// CommentOutput wraps a stored comment.
type CommentOutput struct {
	Body *domain.Comment
}

// LikeOutput wraps the like state after a change.
type LikeOutput struct {
	Body *service.LikeState
}

// ShareOutput wraps a share result.
type ShareOutput struct {
	Body *service.ShareResult
}

// === Handlers ===

func (s *Server) handleRecordVisit(ctx context.Context, input *ShowcaseLookupInput) (*struct{}, error) {
	if err := s.services.Showcases.RecordVisit(ctx, input.ID, input.Owner, viewerID(ctx)); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}

func (s *Server) handleAddComment(ctx context.Context, input *AddCommentInput) (*CommentOutput, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	comment, err := s.services.Showcases.AddComment(ctx, actor, input.ID, input.Owner, input.Body.Text)
	if err != nil {
		return nil, apiError(err)
	}
	return &CommentOutput{Body: comment}, nil
}

func (s *Server) handleLike(ctx context.Context, input *ShowcaseLookupInput) (*LikeOutput, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	state, err := s.services.Showcases.Like(ctx, actor.ID, input.ID, input.Owner)
	if err != nil {
		return nil, apiError(err)
	}
	return &LikeOutput{Body: state}, nil
}

func (s *Server) handleUnlike(ctx context.Context, input *ShowcaseLookupInput) (*LikeOutput, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	state, err := s.services.Showcases.Unlike(ctx, actor.ID, input.ID, input.Owner)
	if err != nil {
		return nil, apiError(err)
	}
	return &LikeOutput{Body: state}, nil
}

func (s *Server) handleGetLikes(ctx context.Context, input *ShowcaseIDInput) (*LikeOutput, error) {
	state, err := s.services.Showcases.Likes(ctx, input.ID, viewerID(ctx))
	if err != nil {
		return nil, apiError(err)
	}
	return &LikeOutput{Body: state}, nil
}

func (s *Server) handleShare(ctx context.Context, input *ShowcaseLookupInput) (*ShareOutput, error) {
	actor, err := requireMember(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Showcases.Share(ctx, actor.ID, input.ID, input.Owner)
	if err != nil {
		return nil, apiError(err)
	}
	return &ShareOutput{Body: res}, nil
}
