package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/showcase-server/internal/auth"
	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
)

// ActorHeader carries an anonymous actor id for clients without a token.
const ActorHeader = "X-Actor-ID"

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// actorKey is the context key for the resolved actor.
const actorKey ctxKey = "actor"

// GetActor returns the actor resolved for the request, if any.
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok && actor.ID != ""
}

func setActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// viewerID returns the actor id, or "" for an unidentified request.
func viewerID(ctx context.Context) string {
	actor, _ := GetActor(ctx)
	return actor.ID
}

// requireMember returns the authenticated (token-bearing) actor.
func requireMember(ctx context.Context) (domain.Actor, error) {
	actor, ok := GetActor(ctx)
	if !ok || actor.Anonymous {
		return domain.Actor{}, huma.Error401Unauthorized("Authentication required")
	}
	return actor, nil
}

// requireActor returns the actor, accepting anonymous ones.
func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := GetActor(ctx)
	if !ok {
		return domain.Actor{}, huma.Error401Unauthorized("An actor id or token is required")
	}
	return actor, nil
}

// actingOwner returns owner when the signed-in actor is that owner or an
// admin. An empty owner passes through.
func (s *Server) actingOwner(ctx context.Context, owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", nil
	}
	actor, ok := GetActor(ctx)
	if ok && !actor.Anonymous && (actor.ID == owner || s.isAdmin(actor.ID)) {
		return owner, nil
	}
	return "", apiError(domainerrors.Forbidden("only the owner can act on their showcase"))
}

// actorMiddleware resolves the request actor. A valid Bearer token yields an
// authenticated actor; otherwise a well-formed X-Actor-ID yields an anonymous
// one. Requests carrying neither continue without an actor and handlers
// decide whether that is acceptable. A Bearer token that fails verification
// is rejected with 401, coded TOKEN_EXPIRED when it only ran out.
func actorMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r.Header.Get("Authorization")); ok && tokens != nil {
				claims, err := tokens.VerifyAccessToken(token)
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					writeError(w, domainerrors.TokenExpired("access token expired").WithCause(err))
					return
				case err != nil:
					writeError(w, domainerrors.Unauthorized("invalid access token").WithCause(err))
					return
				}

				actor := domain.Actor{
					ID:          claims.UserID,
					DisplayName: claims.DisplayName,
					PhotoURL:    claims.PhotoURL,
				}
				next.ServeHTTP(w, r.WithContext(setActor(r.Context(), actor)))
				return
			}

			if id := strings.TrimSpace(r.Header.Get(ActorHeader)); domain.IsAnonymousID(id) {
				actor := domain.Actor{ID: id, Anonymous: true}
				next.ServeHTTP(w, r.WithContext(setActor(r.Context(), actor)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}
