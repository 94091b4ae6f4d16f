package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/showcase-server/internal/auth"
	"github.com/listenupapp/showcase-server/internal/domain"
	"github.com/listenupapp/showcase-server/internal/search"
	"github.com/listenupapp/showcase-server/internal/service"
	"github.com/listenupapp/showcase-server/internal/store"
)

func createShowcase(t *testing.T, ts *testServer, owner string, body ShowcaseBody) *domain.Showcase {
	t.Helper()
	w := ts.as(t, http.MethodPost, "/api/v1/showcases", owner, body)
	requireStatus(t, w, http.StatusCreated)
	env := decode[*domain.Showcase](t, w)
	require.True(t, env.Success)
	return env.Data
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t, Options{})

	w := ts.do(t, http.MethodGet, "/health", nil)
	requireStatus(t, w, http.StatusOK)

	env := decode[HealthResponse](t, w)
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Contains(t, env.Data.Components, "database")
	assert.Contains(t, env.Data.Components, "search")
}

func TestShowcaseLifecycle(t *testing.T) {
	ts := setupTestServer(t, Options{})

	sc := createShowcase(t, ts, "u1", ShowcaseBody{
		Name:     "Rookie Cards",
		Theme:    "velvet",
		ItemIDs:  []string{"a", "b"},
		IsPublic: true,
	})
	assert.NotEmpty(t, sc.ID)
	assert.Equal(t, "u1", sc.OwnerID)
	assert.Equal(t, domain.ThemeVelvet, sc.Theme)

	// Anyone can view a public showcase.
	w := ts.do(t, http.MethodGet, "/api/v1/showcases/"+sc.ID, nil)
	requireStatus(t, w, http.StatusOK)
	view := decode[service.ShowcaseView](t, w).Data
	require.NotNil(t, view.Showcase)
	assert.Equal(t, "Rookie Cards", view.Showcase.Name)
	assert.Equal(t, "u1", view.OwnerID)

	w = ts.as(t, http.MethodGet, "/api/v1/showcases", "u1", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[ShowcaseListResponse](t, w).Data.Showcases, 1)

	name := "Rookie Cards 1952"
	w = ts.as(t, http.MethodPatch, "/api/v1/showcases/"+sc.ID, "u1", ShowcasePatchBody{Name: &name})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, name, decode[*domain.Showcase](t, w).Data.Name)

	w = ts.do(t, http.MethodGet, "/api/v1/public/showcases?limit=10", nil)
	requireStatus(t, w, http.StatusOK)
	page := decode[store.PaginatedResult[*domain.Showcase]](t, w).Data
	require.Len(t, page.Items, 1)
	assert.Equal(t, name, page.Items[0].Name)

	w = ts.as(t, http.MethodDelete, "/api/v1/showcases/"+sc.ID, "u1", nil)
	requireStatus(t, w, http.StatusNoContent)

	w = ts.do(t, http.MethodGet, "/api/v1/showcases/"+sc.ID, nil)
	requireStatus(t, w, http.StatusNotFound)
	env := decode[any](t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestShowcase_OwnerOnlyWrites(t *testing.T) {
	ts := setupTestServer(t, Options{})
	sc := createShowcase(t, ts, "u1", ShowcaseBody{Name: "Mine", ItemIDs: []string{"a"}})

	name := "Stolen"
	w := ts.as(t, http.MethodPatch, "/api/v1/showcases/"+sc.ID, "u2", ShowcasePatchBody{Name: &name})
	assert.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, w.Code, w.Body.String())

	w = ts.as(t, http.MethodDelete, "/api/v1/showcases/"+sc.ID, "u2", nil)
	assert.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, w.Code, w.Body.String())
}

func TestCreateShowcase_RequiresMember(t *testing.T) {
	ts := setupTestServer(t, Options{})
	body := ShowcaseBody{Name: "Nope"}

	tests := []struct {
		name   string
		header []string
	}{
		{name: "no credentials"},
		{name: "anonymous actor", header: []string{ActorHeader, service.NewAnonymousActorID()}},
		{name: "bad token", header: []string{"Authorization", "Bearer v4.local.garbage"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/v1/showcases", body, tt.header...)
			requireStatus(t, w, http.StatusUnauthorized)
			assert.Equal(t, "UNAUTHORIZED", decode[any](t, w).Code)
		})
	}
}

func TestActorMiddleware_RejectsBadTokens(t *testing.T) {
	ts := setupTestServer(t, Options{})
	sc := createShowcase(t, ts, "owner", ShowcaseBody{Name: "Chrome", ItemIDs: []string{"a"}, IsPublic: true})
	path := "/api/v1/showcases/" + sc.ID

	// A bad token is not downgraded to the anonymous actor beside it.
	w := ts.do(t, http.MethodGet, path, nil,
		"Authorization", "Bearer v4.local.garbage",
		ActorHeader, service.NewAnonymousActorID(),
	)
	requireStatus(t, w, http.StatusUnauthorized)
	assert.Equal(t, "UNAUTHORIZED", decode[any](t, w).Code)

	short, err := auth.NewTokenService(ts.tokenKey, time.Nanosecond)
	require.NoError(t, err)
	expired, err := short.GenerateAccessToken(auth.Identity{UserID: "u1"})
	require.NoError(t, err)
	time.Sleep(time.Second)

	w = ts.do(t, http.MethodGet, path, nil, "Authorization", "Bearer "+expired)
	requireStatus(t, w, http.StatusUnauthorized)
	env := decode[any](t, w)
	assert.Equal(t, "TOKEN_EXPIRED", env.Code)
	assert.Equal(t, EnvelopeVersion, env.Version)

	w = ts.do(t, http.MethodGet, path, nil)
	requireStatus(t, w, http.StatusOK)
}

func TestCreateShowcase_Validation(t *testing.T) {
	ts := setupTestServer(t, Options{})

	w := ts.as(t, http.MethodPost, "/api/v1/showcases", "u1", map[string]any{"name": ""})
	requireStatus(t, w, http.StatusUnprocessableEntity)
	env := decode[any](t, w)
	assert.Equal(t, "VALIDATION", env.Code)
}

func TestAnonymousLikeFlow(t *testing.T) {
	ts := setupTestServer(t, Options{})
	sc := createShowcase(t, ts, "owner", ShowcaseBody{Name: "Chrome", ItemIDs: []string{"a"}, IsPublic: true})

	w := ts.do(t, http.MethodPost, "/api/v1/actors/anonymous", nil)
	requireStatus(t, w, http.StatusCreated)
	anon := decode[AnonymousActorResponse](t, w).Data.ActorID
	require.True(t, domain.IsAnonymousID(anon))

	w = ts.do(t, http.MethodPut, "/api/v1/showcases/"+sc.ID+"/like", nil, ActorHeader, anon)
	requireStatus(t, w, http.StatusOK)
	state := decode[service.LikeState](t, w).Data
	assert.Equal(t, 1, state.Count)
	assert.True(t, state.HasLiked)

	w = ts.do(t, http.MethodGet, "/api/v1/showcases/"+sc.ID+"/likes", nil, ActorHeader, anon)
	requireStatus(t, w, http.StatusOK)
	assert.True(t, decode[service.LikeState](t, w).Data.HasLiked)

	// Another viewer sees the count but not the like.
	w = ts.do(t, http.MethodGet, "/api/v1/showcases/"+sc.ID+"/likes", nil)
	requireStatus(t, w, http.StatusOK)
	state = decode[service.LikeState](t, w).Data
	assert.Equal(t, 1, state.Count)
	assert.False(t, state.HasLiked)

	w = ts.do(t, http.MethodDelete, "/api/v1/showcases/"+sc.ID+"/like", nil, ActorHeader, anon)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, 0, decode[service.LikeState](t, w).Data.Count)
}

func TestLike_RequiresActor(t *testing.T) {
	ts := setupTestServer(t, Options{})
	sc := createShowcase(t, ts, "owner", ShowcaseBody{Name: "Chrome", ItemIDs: []string{"a"}, IsPublic: true})

	w := ts.do(t, http.MethodPut, "/api/v1/showcases/"+sc.ID+"/like", nil)
	requireStatus(t, w, http.StatusUnauthorized)

	// Malformed anonymous ids are ignored.
	w = ts.do(t, http.MethodPut, "/api/v1/showcases/"+sc.ID+"/like", nil, ActorHeader, "anon-")
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestComments(t *testing.T) {
	ts := setupTestServer(t, Options{})
	sc := createShowcase(t, ts, "owner", ShowcaseBody{Name: "Chrome", ItemIDs: []string{"a"}, IsPublic: true})
	path := "/api/v1/showcases/" + sc.ID + "/comments"

	w := ts.do(t, http.MethodPost, path, CommentBody{Text: "Love it"}, ActorHeader, service.NewAnonymousActorID())
	requireStatus(t, w, http.StatusForbidden)

	w = ts.as(t, http.MethodPost, path, "fan", CommentBody{Text: "Great collection!"})
	requireStatus(t, w, http.StatusCreated)
	comment := decode[domain.Comment](t, w).Data
	assert.Equal(t, "fan", comment.ActorID)
	assert.Equal(t, "Great collection!", comment.Text)

	w = ts.as(t, http.MethodPost, path, "fan", CommentBody{})
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestVisitAndShare(t *testing.T) {
	ts := setupTestServer(t, Options{})
	sc := createShowcase(t, ts, "owner", ShowcaseBody{Name: "Chrome", ItemIDs: []string{"a"}, IsPublic: true})

	w := ts.do(t, http.MethodPost, "/api/v1/showcases/"+sc.ID+"/visits", nil)
	requireStatus(t, w, http.StatusNoContent)

	w = ts.as(t, http.MethodPost, "/api/v1/showcases/"+sc.ID+"/share", "fan", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, sc.ID, decode[service.ShareResult](t, w).Data.ShowcaseID)

	w = ts.do(t, http.MethodPost, "/api/v1/showcases/"+sc.ID+"/share", nil, ActorHeader, service.NewAnonymousActorID())
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestPrivateShowcase_HiddenFromOthers(t *testing.T) {
	ts := setupTestServer(t, Options{})
	sc := createShowcase(t, ts, "u1", ShowcaseBody{Name: "secret", ItemIDs: []string{"a"}})
	base := "/api/v1/showcases/" + sc.ID
	anon := service.NewAnonymousActorID()

	t.Run("view", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, base+"?owner=u1", nil)
		requireStatus(t, w, http.StatusNotFound)
		w = ts.as(t, http.MethodGet, base+"?owner=u1", "u2", nil)
		requireStatus(t, w, http.StatusNotFound)

		w = ts.as(t, http.MethodGet, base+"?owner=u1", "u1", nil)
		requireStatus(t, w, http.StatusOK)
		assert.Equal(t, domain.LocationPrivate, decode[service.ShowcaseView](t, w).Data.Location)
	})

	t.Run("social", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, base+"/visits?owner=u1", nil)
		requireStatus(t, w, http.StatusNotFound)
		w = ts.as(t, http.MethodPost, base+"/comments?owner=u1", "u2", CommentBody{Text: "found it"})
		requireStatus(t, w, http.StatusNotFound)
		w = ts.do(t, http.MethodPut, base+"/like?owner=u1", nil, ActorHeader, anon)
		requireStatus(t, w, http.StatusNotFound)
	})

	t.Run("ensure public", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, base+"/ensure-public?owner=u1", nil)
		requireStatus(t, w, http.StatusForbidden)
		w = ts.as(t, http.MethodPost, base+"/ensure-public?owner=u1", "u2", nil)
		requireStatus(t, w, http.StatusForbidden)

		// Even the owner must publish explicitly.
		w = ts.as(t, http.MethodPost, base+"/ensure-public?owner=u1", "u1", nil)
		requireStatus(t, w, http.StatusNotFound)
		w = ts.as(t, http.MethodPost, base+"/ensure-public?owner=u1", testAdminID, nil)
		requireStatus(t, w, http.StatusNotFound)
	})

	w := ts.do(t, http.MethodGet, "/api/v1/public/showcases?limit=10", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Empty(t, decode[store.PaginatedResult[*domain.Showcase]](t, w).Data.Items)

	stored, err := ts.docs.Get(context.Background(), store.Doc("users", "u1", "showcases", sc.ID))
	require.NoError(t, err)
	visits, _ := stored.Field("visits")
	assert.EqualValues(t, 0, visits)
}

func TestWhoAmI(t *testing.T) {
	ts := setupTestServer(t, Options{})

	w := ts.as(t, http.MethodGet, "/api/v1/actors/me", testAdminID, nil)
	requireStatus(t, w, http.StatusOK)
	me := decode[ActorResponse](t, w).Data
	assert.Equal(t, testAdminID, me.ID)
	assert.True(t, me.Admin)
	assert.False(t, me.Anonymous)
	assert.Equal(t, 5, me.Reputation)

	anon := service.NewAnonymousActorID()
	w = ts.do(t, http.MethodGet, "/api/v1/actors/me", nil, ActorHeader, anon)
	requireStatus(t, w, http.StatusOK)
	me = decode[ActorResponse](t, w).Data
	assert.Equal(t, anon, me.ID)
	assert.True(t, me.Anonymous)
	assert.False(t, me.Admin)
}

func TestItemRoutes(t *testing.T) {
	ts := setupTestServer(t, Options{})

	w := ts.as(t, http.MethodPost, "/api/v1/items", "u1", ItemBody{Name: "1952 Topps Mantle", Tags: []string{"baseball"}})
	requireStatus(t, w, http.StatusCreated)
	it := decode[domain.Item](t, w).Data
	require.NotEmpty(t, it.ID)

	sc := createShowcase(t, ts, "u1", ShowcaseBody{Name: "Mantle", ItemIDs: []string{it.ID}, IsPublic: true})

	cond := "PSA 8"
	w = ts.as(t, http.MethodPatch, "/api/v1/items/"+it.ID, "u1", ItemPatchBody{Condition: &cond})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, cond, decode[domain.Item](t, w).Data.Condition)

	w = ts.as(t, http.MethodGet, "/api/v1/items", "u1", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, 1, decode[ItemListResponse](t, w).Data.Total)

	w = ts.as(t, http.MethodGet, "/api/v1/items/"+it.ID, "u2", nil)
	requireStatus(t, w, http.StatusNotFound)

	w = ts.as(t, http.MethodDelete, "/api/v1/items/"+it.ID, "u1", nil)
	requireStatus(t, w, http.StatusOK)
	report := decode[service.CascadeReport](t, w).Data
	assert.Equal(t, 1, report.ShowcasesUpdated)
	assert.Equal(t, 1, report.MirrorsUpdated)

	w = ts.do(t, http.MethodGet, "/api/v1/showcases/"+sc.ID, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Empty(t, decode[service.ShowcaseView](t, w).Data.Showcase.ItemIDs)

	w = ts.do(t, http.MethodGet, "/api/v1/items", nil)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestSearchRoute(t *testing.T) {
	ts := setupTestServer(t, Options{})
	sc := createShowcase(t, ts, "u1", ShowcaseBody{Name: "Vintage Hockey Legends", Tags: []string{"hockey"}, IsPublic: true})
	createShowcase(t, ts, "u1", ShowcaseBody{Name: "Secret Hockey Stash", Tags: []string{"hockey"}})

	w := ts.do(t, http.MethodGet, "/api/v1/search?q=hockey", nil)
	requireStatus(t, w, http.StatusOK)
	res := decode[search.SearchResult](t, w).Data
	require.Len(t, res.Hits, 1)
	assert.Equal(t, sc.ID, res.Hits[0].ID)

	w = ts.do(t, http.MethodGet, "/api/v1/search?sort=sideways", nil)
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestSearchRoute_Unavailable(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.services.Search = nil

	w := ts.do(t, http.MethodGet, "/api/v1/search?q=hockey", nil)
	requireStatus(t, w, http.StatusServiceUnavailable)
	assert.Equal(t, "UNAVAILABLE", decode[any](t, w).Code)
}

func TestAdminRoutes(t *testing.T) {
	ts := setupTestServer(t, Options{})
	createShowcase(t, ts, "u1", ShowcaseBody{Name: "Rookies", ItemIDs: []string{"a"}, IsPublic: true})

	w := ts.as(t, http.MethodPost, "/api/v1/admin/reconcile", "u1", ReconcileBody{DryRun: true})
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, "FORBIDDEN", decode[any](t, w).Code)

	w = ts.do(t, http.MethodPost, "/api/v1/admin/reconcile", ReconcileBody{DryRun: true})
	requireStatus(t, w, http.StatusUnauthorized)

	w = ts.as(t, http.MethodPost, "/api/v1/admin/reconcile", testAdminID, ReconcileBody{DryRun: true})
	requireStatus(t, w, http.StatusOK)
	report := decode[service.ReconcileReport](t, w).Data
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Examined)

	w = ts.as(t, http.MethodPost, "/api/v1/admin/search/reindex", testAdminID, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, 1, decode[ReindexResponse](t, w).Data.Indexed)
}

func TestSocialRateLimit(t *testing.T) {
	ts := setupTestServer(t, Options{HTTPRequestsPerMinute: 1, HTTPBurst: 1})
	sc := createShowcase(t, ts, "owner", ShowcaseBody{Name: "Chrome", ItemIDs: []string{"a"}, IsPublic: true})
	anon := service.NewAnonymousActorID()
	path := "/api/v1/showcases/" + sc.ID + "/like"

	w := ts.do(t, http.MethodPut, path, nil, ActorHeader, anon, "X-Forwarded-For", "203.0.113.7")
	requireStatus(t, w, http.StatusOK)

	w = ts.do(t, http.MethodPut, path, nil, ActorHeader, anon, "X-Forwarded-For", "203.0.113.7")
	requireStatus(t, w, http.StatusTooManyRequests)
	assert.Equal(t, "RATE_LIMITED", decode[any](t, w).Code)

	// Reads and other addresses are unaffected.
	w = ts.do(t, http.MethodPut, path, nil, ActorHeader, anon, "X-Forwarded-For", "203.0.113.8")
	requireStatus(t, w, http.StatusOK)
	w = ts.do(t, http.MethodGet, "/api/v1/showcases/"+sc.ID+"/likes", nil, "X-Forwarded-For", "203.0.113.7")
	requireStatus(t, w, http.StatusOK)
}
