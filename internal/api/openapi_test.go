package api

import (
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPI_RegistersRoutes(t *testing.T) {
	ts := setupTestServer(t, Options{})
	spec := ts.API().OpenAPI()

	for _, path := range []string{
		"/health",
		"/api/v1/showcases",
		"/api/v1/showcases/{id}",
		"/api/v1/showcases/{id}/like",
		"/api/v1/showcases/{id}/comments",
		"/api/v1/public/showcases",
		"/api/v1/items/{id}",
		"/api/v1/search",
		"/api/v1/admin/reconcile",
	} {
		assert.Contains(t, spec.Paths, path)
	}
	assert.Contains(t, spec.Components.SecuritySchemes, "bearer")
}

func TestHumatest_ActorHeaderFlowsThroughRouter(t *testing.T) {
	ts := setupTestServer(t, Options{})
	api := humatest.Wrap(t, ts.API())

	resp := api.Post("/api/v1/actors/anonymous")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	anon := decode[AnonymousActorResponse](t, resp).Data.ActorID

	resp = api.Get("/api/v1/actors/me", ActorHeader+": "+anon)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, anon, decode[ActorResponse](t, resp).Data.ID)

	resp = api.Get("/api/v1/actors/me", "Authorization: Bearer "+ts.token(t, "u9"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	me := decode[ActorResponse](t, resp).Data
	assert.Equal(t, "u9", me.ID)
	assert.Equal(t, "u9", me.DisplayName)
}
