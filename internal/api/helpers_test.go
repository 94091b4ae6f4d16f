package api

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/showcase-server/internal/auth"
	"github.com/listenupapp/showcase-server/internal/search"
	"github.com/listenupapp/showcase-server/internal/service"
	"github.com/listenupapp/showcase-server/internal/store"
	"github.com/listenupapp/showcase-server/internal/store/sqlite"
)

const testAdminID = "admin-1"

type testServer struct {
	*Server
	docs     store.DocumentStore
	tokens   *auth.TokenService
	tokenKey string
}

// setupTestServer creates a test server backed by a temporary sqlite store.
func setupTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	docs, err := sqlite.Open(filepath.Join(dir, "test.db"), logger, store.Options{
		ReadOnlyCollections: []string{service.LegacyCollection},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	key, err := auth.GenerateKey()
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	index, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(dir, "search"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	cfg := service.DefaultEngineConfig()
	locator := service.NewLocator(docs, logger)
	fetcher := service.NewItemFetcher(docs, cfg, logger)
	mirror := service.NewMirrorSync(docs, cfg, logger)
	ledger := service.NewLikeLedger(docs, locator, mirror, logger)
	guard := service.NewAbuseGuard(docs, logger)
	searchSvc := service.NewSearchService(index, docs, logger)
	mirror.SetIndexer(searchSvc)

	services := &Services{
		Showcases: service.NewShowcaseService(docs, locator, fetcher, mirror, ledger, guard, cfg, logger),
		Items:     service.NewItemService(docs, fetcher, logger),
		Mirror:    mirror,
		Reconcile: service.NewReconcileService(docs, locator, mirror, ledger, logger),
		Search:    searchSvc,
		Tokens:    tokens,
	}

	if len(opts.AdminUserIDs) == 0 {
		opts.AdminUserIDs = []string{testAdminID}
	}
	srv := NewServer(docs, services, opts, logger)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, docs: docs, tokens: tokens, tokenKey: key}
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := ts.tokens.GenerateAccessToken(auth.Identity{UserID: userID, DisplayName: userID})
	require.NoError(t, err)
	return tok
}

// do sends a request through the router. header pairs are name, value.
func (ts *testServer) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.MarshalWrite(&buf, body))
	}
	req := httptest.NewRequestWithContext(context.Background(), method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)
	return w
}

func (ts *testServer) as(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.do(t, method, path, body, "Authorization", "Bearer "+ts.token(t, userID))
}

type envelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

var _ http.Handler = (*Server)(nil)
