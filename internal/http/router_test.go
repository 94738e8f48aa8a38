package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformmetrics "scholarops/internal/platform/metrics"
	"scholarops/pkg/platform/httputil"
	"scholarops/pkg/requestcontext"
	"scholarops/pkg/testutil"
)

type echoHandler struct{}

func (echoHandler) Register(r chi.Router) {
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"actor_id":   requestcontext.ActorID(ctx),
			"request_id": requestcontext.RequestID(ctx),
		})
	})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("exploded")
	})
}

func newTestRouter(checks map[string]HealthCheck) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(logger, platformmetrics.New(), checks, echoHandler{})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		router := newTestRouter(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, map[string]any{"postgres": "ok"}, body["checks"])
	})

	t.Run("failing dependency degrades", func(t *testing.T) {
		router := newTestRouter(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "degraded", body["status"])
		checks := body["checks"].(map[string]any)
		assert.Equal(t, "connection refused", checks["redis"])
		assert.Equal(t, "ok", checks["postgres"])
	})
}

func TestMiddlewareChain(t *testing.T) {
	router := newTestRouter(nil)

	t.Run("request and actor ids reach handlers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-Request-ID", "req-42")
		req.Header.Set("X-Actor-ID", "officer-7")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
		body := decode(t, rec)
		assert.Equal(t, "officer-7", body["actor_id"])
		assert.Equal(t, "req-42", body["request_id"])
	})

	t.Run("actor already on the context is kept without a header", func(t *testing.T) {
		req := testutil.WithActor(httptest.NewRequest(http.MethodGet, "/whoami", nil), "batch-runner")
		rec, body := testutil.DoJSON(t, router, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "batch-runner", body["actor_id"])
	})

	t.Run("request id is minted when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("panics become internal errors", func(t *testing.T) {
		rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/boom", nil))
		testutil.AssertStatusAndError(t, rec, http.StatusInternalServerError, "internal_error")
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "scholarops_http_requests_total")
	})
}
