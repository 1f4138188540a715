package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growermarket/internal/core/apperror"
	appctx "growermarket/internal/core/context"
	"growermarket/internal/infrastructure/cache"
	"growermarket/internal/infrastructure/http/v1/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator map[string]*appctx.UserContext

func (v stubValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if u, ok := v[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

var validator = stubValidator{
	"admin":  {UserID: "a1", IsAdmin: true},
	"grower": {UserID: "g1", GrowerID: "grower-1", Roles: []string{appctx.RoleGrower}},
	"nobody": {UserID: "n1"},
}

func newEngine(extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.ErrorHandler())
	r.Use(extra...)
	return r
}

func serve(r *gin.Engine, method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Code
}

func TestAuth(t *testing.T) {
	r := newEngine(middleware.Auth(validator))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetUserID(c.Request.Context()))
	})

	w := serve(r, http.MethodGet, "/me", "grower", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "g1", w.Body.String())

	w = serve(r, http.MethodGet, "/me", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperror.CodeUnauthorized, errorCode(t, w))

	w = serve(r, http.MethodGet, "/me", "", "", map[string]string{"Authorization": "Basic abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/me", "forged", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	r := newEngine(middleware.Auth(validator), middleware.RequireRole(appctx.RoleGrower))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/x", "grower", "", nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/x", "admin", "", nil).Code)

	w := serve(r, http.MethodGet, "/x", "nobody", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperror.CodeForbidden, errorCode(t, w))
}

func TestErrorHandler_HidesUnknownErrors(t *testing.T) {
	r := newEngine()
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: relation does not exist"))
	})

	w := serve(r, http.MethodGet, "/boom", "", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "relation")
}

func TestErrorHandler_RendersAppError(t *testing.T) {
	r := newEngine()
	r.GET("/conflict", func(c *gin.Context) {
		_ = c.Error(apperror.NewAlreadyProcessed("stock request", "r1", "APPROVED"))
	})

	w := serve(r, http.MethodGet, "/conflict", "", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var body struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperror.CodeAlreadyProcessed, body.Code)
	assert.Equal(t, "APPROVED", body.Details["status"])
}

func TestRecovery(t *testing.T) {
	r := newEngine()
	r.GET("/panic", func(c *gin.Context) { panic("nil map") })

	w := serve(r, http.MethodGet, "/panic", "", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, errorCode(t, w))
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewIdempotencyStore(client, 0)

	calls := 0
	r := newEngine(middleware.Auth(validator), middleware.Idempotency(store))
	r.POST("/submit", func(c *gin.Context) {
		calls++
		resp := gin.H{"call": calls}
		middleware.CompleteIdempotency(c, http.StatusCreated, "application/json", resp)
		c.JSON(http.StatusCreated, resp)
	})

	headers := map[string]string{middleware.HeaderIdempotencyKey: "k-1"}
	first := serve(r, http.MethodPost, "/submit", "grower", `{"n":1}`, headers)
	second := serve(r, http.MethodPost, "/submit", "grower", `{"n":1}`, headers)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	w := serve(r, http.MethodPost, "/submit", "grower", `{"n":2}`, headers)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, calls)

	serve(r, http.MethodPost, "/submit", "grower", `{"n":1}`, nil)
	assert.Equal(t, 2, calls)
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewIdempotencyStore(client, 0)

	calls := 0
	r := newEngine(middleware.Auth(validator), middleware.Idempotency(store))
	r.POST("/submit", func(c *gin.Context) {
		calls++
		if calls == 1 {
			panic("ledger unavailable")
		}
		middleware.CompleteIdempotency(c, http.StatusCreated, "application/json", gin.H{"ok": true})
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	headers := map[string]string{middleware.HeaderIdempotencyKey: "k-panic"}
	first := serve(r, http.MethodPost, "/submit", "grower", `{}`, headers)
	assert.Equal(t, http.StatusInternalServerError, first.Code)

	retry := serve(r, http.MethodPost, "/submit", "grower", `{}`, headers)
	assert.Equal(t, http.StatusCreated, retry.Code, retry.Body.String())
	assert.Equal(t, 2, calls)
}

func TestTrace_EchoesAndGeneratesIDs(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Trace())
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetRequestID(c.Request.Context()))
	})

	w := serve(r, http.MethodGet, "/x", "", "", map[string]string{middleware.HeaderRequestID: "req-42"})
	assert.Equal(t, "req-42", w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(middleware.HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderTraceID))

	w = serve(r, http.MethodGet, "/x", "", "", nil)
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(middleware.HeaderRequestID))
}

func TestIdempotency_NilStorePassesThrough(t *testing.T) {
	r := newEngine(middleware.Idempotency(nil))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	w := serve(r, http.MethodPost, "/x", "", "{}", map[string]string{middleware.HeaderIdempotencyKey: "k"})
	assert.Equal(t, http.StatusAccepted, w.Code)
}
