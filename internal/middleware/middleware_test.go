package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"user_admin_backend/internal/common"
	"user_admin_backend/internal/config"
	"user_admin_backend/internal/directory"
	"user_admin_backend/internal/identity/identitytest"
	"user_admin_backend/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubOperators map[string]*directory.User

func (s stubOperators) GetUserByUID(_ context.Context, uid string) (*directory.User, error) {
	if uid == "broken" {
		return nil, &directory.StoreError{Op: "get", Err: errors.New("down")}
	}
	if u, ok := s[uid]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func setupAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	idp := identitytest.New()
	idp.IssueToken("admin-token", "admin-uid", "admin@example.com")
	idp.IssueToken("editor-token", "editor-uid", "editor@example.com")
	idp.IssueToken("stranger-token", "stranger-uid", "stranger@example.com")
	idp.IssueToken("broken-token", "broken", "broken@example.com")

	operators := stubOperators{
		"admin-uid":  {ID: "doc-admin", UserID: "admin-uid", Role: directory.RoleAdmin},
		"editor-uid": {ID: "doc-editor", UserID: "editor-uid", Role: directory.RoleEditor},
	}

	router := gin.New()
	authed := router.Group("", AuthMiddleware(idp, operators, zap.NewNop()))
	authed.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"uid":  common.GetFirebaseUIDFromContext(c),
			"id":   common.GetUserIDFromContext(c),
			"role": common.GetUserRoleFromContext(c),
		})
	})
	authed.GET("/admin", RoleAuthMiddleware(directory.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func get(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router := setupAuthRouter(t)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/whoami", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/whoami", "forged").Code)
	assert.Equal(t, http.StatusInternalServerError, get(router, "/whoami", "broken-token").Code)

	w := get(router, "/whoami", "admin-token")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "admin-uid", body["uid"])
	assert.Equal(t, "doc-admin", body["id"])
	assert.Equal(t, "admin", body["role"])

	w = get(router, "/whoami", "stranger-token")
	require.Equal(t, http.StatusOK, w.Code, "operators without a record are still authenticated")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "", body["role"])
}

func TestRoleAuthMiddleware(t *testing.T) {
	router := setupAuthRouter(t)

	assert.Equal(t, http.StatusNoContent, get(router, "/admin", "admin-token").Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/admin", "editor-token").Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/admin", "stranger-token").Code)
}

func TestRateLimiter_PerOperatorBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1, 2, zap.NewNop())
	defer rl.Stop()

	router := gin.New()
	router.POST("/create", func(c *gin.Context) {
		c.Set(common.FirebaseUIDKey, c.GetHeader("X-Operator"))
		c.Next()
	}, rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	post := func(op string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/create", nil)
		req.Header.Set("X-Operator", op)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, post("alice").Code)
	assert.Equal(t, http.StatusCreated, post("alice").Code)
	limited := post("alice")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusCreated, post("bob").Code, "buckets are per operator")
	assert.Equal(t, http.StatusUnauthorized, post("").Code)
	assert.Equal(t, 2, rl.LimiterCount())
}

func TestRateLimiter_CleanupEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(10, 1, zap.NewNop())
	defer rl.Stop()

	rl.get("alice")
	rl.cleanup(time.Now())
	assert.Equal(t, 1, rl.LimiterCount())

	rl.cleanup(time.Now().Add(3 * limiterCleanupInterval))
	assert.Equal(t, 0, rl.LimiterCount())
}

func TestErrorHandler_UnknownRouteAndAttachedErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler(zap.NewNop()))
	router.GET("/conflict", func(c *gin.Context) {
		_ = c.Error(common.ErrConflict.WithDetails("busy"))
	})
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})

	w := get(router, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")

	w = get(router, "/conflict", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = get(router, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestZapLogger_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ZapLogger(zap.NewNop(), &config.Config{GinMode: gin.TestMode}))
	router.GET("/ping", func(c *gin.Context) {
		_, hasLogger := c.Get(common.LoggerKey)
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString(RequestIDContextKey), "logger": hasLogger})
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.JSONEq(t, `{"request_id":"req-42","logger":true}`, w.Body.String())

	w = get(router, "/ping", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestZapLogger_LogsOperator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(ZapLogger(zap.New(core), &config.Config{GinMode: gin.TestMode}))
	router.GET("/ping", func(c *gin.Context) {
		c.Set(common.FirebaseUIDKey, "admin-uid")
		c.Set(common.UserIDKey, "record-1")
		c.Status(http.StatusOK)
	})
	get(router, "/ping", "")

	entries := logs.FilterMessage("Request handled").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "admin-uid", fields["operator_uid"])
	assert.Equal(t, "record-1", fields["operator_id"])
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	router := gin.New()
	router.Use(Metrics(collector))
	router.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	get(router, "/users/abc", "")
	get(router, "/users/def", "")

	w := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `route="/users/:id",status_code="200"} 2`)
}
