package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"user-doc-service/internal/adapter/ratelimit"
	"user-doc-service/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/panic", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error","message":"An internal error occurred"}`, w.Body.String())
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		seen = logger.GetRequestID(c.Request.Context())
		assert.Equal(t, seen, c.GetString(RequestIDKey))
		c.Status(http.StatusNoContent)
	})

	t.Run("generated", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/", nil)

		assert.NotEmpty(t, seen)
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, w.Header().Get(logger.RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/", map[string]string{logger.RequestIDHeader: "req-123"})

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", w.Header().Get(logger.RequestIDHeader))
	})
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	perform(r, http.MethodGet, "/ok?page=2", map[string]string{logger.RequestIDHeader: "abc"})
	perform(r, http.MethodGet, "/missing", nil)
	perform(r, http.MethodGet, "/fail", nil)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/ok?page=2", fields["path"])
	assert.Equal(t, int64(200), fields["status"])
	assert.Equal(t, "abc", fields["request_id"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func newLimitedRouter(t *testing.T, cfg ratelimit.Config) (*gin.Engine, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zaptest.NewLogger(t)
	r := gin.New()
	r.Use(RateLimit(ratelimit.New(client, cfg, log), log))
	r.GET("/v1/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/v1/users", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, mr
}

func TestRateLimit_ExceedLimit(t *testing.T) {
	r, _ := newLimitedRouter(t, ratelimit.Config{Enabled: true, RequestsPerSecond: 1, Burst: 2})

	for i := 0; i < 2; i++ {
		w := perform(r, http.MethodGet, "/v1/users/65f1a2b3c4d5e6f708091a2b", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	// a different id hits the same route bucket
	w := perform(r, http.MethodGet, "/v1/users/65f1a2b3c4d5e6f708091a2c", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	w = perform(r, http.MethodGet, "/v1/users", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	r, _ := newLimitedRouter(t, ratelimit.Config{Enabled: false, RequestsPerSecond: 1, Burst: 1})

	for i := 0; i < 5; i++ {
		w := perform(r, http.MethodGet, "/v1/users", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_RedisDownFailsOpen(t *testing.T) {
	r, mr := newLimitedRouter(t, ratelimit.Config{Enabled: true, RequestsPerSecond: 1, Burst: 1})
	mr.Close()

	for i := 0; i < 3; i++ {
		w := perform(r, http.MethodGet, "/v1/users", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
	}
}
