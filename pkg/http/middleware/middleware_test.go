package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	applogger "TrendPulse/pkg/logger"
)

type stubLimiter struct {
	allow bool
	retry time.Duration
	keys  []string
}

func (s *stubLimiter) Allow(key string) (bool, time.Duration) {
	s.keys = append(s.keys, key)
	return s.allow, s.retry
}

func serve(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.7")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit(t *testing.T) {
	lim := &stubLimiter{retry: 300 * time.Millisecond}
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, RateLimit(lim))

	rec := serve(e, "/")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, []string{"203.0.113.7"}, lim.keys)

	lim.allow = true
	rec = serve(e, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoverLogsPanic(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(Recover(applogger.NewWithWriter(&buf, zerolog.DebugLevel)))
	e.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := serve(e, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "kaboom")
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestRequestLoggingAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	l := applogger.NewWithWriter(&buf, zerolog.InfoLevel)
	e := echo.New()
	e.Use(RequestLogging(l))
	e.Use(Metrics(l, time.Nanosecond))
	e.GET("/items/:id", func(c echo.Context) error { return c.String(http.StatusOK, c.Param("id")) })
	e.GET("/missing", func(echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "gone") })

	rec := serve(e, "/items/42")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), `"route":"/items/:id"`)
	assert.Contains(t, buf.String(), `"uri":"/items/42"`)

	rec = serve(e, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `"status":404`)
}

func corsRequest(e *echo.Echo, method, origin string, preflight bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	if preflight {
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORSPreflight(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins: []string{"https://example.com"},
		AllowMethods: []string{http.MethodGet},
		MaxAge:       10 * time.Minute,
	}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := corsRequest(e, http.MethodOptions, "https://example.com", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, http.MethodGet, rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))

	rec = corsRequest(e, http.MethodGet, "https://example.com", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods))
}

func TestCORSIgnoresOtherOrigins(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{AllowOrigins: []string{"https://example.com"}}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := corsRequest(e, http.MethodGet, "https://evil.example", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, echo.HeaderOrigin, rec.Header().Get(echo.HeaderVary))

	rec = corsRequest(e, http.MethodGet, "", false)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestCORSWildcard(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{AllowOrigins: []string{"*"}}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := corsRequest(e, http.MethodGet, "https://anyone.example", false)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
