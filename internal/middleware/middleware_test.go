package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/sukha-pms/internal/config"
	"github.com/iliyamo/sukha-pms/internal/metrics"
	"github.com/iliyamo/sukha-pms/internal/model"
	"github.com/iliyamo/sukha-pms/internal/repository"
	"github.com/iliyamo/sukha-pms/internal/utils"
)

const testSecret = "middleware-secret"

type fakeUsers map[uint64]model.User

func (f fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	if id == 500 {
		return model.User{}, errors.New("db down")
	}
	u, ok := f[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

var users = fakeUsers{
	1: {ID: 1, Username: "admin", Role: model.RoleAdmin, IsActive: true},
	2: {ID: 2, Username: "frontdesk", Role: model.RoleReception, IsActive: true},
	3: {ID: 3, Username: "gone", Role: model.RoleManager, IsActive: false},
}

func bearer(t *testing.T, id uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, id, role, time.Hour, time.Now())
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoami(c echo.Context) error {
	u, _ := CurrentUser(c)
	return c.JSON(http.StatusOK, echo.Map{"id": u.ID, "role": u.Role})
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(testSecret, users))

	rec := serve(e, http.MethodGet, "/me", bearer(t, 2, model.RoleReception))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":2,"role":"reception"}`, rec.Body.String())

	cases := map[string]string{
		"no header":      "",
		"not bearer":     "Basic abc",
		"garbage":        "Bearer not.a.jwt",
		"unknown user":   bearer(t, 99, model.RoleAdmin),
		"inactive user":  bearer(t, 3, model.RoleManager),
		"foreign secret": func() string { tok, _ := utils.NewAccessToken("other", 1, model.RoleAdmin, time.Hour, time.Now()); return "Bearer " + tok.Token }(),
	}
	for name, auth := range cases {
		rec := serve(e, http.MethodGet, "/me", auth)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}

	rec = serve(e, http.MethodGet, "/me", bearer(t, 500, model.RoleAdmin))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestJWTAuth_RoleComesFromUserRecord(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(testSecret, users))

	// Token claims admin but the stored user is reception.
	rec := serve(e, http.MethodGet, "/me", bearer(t, 2, model.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":2,"role":"reception"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	auth := JWTAuth(testSecret, users)
	e.GET("/checkout", whoami, auth, RequireRole(model.RoleAdmin, model.RoleManager, model.RoleReception))
	e.GET("/users", whoami, auth, RequireRole(model.RoleAdmin))
	e.GET("/open", whoami, RequireRole(model.RoleAdmin))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/checkout", bearer(t, 2, model.RoleReception)).Code)
	rec := serve(e, http.MethodGet, "/users", bearer(t, 2, model.RoleReception))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/users", bearer(t, 1, model.RoleAdmin)).Code)

	// Without JWTAuth in front there is no user at all.
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/open", "").Code)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestTokenBucket(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "ip_route", Prefix: "rl",
	}
	e := echo.New()
	e.GET("/v1/units", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, zap.NewNop()))

	first := serve(e, http.MethodGet, "/v1/units", "")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/v1/units", "").Code)

	blocked := serve(e, http.MethodGet, "/v1/units", "")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestTokenBucket_DisabledOrNoRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, nil, zap.NewNop()))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", "").Code)
	}
}

func TestResponseCache_HitAndInvalidate(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20}, rdb, zap.NewNop())

	calls := 0
	e := echo.New()
	e.GET("/v1/units/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "calls": calls})
	}, rc.Middleware())

	miss := serve(e, http.MethodGet, "/v1/units/4", "")
	assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))
	hit := serve(e, http.MethodGet, "/v1/units/4", "")
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, miss.Body.String(), hit.Body.String())
	assert.Contains(t, hit.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
	assert.Equal(t, 1, calls)

	// Different path params are different entries.
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/v1/units/5", "").Header().Get("X-Cache"))

	require.NoError(t, rc.Invalidate(context.Background()))
	again := serve(e, http.MethodGet, "/v1/units/4", "")
	assert.Equal(t, "MISS", again.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestResponseCache_SkipsErrors(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache"}, rdb, zap.NewNop())

	calls := 0
	e := echo.New()
	e.GET("/v1/units/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unit not found"})
	}, rc.Middleware())

	serve(e, http.MethodGet, "/v1/units/9", "")
	serve(e, http.MethodGet, "/v1/units/9", "")
	assert.Equal(t, 2, calls)
}

func TestResponseCache_NilIsPassThrough(t *testing.T) {
	var rc *ResponseCache
	assert.NoError(t, rc.Invalidate(context.Background()))
	rc = NewResponseCache(config.CacheConfig{Enabled: true}, nil, zap.NewNop())
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, rc.Middleware())
	assert.Empty(t, serve(e, http.MethodGet, "/x", "").Header().Get("X-Cache"))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.New(prometheus.NewRegistry())

	e := echo.New()
	e.Use(RequestLogger(zap.New(core), m))
	e.GET("/v1/units/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	serve(e, http.MethodGet, "/v1/units/3", "")

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/v1/units/3", fields["uri"])
	assert.EqualValues(t, http.StatusNoContent, fields["status"])
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
}
