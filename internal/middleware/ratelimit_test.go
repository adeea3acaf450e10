package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/pedido-service/internal/config"
	"github.com/iliyamo/pedido-service/internal/model"
)

// tokenTable verifies tokens by lookup.
type tokenTable map[string]model.Identity

func (t tokenTable) VerifyAccess(raw string) (model.Identity, error) {
	if id, ok := t[raw]; ok {
		return id, nil
	}
	return model.Identity{}, errors.New("bad token")
}

func limitedServer(cfg config.RateLimitConfig) *echo.Echo {
	e := echo.New()
	e.Use(NewTokenBucket(cfg, nil, nil))
	e.GET("/produtos", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func hit(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/produtos", nil)
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucketFallsBackToLocalLimiter(t *testing.T) {
	e := limitedServer(config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
		Fallback:       true,
	})

	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)

	rec := hit(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.2").Code)
}

func TestTokenBucketDisabledWithoutRedisOrFallback(t *testing.T) {
	e := limitedServer(config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour})
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/pedidos", nil)
	req.Header.Set("X-Real-IP", "1.2.3.4")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/pedidos")
	c.Set("user_id", uint64(7))

	cfg := config.RateLimitConfig{Prefix: "rl"}
	assert.Equal(t, "rl:ip:1.2.3.4:user:7:route:POST /pedidos", buildRateKey(cfg, c, nil))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:7", buildRateKey(cfg, c, nil))
}

func TestBuildRateKeyVerifiesBearerToken(t *testing.T) {
	v := tokenTable{"good": {UserID: 42}}
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}

	for _, tc := range []struct {
		auth string
		want string
	}{
		{"Bearer good", "rl:user:42"},
		{"Bearer forged", "rl:user:anon"},
		{"", "rl:user:anon"},
	} {
		req := httptest.NewRequest(http.MethodGet, "/produtos", nil)
		if tc.auth != "" {
			req.Header.Set("Authorization", tc.auth)
		}
		c := echo.New().NewContext(req, httptest.NewRecorder())
		assert.Equal(t, tc.want, buildRateKey(cfg, c, v), tc.auth)
	}
}

func TestTokenBucketSeparatesUsersBehindOneIP(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "user",
		Prefix:         "rl",
		Fallback:       true,
	}, nil, tokenTable{"a": {UserID: 7}, "b": {UserID: 8}}))
	e.GET("/produtos", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	get := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/produtos", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("a"))
	assert.Equal(t, http.StatusTooManyRequests, get("a"))
	assert.Equal(t, http.StatusOK, get("b"))
}
