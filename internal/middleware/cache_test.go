package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/pedido-service/internal/config"
)

func TestRedisCacheWithoutClientPassesThrough(t *testing.T) {
	e := echo.New()
	calls := 0
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true, Prefix: "cache:produtos"}, nil))
	e.GET("/produtos", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, []string{})
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/produtos", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, calls)
}

func TestCacheKeyDependsOnPathAndQuery(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache:produtos"}

	ctx := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/produtos/:id")
		return c
	}

	assert.NotEqual(t, CacheKey(cfg, ctx("/produtos/1")), CacheKey(cfg, ctx("/produtos/2")))
	assert.NotEqual(t, CacheKey(cfg, ctx("/produtos?page=1")), CacheKey(cfg, ctx("/produtos?page=2")))
	assert.Equal(t, CacheKey(cfg, ctx("/produtos/1")), CacheKey(cfg, ctx("/produtos/1")))
	assert.Regexp(t, `^cache:produtos:[0-9a-f]{40}$`, CacheKey(cfg, ctx("/produtos")))
}

func TestCaptureWriterStopsBufferingPastLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("def"))

	assert.True(t, cw.overflow)
	assert.Zero(t, cw.buf.Len())
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestInvalidateCacheNilClient(t *testing.T) {
	assert.NoError(t, InvalidateCache(context.Background(), nil, "cache:produtos"))
}
