package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "pedidos")
	t.Setenv("JWT_ACCESS_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "r")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test, http://b.test,")

	cfg := Load()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.False(t, cfg.DBMigrate)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoadDispatchConfig(t *testing.T) {
	t.Setenv("DISPATCH_ENDPOINT", "http://queue.test/orders")
	t.Setenv("DISPATCH_TIMEOUT", "3s")

	cfg := LoadDispatchConfig()
	assert.Equal(t, "http://queue.test/orders", cfg.Endpoint)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 4, cfg.Workers)
}

func TestColumnSets(t *testing.T) {
	t.Setenv("PRODUTO_UPDATE_COLUMNS", "cor, bloco")
	cols := LoadColumnsConfig()

	_, ok := cols.Pedido.Allows([]string{"status", "userId", "createdAt", "updatedAt"})
	assert.True(t, ok)
	bad, ok := cols.Pedido.Allows([]string{"status", "total"})
	assert.False(t, ok)
	assert.Equal(t, "total", bad)

	_, ok = cols.Produto.Allows([]string{"cor", "bloco"})
	assert.True(t, ok)
	_, ok = cols.Produto.Allows([]string{"modelo"})
	assert.False(t, ok)

	_, ok = cols.Produto.Allows(nil)
	assert.True(t, ok)
}

func TestRateLimitClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "4")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
	assert.InDelta(t, 2.0, cfg.PerSecond(), 1e-9)
}
