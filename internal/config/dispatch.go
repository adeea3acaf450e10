package config

import (
	"strings"
	"time"
)

// DispatchConfig configures the client that forwards pedidos to the
// external fulfillment queue.  The values are handed to dispatch.NewClient
// explicitly so the client never reads the environment itself.
type DispatchConfig struct {
	Endpoint        string        // POST target of the fulfillment queue
	Timeout         time.Duration // per-request timeout, covers connect and body
	CallbackBaseURL string        // base used to build callbackUrl (<base>/pedidos/<id>)
	Workers         int           // maximum concurrent dispatch calls per submission
}

// LoadDispatchConfig reads DISPATCH_* variables.
func LoadDispatchConfig() DispatchConfig {
	cfg := DispatchConfig{
		Endpoint:        envStr("DISPATCH_ENDPOINT", "http://localhost:4000/queue/items"),
		Timeout:         envDur("DISPATCH_TIMEOUT", 10*time.Second),
		CallbackBaseURL: strings.TrimSuffix(envStr("DISPATCH_CALLBACK_BASE_URL", "http://localhost:3000"), "/"),
		Workers:         envInt("DISPATCH_WORKERS", 4),
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}
