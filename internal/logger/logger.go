// Package logger owns the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu  sync.RWMutex
	log *slog.Logger
)

// Init installs the default logger.  Development environments get a
// readable text handler at debug level; everything else logs JSON at info.
func Init(env string) {
	InitWriter(env, os.Stdout)
}

// InitWriter is Init with an explicit destination.
func InitWriter(env string, w io.Writer) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	switch env {
	case "dev", "development", "local":
		opts.Level = slog.LevelDebug
		opts.AddSource = true
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(handler)
	mu.Lock()
	log = l
	mu.Unlock()
	slog.SetDefault(l)
}

// L returns the process logger, initializing a development logger if Init
// has not been called (tests, tools).
func L() *slog.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		Init("dev")
		return L()
	}
	return l
}

// With returns a child logger carrying args.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
