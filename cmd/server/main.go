package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/pedido-service/internal/config"
	"github.com/iliyamo/pedido-service/internal/database"
	"github.com/iliyamo/pedido-service/internal/dispatch"
	"github.com/iliyamo/pedido-service/internal/handler"
	"github.com/iliyamo/pedido-service/internal/logger"
	"github.com/iliyamo/pedido-service/internal/middleware"
	"github.com/iliyamo/pedido-service/internal/queue"
	"github.com/iliyamo/pedido-service/internal/repository"
	"github.com/iliyamo/pedido-service/internal/router"
	"github.com/iliyamo/pedido-service/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins

	cfg := config.Load()
	logger.Init(cfg.Env)
	log := logger.L()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("database unavailable", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DBMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.Error("migration failed", "err", err)
			os.Exit(1)
		}
	}

	cacheCfg := config.LoadCacheConfig()
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	products := repository.NewProductRepo(db)
	pedidos := repository.NewPedidoRepo(db)

	tokenSvc := service.NewTokenService(tokens, service.TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
	})

	dispatchCfg := config.LoadDispatchConfig()
	log.Info("dispatch configured", "endpoint", dispatchCfg.Endpoint, "workers", dispatchCfg.Workers, "timeout", dispatchCfg.Timeout.String())

	var events service.EventPublisher
	if ev := config.LoadEventsConfig(); ev.Enabled && ev.URL != "" {
		events = service.NewAMQPPublisher(ev.URL)
		if ev.Consumer {
			go queue.StartDispatchLogConsumer(ev.URL, ev.LogDir)
		}
	}
	pedidoSvc := service.NewPedidoService(products, pedidos, dispatch.NewClient(dispatchCfg), events, dispatchCfg.Workers)

	cols := config.LoadColumnsConfig()
	if err := repository.CheckUpdateColumns(cols); err != nil {
		log.Error("invalid update columns", "err", err)
		os.Exit(1)
	}
	e := router.New(router.Deps{
		Auth: handler.NewAuthHandler(users, tokenSvc, cfg.BcryptCost),
		Products: handler.NewProductHandler(products, cols.Produto, func(ctx context.Context) error {
			return middleware.InvalidateCache(ctx, rdb, cacheCfg.Prefix)
		}),
		Pedidos:   handler.NewPedidoHandler(pedidos, pedidoSvc, cols.Pedido),
		Gate:      tokenSvc,
		DB:        db,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     cacheCfg,
		Origins:   cfg.CORSOrigins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
}
