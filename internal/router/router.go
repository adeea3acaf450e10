// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/pedido-service/internal/config"
	"github.com/iliyamo/pedido-service/internal/handler"
	"github.com/iliyamo/pedido-service/internal/logger"
	"github.com/iliyamo/pedido-service/internal/middleware"
	"github.com/iliyamo/pedido-service/internal/validator"
)

// Deps is everything the HTTP surface needs.  Redis may be nil.
type Deps struct {
	Auth      *handler.AuthHandler
	Products  *handler.ProductHandler
	Pedidos   *handler.PedidoHandler
	Gate      middleware.AccessVerifier
	DB        handler.Pinger
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Origins   []string
}

// New builds the Echo instance: ambient middleware first, then public
// routes, then everything behind the access token gate.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.Origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Gate))

	gate := middleware.JWTAuth(d.Gate)

	RegisterRoutes(e, d.DB)
	RegisterAuth(e, d.Auth, gate)
	RegisterProdutos(e, d.Products, gate, middleware.NewRedisCache(d.Cache, d.Redis))
	RegisterPedidos(e, d.Pedidos, gate)
	return e
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the session endpoints.  Only /users/me needs an
// access token; logout is authorized by the refresh token in the body.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gate echo.MiddlewareFunc) {
	e.POST("/register", a.Register)
	e.POST("/login", a.Login)
	e.POST("/refresh", a.Refresh)
	e.POST("/logout", a.Logout)

	e.GET("/users/me", a.Me, gate)
}

func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError || v.Error != nil {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}
			logger.L().LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}
