package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pedido-service/internal/handler"
)

// RegisterProdutos mounts the catalog.  Reads go through the response
// cache; the handler purges it after each write.
func RegisterProdutos(e *echo.Echo, h *handler.ProductHandler, gate, cache echo.MiddlewareFunc) {
	g := e.Group("/produtos", gate)
	g.POST("", h.Create)
	g.GET("", h.List, cache)
	g.GET("/:id", h.Get, cache)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
