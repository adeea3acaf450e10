package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pedido-service/internal/handler"
)

// RegisterPedidos mounts the order endpoints.  PATCH /pedidos/:id is the
// callback URL given to the fulfillment queue, so it stays public.
func RegisterPedidos(e *echo.Echo, h *handler.PedidoHandler, gate echo.MiddlewareFunc) {
	e.PATCH("/pedidos/:id", h.UpdateStatus)

	e.POST("/pedidos", h.Create, gate)
	e.GET("/pedidos", h.List, gate)
	e.GET("/pedidos/:id", h.Get, gate)
	e.PUT("/pedidos/:id", h.Update, gate)
	e.DELETE("/pedidos/:id", h.Delete, gate)
}
