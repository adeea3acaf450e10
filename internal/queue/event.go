// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// DispatchedQueue is the durable queue carrying PedidoDispatchedEvent.
const DispatchedQueue = "pedido.dispatched"

// PedidoDispatchedEvent is published once per pedido after the fulfillment
// queue has been called, whatever the outcome.  OK mirrors the per-item
// result returned to the caller.
type PedidoDispatchedEvent struct {
	PedidoID     uint64 `json:"pedido_id"`
	UserID       uint64 `json:"user_id"`
	ProductID    uint64 `json:"product_id"`
	Block        string `json:"block"`
	Quantity     int    `json:"quantity"`
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
	DispatchedAt string `json:"dispatched_at"`
}
