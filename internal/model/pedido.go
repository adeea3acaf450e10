package model

import "time"

// StatusReceived is the status a pedido gets when the caller supplies none.
const StatusReceived = "PEDIDO_RECEBIDO"

// Pedido is one materialized unit of work for a single catalog item.  A
// submission with N distinct products yields N pedidos, each with exactly
// one PedidoItem at creation time.  Status is free-form.
type Pedido struct {
	ID        uint64       `json:"id"`
	Status    string       `json:"status"`
	UserID    uint64       `json:"userId"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Items     []PedidoItem `json:"produtosEmPedidos"`
}

// PedidoItem is a row of `produtos_em_pedidos`, binding one pedido to one
// product with a quantity of at least 1.  Product is populated on reads.
type PedidoItem struct {
	PedidoID  uint64   `json:"id_pedido"`
	ProductID uint64   `json:"id_produto"`
	Quantity  int      `json:"quantidade"`
	Product   *Product `json:"produto,omitempty"`
}
