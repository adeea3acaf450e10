package model

import "time"

// Product is a catalog entry ("produto") owned by exactly one user.  Block
// is the physical production-queue bucket forwarded to the fulfillment
// queue when a pedido for this product is dispatched.  JSON names follow
// the public API.
type Product struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"userId"`
	Size      string    `json:"tamanho"`
	Model     string    `json:"modelo"`
	Fabric    string    `json:"tecido"`
	Color     string    `json:"cor"`
	Pattern   string    `json:"estampa"`
	Block     string    `json:"bloco"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
