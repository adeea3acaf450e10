package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/pedido-service/internal/model"
)

// PedidoRepo provides persistence for pedidos and their item rows in
// `produtos_em_pedidos`.  All timestamps are stored in UTC.
type PedidoRepo struct {
	db *sql.DB
}

// NewPedidoRepo returns a new PedidoRepo bound to the given database.
func NewPedidoRepo(db *sql.DB) *PedidoRepo { return &PedidoRepo{db: db} }

// pedidoColumns maps API field names accepted by generic updates to columns.
var pedidoColumns = map[string]string{
	"status":    "status",
	"userId":    "user_id",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const pedidoSelect = "SELECT id, status, user_id, created_at, updated_at FROM pedidos"

// CreateWithItem inserts the pedido header and its single item row in one
// transaction, so a failure between the two writes never leaves a pedido
// without an item.  On success p.ID, timestamps and p.Items are populated.
func (r *PedidoRepo) CreateWithItem(ctx context.Context, p *model.Pedido, item model.PedidoItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, "INSERT INTO pedidos (status, user_id) VALUES (?, ?)", p.Status, p.UserID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	item.PedidoID = p.ID

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO produtos_em_pedidos (id_pedido, id_produto, quantidade) VALUES (?, ?, ?)",
		item.PedidoID, item.ProductID, item.Quantity); err != nil {
		return err
	}
	// Query back the header to populate defaults and timestamps
	if err := tx.QueryRowContext(ctx, pedidoSelect+" WHERE id = ?", p.ID).
		Scan(&p.ID, &p.Status, &p.UserID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	p.Items = []model.PedidoItem{item}
	return nil
}

// ListByUser returns the user's pedidos newest first, each with its items
// and their products.
func (r *PedidoRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Pedido, error) {
	rows, err := r.db.QueryContext(ctx, pedidoSelect+" WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Pedido{}
	for rows.Next() {
		var p model.Pedido
		if err := rows.Scan(&p.ID, &p.Status, &p.UserID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Items = []model.PedidoItem{}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns ErrNotFound when the pedido does not exist.
func (r *PedidoRepo) GetByID(ctx context.Context, id uint64) (*model.Pedido, error) {
	var p model.Pedido
	err := r.db.QueryRowContext(ctx, pedidoSelect+" WHERE id = ?", id).
		Scan(&p.ID, &p.Status, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Items = []model.PedidoItem{}
	list := []model.Pedido{p}
	if err := r.attachItems(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// attachItems loads the item rows (joined with produtos) for every pedido
// in list with a single query.
func (r *PedidoRepo) attachItems(ctx context.Context, list []model.Pedido) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[uint64]int, len(list))
	args := make([]any, 0, len(list))
	for i, p := range list {
		index[p.ID] = i
		args = append(args, p.ID)
	}
	q := `SELECT pep.id_pedido, pep.id_produto, pep.quantidade,
	             pr.id, pr.user_id, pr.tamanho, pr.modelo, pr.tecido, pr.cor, pr.estampa, pr.bloco, pr.created_at, pr.updated_at
	      FROM produtos_em_pedidos pep
	      JOIN produtos pr ON pr.id = pep.id_produto
	      WHERE pep.id_pedido IN (?` + strings.Repeat(",?", len(args)-1) + `)
	      ORDER BY pep.id_pedido, pep.id_produto`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it model.PedidoItem
		var pr model.Product
		if err := rows.Scan(&it.PedidoID, &it.ProductID, &it.Quantity,
			&pr.ID, &pr.UserID, &pr.Size, &pr.Model, &pr.Fabric, &pr.Color, &pr.Pattern, &pr.Block, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return err
		}
		it.Product = &pr
		if i, ok := index[it.PedidoID]; ok {
			list[i].Items = append(list[i].Items, it)
		}
	}
	return rows.Err()
}

// Update applies allow-listed fields and returns the stored pedido.
func (r *PedidoRepo) Update(ctx context.Context, id uint64, fields map[string]any) (*model.Pedido, error) {
	if err := applyUpdate(ctx, r.db, "pedidos", pedidoColumns, id, fields); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SetStatus overwrites the status.  No transition rules are enforced.
func (r *PedidoRepo) SetStatus(ctx context.Context, id uint64, status string) (*model.Pedido, error) {
	return r.Update(ctx, id, map[string]any{"status": status})
}

// Delete removes the pedido's item rows and then the pedido itself in one
// transaction.  ErrNotFound when the pedido does not exist; nothing is
// deleted in that case.
func (r *PedidoRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM produtos_em_pedidos WHERE id_pedido = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM pedidos WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
