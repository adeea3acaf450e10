package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/pedido-service/internal/model"
)

// ProductRepo encapsulates queries against the `produtos` table.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productSelect = "SELECT id, user_id, tamanho, modelo, tecido, cor, estampa, bloco, created_at, updated_at FROM produtos"

// productColumns maps API field names to columns for generic updates.
var productColumns = map[string]string{
	"tamanho": "tamanho",
	"modelo":  "modelo",
	"tecido":  "tecido",
	"cor":     "cor",
	"estampa": "estampa",
	"bloco":   "bloco",
}

type rowScanner interface{ Scan(dest ...any) error }

func scanProduct(s rowScanner, p *model.Product) error {
	return s.Scan(&p.ID, &p.UserID, &p.Size, &p.Model, &p.Fabric, &p.Color, &p.Pattern, &p.Block, &p.CreatedAt, &p.UpdatedAt)
}

// Create inserts a product and reloads it so timestamps are populated.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	const q = "INSERT INTO produtos (user_id, tamanho, modelo, tecido, cor, estampa, bloco) VALUES (?,?,?,?,?,?,?)"
	res, err := r.db.ExecContext(ctx, q, p.UserID, p.Size, p.Model, p.Fabric, p.Color, p.Pattern, p.Block)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// GetByID returns ErrNotFound when the product does not exist.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var p model.Product
	if err := scanProduct(r.db.QueryRowContext(ctx, productSelect+" WHERE id = ?", id), &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns the whole catalog ordered by id.
func (r *ProductRepo) List(ctx context.Context) ([]model.Product, error) {
	return r.query(ctx, productSelect+" ORDER BY id")
}

// FindByIDs loads every product whose id is in ids with one query.  Ids
// without a row are simply absent from the result.
func (r *ProductRepo) FindByIDs(ctx context.Context, ids []uint64) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := productSelect + " WHERE id IN (?" + strings.Repeat(",?", len(ids)-1) + ") ORDER BY id"
	return r.query(ctx, q, args...)
}

func (r *ProductRepo) query(ctx context.Context, q string, args ...any) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update applies fields (API names, already allow-listed by the caller)
// and returns the stored row.
func (r *ProductRepo) Update(ctx context.Context, id uint64, fields map[string]any) (*model.Product, error) {
	if err := applyUpdate(ctx, r.db, "produtos", productColumns, id, fields); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a product.  ErrConflict when a pedido still references it.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM produtos WHERE id = ?", id)
	if err != nil {
		if isReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
