package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/pedido-service/internal/model"
)

// TokenRepo persists refresh tokens in the `tokens` table.  The token
// column holds the SHA‑256 digest of the issued string, so lookups by
// digest are exact-string lookups.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a token row and sets its ID.
func (r *TokenRepo) Store(ctx context.Context, t *model.Token) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tokens (token, type, user_id, revoked, expires_at) VALUES (?,?,?,?,?)",
		t.Token, t.Kind, t.UserID, t.Revoked, t.ExpiresAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// FindByToken looks a row up by digest.  An empty kind matches any kind.
// Returns ErrNotFound when no row matches; revocation and expiry are left
// to the caller.
func (r *TokenRepo) FindByToken(ctx context.Context, digest, kind string) (model.Token, error) {
	q := "SELECT id, token, type, user_id, revoked, expires_at, created_at FROM tokens WHERE token=?"
	args := []any{digest}
	if kind != "" {
		q += " AND type=?"
		args = append(args, kind)
	}
	q += " LIMIT 1"

	var t model.Token
	err := r.DB.QueryRowContext(ctx, q, args...).
		Scan(&t.ID, &t.Token, &t.Kind, &t.UserID, &t.Revoked, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Token{}, ErrNotFound
	}
	return t, err
}

// Revoke marks a token as revoked.
func (r *TokenRepo) Revoke(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE tokens SET revoked=TRUE WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
