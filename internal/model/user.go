package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Email is unique, Name is empty when the column is NULL and
// PasswordHash (bcrypt) is never serialized.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// KindRefresh is the only token kind persisted server-side.  Access tokens
// are stateless.
const KindRefresh = "refresh"

// Token models an entry in the `tokens` table.  Only refresh tokens are
// stored, and only as the SHA‑256 hex digest of the signed token string.
// Rows are never deleted; Revoked flips on logout and ExpiresAt bounds
// their useful life.
type Token struct {
	ID        uint64    // tokens.id
	Token     string    // tokens.token (sha256 hex of the issued string)
	Kind      string    // tokens.type
	UserID    uint64    // tokens.user_id
	Revoked   bool      // tokens.revoked
	ExpiresAt time.Time // tokens.expires_at
	CreatedAt time.Time // tokens.created_at
}

// Usable reports whether the token can still renew or log out a session:
// not revoked and not yet expired at now.
func (t Token) Usable(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

// Identity is the authenticated caller as decoded from an access token.
type Identity struct {
	UserID uint64 `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}
