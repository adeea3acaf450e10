package middleware

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pedido-service/internal/model"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by JWTAuth, if any.
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(model.Identity)
	return id, ok
}

// UserID reads the authenticated user id from the echo context.  It is 0
// on routes outside the authenticated group.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get("user_id").(uint64); ok {
		return v
	}
	return 0
}

// userKey is the user component of rate limit keys.  The limiter runs
// before JWTAuth, so a valid Bearer token is verified here; requests
// without one share the "anon" bucket.
func userKey(c echo.Context, v AccessVerifier) string {
	if id := UserID(c); id != 0 {
		return strconv.FormatUint(id, 10)
	}
	if v == nil {
		return "anon"
	}
	raw := bearerToken(c)
	if raw == "" {
		return "anon"
	}
	if id, err := v.VerifyAccess(raw); err == nil && id.UserID != 0 {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
