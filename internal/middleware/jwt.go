package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pedido-service/internal/model"
)

// AccessVerifier checks an access token and returns who it was issued to.
type AccessVerifier interface {
	VerifyAccess(raw string) (model.Identity, error)
}

// JWTAuth guards a route group with a Bearer access token.  It never
// touches the database: the signed claims are the identity.  On success
// handlers can read c.Get("user_id") (uint64), "email", "name" and
// "identity", and the request context carries the same identity.
func JWTAuth(v AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
			}

			id, err := v.VerifyAccess(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set("user_id", id.UserID)
			c.Set("email", id.Email)
			c.Set("name", id.Name)
			c.Set("identity", id)
			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
			return next(c)
		}
	}
}

// bearerToken returns the token of an "Authorization: Bearer" header, or
// "" when there is none.
func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
