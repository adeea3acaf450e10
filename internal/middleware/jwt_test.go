package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pedido-service/internal/model"
)

type stubVerifier struct {
	token string
	id    model.Identity
	calls int
}

func (s *stubVerifier) VerifyAccess(raw string) (model.Identity, error) {
	s.calls++
	if raw != s.token {
		return model.Identity{}, errors.New("bad token")
	}
	return s.id, nil
}

func runGate(t *testing.T, v AccessVerifier, header string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/pedidos", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, JWTAuth(v)(h)(c))
	return rec
}

func TestJWTAuthMissingToken(t *testing.T) {
	v := &stubVerifier{token: "good"}
	for _, header := range []string{"", "Basic abc", "Bearer ", "bearer good"} {
		rec := runGate(t, v, header, func(c echo.Context) error {
			t.Fatal("handler must not run")
			return nil
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.JSONEq(t, `{"error":"missing token"}`, rec.Body.String())
	}
	assert.Zero(t, v.calls)
}

func TestJWTAuthInvalidToken(t *testing.T) {
	rec := runGate(t, &stubVerifier{token: "good"}, "Bearer forged", func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
}

func TestJWTAuthAttachesIdentity(t *testing.T) {
	want := model.Identity{UserID: 12, Email: "ana@example.com", Name: "Ana"}
	rec := runGate(t, &stubVerifier{token: "good", id: want}, "Bearer good", func(c echo.Context) error {
		assert.Equal(t, uint64(12), UserID(c))
		assert.Equal(t, "ana@example.com", c.Get("email"))
		assert.Equal(t, "Ana", c.Get("name"))
		assert.Equal(t, want, c.Get("identity"))

		got, ok := IdentityFrom(c.Request().Context())
		assert.True(t, ok)
		assert.Equal(t, want, got)
		return c.NoContent(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUserIDOutsideGate(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Zero(t, UserID(c))
	assert.Equal(t, "anon", userKey(c, nil))
}
