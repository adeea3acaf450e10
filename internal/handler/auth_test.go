package handler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pedido-service/internal/apperrors"
	"github.com/iliyamo/pedido-service/internal/model"
	"github.com/iliyamo/pedido-service/internal/repository"
	"github.com/iliyamo/pedido-service/internal/service"
	"github.com/iliyamo/pedido-service/internal/utils"
)

type memUsers struct {
	byEmail map[string]model.User
}

func (m *memUsers) Create(_ context.Context, email, name, password string, cost int) (model.User, error) {
	if _, ok := m.byEmail[email]; ok {
		return model.User{}, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{ID: uint64(len(m.byEmail) + 1), Email: email, Name: name, PasswordHash: hash}
	m.byEmail[email] = u
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return model.User{}, sql.ErrNoRows
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

type stubTokens struct {
	revoked map[string]bool
}

func (s *stubTokens) IssuePair(_ context.Context, u model.User) (service.TokenPair, error) {
	return service.TokenPair{
		Access:  utils.SignedToken{Token: "access-for-" + u.Email},
		Refresh: utils.SignedToken{Token: "refresh-for-" + u.Email},
	}, nil
}

func (s *stubTokens) Renew(_ context.Context, raw string) (utils.SignedToken, error) {
	if s.revoked[raw] || raw == "unknown" {
		return utils.SignedToken{}, apperrors.Unauthorized("invalid refresh token")
	}
	return utils.SignedToken{Token: "renewed"}, nil
}

func (s *stubTokens) Revoke(_ context.Context, raw string) error {
	if s.revoked[raw] || raw == "unknown" {
		return apperrors.Unauthorized("invalid refresh token")
	}
	s.revoked[raw] = true
	return nil
}

func newAuth() *AuthHandler {
	return NewAuthHandler(&memUsers{byEmail: map[string]model.User{}}, &stubTokens{revoked: map[string]bool{}}, 4)
}

func TestRegisterAndLogin(t *testing.T) {
	h := newAuth()

	rec := call(t, h.Register, http.MethodPost, "/register", `{"email":"Ana@Example.com","password":"s3cret","name":"Ana"}`, 0)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":1,"email":"ana@example.com","name":"Ana"}`, rec.Body.String())

	rec = call(t, h.Register, http.MethodPost, "/register", `{"email":"ana@example.com","password":"x"}`, 0)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, h.Login, http.MethodPost, "/login", `{"email":"ana@example.com","password":"s3cret"}`, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"accessToken":"access-for-ana@example.com",
		"refreshToken":"refresh-for-ana@example.com",
		"user":{"id":1,"email":"ana@example.com","name":"Ana"}
	}`, rec.Body.String())

	rec = call(t, h.Login, http.MethodPost, "/login", `{"email":"ana@example.com","password":"wrong"}`, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, h.Login, http.MethodPost, "/login", `{"email":"nobody@example.com","password":"x"}`, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterRequiresCredentials(t *testing.T) {
	rec := call(t, newAuth().Register, http.MethodPost, "/register", `{"email":"ana@example.com"}`, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"E-mail e senha são obrigatórios."}`, rec.Body.String())
}

func TestRefreshAndLogout(t *testing.T) {
	h := newAuth()

	rec := call(t, h.Refresh, http.MethodPost, "/refresh", `{}`, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h.Refresh, http.MethodPost, "/refresh", `{"refreshToken":"r1"}`, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accessToken":"renewed"}`, rec.Body.String())

	rec = call(t, h.Logout, http.MethodPost, "/logout", `{"refreshToken":"r1"}`, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Usuário deslogado!"}`, rec.Body.String())

	rec = call(t, h.Refresh, http.MethodPost, "/refresh", `{"refreshToken":"r1"}`, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid refresh token"}`, rec.Body.String())

	rec = call(t, h.Logout, http.MethodPost, "/logout", `{"refreshToken":"r1"}`, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, h.Logout, http.MethodPost, "/logout", ``, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe(t *testing.T) {
	h := newAuth()
	call(t, h.Register, http.MethodPost, "/register", `{"email":"bo@example.com","password":"pw","name":"Bo"}`, 0)

	rec := call(t, h.Me, http.MethodGet, "/users/me", "", 1)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"email":"bo@example.com","name":"Bo"}`, rec.Body.String())

	rec = call(t, h.Me, http.MethodGet, "/users/me", "", 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
