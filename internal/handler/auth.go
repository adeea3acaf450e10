package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pedido-service/internal/apperrors"
	"github.com/iliyamo/pedido-service/internal/model"
	"github.com/iliyamo/pedido-service/internal/repository"
	"github.com/iliyamo/pedido-service/internal/service"
	"github.com/iliyamo/pedido-service/internal/utils"
)

// UserStore is the slice of UserRepo the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, email, name, password string, cost int) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenIssuer is implemented by service.TokenService.
type TokenIssuer interface {
	IssuePair(ctx context.Context, u model.User) (service.TokenPair, error)
	Renew(ctx context.Context, raw string) (utils.SignedToken, error)
	Revoke(ctx context.Context, raw string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Users      UserStore
	Tokens     TokenIssuer
	BcryptCost int
}

func NewAuthHandler(users UserStore, tokens TokenIssuer, bcryptCost int) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type loginResp struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	User         userPart `json:"user"`
}

func toUserPart(u model.User) userPart { return userPart{ID: u.ID, Email: u.Email, Name: u.Name} }

const credentialsRequired = "E-mail e senha são obrigatórios."

// Register creates a user.  Tokens are only handed out by Login.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := bindValid(c, &req, credentialsRequired); err != nil {
		return respondError(c, err)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.Create(ctx, email, strings.TrimSpace(req.Name), req.Password, h.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return respondError(c, apperrors.Conflict("E-mail já cadastrado."))
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toUserPart(u))
}

// Login verifies credentials and returns an access/refresh pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := bindValid(c, &req, credentialsRequired); err != nil {
		return respondError(c, err)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondError(c, apperrors.Unauthorized("Credenciais inválidas"))
		}
		return respondError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return respondError(c, apperrors.Unauthorized("Credenciais inválidas"))
	}

	pair, err := h.Tokens.IssuePair(ctx, u)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loginResp{
		AccessToken:  pair.Access.Token,
		RefreshToken: pair.Refresh.Token,
		User:         toUserPart(u),
	})
}

func refreshToken(c echo.Context) (string, error) {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return "", apperrors.BadRequest("refreshToken é obrigatório")
	}
	return strings.TrimSpace(req.RefreshToken), nil
}

// Refresh mints a new access token.  The refresh token is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw, err := refreshToken(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	access, err := h.Tokens.Renew(ctx, raw)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": access.Token})
}

// Logout revokes the given refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw, err := refreshToken(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Tokens.Revoke(ctx, raw); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Usuário deslogado!"})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondError(c, apperrors.NotFound("Usuário não encontrado."))
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}
