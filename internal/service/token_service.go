package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/pedido-service/internal/apperrors"
	"github.com/iliyamo/pedido-service/internal/model"
	"github.com/iliyamo/pedido-service/internal/repository"
	"github.com/iliyamo/pedido-service/internal/utils"
)

// TokenStore is the persistence the token service needs for refresh tokens.
type TokenStore interface {
	Store(ctx context.Context, t *model.Token) error
	FindByToken(ctx context.Context, digest, kind string) (model.Token, error)
	Revoke(ctx context.Context, id uint64) error
}

// TokenConfig carries signing secrets and lifetimes.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenPair is what a successful login returns.
type TokenPair struct {
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

var errInvalidRefresh = apperrors.Unauthorized("invalid refresh token")

// TokenService issues and verifies access tokens and manages the
// server-side state of refresh tokens.
type TokenService struct {
	store TokenStore
	cfg   TokenConfig
	now   func() time.Time
}

func NewTokenService(store TokenStore, cfg TokenConfig) *TokenService {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	return &TokenService{store: store, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

func identityOf(u model.User) model.Identity {
	return model.Identity{UserID: u.ID, Email: u.Email, Name: u.Name}
}

// IssuePair signs an access and a refresh token for u and records the
// refresh token (by digest) as not revoked, expiring after RefreshTTL.
func (s *TokenService) IssuePair(ctx context.Context, u model.User) (TokenPair, error) {
	id := identityOf(u)
	access, err := utils.NewAccessToken(s.cfg.AccessSecret, id, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, apperrors.Internal(err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshSecret, id, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, apperrors.Internal(err)
	}
	row := &model.Token{
		Token:     utils.HashToken(refresh.Token),
		Kind:      model.KindRefresh,
		UserID:    u.ID,
		Revoked:   false,
		ExpiresAt: s.now().Add(s.cfg.RefreshTTL),
	}
	if err := s.store.Store(ctx, row); err != nil {
		return TokenPair{}, apperrors.Internal(err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// VerifyAccess checks an access token.  It never touches the store.
func (s *TokenService) VerifyAccess(raw string) (model.Identity, error) {
	id, err := utils.ParseAccessToken(s.cfg.AccessSecret, raw)
	if err != nil {
		return model.Identity{}, apperrors.Wrap(err, apperrors.KindUnauthorized, "invalid token")
	}
	return id, nil
}

// Renew exchanges a refresh token for a new access token.  The stored row
// is checked (exists, refresh kind, not revoked, not expired) before the
// signature, so a well-signed but revoked token is still refused.  The
// refresh token itself is not rotated.
func (s *TokenService) Renew(ctx context.Context, raw string) (utils.SignedToken, error) {
	if _, err := s.usable(ctx, raw, model.KindRefresh); err != nil {
		return utils.SignedToken{}, err
	}
	id, err := utils.ParseRefreshToken(s.cfg.RefreshSecret, raw)
	if err != nil {
		return utils.SignedToken{}, apperrors.Wrap(err, apperrors.KindUnauthorized, errInvalidRefresh.Message)
	}
	access, err := utils.NewAccessToken(s.cfg.AccessSecret, id, s.cfg.AccessTTL)
	if err != nil {
		return utils.SignedToken{}, apperrors.Internal(err)
	}
	return access, nil
}

// Revoke ends the session behind a stored token of any kind.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	t, err := s.usable(ctx, raw, "")
	if err != nil {
		return err
	}
	if err := s.store.Revoke(ctx, t.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errInvalidRefresh
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *TokenService) usable(ctx context.Context, raw, kind string) (model.Token, error) {
	if raw == "" {
		return model.Token{}, errInvalidRefresh
	}
	t, err := s.store.FindByToken(ctx, utils.HashToken(raw), kind)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Token{}, errInvalidRefresh
		}
		return model.Token{}, apperrors.Internal(err)
	}
	if !t.Usable(s.now()) {
		return model.Token{}, errInvalidRefresh
	}
	return t, nil
}
