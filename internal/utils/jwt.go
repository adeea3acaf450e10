package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA‑256 digest of refresh tokens before storage
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/pedido-service/internal/model"
)

// ErrMalformedClaims is returned when a token verifies but its payload
// does not identify a user.
var ErrMalformedClaims = errors.New("malformed token payload")

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UserID uint64 `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token.  The user id travels
// as "id"; RegisteredClaims.ID is the random jti that keeps two tokens
// issued in the same second distinct.
type RefreshClaims struct {
	UserID uint64 `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// SignedToken is a serialized JWT along with its expiry.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken builds and signs an HS256 access token for id that
// expires after ttl.
func NewAccessToken(secret string, id model.Identity, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := AccessClaims{
		UserID: id.UserID,
		Email:  id.Email,
		Name:   id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return sign(secret, claims, exp)
}

// NewRefreshToken builds and signs an HS256 refresh token for id that
// expires after ttl.
func NewRefreshToken(secret string, id model.Identity, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := RefreshClaims{
		UserID: id.UserID,
		Email:  id.Email,
		Name:   id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return sign(secret, claims, exp)
}

func sign(secret string, claims jwt.Claims, exp time.Time) (SignedToken, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature, algorithm and expiry and returns
// the identity carried by the token.
func ParseAccessToken(secret, raw string) (model.Identity, error) {
	var c AccessClaims
	if err := parse(secret, raw, &c); err != nil {
		return model.Identity{}, err
	}
	if c.UserID == 0 {
		return model.Identity{}, ErrMalformedClaims
	}
	return model.Identity{UserID: c.UserID, Email: c.Email, Name: c.Name}, nil
}

// ParseRefreshToken is ParseAccessToken for refresh tokens.
func ParseRefreshToken(secret, raw string) (model.Identity, error) {
	var c RefreshClaims
	if err := parse(secret, raw, &c); err != nil {
		return model.Identity{}, err
	}
	if c.UserID == 0 {
		return model.Identity{}, ErrMalformedClaims
	}
	return model.Identity{UserID: c.UserID, Email: c.Email, Name: c.Name}, nil
}

func parse(secret, raw string, claims jwt.Claims) error {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return err
	}
	if !tok.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

// HashToken returns the SHA‑256 hex digest stored in place of a refresh
// token, so a leaked tokens table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
