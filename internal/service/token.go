package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rryowa/blog_auth/internal/util"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Subject is the identity part shared by every token kind.
type Subject struct {
	UserID    int64
	Username  string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims is a verified token of either kind. Use Access or Refresh to narrow it.
type Claims struct {
	Kind Kind
	Subject
}

type AccessClaims struct{ Subject }

type RefreshClaims struct{ Subject }

func (c Claims) Access() (AccessClaims, error) {
	if c.Kind != KindAccess {
		return AccessClaims{}, ErrInvalidTokenType
	}
	return AccessClaims{Subject: c.Subject}, nil
}

func (c Claims) Refresh() (RefreshClaims, error) {
	if c.Kind != KindRefresh {
		return RefreshClaims{}, ErrInvalidTokenType
	}
	return RefreshClaims{Subject: c.Subject}, nil
}

type jwtClaims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	TokenType Kind   `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 session tokens.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenCodec(cfg *util.TokenConfig) *TokenCodec {
	return &TokenCodec{
		secret:     cfg.JwtSecretKey,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
}

func (tc *TokenCodec) AccessTTL() time.Duration  { return tc.accessTTL }
func (tc *TokenCodec) RefreshTTL() time.Duration { return tc.refreshTTL }

// TTL returns the configured lifetime of the kind.
func (tc *TokenCodec) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return tc.refreshTTL
	}
	return tc.accessTTL
}

// Mint creates a signed token of kind with a fresh jti.
func (tc *TokenCodec) Mint(kind Kind, userID int64, username string, ttl time.Duration, now time.Time) (string, error) {
	claims := &jwtClaims{
		UserID:    userID,
		Username:  username,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tc.secret)
	if err != nil {
		return "", fmt.Errorf("signed string: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry against now. A token signed by this
// server but past its exp is always ErrTokenExpired.
func (tc *TokenCodec) Verify(raw string, now time.Time) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwtClaims{}, tc.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, translateJWTError(err)
	}
	if !parsed.Valid {
		return Claims{}, ErrTokenMalformed
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok {
		return Claims{}, ErrTokenMalformed
	}
	return toClaims(claims)
}

func (tc *TokenCodec) VerifyAccess(raw string, now time.Time) (AccessClaims, error) {
	c, err := tc.Verify(raw, now)
	if err != nil {
		return AccessClaims{}, err
	}
	return c.Access()
}

func (tc *TokenCodec) VerifyRefresh(raw string, now time.Time) (RefreshClaims, error) {
	c, err := tc.Verify(raw, now)
	if err != nil {
		return RefreshClaims{}, err
	}
	return c.Refresh()
}

// DecodeUnsafe checks the signature but ignores exp. Only logout uses it, to
// find the owner of an already expired token.
func (tc *TokenCodec) DecodeUnsafe(raw string) (Claims, bool) {
	parsed, err := jwt.ParseWithClaims(raw, &jwtClaims{}, tc.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || parsed == nil {
		return Claims{}, false
	}
	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok {
		return Claims{}, false
	}
	c, err := toClaims(claims)
	if err != nil {
		return Claims{}, false
	}
	return c, true
}

func (tc *TokenCodec) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrTokenSignatureInvalid
	}
	return tc.secret, nil
}

func translateJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
}

func toClaims(c *jwtClaims) (Claims, error) {
	if c.UserID == 0 || c.ExpiresAt == nil || c.IssuedAt == nil {
		return Claims{}, ErrTokenMalformed
	}
	switch c.TokenType {
	case KindAccess, KindRefresh:
	default:
		return Claims{}, ErrInvalidTokenType
	}
	return Claims{
		Kind: c.TokenType,
		Subject: Subject{
			UserID:    c.UserID,
			Username:  c.Username,
			TokenID:   c.ID,
			IssuedAt:  c.IssuedAt.Time,
			ExpiresAt: c.ExpiresAt.Time,
		},
	}, nil
}
