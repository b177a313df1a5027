package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/blog_auth/internal/models"
	"github.com/rryowa/blog_auth/internal/storage"
)

// RefreshTokens keeps at most one live refresh token hash per user. Expiry is
// always judged by the repository's clock, never by this process.
type RefreshTokens struct {
	repo storage.RefreshTokenRepository
	ttl  time.Duration
	log  *zap.SugaredLogger
}

func NewRefreshTokens(repo storage.RefreshTokenRepository, ttl time.Duration, log *zap.SugaredLogger) *RefreshTokens {
	return &RefreshTokens{repo: repo, ttl: ttl, log: log}
}

// HashToken is the hex sha256 of a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Store replaces whatever the user had with raw. Concurrent logins race and
// the last one wins.
func (r *RefreshTokens) Store(ctx context.Context, userID int64, raw string) (*models.RefreshToken, error) {
	token, err := r.repo.ReplaceRefreshToken(ctx, userID, HashToken(raw), r.ttl)
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return token, nil
}

// Verify returns the record matching raw. Expired records are reported as
// ErrRefreshTokenInvalid and left for the sweeper.
func (r *RefreshTokens) Verify(ctx context.Context, userID int64, raw string) (*models.RefreshToken, error) {
	record, valid, err := r.repo.FindRefreshToken(ctx, userID, HashToken(raw))
	if errors.Is(err, storage.ErrRefreshTokenNotFound) {
		return nil, ErrRefreshTokenInvalid
	} else if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if !valid {
		return nil, ErrRefreshTokenInvalid
	}
	return record, nil
}

// Touch stamps last use. ErrRefreshTokenExpired if the record expired or was
// removed after Verify.
func (r *RefreshTokens) Touch(ctx context.Context, record *models.RefreshToken) error {
	ok, err := r.repo.TouchRefreshToken(ctx, record.ID)
	if err != nil {
		return fmt.Errorf("touch refresh token: %w", err)
	}
	if !ok {
		return ErrRefreshTokenExpired
	}
	return nil
}

func (r *RefreshTokens) Revoke(ctx context.Context, userID int64) error {
	n, err := r.repo.DeleteUserRefreshTokens(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	r.log.Debugw("Refresh tokens revoked", "userID", userID, "count", n)
	return nil
}

func (r *RefreshTokens) RevokeToken(ctx context.Context, userID int64, raw string) error {
	if _, err := r.repo.DeleteRefreshToken(ctx, userID, HashToken(raw)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokens) RevokeByRawToken(ctx context.Context, raw string) error {
	if _, err := r.repo.DeleteRefreshTokenByHash(ctx, HashToken(raw)); err != nil {
		return fmt.Errorf("revoke refresh token by hash: %w", err)
	}
	return nil
}

func (r *RefreshTokens) SweepExpired(ctx context.Context) (int64, error) {
	n, err := r.repo.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep refresh tokens: %w", err)
	}
	return n, nil
}
