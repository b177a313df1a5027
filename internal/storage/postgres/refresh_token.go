package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rryowa/blog_auth/internal/models"
	"github.com/rryowa/blog_auth/internal/storage"
)

// RefreshTokenRepository never compares against the application clock:
// every expiry decision is made by NOW() of the database server.
type RefreshTokenRepository struct {
	db storage.DBTX
}

func NewRefreshTokenRepository(db storage.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) CreateRefreshToken(ctx context.Context, userID int64, tokenHash string, ttl time.Duration) (*models.RefreshToken, error) {
	token := models.RefreshToken{UserID: userID, TokenHash: tokenHash}
	query := `INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3), NOW())
		RETURNING id, expires_at, created_at`
	err := r.db.QueryRowContext(ctx, query, userID, tokenHash, ttl.Seconds()).
		Scan(&token.ID, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return &token, nil
}

func (r *RefreshTokenRepository) FindRefreshToken(ctx context.Context, userID int64, tokenHash string) (*models.RefreshToken, bool, error) {
	var (
		token    models.RefreshToken
		lastUsed sql.NullTime
		valid    bool
	)
	query := `SELECT id, user_id, token_hash, expires_at, created_at, last_used_at, expires_at > NOW()
		FROM refresh_tokens WHERE user_id = $1 AND token_hash = $2`
	err := r.db.QueryRowContext(ctx, query, userID, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
		&lastUsed,
		&valid,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, storage.ErrRefreshTokenNotFound
		}
		return nil, false, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		token.LastUsedAt = &t
	}
	return &token, valid, nil
}

func (r *RefreshTokenRepository) TouchRefreshToken(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE refresh_tokens SET last_used_at = NOW() WHERE id = $1 AND expires_at > NOW()`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to touch refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("touch rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *RefreshTokenRepository) DeleteUserRefreshTokens(ctx context.Context, userID int64) (int64, error) {
	return r.exec(ctx, "delete user refresh tokens", `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
}

func (r *RefreshTokenRepository) DeleteRefreshToken(ctx context.Context, userID int64, tokenHash string) (int64, error) {
	return r.exec(ctx, "delete refresh token", `DELETE FROM refresh_tokens WHERE user_id = $1 AND token_hash = $2`, userID, tokenHash)
}

func (r *RefreshTokenRepository) DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) (int64, error) {
	return r.exec(ctx, "delete refresh token by hash", `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
}

func (r *RefreshTokenRepository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	return r.exec(ctx, "delete expired refresh tokens", `DELETE FROM refresh_tokens WHERE expires_at <= NOW()`)
}

func (r *RefreshTokenRepository) exec(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return n, nil
}
