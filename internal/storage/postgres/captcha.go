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

type CaptchaRepository struct {
	db storage.DBTX
}

func NewCaptchaRepository(db storage.DBTX) *CaptchaRepository {
	return &CaptchaRepository{db: db}
}

func (r *CaptchaRepository) CreateCaptcha(ctx context.Context, key, response string, ttl time.Duration) (*models.CaptchaChallenge, error) {
	challenge := models.CaptchaChallenge{Key: key, Response: response}
	query := `INSERT INTO captcha_store (hashkey, response, expiration)
		VALUES ($1, $2, NOW() + make_interval(secs => $3)) RETURNING expiration`
	if err := r.db.QueryRowContext(ctx, query, key, response, ttl.Seconds()).Scan(&challenge.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to insert captcha: %w", err)
	}
	return &challenge, nil
}

func (r *CaptchaRepository) ConsumeCaptcha(ctx context.Context, key, response string) (bool, error) {
	query := `DELETE FROM captcha_store WHERE hashkey = $1 AND response = $2 AND expiration > NOW()`
	res, err := r.db.ExecContext(ctx, query, key, response)
	if err != nil {
		return false, fmt.Errorf("consume captcha: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume captcha rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *CaptchaRepository) CaptchaExpired(ctx context.Context, key string) (bool, error) {
	var expired bool
	err := r.db.QueryRowContext(ctx, `SELECT expiration <= NOW() FROM captcha_store WHERE hashkey = $1`, key).Scan(&expired)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, storage.ErrCaptchaNotFound
		}
		return false, fmt.Errorf("get captcha: %w", err)
	}
	return expired, nil
}

func (r *CaptchaRepository) DeleteExpiredCaptcha(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM captcha_store WHERE expiration <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired captcha: %w", err)
	}
	return res.RowsAffected()
}
