package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rryowa/blog_auth/internal/models"
)

type Storage struct {
	db *sql.DB
	*UserRepository
	*RefreshTokenRepository
	*CaptchaRepository
	*ContentRepository
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{
		db:                     db,
		UserRepository:         NewUserRepository(db),
		RefreshTokenRepository: NewRefreshTokenRepository(db),
		CaptchaRepository:      NewCaptchaRepository(db),
		ContentRepository:      NewContentRepository(db),
	}
}

// ReplaceRefreshToken drops any previous refresh token of the user and
// inserts the new one in a single transaction. Concurrent logins of the same
// user serialize on the delete; the last commit wins.
func (s *Storage) ReplaceRefreshToken(ctx context.Context, userID int64, tokenHash string, ttl time.Duration) (*models.RefreshToken, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	repoTx := NewRefreshTokenRepository(tx)

	if _, err := repoTx.DeleteUserRefreshTokens(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to delete previous refresh token in tx: %w", err)
	}

	token, err := repoTx.CreateRefreshToken(ctx, userID, tokenHash, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token in tx: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return token, nil
}
