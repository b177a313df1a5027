package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rryowa/blog_auth/internal/models"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrCaptchaNotFound      = errors.New("captcha not found")
	ErrTicketNotFound       = errors.New("reset ticket not found")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// RefreshTokenRepository persists refresh-token hashes. Every time comparison
// happens against the repository's own clock.
type RefreshTokenRepository interface {
	// ReplaceRefreshToken removes every record of userID and inserts a new one
	// expiring ttl from now.
	ReplaceRefreshToken(ctx context.Context, userID int64, tokenHash string, ttl time.Duration) (*models.RefreshToken, error)
	// FindRefreshToken returns the record and whether it is still unexpired.
	FindRefreshToken(ctx context.Context, userID int64, tokenHash string) (*models.RefreshToken, bool, error)
	// TouchRefreshToken stamps last_used_at; false when the record expired or is gone.
	TouchRefreshToken(ctx context.Context, id int64) (bool, error)
	DeleteUserRefreshTokens(ctx context.Context, userID int64) (int64, error)
	DeleteRefreshToken(ctx context.Context, userID int64, tokenHash string) (int64, error)
	DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) (int64, error)
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}

// UserRepository is the narrow view of the external users table.
type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
}

type CaptchaRepository interface {
	CreateCaptcha(ctx context.Context, key, response string, ttl time.Duration) (*models.CaptchaChallenge, error)
	// ConsumeCaptcha deletes the challenge only when response matches and it is unexpired.
	ConsumeCaptcha(ctx context.Context, key, response string) (bool, error)
	// CaptchaExpired reports whether a challenge is past its expiration.
	// ErrCaptchaNotFound when there is no such key.
	CaptchaExpired(ctx context.Context, key string) (bool, error)
	DeleteExpiredCaptcha(ctx context.Context) (int64, error)
}

// LockoutCache is the volatile store behind the lockout engine.
type LockoutCache interface {
	// LockoutState returns the failure counter and the remaining lock TTL (0 when unlocked).
	LockoutState(ctx context.Context, namespace, identifier string) (int, time.Duration, error)
	// RecordFailure increments the counter and, at threshold, swaps it for a lock.
	// When a lock already exists nothing is counted and it returns (0, true).
	RecordFailure(ctx context.Context, namespace, identifier string, threshold int, counterTTL, lockTTL time.Duration) (int, bool, error)
	ClearLockout(ctx context.Context, namespace, identifier string) error
}

// TicketStore keeps single-use password reset tickets.
type TicketStore interface {
	SaveResetTicket(ctx context.Context, ticket, username string, ttl time.Duration) error
	TakeResetTicket(ctx context.Context, ticket string) (string, error)
}

type ContentRepository interface {
	CreateComment(ctx context.Context, articleID, userID int64, content string) (int64, error)
	CreateArticle(ctx context.Context, authorID int64, title, content string) (int64, error)
}
