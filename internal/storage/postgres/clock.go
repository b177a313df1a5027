package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rryowa/blog_auth/internal/storage"
)

// Clock reads the database server's own time.
type Clock struct {
	db storage.DBTX
}

func NewClock(db storage.DBTX) *Clock {
	return &Clock{db: db}
}

func (c *Clock) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := c.db.QueryRowContext(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("select now: %w", err)
	}
	return now, nil
}
