package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rryowa/blog_auth/internal/storage"
)

const ticketPrefix = "reset:"

type TicketStorage struct {
	client redis.UniversalClient
}

func NewTicketStorage(client redis.UniversalClient) *TicketStorage {
	return &TicketStorage{client: client}
}

func (s *TicketStorage) SaveResetTicket(ctx context.Context, ticket, username string, ttl time.Duration) error {
	if err := s.client.Set(ctx, ticketPrefix+ticket, username, ttl).Err(); err != nil {
		return fmt.Errorf("save reset ticket: %w", err)
	}
	return nil
}

// TakeResetTicket returns the ticket's username and deletes it in one step.
func (s *TicketStorage) TakeResetTicket(ctx context.Context, ticket string) (string, error) {
	username, err := s.client.GetDel(ctx, ticketPrefix+ticket).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrTicketNotFound
	} else if err != nil {
		return "", fmt.Errorf("take reset ticket: %w", err)
	}
	return username, nil
}
