package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/blog_auth/internal/models"
	"github.com/rryowa/blog_auth/internal/storage"
)

// RefreshTokenRepository keeps refresh tokens in process memory. Expiry is
// judged by the injected clock so tests can move time.
type RefreshTokenRepository struct {
	mu     sync.RWMutex
	nextID int64
	tokens map[int64]models.RefreshToken
	now    func() time.Time
	log    *zap.SugaredLogger
}

func NewRefreshTokenRepository(now func() time.Time, log *zap.SugaredLogger) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		tokens: make(map[int64]models.RefreshToken),
		now:    now,
		log:    log,
	}
}

func (m *RefreshTokenRepository) ReplaceRefreshToken(_ context.Context, userID int64, tokenHash string, ttl time.Duration) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, id)
		}
	}

	m.nextID++
	now := m.now()
	token := models.RefreshToken{
		ID:        m.nextID,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	m.tokens[token.ID] = token
	m.log.Debugw("Refresh token stored", "tokenID", token.ID, "userID", userID, "ttl", ttl)

	return &token, nil
}

func (m *RefreshTokenRepository) FindRefreshToken(_ context.Context, userID int64, tokenHash string) (*models.RefreshToken, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tokens {
		if t.UserID == userID && t.TokenHash == tokenHash {
			token := t
			return &token, token.ExpiresAt.After(m.now()), nil
		}
	}
	return nil, false, storage.ErrRefreshTokenNotFound
}

func (m *RefreshTokenRepository) TouchRefreshToken(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[id]
	now := m.now()
	if !ok || !t.ExpiresAt.After(now) {
		return false, nil
	}
	t.LastUsedAt = &now
	m.tokens[id] = t
	return true, nil
}

func (m *RefreshTokenRepository) DeleteUserRefreshTokens(_ context.Context, userID int64) (int64, error) {
	return m.deleteWhere(func(t models.RefreshToken) bool { return t.UserID == userID }), nil
}

func (m *RefreshTokenRepository) DeleteRefreshToken(_ context.Context, userID int64, tokenHash string) (int64, error) {
	return m.deleteWhere(func(t models.RefreshToken) bool {
		return t.UserID == userID && t.TokenHash == tokenHash
	}), nil
}

func (m *RefreshTokenRepository) DeleteRefreshTokenByHash(_ context.Context, tokenHash string) (int64, error) {
	return m.deleteWhere(func(t models.RefreshToken) bool { return t.TokenHash == tokenHash }), nil
}

func (m *RefreshTokenRepository) DeleteExpiredRefreshTokens(_ context.Context) (int64, error) {
	now := m.now()
	return m.deleteWhere(func(t models.RefreshToken) bool { return !t.ExpiresAt.After(now) }), nil
}

// Len returns the number of stored records, expired ones included.
func (m *RefreshTokenRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

func (m *RefreshTokenRepository) deleteWhere(match func(models.RefreshToken) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, t := range m.tokens {
		if match(t) {
			delete(m.tokens, id)
			n++
		}
	}
	return n
}
