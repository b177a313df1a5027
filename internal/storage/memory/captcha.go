package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rryowa/blog_auth/internal/models"
	"github.com/rryowa/blog_auth/internal/storage"
)

type CaptchaRepository struct {
	mu         sync.Mutex
	challenges map[string]models.CaptchaChallenge
	now        func() time.Time
}

func NewCaptchaRepository(now func() time.Time) *CaptchaRepository {
	return &CaptchaRepository{
		challenges: make(map[string]models.CaptchaChallenge),
		now:        now,
	}
}

func (r *CaptchaRepository) CreateCaptcha(_ context.Context, key, response string, ttl time.Duration) (*models.CaptchaChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := models.CaptchaChallenge{Key: key, Response: response, ExpiresAt: r.now().Add(ttl)}
	r.challenges[key] = c
	return &c, nil
}

func (r *CaptchaRepository) ConsumeCaptcha(_ context.Context, key, response string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[key]
	if !ok || c.Response != response || !c.ExpiresAt.After(r.now()) {
		return false, nil
	}
	delete(r.challenges, key)
	return true, nil
}

func (r *CaptchaRepository) CaptchaExpired(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[key]
	if !ok {
		return false, storage.ErrCaptchaNotFound
	}
	return !c.ExpiresAt.After(r.now()), nil
}

func (r *CaptchaRepository) DeleteExpiredCaptcha(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	now := r.now()
	for k, c := range r.challenges {
		if !c.ExpiresAt.After(now) {
			delete(r.challenges, k)
			n++
		}
	}
	return n, nil
}

// Response exposes a challenge's expected answer; the image renderer reads it.
func (r *CaptchaRepository) Response(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.challenges[key]
	return c.Response, ok
}
