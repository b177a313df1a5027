package memory

import (
	"context"
	"sync"

	"github.com/rryowa/blog_auth/internal/models"
	"github.com/rryowa/blog_auth/internal/storage"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[int64]models.User
}

func NewUserRepository(users ...models.User) *UserRepository {
	r := &UserRepository{users: make(map[int64]models.User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *UserRepository) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (r *UserRepository) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) UpdatePasswordHash(_ context.Context, userID int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.PasswordHash = hash
	r.users[userID] = u
	return nil
}
