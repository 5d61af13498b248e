package account

import (
	"context"
	"sort"
	"sync"

	"github.com/rosterhq/rosterd/internal/credential"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User // keyed by username
}

// NewMemoryRepository builds an in-memory user store for testing. It enforces
// the same username and email uniqueness as the Postgres schema.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Username]; exists {
		return ErrDuplicate
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return ErrDuplicate
		}
	}
	r.users[user.Username] = user
	return nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Username < users[j].Username
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *memoryRepository) ListCredentials(_ context.Context) ([]credential.StoredCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	creds := make([]credential.StoredCredential, 0, len(r.users))
	for _, user := range r.users {
		creds = append(creds, credential.StoredCredential{UserID: user.ID, Secret: user.Password})
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].UserID < creds[j].UserID })
	return creds, nil
}

func (r *memoryRepository) UpdateCredential(_ context.Context, userID, encoded string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for username, user := range r.users {
		if user.ID == userID {
			user.Password = encoded
			r.users[username] = user
			return nil
		}
	}
	return ErrNotFound
}
