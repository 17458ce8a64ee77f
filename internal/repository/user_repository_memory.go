package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/spec-kit/request-desk/internal/domain"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]domain.User
}

// NewMemoryUserRepository keeps users in process memory, in insertion order.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{byID: make(map[string]domain.User)}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[user.ID]; exists {
		return ErrDuplicate
	}
	if r.emailTaken(user.Email, "") {
		return ErrDuplicate
	}
	r.byID[user.ID] = *user
	r.order = append(r.order, user.ID)
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[user.ID]; !exists {
		return ErrNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return ErrDuplicate
	}
	r.byID[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[id]; !exists {
		return ErrNotFound
	}
	delete(r.byID, id)
	for i, candidate := range r.order {
		if candidate == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if user := r.byID[id]; strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUserRepository) List(_ context.Context, role *domain.Role) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.User, 0, len(r.order))
	for _, id := range r.order {
		user := r.byID[id]
		if role != nil && user.Role != *role {
			continue
		}
		result = append(result, user)
	}
	return result, nil
}

// emailTaken must be called with the lock held.
func (r *memoryUserRepository) emailTaken(email, exceptID string) bool {
	for id, user := range r.byID {
		if id != exceptID && strings.EqualFold(user.Email, email) {
			return true
		}
	}
	return false
}
