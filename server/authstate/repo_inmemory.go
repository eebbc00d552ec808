package authstate

import (
	"errors"
	"sync"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu     sync.RWMutex
	states map[string]*PendingAuth
}

// NewInMemoryRepo creates a new in-memory pending-authorization repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]*PendingAuth),
	}
}

// Upsert stores or updates a pending authorization
func (r *InMemoryRepo) Upsert(state string, pending *PendingAuth) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if pending == nil {
		return errors.New("pending cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state] = &PendingAuth{CreatedAt: pending.CreatedAt}
	return nil
}

// Get retrieves a pending authorization by state parameter
func (r *InMemoryRepo) Get(state string) (*PendingAuth, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	pending, exists := r.states[state]
	if !exists {
		return nil, errors.New("state not found")
	}
	return &PendingAuth{CreatedAt: pending.CreatedAt}, nil
}

// Delete removes a pending authorization
func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}
