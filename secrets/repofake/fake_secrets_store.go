package repofake

import (
	"sync"

	apperrors "github.com/expo-laith/xero-ap-automation/internal/errors"
	"github.com/expo-laith/xero-ap-automation/secrets"
)

// FakeSecretsStore is a thread-safe in-memory implementation of the Store
// interface for tests.
type FakeSecretsStore struct {
	mu     sync.RWMutex
	record *secrets.Record

	// SaveErr, when set, is returned by Save to simulate storage failures.
	SaveErr error

	// Saves counts successful Save calls.
	Saves int
}

var _ secrets.Store = (*FakeSecretsStore)(nil)

// NewFakeSecretsStore creates an empty in-memory store. Load fails with
// ErrMissingSecretsFile until the first Save or Seed.
func NewFakeSecretsStore() *FakeSecretsStore {
	return &FakeSecretsStore{}
}

// Seed installs a record without counting as a Save. Seeding nil resets the
// store to its empty state.
func (s *FakeSecretsStore) Seed(record *secrets.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record == nil {
		s.record = nil
		return
	}
	s.record = record.Clone()
}

// Load returns a copy of the stored record.
func (s *FakeSecretsStore) Load() (*secrets.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.record == nil {
		return nil, apperrors.ErrMissingSecretsFile
	}
	if err := s.record.Validate(); err != nil {
		return nil, err
	}
	return s.record.Clone(), nil
}

// Save replaces the stored record with a copy.
func (s *FakeSecretsStore) Save(record *secrets.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.record = record.Clone()
	s.Saves++
	return nil
}
