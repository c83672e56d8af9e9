// Package storage implements the persistence contract: the whole data
// root is loaded and saved as one blob under a single fixed key, with no
// partial writes observable to the rest of the application.
package storage

import (
	"context"
	"sync"

	"bilancio/internal/ledger"
)

// Key under which the data root blob lives.
const DataRootKey = "data_root"

// MarkerLastReminder stores the calendar day the daily reminder last
// fired, so it fires at most once per day.
const MarkerLastReminder = "last_daily_reminder"

// Store is the persistence contract. Load reports absence via the bool
// rather than an error so a fresh install is not an error path.
type Store interface {
	Load(ctx context.Context) (ledger.DataRoot, bool, error)
	Save(ctx context.Context, root ledger.DataRoot) error
	ReadMarker(ctx context.Context, key string) (string, error)
	WriteMarker(ctx context.Context, key, value string) error
	Reset(ctx context.Context) error
	Close() error
}

// MemoryStore keeps everything in process memory. Used by tests and the
// "memory" backend.
type MemoryStore struct {
	mu      sync.Mutex
	root    ledger.DataRoot
	present bool
	markers map[string]string

	// FailSaves makes Save return this error, for exercising the
	// save-warning path in tests.
	FailSaves error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{markers: map[string]string{}}
}

func (s *MemoryStore) Load(ctx context.Context) (ledger.DataRoot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present {
		return ledger.DataRoot{}, false, nil
	}
	return s.root.Clone(), true, nil
}

func (s *MemoryStore) Save(ctx context.Context, root ledger.DataRoot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves != nil {
		return s.FailSaves
	}
	s.root = root.Clone()
	s.present = true
	return nil
}

func (s *MemoryStore) ReadMarker(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[key], nil
}

func (s *MemoryStore) WriteMarker(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[key] = value
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = ledger.DataRoot{}
	s.present = false
	s.markers = map[string]string{}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
