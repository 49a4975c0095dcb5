// Package memstore provides an in-process CredentialStorage for hosts without durable storage.
package memstore

import (
	"context"
	"sync"

	"github.com/target/clinic-session/internal/ports"
)

// Store keeps the session record in memory. It is safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	rec ports.Record

	// Fail, when set, is returned by every operation. Tests use it to simulate broken media.
	Fail error
}

// New returns an empty in-memory store.
func New() *Store { return &Store{} }

// Seed returns a store preloaded with rec.
func Seed(rec ports.Record) *Store { return &Store{rec: rec} }

func (s *Store) Load(_ context.Context) (ports.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return ports.Record{}, s.Fail
	}
	return s.rec, nil
}

func (s *Store) Save(_ context.Context, rec ports.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	s.rec = rec
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	s.rec = ports.Record{}
	return nil
}

// Snapshot returns the current record without going through the port.
func (s *Store) Snapshot() ports.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}
