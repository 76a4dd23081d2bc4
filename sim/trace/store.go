package trace

import (
	"errors"
	"fmt"
	"sync"
)

// ErrTraceNotFound is returned when a trace id is not in the store.
var ErrTraceNotFound = errors.New("trace not found")

// Store is the in-memory trace collection, most recent first.
// Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records []*TraceRecord
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Add prepends rec so List returns newest first.
func (s *Store) Add(rec *TraceRecord) {
	if rec == nil {
		panic("Store.Add: record must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]*TraceRecord{rec}, s.records...)
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (*TraceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("trace %q: %w", id, ErrTraceNotFound)
}

// List returns all records, most recent first.
func (s *Store) List() []*TraceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*TraceRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
