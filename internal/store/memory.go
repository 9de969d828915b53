package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/optclear/clearing-engine/internal/model"
)

// MemoryStore implements Store with in-memory structures. Used for
// testing and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	journal   []model.JournalEvent
	positions map[string]*model.PositionRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[string]*model.PositionRecord),
	}
}

func (s *MemoryStore) AppendEvent(_ context.Context, event *model.JournalEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.journal = append(s.journal, *event)
	return nil
}

func (s *MemoryStore) Events(_ context.Context) ([]model.JournalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.JournalEvent, len(s.journal))
	copy(out, s.journal)
	return out, nil
}

func (s *MemoryStore) EventsByAccount(_ context.Context, addr string) ([]model.JournalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.JournalEvent
	for _, e := range s.journal {
		if e.Account == addr || e.Counterparty == addr {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertPosition(_ context.Context, rec *model.PositionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	cp := *rec
	s.positions[rec.Address] = &cp
	return nil
}

func (s *MemoryStore) GetPosition(_ context.Context, addr string) (*model.PositionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.positions[addr]
	if !ok {
		return nil, fmt.Errorf("position %s not found", addr)
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) ListPositions(_ context.Context) ([]model.PositionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.PositionRecord, 0, len(s.positions))
	for _, rec := range s.positions {
		out = append(out, *rec)
	}
	return out, nil
}
