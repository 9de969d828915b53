package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/optclear/clearing-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Writes (write to primary, invalidate cache) ---

func (s *CachedStore) AppendEvent(ctx context.Context, event *model.JournalEvent) error {
	if err := s.primary.AppendEvent(ctx, event); err != nil {
		return err
	}
	// Invalidate journal views touched by this event.
	keys := []string{journalKey(event.Account)}
	if event.Counterparty != "" {
		keys = append(keys, journalKey(event.Counterparty))
	}
	s.rdb.Del(ctx, keys...)
	return nil
}

func (s *CachedStore) UpsertPosition(ctx context.Context, rec *model.PositionRecord) error {
	if err := s.primary.UpsertPosition(ctx, rec); err != nil {
		return err
	}
	s.cachePosition(ctx, rec)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetPosition(ctx context.Context, addr string) (*model.PositionRecord, error) {
	data, err := s.rdb.Get(ctx, positionKey(addr)).Bytes()
	if err == nil {
		var rec model.PositionRecord
		if json.Unmarshal(data, &rec) == nil {
			return &rec, nil
		}
	}

	// Cache miss: read from primary.
	rec, err := s.primary.GetPosition(ctx, addr)
	if err != nil {
		return nil, err
	}

	s.cachePosition(ctx, rec)
	return rec, nil
}

func (s *CachedStore) EventsByAccount(ctx context.Context, addr string) ([]model.JournalEvent, error) {
	data, err := s.rdb.Get(ctx, journalKey(addr)).Bytes()
	if err == nil {
		var events []model.JournalEvent
		if json.Unmarshal(data, &events) == nil {
			return events, nil
		}
	}

	// Cache miss.
	events, err := s.primary.EventsByAccount(ctx, addr)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(events); err == nil {
		s.rdb.Set(ctx, journalKey(addr), data, s.ttl)
	}
	return events, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) Events(ctx context.Context) ([]model.JournalEvent, error) {
	return s.primary.Events(ctx)
}

func (s *CachedStore) ListPositions(ctx context.Context) ([]model.PositionRecord, error) {
	return s.primary.ListPositions(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cachePosition(ctx context.Context, rec *model.PositionRecord) {
	if data, err := json.Marshal(rec); err == nil {
		s.rdb.Set(ctx, positionKey(rec.Address), data, s.ttl)
	}
}

func positionKey(addr string) string { return fmt.Sprintf("position:%s", addr) }
func journalKey(addr string) string  { return fmt.Sprintf("journal:%s", addr) }
