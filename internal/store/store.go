// Package store defines the persistence interface for the clearing
// engine's settlement journal and position snapshots. Implementations
// include PostgreSQL (source of truth), Redis (read-through cache), and
// in-memory (for testing).
package store

import (
	"context"

	"github.com/optclear/clearing-engine/internal/model"
)

// Store is the persistence interface. The engine's in-memory state is
// authoritative during a run; the store carries the durable audit journal
// and per-holder snapshots.
type Store interface {
	// --- Immutable journal ---

	// AppendEvent appends an immutable settlement record.
	AppendEvent(ctx context.Context, event *model.JournalEvent) error

	// Events returns the full journal in append order.
	Events(ctx context.Context) ([]model.JournalEvent, error)

	// EventsByAccount returns every journal record naming addr as actor
	// or counterparty, in append order.
	EventsByAccount(ctx context.Context, addr string) ([]model.JournalEvent, error)

	// --- Position snapshots ---

	// UpsertPosition writes the latest snapshot for one holder.
	UpsertPosition(ctx context.Context, rec *model.PositionRecord) error

	// GetPosition retrieves a holder's snapshot.
	GetPosition(ctx context.Context, addr string) (*model.PositionRecord, error)

	// ListPositions returns all holder snapshots.
	ListPositions(ctx context.Context) ([]model.PositionRecord, error)
}
