package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/optclear/clearing-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) AppendEvent(ctx context.Context, e *model.JournalEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO journal_events (id, type, series, account, counterparty, quantity, premium, underlying, full_unwind, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC, $8::NUMERIC, $9, $10)`,
		e.ID, e.Type, e.Series, e.Account, e.Counterparty,
		e.Quantity, e.Premium.String(), e.Underlying.String(),
		e.FullUnwind, e.Timestamp,
	)
	return err
}

func (s *PostgresStore) Events(ctx context.Context) ([]model.JournalEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, series, account, counterparty, quantity,
		        premium::TEXT, underlying::TEXT, full_unwind, timestamp
		 FROM journal_events ORDER BY timestamp`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJournalEvents(rows)
}

func (s *PostgresStore) EventsByAccount(ctx context.Context, addr string) ([]model.JournalEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, series, account, counterparty, quantity,
		        premium::TEXT, underlying::TEXT, full_unwind, timestamp
		 FROM journal_events
		 WHERE account = $1 OR counterparty = $1
		 ORDER BY timestamp`, addr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJournalEvents(rows)
}

func (s *PostgresStore) UpsertPosition(ctx context.Context, rec *model.PositionRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO positions (address, balance, coverage, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (address) DO UPDATE
		 SET balance = EXCLUDED.balance,
		     coverage = EXCLUDED.coverage,
		     updated_at = EXCLUDED.updated_at`,
		rec.Address, rec.Balance, rec.Coverage, rec.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetPosition(ctx context.Context, addr string) (*model.PositionRecord, error) {
	var rec model.PositionRecord

	err := s.pool.QueryRow(ctx,
		`SELECT address, balance, coverage, updated_at
		 FROM positions WHERE address = $1`, addr).
		Scan(&rec.Address, &rec.Balance, &rec.Coverage, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get position %s: %w", addr, err)
	}

	return &rec, nil
}

func (s *PostgresStore) ListPositions(ctx context.Context) ([]model.PositionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, balance, coverage, updated_at
		 FROM positions ORDER BY address`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []model.PositionRecord
	for rows.Next() {
		var rec model.PositionRecord
		if err := rows.Scan(&rec.Address, &rec.Balance, &rec.Coverage, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// scanJournalEvents reads pgx rows into JournalEvent slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanJournalEvents(rows pgxRows) ([]model.JournalEvent, error) {
	var events []model.JournalEvent
	for rows.Next() {
		var e model.JournalEvent
		var premiumS, underlyingS string

		if err := rows.Scan(&e.ID, &e.Type, &e.Series, &e.Account, &e.Counterparty,
			&e.Quantity, &premiumS, &underlyingS, &e.FullUnwind, &e.Timestamp); err != nil {
			return nil, err
		}

		e.Premium, _ = decimal.NewFromString(premiumS)
		e.Underlying, _ = decimal.NewFromString(underlyingS)

		events = append(events, e)
	}
	return events, rows.Err()
}
