// Package model defines the domain types shared across the clearing
// engine. Payment and underlying amounts use shopspring/decimal — never
// float64 for money; contract-unit counts are int64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Journal event types.
const (
	EventMint       = "MINT"
	EventTransfer   = "TRANSFER"
	EventAssignment = "ASSIGNMENT"
	EventClaim      = "CLAIM"
)

// JournalEvent is an immutable record of one settlement effect. Once
// created, these are never modified or deleted. Exercise produces one
// event per assignment fill.
type JournalEvent struct {
	ID           string          `json:"id" db:"id"`
	Type         string          `json:"type" db:"type"`
	Series       string          `json:"series" db:"series"`
	Account      string          `json:"account" db:"account"`           // primary actor (long / sender / claimer)
	Counterparty string          `json:"counterparty" db:"counterparty"` // short / recipient, empty for claims
	Quantity     int64           `json:"quantity" db:"quantity"`
	Premium      decimal.Decimal `json:"premium" db:"premium"`       // strike currency paid to the counterparty
	Underlying   decimal.Decimal `json:"underlying" db:"underlying"` // underlying smallest units moved
	FullUnwind   bool            `json:"full_unwind" db:"full_unwind"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// PositionRecord is the durable snapshot of one holder's state, upserted
// after every operation that touches them.
type PositionRecord struct {
	Address   string    `json:"address" db:"address"`
	Balance   int64     `json:"balance" db:"balance"`
	Coverage  int64     `json:"coverage" db:"coverage"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Position is the live view of one holder served by the API, derived
// from engine state.
type Position struct {
	Address          string `json:"address"`
	Balance          int64  `json:"balance"`
	Coverage         int64  `json:"coverage"`
	RequiredCoverage int64  `json:"required_coverage"` // -min(balance, 0)
	ReclaimableUnits int64  `json:"reclaimable_units"` // coverage free to claim pre-expiry
	Registered       bool   `json:"registered"`        // present in the short registry
}
