package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AuthorizationGate restricts position creation to the trusted originator
// (the exchange/clearing component that matched the trade).
type AuthorizationGate interface {
	IsAuthorizedOriginator(addr string) bool
}

// Clock supplies the current time. Exercise and Claim read it once at the
// start of the operation; expiration is never tracked as a scheduled event.
type Clock interface {
	Now() time.Time
}

// AssetPort moves the underlying token. Amounts crossing this boundary are
// in underlying smallest units (contract units × UnderlyingScale).
// Transfers are always out of the engine's custody account.
type AssetPort interface {
	BalanceOf(ctx context.Context, holder string) (decimal.Decimal, error)
	Transfer(ctx context.Context, to string, amount decimal.Decimal) error
}

// PaymentPort moves native payment currency (premiums to shorts, fee
// residue to the treasury) in the same denomination as the strike price.
type PaymentPort interface {
	Transfer(ctx context.Context, to string, amount decimal.Decimal) error
}

// StaticGate authorizes exactly one originator address.
type StaticGate struct {
	Originator string
}

func (g StaticGate) IsAuthorizedOriginator(addr string) bool {
	return addr != "" && addr == g.Originator
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock returns a fixed instant. Test/deterministic use.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
