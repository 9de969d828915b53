// Package engine implements the position-accounting and assignment core
// of a single-series covered-call clearing engine: the signed balance
// ledger, the collateral vault, the LIFO short registry, the open-interest
// counter, and the mint/transfer/exercise/claim state transitions.
//
// The engine owns its four structures exclusively and is not safe for
// concurrent use; callers must serialize operations (the clearing service
// holds a mutex). Every operation either fully applies or leaves the
// state untouched: preconditions and the exercise assignment plan are
// validated before the first mutation, and external port calls for a unit
// of work are issued only after that unit's internal state is consistent.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/optclear/clearing-engine/internal/series"
)

var (
	ErrUnauthorized         = errors.New("engine: caller is not the authorized originator")
	ErrInvalidAmount        = errors.New("engine: amount must be positive")
	ErrSelfTrade            = errors.New("engine: long and short must differ")
	ErrInsufficientSolvency = errors.New("engine: custodied underlying cannot back new open interest")
	ErrInsufficientBalance  = errors.New("engine: amount exceeds sender balance")
	ErrExpired              = errors.New("engine: series has expired")
	ErrInsufficientPosition = errors.New("engine: amount exceeds long balance")
	ErrInsufficientPayment  = errors.New("engine: attached payment below strike cost")
	ErrRegistryExhausted    = errors.New("engine: no registered short left to assign")
	ErrInsufficientCoverage = errors.New("engine: coverage below outstanding short exposure")
)

// Fill records one assignment produced by Exercise: quantity matched
// against a short, the premium paid to them, and whether their position
// was fully unwound.
type Fill struct {
	Short      string
	Quantity   int64
	Premium    decimal.Decimal
	Underlying decimal.Decimal
	FullUnwind bool
}

// Engine is the settlement engine for one covered-call series.
type Engine struct {
	terms series.Terms

	gate    AuthorizationGate
	clock   Clock
	asset   AssetPort
	payment PaymentPort

	// custody is the engine's own account at the asset port; treasury
	// receives assignment fees (the originator).
	custody  string
	treasury string

	ledger       *Ledger
	vault        *CollateralVault
	registry     *ShortRegistry
	openInterest int64
}

// New creates an engine with empty ledgers for the given series.
func New(terms series.Terms, gate AuthorizationGate, clock Clock, asset AssetPort, payment PaymentPort, custody, treasury string) *Engine {
	return &Engine{
		terms:    terms,
		gate:     gate,
		clock:    clock,
		asset:    asset,
		payment:  payment,
		custody:  custody,
		treasury: treasury,
		ledger:   NewLedger(),
		vault:    NewCollateralVault(),
		registry: NewShortRegistry(),
	}
}

// Terms returns the immutable series parameters.
func (e *Engine) Terms() series.Terms { return e.terms }

// Balance returns addr's signed exposure.
func (e *Engine) Balance(addr string) int64 { return e.ledger.Balance(addr) }

// Coverage returns addr's posted collateral in contract units.
func (e *Engine) Coverage(addr string) int64 { return e.vault.Coverage(addr) }

// OpenInterest returns the total matched long/short exposure.
func (e *Engine) OpenInterest() int64 { return e.openInterest }

// Shorts returns the registered short addresses in slot order.
func (e *Engine) Shorts() []string { return e.registry.Addresses() }

// IsRegistered reports whether addr is in the short registry.
func (e *Engine) IsRegistered(addr string) bool { return e.registry.Contains(addr) }

// Holders returns every address with non-zero exposure.
func (e *Engine) Holders() []string { return e.ledger.Holders() }

// Mint opens `size` units of matched exposure between long and short on
// behalf of the authorized originator. The caller must already have
// deposited the backing underlying into custody: the solvency check is
// against the new total open interest, not the delta. No asset moves
// inside this operation.
func (e *Engine) Mint(ctx context.Context, caller, long, short string, size int64) error {
	if !e.gate.IsAuthorizedOriginator(caller) {
		return ErrUnauthorized
	}
	if size <= 0 {
		return fmt.Errorf("%w: mint size %d", ErrInvalidAmount, size)
	}
	if long == short || long == "" || short == "" {
		return ErrSelfTrade
	}

	custody, err := e.asset.BalanceOf(ctx, e.custody)
	if err != nil {
		return fmt.Errorf("engine: solvency check: %w", err)
	}
	required := e.terms.ScaleUnits(e.openInterest + size)
	if custody.LessThan(required) {
		return fmt.Errorf("%w: custody %s < required %s", ErrInsufficientSolvency, custody, required)
	}

	longBal := e.ledger.Balance(long)
	shortBal := e.ledger.Balance(short)

	// Open-interest delta from pre-trade balances: both legs closing
	// shrinks interest, both legs opening grows it, mixed leaves it.
	switch {
	case shortBal > 0 && longBal < 0:
		e.openInterest -= size
	case shortBal <= 0 && longBal >= 0:
		e.openInterest += size
	}

	e.vault.Add(short, size)
	e.ledger.Add(long, size)
	e.ledger.Add(short, -size)

	if e.ledger.Balance(short) < 0 {
		e.registry.Insert(short)
	}
	if e.ledger.Balance(long) >= 0 {
		e.registry.Remove(long)
	}
	return nil
}

// Transfer moves `amount` of long exposure from one address to another.
// Only positive balance can move: the sender can never go short through
// a transfer. A recipient whose balance rises to zero or above leaves
// the short registry.
func (e *Engine) Transfer(from, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: transfer amount %d", ErrInvalidAmount, amount)
	}
	if from == to || from == "" || to == "" {
		return ErrSelfTrade
	}
	if amount > e.ledger.Balance(from) {
		return fmt.Errorf("%w: %d > %d", ErrInsufficientBalance, amount, e.ledger.Balance(from))
	}

	e.ledger.Add(from, -amount)
	e.ledger.Add(to, amount)

	if e.ledger.Balance(to) >= 0 {
		e.registry.Remove(to)
	}
	return nil
}

// plannedFill is one step of an exercise assignment plan, computed before
// any state mutation so a mid-walk failure aborts with zero effect.
type plannedFill struct {
	short      string
	quantity   int64
	exposure   int64
	fullUnwind bool
}

// Exercise settles `amount` of the caller's long exposure against the
// registry tail, most recently registered short first. `payment` is the
// strike-currency amount attached by the caller and must cover
// strike × amount. Each assigned short receives their strike proceeds
// less the assignment fee; the residue (fee plus any overpayment) is
// swept to the treasury after the final fill.
func (e *Engine) Exercise(ctx context.Context, caller string, amount int64, payment decimal.Decimal) ([]Fill, error) {
	now := e.clock.Now()
	if !now.Before(e.terms.Expiry) {
		return nil, fmt.Errorf("%w: %s", ErrExpired, e.terms.Symbol)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: exercise amount %d", ErrInvalidAmount, amount)
	}
	if e.ledger.Balance(caller) < amount {
		return nil, fmt.Errorf("%w: %d > %d", ErrInsufficientPosition, amount, e.ledger.Balance(caller))
	}
	required := e.terms.StrikeFor(amount)
	if payment.LessThan(required) {
		return nil, fmt.Errorf("%w: %s < %s", ErrInsufficientPayment, payment, required)
	}

	// Plan the LIFO walk against a snapshot of the tail. A registry that
	// runs dry mid-walk signals an interest/registry accounting defect
	// upstream; abort before touching anything.
	shorts := e.registry.Addresses()
	tail := len(shorts) - 1
	remaining := amount
	var plan []plannedFill
	for remaining > 0 {
		if tail < 0 {
			return nil, fmt.Errorf("%w: %d units unfilled", ErrRegistryExhausted, remaining)
		}
		short := shorts[tail]
		exposure := -e.ledger.Balance(short)
		if exposure > remaining {
			plan = append(plan, plannedFill{short: short, quantity: remaining, exposure: exposure})
			remaining = 0
		} else {
			plan = append(plan, plannedFill{short: short, quantity: exposure, exposure: exposure, fullUnwind: true})
			remaining -= exposure
			tail--
		}
	}

	e.openInterest -= amount
	rate := e.terms.PremiumRate()
	totalPremium := decimal.Zero
	fills := make([]Fill, 0, len(plan))

	// Apply each fill's ledger/vault/registry effects before issuing that
	// fill's external transfers, so a re-entrant callback observes
	// consistent state.
	for _, p := range plan {
		e.ledger.Add(caller, -p.quantity)
		if p.fullUnwind {
			e.ledger.Set(p.short, 0)
			e.vault.Clear(p.short)
			e.registry.Remove(p.short)
		} else {
			e.ledger.Add(p.short, p.quantity)
			e.vault.Reduce(p.short, p.quantity)
		}

		premium := e.terms.StrikeFor(p.quantity).Mul(rate)
		underlying := e.terms.ScaleUnits(p.quantity)
		totalPremium = totalPremium.Add(premium)

		if err := e.payment.Transfer(ctx, p.short, premium); err != nil {
			return fills, fmt.Errorf("engine: premium payment to %s: %w", p.short, err)
		}
		if err := e.asset.Transfer(ctx, caller, underlying); err != nil {
			return fills, fmt.Errorf("engine: underlying delivery to %s: %w", caller, err)
		}

		fills = append(fills, Fill{
			Short:      p.short,
			Quantity:   p.quantity,
			Premium:    premium,
			Underlying: underlying,
			FullUnwind: p.fullUnwind,
		})
	}

	// Sweep the fee (and any overpayment) to the treasury.
	if residue := payment.Sub(totalPremium); residue.IsPositive() {
		if err := e.payment.Transfer(ctx, e.treasury, residue); err != nil {
			return fills, fmt.Errorf("engine: fee sweep: %w", err)
		}
	}
	return fills, nil
}

// Claim returns unused collateral to the caller. After expiry the full
// remaining coverage is released unconditionally; before expiry coverage
// must fully back any remaining short exposure and only the excess is
// released. Returns the released amount in contract units; a claim that
// releases nothing succeeds without side effects.
func (e *Engine) Claim(ctx context.Context, caller string) (int64, error) {
	now := e.clock.Now()

	var units int64
	if now.After(e.terms.Expiry) {
		units = e.vault.Clear(caller)
	} else {
		balance := e.ledger.Balance(caller)
		coverage := e.vault.Coverage(caller)
		if balance < 0 {
			if coverage < -balance {
				return 0, fmt.Errorf("%w: coverage %d < exposure %d", ErrInsufficientCoverage, coverage, -balance)
			}
			units = coverage + balance
			e.vault.Reduce(caller, units)
		} else {
			units = e.vault.Clear(caller)
		}
	}

	if units == 0 {
		return 0, nil
	}
	if err := e.asset.Transfer(ctx, caller, e.terms.ScaleUnits(units)); err != nil {
		return units, fmt.Errorf("engine: collateral release to %s: %w", caller, err)
	}
	return units, nil
}
