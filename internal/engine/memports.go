package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryBank is an in-memory AssetPort. Used for testing and for dev mode
// when no external custody service is configured. Transfers debit the
// configured custody account.
type MemoryBank struct {
	mu       sync.Mutex
	custody  string
	balances map[string]decimal.Decimal
}

// NewMemoryBank creates a bank whose outbound transfers draw from the
// custody account.
func NewMemoryBank(custody string) *MemoryBank {
	return &MemoryBank{
		custody:  custody,
		balances: make(map[string]decimal.Decimal),
	}
}

// Deposit credits holder directly. The exchange uses this to place the
// backing underlying into custody before calling mint.
func (b *MemoryBank) Deposit(holder string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[holder] = b.balances[holder].Add(amount)
}

func (b *MemoryBank) BalanceOf(_ context.Context, holder string) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[holder], nil
}

func (b *MemoryBank) Transfer(_ context.Context, to string, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	held := b.balances[b.custody]
	if held.LessThan(amount) {
		return fmt.Errorf("bank: custody holds %s, cannot transfer %s", held, amount)
	}
	b.balances[b.custody] = held.Sub(amount)
	b.balances[to] = b.balances[to].Add(amount)
	return nil
}

// MemoryPayments is an in-memory PaymentPort that accumulates outbound
// payments per recipient.
type MemoryPayments struct {
	mu   sync.Mutex
	paid map[string]decimal.Decimal
}

// NewMemoryPayments creates an empty payment recorder.
func NewMemoryPayments() *MemoryPayments {
	return &MemoryPayments{paid: make(map[string]decimal.Decimal)}
}

func (p *MemoryPayments) Transfer(_ context.Context, to string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid[to] = p.paid[to].Add(amount)
	return nil
}

// Paid returns the cumulative amount transferred to recipient.
func (p *MemoryPayments) Paid(recipient string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paid[recipient]
}
