package engine

// Ledger tracks the signed exposure balance per address. Positive means
// long (owed underlying on exercise), negative means short (owes
// underlying), zero means flat. The sum of all balances is always zero:
// every unit of long exposure is backed by matching short exposure.
type Ledger struct {
	balances map[string]int64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]int64)}
}

// Balance returns the signed balance of addr (zero if unknown).
func (l *Ledger) Balance(addr string) int64 {
	return l.balances[addr]
}

// Add applies a signed delta to addr's balance, deleting the entry when
// it returns to zero so flat addresses do not accumulate.
func (l *Ledger) Add(addr string, delta int64) {
	next := l.balances[addr] + delta
	if next == 0 {
		delete(l.balances, addr)
		return
	}
	l.balances[addr] = next
}

// Set forces addr's balance to v. Used only when fully unwinding a short.
func (l *Ledger) Set(addr string, v int64) {
	if v == 0 {
		delete(l.balances, addr)
		return
	}
	l.balances[addr] = v
}

// Sum returns the total of all balances. Zero whenever the ledger is
// consistent.
func (l *Ledger) Sum() int64 {
	var total int64
	for _, b := range l.balances {
		total += b
	}
	return total
}

// Holders returns every address with a non-zero balance.
func (l *Ledger) Holders() []string {
	out := make([]string, 0, len(l.balances))
	for addr := range l.balances {
		out = append(out, addr)
	}
	return out
}

// CollateralVault tracks the unsigned coverage each short has posted, in
// whole contract units. Scaling to underlying smallest units happens only
// at the asset-transfer boundary.
type CollateralVault struct {
	coverage map[string]int64
}

// NewCollateralVault creates an empty vault.
func NewCollateralVault() *CollateralVault {
	return &CollateralVault{coverage: make(map[string]int64)}
}

// Coverage returns the posted coverage of addr (zero if unknown).
func (v *CollateralVault) Coverage(addr string) int64 {
	return v.coverage[addr]
}

// Add increases addr's coverage by units.
func (v *CollateralVault) Add(addr string, units int64) {
	v.coverage[addr] += units
}

// Reduce decreases addr's coverage by units, never below zero.
func (v *CollateralVault) Reduce(addr string, units int64) {
	next := v.coverage[addr] - units
	if next <= 0 {
		delete(v.coverage, addr)
		return
	}
	v.coverage[addr] = next
}

// Clear zeroes addr's coverage and returns the amount released.
func (v *CollateralVault) Clear(addr string) int64 {
	units := v.coverage[addr]
	delete(v.coverage, addr)
	return units
}
