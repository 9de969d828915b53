// Package series handles covered-call series symbol parsing, validation,
// and the immutable contract terms a clearing engine settles against.
package series

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// symbolRegex matches: CC-{underlying}-{strike}-{YYYYMMDD}
// Example: CC-WETH-250000-20260918
var symbolRegex = regexp.MustCompile(
	`^CC-([A-Z0-9]+)-(\d+)-(\d{8})$`,
)

var (
	ErrInvalidSymbol = errors.New("series: invalid symbol format")
	ErrInvalidTerms  = errors.New("series: invalid contract terms")
)

// Terms holds the immutable parameters of one covered-call series.
// Strike is denominated in the payment currency's smallest unit per
// contract unit; UnderlyingScale converts whole contract units to
// underlying smallest units (10^decimals). Set once at creation.
type Terms struct {
	Symbol               string          `json:"symbol"`
	Underlying           string          `json:"underlying"`
	StrikePrice          decimal.Decimal `json:"strike_price"`
	Expiry               time.Time       `json:"expiry"`
	UnderlyingScale      decimal.Decimal `json:"underlying_scale"`
	AssignmentFeePercent int64           `json:"assignment_fee_percent"`
}

// ParseSymbol parses and validates a series symbol string.
// Format: CC-{underlying}-{strike}-{YYYYMMDD}
func ParseSymbol(symbol string) (underlying string, strike decimal.Decimal, expiry time.Time, err error) {
	matches := symbolRegex.FindStringSubmatch(symbol)
	if matches == nil {
		return "", decimal.Zero, time.Time{}, fmt.Errorf("%w: %s (expected CC-{underlying}-{strike}-{YYYYMMDD})",
			ErrInvalidSymbol, symbol)
	}

	underlying = matches[1]

	strike, err = decimal.NewFromString(matches[2])
	if err != nil || !strike.IsPositive() {
		return "", decimal.Zero, time.Time{}, fmt.Errorf("%w: strike %s", ErrInvalidSymbol, matches[2])
	}

	expiry, err = time.Parse("20060102", matches[3])
	if err != nil {
		return "", decimal.Zero, time.Time{}, fmt.Errorf("%w: invalid date %s", ErrInvalidSymbol, matches[3])
	}

	return underlying, strike, expiry.UTC(), nil
}

// NewTerms constructs validated series terms. underlyingDecimals is the
// decimal precision of the underlying asset; feePercent is the assignment
// fee retained by the treasury on exercise, in whole percent (0-100).
func NewTerms(symbol string, expiry time.Time, underlyingDecimals int, feePercent int64) (Terms, error) {
	underlying, strike, symExpiry, err := ParseSymbol(symbol)
	if err != nil {
		return Terms{}, err
	}
	if expiry.IsZero() {
		expiry = symExpiry
	}
	if underlyingDecimals < 0 || underlyingDecimals > 18 {
		return Terms{}, fmt.Errorf("%w: underlying decimals %d out of range", ErrInvalidTerms, underlyingDecimals)
	}
	if feePercent < 0 || feePercent > 100 {
		return Terms{}, fmt.Errorf("%w: fee percent %d out of range", ErrInvalidTerms, feePercent)
	}

	return Terms{
		Symbol:               symbol,
		Underlying:           underlying,
		StrikePrice:          strike,
		Expiry:               expiry,
		UnderlyingScale:      decimal.New(1, int32(underlyingDecimals)),
		AssignmentFeePercent: feePercent,
	}, nil
}

// ScaleUnits converts whole contract units to underlying smallest units.
func (t Terms) ScaleUnits(units int64) decimal.Decimal {
	return t.UnderlyingScale.Mul(decimal.NewFromInt(units))
}

// StrikeFor returns the strike-currency cost of exercising `units`.
func (t Terms) StrikeFor(units int64) decimal.Decimal {
	return t.StrikePrice.Mul(decimal.NewFromInt(units))
}

// PremiumRate returns (100 - fee) / 100 as a decimal multiplier applied
// to strike proceeds paid out to assigned shorts.
func (t Terms) PremiumRate() decimal.Decimal {
	return decimal.NewFromInt(100 - t.AssignmentFeePercent).
		Div(decimal.NewFromInt(100))
}
