// Package risk implements the optional exposure limits checked when the
// originator mints new positions.
//
// Per-short collateral sufficiency is deliberately NOT checked at mint
// time (it is enforced at claim/exercise); these limits only cap how much
// short exposure a single account, or the series as a whole, can carry.
package risk

import "errors"

var (
	// ErrShortLimitExceeded is returned when a mint would push one
	// account's short exposure beyond the per-account maximum.
	ErrShortLimitExceeded = errors.New("risk: per-account short exposure limit exceeded")

	// ErrInterestLimitExceeded is returned when a mint would push total
	// open interest beyond the series maximum.
	ErrInterestLimitExceeded = errors.New("risk: open interest limit exceeded")
)

// ExposureLimiter enforces mint-time exposure caps. A zero limit means
// unlimited for that dimension.
type ExposureLimiter struct {
	// MaxShortPerAccount caps one account's post-mint short exposure,
	// in contract units.
	MaxShortPerAccount int64

	// MaxOpenInterest caps the post-mint total matched exposure of the
	// series, in contract units.
	MaxOpenInterest int64
}

// NewExposureLimiter creates a limiter with the given caps.
func NewExposureLimiter(maxShortPerAccount, maxOpenInterest int64) *ExposureLimiter {
	return &ExposureLimiter{
		MaxShortPerAccount: maxShortPerAccount,
		MaxOpenInterest:    maxOpenInterest,
	}
}

// CheckMint validates a prospective mint.
//
// Parameters:
//   - shortExposure: the short leg's exposure after the mint (0 if the
//     trade leaves them flat or long)
//   - openInterest: a conservative post-mint open interest (current + size)
//
// Returns nil if the mint is within limits, or an error naming the
// violated cap.
func (l *ExposureLimiter) CheckMint(shortExposure, openInterest int64) error {
	if l.MaxShortPerAccount > 0 && shortExposure > l.MaxShortPerAccount {
		return ErrShortLimitExceeded
	}
	if l.MaxOpenInterest > 0 && openInterest > l.MaxOpenInterest {
		return ErrInterestLimitExceeded
	}
	return nil
}
