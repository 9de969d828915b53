package risk_test

import (
	"errors"
	"testing"

	"github.com/optclear/clearing-engine/internal/risk"
)

func TestCheckMint_WithinLimits(t *testing.T) {
	l := risk.NewExposureLimiter(100, 1000)
	if err := l.CheckMint(100, 1000); err != nil {
		t.Errorf("at exact limits: unexpected error %v", err)
	}
	if err := l.CheckMint(0, 0); err != nil {
		t.Errorf("zero exposure: unexpected error %v", err)
	}
}

func TestCheckMint_ShortLimit(t *testing.T) {
	l := risk.NewExposureLimiter(100, 0)
	if err := l.CheckMint(101, 50000); !errors.Is(err, risk.ErrShortLimitExceeded) {
		t.Errorf("expected ErrShortLimitExceeded, got %v", err)
	}
}

func TestCheckMint_InterestLimit(t *testing.T) {
	l := risk.NewExposureLimiter(0, 1000)
	if err := l.CheckMint(999999, 1001); !errors.Is(err, risk.ErrInterestLimitExceeded) {
		t.Errorf("expected ErrInterestLimitExceeded, got %v", err)
	}
}

func TestCheckMint_ZeroMeansUnlimited(t *testing.T) {
	l := risk.NewExposureLimiter(0, 0)
	if err := l.CheckMint(1<<40, 1<<40); err != nil {
		t.Errorf("unlimited limiter rejected mint: %v", err)
	}
}

func TestCheckMint_ShortLimitCheckedFirst(t *testing.T) {
	l := risk.NewExposureLimiter(10, 10)
	if err := l.CheckMint(11, 11); !errors.Is(err, risk.ErrShortLimitExceeded) {
		t.Errorf("expected ErrShortLimitExceeded, got %v", err)
	}
}
