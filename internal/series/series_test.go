package series_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/optclear/clearing-engine/internal/series"
)

func TestParseSymbol_Valid(t *testing.T) {
	underlying, strike, expiry, err := series.ParseSymbol("CC-WETH-250000-20260918")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if underlying != "WETH" {
		t.Errorf("underlying = %q, want WETH", underlying)
	}
	if !strike.Equal(decimal.NewFromInt(250000)) {
		t.Errorf("strike = %s, want 250000", strike)
	}
	want := time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC)
	if !expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", expiry, want)
	}
}

func TestParseSymbol_Invalid(t *testing.T) {
	cases := []string{
		"",
		"WETH-250000-20260918",      // missing prefix
		"CC-weth-250000-20260918",   // lowercase underlying
		"CC-WETH-250000",            // missing date
		"CC-WETH-250000-2026091",    // short date
		"CC-WETH--20260918",         // empty strike
		"CC-WETH-250000-20261345",   // impossible date
		"PC-WETH-250000-20260918",   // wrong prefix
	}
	for _, symbol := range cases {
		if _, _, _, err := series.ParseSymbol(symbol); !errors.Is(err, series.ErrInvalidSymbol) {
			t.Errorf("ParseSymbol(%q): expected ErrInvalidSymbol, got %v", symbol, err)
		}
	}
}

func TestNewTerms(t *testing.T) {
	terms, err := series.NewTerms("CC-WETH-1000-20270115", time.Time{}, 2, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !terms.UnderlyingScale.Equal(decimal.NewFromInt(100)) {
		t.Errorf("scale = %s, want 100", terms.UnderlyingScale)
	}
	if terms.AssignmentFeePercent != 10 {
		t.Errorf("fee = %d, want 10", terms.AssignmentFeePercent)
	}
	if terms.Expiry != time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC) {
		t.Errorf("expiry = %v", terms.Expiry)
	}
}

func TestNewTerms_ExplicitExpiryWins(t *testing.T) {
	expiry := time.Date(2027, 1, 15, 21, 0, 0, 0, time.UTC) // 16:00 New York close
	terms, err := series.NewTerms("CC-WETH-1000-20270115", expiry, 2, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !terms.Expiry.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", terms.Expiry, expiry)
	}
}

func TestNewTerms_InvalidParameters(t *testing.T) {
	if _, err := series.NewTerms("CC-WETH-1000-20270115", time.Time{}, 2, 101); !errors.Is(err, series.ErrInvalidTerms) {
		t.Errorf("fee 101: expected ErrInvalidTerms, got %v", err)
	}
	if _, err := series.NewTerms("CC-WETH-1000-20270115", time.Time{}, -1, 10); !errors.Is(err, series.ErrInvalidTerms) {
		t.Errorf("decimals -1: expected ErrInvalidTerms, got %v", err)
	}
	if _, err := series.NewTerms("CC-WETH-1000-20270115", time.Time{}, 19, 10); !errors.Is(err, series.ErrInvalidTerms) {
		t.Errorf("decimals 19: expected ErrInvalidTerms, got %v", err)
	}
}

func TestTermsHelpers(t *testing.T) {
	terms, err := series.NewTerms("CC-WETH-1000-20270115", time.Time{}, 2, 10)
	if err != nil {
		t.Fatal(err)
	}

	if got := terms.ScaleUnits(7); !got.Equal(decimal.NewFromInt(700)) {
		t.Errorf("ScaleUnits(7) = %s, want 700", got)
	}
	if got := terms.StrikeFor(5); !got.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("StrikeFor(5) = %s, want 5000", got)
	}
	if got := terms.PremiumRate(); !got.Equal(decimal.NewFromFloat(0.9)) {
		t.Errorf("PremiumRate = %s, want 0.9", got)
	}
}
