package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCurrencyConverter_Rate(t *testing.T) {
	c := NewCurrencyConverter("usd", map[string]decimal.Decimal{
		"pkr ": decimal.NewFromInt(280),
		"AED":  decimal.RequireFromString("3.67"),
	})

	tests := []struct {
		code string
		want string
	}{
		{"USD", "1"},
		{"", "1"},
		{"PKR", "280"},
		{"aed", "3.67"},
		{"EUR", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := c.Rate(tt.code); !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Rate(%q) = %s, want %s", tt.code, got, tt.want)
			}
		})
	}

	if c.Base() != "USD" {
		t.Errorf("Base() = %s", c.Base())
	}
}

func TestToBase(t *testing.T) {
	if got := ToBase(decimal.NewFromInt(2800), decimal.NewFromInt(280)); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("ToBase = %s, want 10", got)
	}
	if got := ToBase(decimal.NewFromInt(100), decimal.Zero); !got.IsZero() {
		t.Errorf("ToBase with zero rate = %s, want 0", got)
	}
}

func TestResolve_BaseAmountPriority(t *testing.T) {
	base := decimal.NewFromInt(40)

	got, rate := Resolve(decimal.NewFromInt(100), decimal.RequireFromString("3.5"), &base)

	if !got.Equal(decimal.NewFromInt(40)) {
		t.Errorf("base = %s, want 40", got)
	}
	if !rate.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("effective rate = %s, want 2.5", rate)
	}
}

func TestResolve_RateDerived(t *testing.T) {
	zero := decimal.Zero

	got, rate := Resolve(decimal.NewFromInt(350), decimal.RequireFromString("3.5"), &zero)

	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("base = %s, want 100", got)
	}
	if !rate.Equal(decimal.RequireFromString("3.5")) {
		t.Errorf("rate = %s, want 3.5", rate)
	}

	got, _ = Resolve(decimal.NewFromInt(350), decimal.RequireFromString("3.5"), nil)
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("base without override = %s, want 100", got)
	}
}
