package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the reporting currency every debit/credit is expressed in.
const BaseCurrency = "USD"

// Tolerance is the largest debit/credit difference still considered balanced.
var Tolerance = decimal.New(1, -2)

// CurrencyConverter maps currency codes to rates (foreign units per one base unit).
type CurrencyConverter struct {
	base  string
	rates map[string]decimal.Decimal
}

// NewCurrencyConverter creates a converter for the given base and configured rates.
func NewCurrencyConverter(base string, rates map[string]decimal.Decimal) *CurrencyConverter {
	if base == "" {
		base = BaseCurrency
	}
	normalized := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		normalized[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return &CurrencyConverter{
		base:  strings.ToUpper(base),
		rates: normalized,
	}
}

// Base returns the base currency code.
func (c *CurrencyConverter) Base() string {
	return c.base
}

// Rate resolves a currency code. The base currency (and an empty code) is 1;
// an unknown code resolves to zero and is rejected later by ValidateEntries.
func (c *CurrencyConverter) Rate(code string) decimal.Decimal {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == c.base {
		return decimal.NewFromInt(1)
	}
	rate, ok := c.rates[code]
	if !ok {
		return decimal.Zero
	}
	return rate
}

// ToBase converts a foreign amount using fcy / rate. A non-positive rate yields zero.
func ToBase(fcyAmount, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}
	return fcyAmount.Div(rate)
}

// Resolve converts fcyAmount to base. When baseAmount is supplied and positive it wins
// and the effective rate is back-computed as fcy / base so re-derivation stays consistent.
func Resolve(fcyAmount, rate decimal.Decimal, baseAmount *decimal.Decimal) (base, effectiveRate decimal.Decimal) {
	if baseAmount != nil && baseAmount.IsPositive() {
		return *baseAmount, fcyAmount.Div(*baseAmount)
	}
	return ToBase(fcyAmount, rate), rate
}

// RoundMoney rounds a base amount to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
