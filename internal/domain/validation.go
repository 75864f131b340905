package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrAmountTooLarge  = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall  = errors.New("amount below minimum allowed")
)

// Validation constants
const (
	MaxReasonLength  = 500
	MaxNarrationSize = 2000
	MaxVoucherAmount = "1000000000000" // 1 trillion
	MinVoucherAmount = "0.01"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrency validates the shape of a currency code. Whether a rate is configured
// for it is decided by the converter.
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil
	}

	if !currencyRegex.MatchString(currency) {
		return fmt.Errorf("%w: %s", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateAmount validates a user-entered voucher amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	minAmount, _ := decimal.NewFromString(MinVoucherAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinVoucherAmount)
	}

	maxAmount, _ := decimal.NewFromString(MaxVoucherAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxVoucherAmount)
	}

	return nil
}

// ValidateReason checks the free-text reason required by write-offs, returns and adjustments.
func ValidateReason(kind VoucherKind, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError(kind, "reason", "reason is required")
	}
	if len(reason) > MaxReasonLength {
		return NewValidationError(kind, "reason", fmt.Sprintf("reason exceeds %d characters", MaxReasonLength))
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
