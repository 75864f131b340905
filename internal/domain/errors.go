package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Posting errors
	ErrValidation         = errors.New("validation failed")
	ErrInvalidRate        = errors.New("invalid exchange rate")
	ErrUnbalanced         = errors.New("unbalanced transaction")
	ErrEmptyTransaction   = errors.New("transaction has no entries")
	ErrMixedTransaction   = errors.New("entries belong to different transactions")
	ErrMissingAccount     = errors.New("required account is not configured")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrUnknownVoucherKind = errors.New("unknown voucher kind")

	// Lookup errors
	ErrPartyNotFound       = errors.New("account or partner not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBucketNotFound      = errors.New("original stock position not found")
	ErrPurchaseNotFound    = errors.New("purchase not found")

	// Store and workflow errors
	ErrStoreIO                 = errors.New("entry store operation failed")
	ErrEditStuck               = errors.New("transaction could not be deleted; manual intervention required")
	ErrTransactionInFlight     = errors.New("transaction is already being processed")
	ErrTransactionExists       = errors.New("transaction id is already posted")
	ErrReconciliationAmbiguity = errors.New("adjustment could not be reconciled")
)

// ValidationError reports a missing or malformed voucher field. It is never posted.
type ValidationError struct {
	Kind   VoucherKind
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s %s: %s", ErrValidation, e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for a voucher kind.
func NewValidationError(kind VoucherKind, field, reason string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Reason: reason}
}

// InvalidRateError names the account whose exchange rate is zero, negative or unset.
type InvalidRateError struct {
	AccountRef  string
	AccountName string
	Rate        decimal.Decimal
}

func (e *InvalidRateError) Error() string {
	name := e.AccountName
	if name == "" {
		name = e.AccountRef
	}
	return fmt.Sprintf("%s: account %q has rate %s", ErrInvalidRate, name, e.Rate.String())
}

// Is lets an InvalidRateError match both ErrInvalidRate and ErrValidation.
func (e *InvalidRateError) Is(target error) bool {
	return target == ErrInvalidRate || target == ErrValidation
}

// UnbalancedTransactionError blocks submission of a transaction whose sides differ.
type UnbalancedTransactionError struct {
	TransactionID string
	MissingSide   bool
	TotalDebit    decimal.Decimal
	TotalCredit   decimal.Decimal
}

func (e *UnbalancedTransactionError) Error() string {
	if e.MissingSide {
		return fmt.Sprintf("%s: missing side (transaction %s)", ErrUnbalanced, e.TransactionID)
	}
	return fmt.Sprintf(
		"%s: amount mismatch (transaction %s): debit=%s credit=%s difference=%s",
		ErrUnbalanced,
		e.TransactionID,
		e.TotalDebit.StringFixed(2),
		e.TotalCredit.StringFixed(2),
		e.Difference().StringFixed(2),
	)
}

// Difference returns Σdebit − Σcredit.
func (e *UnbalancedTransactionError) Difference() decimal.Decimal {
	return e.TotalDebit.Sub(e.TotalCredit)
}

func (e *UnbalancedTransactionError) Unwrap() error {
	return ErrUnbalanced
}

// MissingAccountError is a setup gap: no default account is ever substituted.
type MissingAccountError struct {
	Key ChartKey
}

func (e *MissingAccountError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingAccount, e.Key.Describe())
}

func (e *MissingAccountError) Unwrap() error {
	return ErrMissingAccount
}

// StoreIOError wraps a failed append, delete or query against the entry store.
type StoreIOError struct {
	Op            string
	TransactionID string
	Err           error
}

func (e *StoreIOError) Error() string {
	if e.TransactionID != "" {
		return fmt.Sprintf("%s: %s %s: %v", ErrStoreIO, e.Op, e.TransactionID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrStoreIO, e.Op, e.Err)
}

func (e *StoreIOError) Unwrap() []error {
	return []error{ErrStoreIO, e.Err}
}

// ReconciliationAmbiguityError describes one adjustment skipped by the stock reconciler.
type ReconciliationAmbiguityError struct {
	TransactionID string
	Narration     string
	Reason        string
}

func (e *ReconciliationAmbiguityError) Error() string {
	return fmt.Sprintf("%s: transaction %s: %s", ErrReconciliationAmbiguity, e.TransactionID, e.Reason)
}

func (e *ReconciliationAmbiguityError) Unwrap() error {
	return ErrReconciliationAmbiguity
}
