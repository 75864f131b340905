package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func line(tx, ref string, debit, credit float64) *LedgerEntry {
	return &LedgerEntry{
		TransactionID: tx,
		AccountRef:    ref,
		AccountName:   ref,
		Kind:          KindJournal,
		Rate:          decimal.NewFromInt(1),
		Debit:         decimal.NewFromFloat(debit),
		Credit:        decimal.NewFromFloat(credit),
	}
}

func TestValidateEntries(t *testing.T) {
	zeroRate := line("t1", "bank", 100, 0)
	zeroRate.Rate = decimal.Zero

	tests := []struct {
		name    string
		entries []*LedgerEntry
		wantErr error
	}{
		{
			name:    "balanced pair",
			entries: []*LedgerEntry{line("t1", "bank", 100, 0), line("t1", "cust", 0, 100)},
		},
		{
			name:    "within tolerance",
			entries: []*LedgerEntry{line("t1", "bank", 100.01, 0), line("t1", "cust", 0, 100)},
		},
		{
			name:    "empty",
			wantErr: ErrEmptyTransaction,
		},
		{
			name:    "mixed transaction ids",
			entries: []*LedgerEntry{line("t1", "bank", 100, 0), line("t2", "cust", 0, 100)},
			wantErr: ErrMixedTransaction,
		},
		{
			name:    "zero rate",
			entries: []*LedgerEntry{zeroRate, line("t1", "cust", 0, 100)},
			wantErr: ErrInvalidRate,
		},
		{
			name:    "both sides on one line",
			entries: []*LedgerEntry{line("t1", "bank", 100, 100)},
			wantErr: ErrValidation,
		},
		{
			name:    "missing credit side",
			entries: []*LedgerEntry{line("t1", "bank", 100, 0), line("t1", "cash", 50, 0)},
			wantErr: ErrUnbalanced,
		},
		{
			name:    "amount mismatch",
			entries: []*LedgerEntry{line("t1", "bank", 100, 0), line("t1", "cust", 0, 99.98)},
			wantErr: ErrUnbalanced,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntries(tt.entries)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateEntries_RateCheckedFirst(t *testing.T) {
	bad := line("t1", "bank", 100, 0)
	bad.Rate = decimal.NewFromInt(-1)
	bad.AccountName = "Bank HBL"

	// Also unbalanced: the rate check must win.
	err := ValidateEntries([]*LedgerEntry{bad, line("t1", "cust", 0, 10)})

	var rateErr *InvalidRateError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected InvalidRateError, got %v", err)
	}
	if rateErr.AccountName != "Bank HBL" {
		t.Errorf("expected offending account name, got %q", rateErr.AccountName)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("invalid rate must also be a validation error")
	}
}

func TestValidateEntries_MismatchReportsTotals(t *testing.T) {
	err := ValidateEntries([]*LedgerEntry{line("t9", "bank", 100, 0), line("t9", "cust", 0, 90)})

	var unb *UnbalancedTransactionError
	if !errors.As(err, &unb) {
		t.Fatalf("expected UnbalancedTransactionError, got %v", err)
	}
	if unb.MissingSide {
		t.Fatal("expected amount mismatch, not missing side")
	}
	if !unb.Difference().Equal(decimal.NewFromInt(10)) {
		t.Errorf("difference = %s, want 10", unb.Difference())
	}
	want := "unbalanced transaction: amount mismatch (transaction t9): debit=100.00 credit=90.00 difference=10.00"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestGroupByTransaction(t *testing.T) {
	entries := []*LedgerEntry{
		line("b", "x", 1, 0),
		line("a", "x", 1, 0),
		line("b", "y", 0, 1),
	}

	order, groups := GroupByTransaction(entries)
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Fatalf("unexpected order %v", order)
	}
	if len(groups["b"]) != 2 || len(groups["a"]) != 1 {
		t.Errorf("unexpected grouping %v", groups)
	}
}

func TestSameEntrySet(t *testing.T) {
	a := []*LedgerEntry{line("t1", "bank", 100, 0), line("t1", "cust", 0, 100)}
	b := CloneEntries(a)
	b[0], b[1] = b[1], b[0]
	b[0].ID, b[0].Sequence = "other", 42

	if !SameEntrySet(a, b) {
		t.Error("expected order and store identity to be ignored")
	}

	b[1].Debit = decimal.NewFromInt(101)
	if SameEntrySet(a, b) {
		t.Error("expected amount change to be detected")
	}
}
