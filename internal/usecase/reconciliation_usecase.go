package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/factoryledger/internal/domain"
)

// ReconciliationUseCase checks the balance invariant across the whole entry log.
type ReconciliationUseCase struct {
	entries EntryStore
	logger  zerolog.Logger
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(entries EntryStore, logger zerolog.Logger) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		entries: entries,
		logger:  logger,
	}
}

// TransactionViolation describes one transaction that breaks the balance invariant.
type TransactionViolation struct {
	TransactionID string
	TotalDebit    decimal.Decimal
	TotalCredit   decimal.Decimal
	Difference    decimal.Decimal
	Reason        string
}

// ConsistencyReport represents a full ledger consistency scan.
type ConsistencyReport struct {
	Transactions int
	Entries      int
	TotalDebit   decimal.Decimal
	TotalCredit  decimal.Decimal
	Violations   []*TransactionViolation
	Consistent   bool
	CheckedAt    time.Time
}

// CheckConsistency replays every entry, grouped by transaction id, through the
// double-entry validator.
func (uc *ReconciliationUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	entries, err := uc.entries.ListAll(ctx)
	if err != nil {
		return nil, &domain.StoreIOError{Op: "query", Err: err}
	}

	order, groups := domain.GroupByTransaction(entries)
	debit, credit := domain.Totals(entries)

	report := &ConsistencyReport{
		Transactions: len(order),
		Entries:      len(entries),
		TotalDebit:   debit,
		TotalCredit:  credit,
		Violations:   make([]*TransactionViolation, 0),
		CheckedAt:    time.Now().UTC(),
	}

	for _, id := range order {
		if v := checkTransaction(id, groups[id]); v != nil {
			report.Violations = append(report.Violations, v)
			uc.logger.Warn().
				Str("transaction_id", id).
				Str("reason", v.Reason).
				Msg("ledger inconsistency detected")
		}
	}

	report.Consistent = len(report.Violations) == 0

	return report, nil
}

// ReconcileTransaction checks a single transaction. It returns nil when balanced.
func (uc *ReconciliationUseCase) ReconcileTransaction(ctx context.Context, transactionID string) (*TransactionViolation, error) {
	entries, err := uc.entries.QueryByTransaction(ctx, transactionID)
	if err != nil {
		return nil, &domain.StoreIOError{Op: "query", TransactionID: transactionID, Err: err}
	}
	if len(entries) == 0 {
		return nil, domain.ErrTransactionNotFound
	}

	return checkTransaction(transactionID, entries), nil
}

func checkTransaction(id string, entries []*domain.LedgerEntry) *TransactionViolation {
	err := domain.ValidateEntries(entries)
	if err == nil {
		return nil
	}

	debit, credit := domain.Totals(entries)
	v := &TransactionViolation{
		TransactionID: id,
		TotalDebit:    debit,
		TotalCredit:   credit,
		Difference:    debit.Sub(credit),
		Reason:        err.Error(),
	}

	return v
}
