package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
)

func TestLedgerUseCase_BalanceExcludesReportingOnly(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.vouchers.Submit(ctx, usecase.VoucherInput{
		Kind:           domain.KindPayment,
		SourceRef:      "bank",
		DestinationRef: "ginners",
		Amount:         dec("300"),
	})
	require.NoError(t, err)

	b, err := f.ledger.Balance(ctx, "ginners")
	require.NoError(t, err)
	assert.True(t, b.Balance.IsZero(), "sub-supplier balance = %s", b.Balance)
	assert.Equal(t, 0, b.Entries)

	all, err := f.ledger.ListByAccount(ctx, usecase.ListByAccountInput{AccountRef: "ginners"})
	require.NoError(t, err)
	assert.NotEmpty(t, all, "reporting-only entries are still listed")
}

func TestLedgerUseCase_GetTransaction(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	v := f.postReceipt(t, "50")

	entries, err := f.ledger.GetTransaction(ctx, v.TransactionID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = f.ledger.GetTransaction(ctx, "nope")
	assert.True(t, errors.Is(err, domain.ErrTransactionNotFound))
}

func TestLedgerUseCase_ListByAccountPaginates(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	for _, amount := range []string{"10", "20", "30"} {
		f.postReceipt(t, amount)
	}

	page, err := f.ledger.ListByAccount(ctx, usecase.ListByAccountInput{AccountRef: "bank", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].Debit.Equal(dec("30")), "newest first")

	rest, err := f.ledger.ListByAccount(ctx, usecase.ListByAccountInput{AccountRef: "bank", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.True(t, rest[0].Debit.Equal(dec("10")))

	_, err = f.ledger.ListByAccount(ctx, usecase.ListByAccountInput{AccountRef: "ghost"})
	assert.True(t, errors.Is(err, domain.ErrPartyNotFound))
}

func TestReconciliationUseCase_CheckConsistency(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.postReceipt(t, "1000")

	uc := usecase.NewReconciliationUseCase(f.entries, zerolog.Nop())

	report, err := uc.CheckConsistency(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 1, report.Transactions)
	assert.Equal(t, 2, report.Entries)
	assert.Empty(t, report.Violations)

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f.entries.Seed(
		&domain.LedgerEntry{Date: date, TransactionID: "broken", AccountRef: "bank", Kind: domain.KindJournal, Currency: "USD", Rate: dec("1"), Debit: dec("100"), Credit: dec("0")},
		&domain.LedgerEntry{Date: date, TransactionID: "broken", AccountRef: "capital", Kind: domain.KindJournal, Currency: "USD", Rate: dec("1"), Debit: dec("0"), Credit: dec("90")},
	)

	report, err = uc.CheckConsistency(ctx)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "broken", report.Violations[0].TransactionID)
	assert.True(t, report.Violations[0].Difference.Equal(dec("10")))
}

func TestReconciliationUseCase_ReconcileTransaction(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	v := f.postReceipt(t, "1000")

	uc := usecase.NewReconciliationUseCase(f.entries, zerolog.Nop())

	violation, err := uc.ReconcileTransaction(ctx, v.TransactionID)
	require.NoError(t, err)
	assert.Nil(t, violation)

	_, err = uc.ReconcileTransaction(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrTransactionNotFound))

	f.entries.ListAllFunc = func(context.Context) ([]*domain.LedgerEntry, error) {
		return nil, errors.New("connection lost")
	}
	_, err = uc.CheckConsistency(ctx)
	assert.True(t, errors.Is(err, domain.ErrStoreIO))
}
