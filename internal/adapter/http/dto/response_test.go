package dto

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
)

func TestTransactionFromVoucher(t *testing.T) {
	date := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	v := &usecase.Voucher{
		Date:          date,
		TransactionID: "tx-1",
		Kind:          domain.KindReceipt,
		Narration:     "invoice 7",
		Entries: []*domain.LedgerEntry{
			{TransactionID: "tx-1", Date: date, AccountRef: "bank", Kind: domain.KindReceipt, Debit: decimal.NewFromInt(100)},
			{TransactionID: "tx-1", Date: date, AccountRef: "cust-a", Kind: domain.KindReceipt, Credit: decimal.NewFromInt(100)},
		},
		Warnings: []string{"variance skipped"},
	}

	resp := TransactionFromVoucher(v)
	assert.Equal(t, "tx-1", resp.TransactionID)
	assert.Equal(t, "RV", resp.Kind)
	assert.Equal(t, "2024-02-01", resp.Date)
	require.Len(t, resp.Entries, 2)
	assert.True(t, resp.Entries[0].Debit.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, []string{"variance skipped"}, resp.Warnings)
}

func TestTransactionFromEntriesEmpty(t *testing.T) {
	resp := TransactionFromEntries("tx-9", nil)
	assert.Equal(t, "tx-9", resp.TransactionID)
	assert.Empty(t, resp.Entries)
	assert.Empty(t, resp.Kind)
}

func TestAlignmentFromVoucher(t *testing.T) {
	assert.True(t, AlignmentFromVoucher(nil, true).Aligned)

	resp := AlignmentFromVoucher(&usecase.Voucher{TransactionID: "aln-1", Kind: domain.KindAlignment}, false)
	assert.False(t, resp.Aligned)
	assert.False(t, resp.Posted)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, "ALN", resp.Transaction.Kind)
}

func TestConsistencyFromReport(t *testing.T) {
	resp := ConsistencyFromReport(&usecase.ConsistencyReport{
		Transactions: 2,
		Entries:      4,
		Violations: []*usecase.TransactionViolation{{
			TransactionID: "broken",
			Difference:    decimal.NewFromInt(10),
		}},
	})

	assert.Equal(t, "inconsistent", resp.Status)
	require.Len(t, resp.Violations, 1)
	assert.True(t, resp.Violations[0].Difference.Equal(decimal.NewFromInt(10)))

	ok := ConsistencyFromReport(&usecase.ConsistencyReport{Consistent: true})
	assert.Equal(t, "consistent", ok.Status)
	assert.Empty(t, ok.Violations)
}

func TestBalanceFromUseCase(t *testing.T) {
	resp := BalanceFromUseCase(&usecase.PartyBalance{
		Party:   &domain.Party{Account: &domain.Account{ID: "bank", Name: "Bank", Type: domain.AccountTypeAsset}},
		Balance: decimal.NewFromInt(400),
		Entries: 3,
	})

	assert.Equal(t, "bank", resp.Ref)
	assert.Equal(t, "Bank", resp.Name)
	assert.True(t, resp.DebitNormal)
	assert.Equal(t, 3, resp.Entries)
}
