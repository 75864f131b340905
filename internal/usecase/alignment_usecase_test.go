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

func (f *ledgerFixture) planner() *usecase.AlignmentPlanner {
	return usecase.NewAlignmentPlanner(f.builder, f.entries, f.posting, zerolog.Nop(), nil)
}

func TestAlignmentPlanner_BalanceWithinToleranceIsNoop(t *testing.T) {
	f := newLedgerFixture(t)
	f.postReceipt(t, "1000")

	v, err := f.planner().AlignBalance(context.Background(), usecase.BalanceTarget{
		AccountRef: "bank",
		Target:     dec("1000.005"),
	})
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 2, f.entries.Len())
}

func TestAlignmentPlanner_BalanceBackdatedBeforeEarliestEntry(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.postReceipt(t, "1000")

	v, err := f.planner().AlignBalance(ctx, usecase.BalanceTarget{
		AccountRef: "bank",
		Target:     dec("400"),
	})
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, domain.KindAlignment, v.Kind)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), v.Date)
	assert.Equal(t, "Balance alignment: Bank from 1000.00 to 400.00", v.Narration)

	bank := findEntry(v.Entries, "bank", false)
	require.NotNil(t, bank)
	assert.True(t, bank.Credit.Equal(dec("600")))

	capital := findEntry(v.Entries, "capital", false)
	require.NotNil(t, capital)
	assert.True(t, capital.Debit.Equal(dec("600")))

	assert.True(t, f.balance(t, "bank").Equal(dec("400")))
}

func TestAlignmentPlanner_BalanceWithoutEntriesUsesEpoch(t *testing.T) {
	f := newLedgerFixture(t)

	v, err := f.planner().AlignBalance(context.Background(), usecase.BalanceTarget{
		AccountRef: "acme",
		Target:     dec("200"),
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, usecase.AlignmentEpoch, v.Date)

	supplier := findEntry(v.Entries, "acme", false)
	require.NotNil(t, supplier)
	assert.True(t, supplier.Credit.Equal(dec("200")), "credit-normal party is credited")
	assert.True(t, f.balance(t, "acme").Equal(dec("200")))
}

func TestAlignmentPlanner_Item(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	p := f.planner()

	v, err := p.AlignItem(ctx, usecase.ItemTarget{ItemID: "shirt", Quantity: decPtr("12")})
	require.NoError(t, err)
	require.NotNil(t, v)

	fg := findEntry(v.Entries, "fg", false)
	require.NotNil(t, fg)
	assert.True(t, fg.Debit.Equal(dec("10")), "fg debit = %s", fg.Debit)

	item, err := f.items.GetByID(ctx, "shirt")
	require.NoError(t, err)
	assert.True(t, item.Quantity.Equal(dec("12")))

	again, err := p.AlignItem(ctx, usecase.ItemTarget{ItemID: "shirt", Quantity: decPtr("12")})
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestAlignmentPlanner_ItemRequiresTarget(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.planner().PlanItem(context.Background(), usecase.ItemTarget{ItemID: "shirt"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestAlignmentPlanner_Stock(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	p := f.planner()

	v, err := p.AlignStock(ctx, usecase.StockTarget{
		Key:    cottonAcme,
		Weight: decPtr("120"),
		Worth:  decPtr("600"),
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Len(t, v.Adjustments, 1)
	assert.Equal(t, "Alignment", v.Adjustments[0].Reason)
	assert.Equal(t, v.Narration, v.Adjustments[0].Narration)

	raw := findEntry(v.Entries, "raw", false)
	require.NotNil(t, raw)
	assert.True(t, raw.Debit.Equal(dec("100")))

	pos, err := f.stock.Position(ctx, cottonAcme)
	require.NoError(t, err)
	assert.True(t, pos.WeightInHand.Equal(dec("120")), "weight = %s", pos.WeightInHand)
	assert.True(t, pos.Worth.Equal(dec("600")), "worth = %s", pos.Worth)

	again, err := p.AlignStock(ctx, usecase.StockTarget{Key: cottonAcme, Weight: decPtr("120")})
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestAlignmentPlanner_StockUnknownBucket(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.planner().PlanStock(context.Background(), usecase.StockTarget{
		Key:    domain.BucketKey{TypeID: "wool", SupplierID: "acme"},
		Weight: decPtr("5"),
	})
	assert.True(t, errors.Is(err, domain.ErrBucketNotFound))
}

func TestAlignmentPlanner_MissingCapitalAccount(t *testing.T) {
	f := newLedgerFixture(t, withoutAccount("301"))

	_, err := f.planner().PlanBalance(context.Background(), usecase.BalanceTarget{
		AccountRef: "bank",
		Target:     dec("10"),
	})
	assert.True(t, errors.Is(err, domain.ErrMissingAccount))
}
