package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
	"github.com/iho/factoryledger/internal/usecase/mocks"
)

// ledgerFixture wires the use cases over in-memory stores with a small factory chart.
type ledgerFixture struct {
	entries     *mocks.MockEntryStore
	parties     *mocks.MockPartyRepository
	items       *mocks.MockItemRepository
	records     *mocks.MockStockRecordRepository
	adjustments *mocks.MockStockAdjustmentRepository
	txManager   *mocks.MockTransactionManager
	idGen       *mocks.MockIDGenerator
	guard       *usecase.MemoryGuard

	stock    *usecase.StockUseCase
	ledger   *usecase.LedgerUseCase
	builder  *usecase.VoucherBuilder
	posting  *usecase.PostingUseCase
	vouchers *usecase.VoucherUseCase
}

type fixtureOptions struct {
	skipCodes map[string]bool
}

func withoutAccount(code string) func(*fixtureOptions) {
	return func(o *fixtureOptions) { o.skipCodes[code] = true }
}

var chartAccounts = []*domain.Account{
	{ID: "bank", Code: "101", Name: "Bank", Type: domain.AccountTypeAsset},
	{ID: "cash", Code: "102", Name: "Cash in Hand", Type: domain.AccountTypeAsset},
	{ID: "bank-eur", Code: "103", Name: "Bank EUR", Type: domain.AccountTypeAsset},
	{ID: "raw", Code: "1201", Name: "Inventory - Raw Materials", Type: domain.AccountTypeAsset},
	{ID: "fg", Code: "1202", Name: "Inventory - Finished Goods", Type: domain.AccountTypeAsset},
	{ID: "capital", Code: "301", Name: "Owner's Capital", Type: domain.AccountTypeEquity},
	{ID: "revenue", Code: "401", Name: "Sales Revenue", Type: domain.AccountTypeRevenue},
	{ID: "variance", Code: "502", Name: "Exchange Variance", Type: domain.AccountTypeExpense},
	{ID: "adjustment", Code: "503", Name: "Inventory Adjustment", Type: domain.AccountTypeExpense},
	{ID: "discrepancy", Code: "505", Name: "Suspense", Type: domain.AccountTypeExpense},
	{ID: "purchases", Code: "510", Name: "Purchases", Type: domain.AccountTypeExpense},
	{ID: "rent", Code: "601", Name: "Rent Expense", Type: domain.AccountTypeExpense},
}

var fixturePartners = []*domain.Partner{
	{ID: "cust-a", Name: "Customer A", Type: domain.PartnerCustomer},
	{ID: "acme", Name: "Acme Cotton", Type: domain.PartnerSupplier},
	{ID: "ginners", Name: "Ginners Co", Type: domain.PartnerSubSupplier, ParentSupplierID: "acme"},
}

func newLedgerFixture(t *testing.T, opts ...func(*fixtureOptions)) *ledgerFixture {
	t.Helper()

	o := &fixtureOptions{skipCodes: map[string]bool{}}
	for _, opt := range opts {
		opt(o)
	}

	f := &ledgerFixture{
		entries:     mocks.NewMockEntryStore(),
		parties:     mocks.NewMockPartyRepository(),
		records:     mocks.NewMockStockRecordRepository(),
		adjustments: mocks.NewMockStockAdjustmentRepository(),
		txManager:   mocks.NewMockTransactionManager(),
		idGen:       mocks.NewMockIDGenerator(),
		guard:       usecase.NewMemoryGuard(),
		items: mocks.NewMockItemRepository(&domain.Item{
			ID:       "shirt",
			Name:     "Shirt",
			Quantity: decimal.NewFromInt(10),
			AvgCost:  decimal.NewFromInt(5),
		}),
	}

	for _, a := range chartAccounts {
		if o.skipCodes[a.Code] {
			continue
		}
		c := *a
		f.parties.AddAccount(&c)
	}
	for _, p := range fixturePartners {
		c := *p
		f.parties.AddPartner(&c)
	}

	f.records.Purchases = []*domain.PurchaseRecord{{
		Date:         time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		ID:           "pur-1",
		TypeID:       "cotton",
		TypeName:     "Cotton",
		SupplierID:   "acme",
		SupplierName: "Acme Cotton",
		Weight:       decimal.NewFromInt(100),
		Amount:       decimal.NewFromInt(500),
	}}

	logger := zerolog.Nop()
	converter := domain.NewCurrencyConverter("USD", map[string]decimal.Decimal{
		"EUR": decimal.RequireFromString("0.9"),
		"PKR": decimal.NewFromInt(280),
	})

	f.stock = usecase.NewStockUseCase(f.records, f.adjustments, f.entries, nil, logger, nil)
	f.ledger = usecase.NewLedgerUseCase(f.entries, f.parties)
	f.builder = usecase.NewVoucherBuilder(
		f.parties, f.items, f.records, f.stock, f.ledger,
		usecase.DefaultChart(), converter, f.idGen, logger,
	)
	f.posting = usecase.NewPostingUseCase(f.txManager, f.entries, f.adjustments, f.guard, logger, nil)
	f.vouchers = usecase.NewVoucherUseCase(f.builder, f.posting)

	return f
}

func (f *ledgerFixture) balance(t *testing.T, ref string) decimal.Decimal {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), ref)
	if err != nil {
		t.Fatalf("balance %s: %v", ref, err)
	}
	return b.Balance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var cottonAcme = domain.BucketKey{TypeID: "cotton", SupplierID: "acme"}
