package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/factoryledger/internal/domain"
)

// PurchaseMode selects which account a purchase bill credits.
type PurchaseMode string

const (
	PurchaseOnCredit PurchaseMode = "credit"
	PurchaseForCash  PurchaseMode = "cash"
)

// VoucherInput is the user input of any voucher kind. Only the fields used by Kind are read.
type VoucherInput struct {
	Date          time.Time
	Kind          domain.VoucherKind
	TransactionID string
	Narration     string
	FactoryID     string
	Reason        string

	SourceRef      string
	DestinationRef string
	CashRef        string
	OffsetRef      string

	Amount   decimal.Decimal
	Currency string
	Rate     *decimal.Decimal

	DestinationAmount   decimal.Decimal
	DestinationCurrency string
	DestinationRate     *decimal.Decimal

	PurchaseMode PurchaseMode
	Direction    domain.AdjustmentDirection

	Lines   []JournalLine
	Items   []ItemLine
	Buckets []BucketLine
	Sales   []SaleLine
}

// JournalLine is one line of a journal voucher. Exactly one of Debit or Credit is set,
// in the line's own currency.
type JournalLine struct {
	AccountRef string
	Currency   string
	Narration  string
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	Rate       *decimal.Decimal
	// BaseAmount, when positive, overrides rate conversion.
	BaseAmount *decimal.Decimal
}

// ItemLine adjusts one finished-goods item. For returns only QuantityDelta is read,
// as a positive quantity returned.
type ItemLine struct {
	ItemID        string
	QuantityDelta decimal.Decimal
	WorthDelta    decimal.Decimal
}

// BucketLine adjusts one original-stock bucket.
type BucketLine struct {
	Key          domain.BucketKey
	Direction    domain.AdjustmentDirection
	Weight       *decimal.Decimal
	Worth        decimal.Decimal
	TargetWeight *decimal.Decimal
	TargetWorth  *decimal.Decimal
	SetToZero    bool
}

// SaleLine sells raw material from one purchase.
type SaleLine struct {
	PurchaseID string
	Weight     decimal.Decimal
	Amount     decimal.Decimal
}

// DeferredAction mutates item or stock state after the entries are durably posted.
type DeferredAction struct {
	Name string
	Run  func(ctx context.Context) error
}

// Voucher is a built, not yet posted, transaction.
type Voucher struct {
	Date          time.Time
	TransactionID string
	Kind          domain.VoucherKind
	FactoryID     string
	Narration     string
	Entries       []*domain.LedgerEntry
	Adjustments   []*domain.StockAdjustment
	Deferred      []DeferredAction
	Warnings      []string
	// TouchesStock is set when posting or deleting the voucher changes stock positions.
	TouchesStock bool
}

// line is one side of a posting before it becomes a ledger entry.
type line struct {
	party         *domain.Party
	currency      string
	narration     string
	rate          decimal.Decimal
	fcy           decimal.Decimal
	base          decimal.Decimal
	reportingOnly bool
}

func (v *Voucher) post(l line, debit bool) {
	e := &domain.LedgerEntry{
		Date:          v.Date,
		TransactionID: v.TransactionID,
		AccountRef:    l.party.Ref(),
		AccountName:   l.party.Name(),
		Kind:          v.Kind,
		Currency:      l.currency,
		Narration:     l.narration,
		FactoryID:     v.FactoryID,
		Rate:          l.rate,
		FCYAmount:     l.fcy,
		Debit:         decimal.Zero,
		Credit:        decimal.Zero,
		ReportingOnly: l.reportingOnly,
		IsAdjustment:  v.Kind == domain.KindAlignment,
	}
	if e.Narration == "" {
		e.Narration = v.Narration
	}

	amount := domain.RoundMoney(l.base)
	if debit {
		e.Debit = amount
	} else {
		e.Credit = amount
	}

	v.Entries = append(v.Entries, e)
}

func (v *Voucher) debit(l line)  { v.post(l, true) }
func (v *Voucher) credit(l line) { v.post(l, false) }

func (v *Voucher) afterPost(name string, run func(ctx context.Context) error) {
	v.Deferred = append(v.Deferred, DeferredAction{Name: name, Run: run})
}

// StockReader exposes the current reconciled stock positions.
type StockReader interface {
	Reconcile(ctx context.Context) (*domain.StockReconciliation, error)
	Invalidate(ctx context.Context) error
}

// BalanceReader computes the live normal-signed balance of a party.
type BalanceReader interface {
	Balance(ctx context.Context, ref string) (*PartyBalance, error)
}

// VoucherBuilder turns voucher input into a balanced candidate entry set.
type VoucherBuilder struct {
	parties   PartyRepository
	items     ItemRepository
	records   StockRecordRepository
	stock     StockReader
	balances  BalanceReader
	resolver  *ChartResolver
	chart     Chart
	converter *domain.CurrencyConverter
	idGen     IDGenerator
	logger    zerolog.Logger
	now       func() time.Time
}

// NewVoucherBuilder creates a new VoucherBuilder.
func NewVoucherBuilder(
	parties PartyRepository,
	items ItemRepository,
	records StockRecordRepository,
	stock StockReader,
	balances BalanceReader,
	chart Chart,
	converter *domain.CurrencyConverter,
	idGen IDGenerator,
	logger zerolog.Logger,
) *VoucherBuilder {
	return &VoucherBuilder{
		parties:   parties,
		items:     items,
		records:   records,
		stock:     stock,
		balances:  balances,
		resolver:  NewChartResolver(parties),
		chart:     chart,
		converter: converter,
		idGen:     idGen,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Build validates the input and constructs the voucher for its kind.
func (b *VoucherBuilder) Build(ctx context.Context, in VoucherInput) (*Voucher, error) {
	if !in.Kind.IsValid() || in.Kind == domain.KindAlignment {
		return nil, domain.ErrUnknownVoucherKind
	}

	v := b.newVoucher(in)

	var err error
	switch in.Kind {
	case domain.KindReceipt, domain.KindPayment, domain.KindExpense:
		err = b.buildTwoLine(ctx, v, in)
	case domain.KindPurchaseBill:
		err = b.buildPurchaseBill(ctx, v, in)
	case domain.KindJournal:
		err = b.buildJournal(ctx, v, in)
	case domain.KindTransfer:
		err = b.buildTransfer(ctx, v, in)
	case domain.KindInventoryAdjustment:
		err = b.buildInventoryAdjustment(ctx, v, in)
	case domain.KindOriginalStockAdjustment:
		err = b.buildOriginalStockAdjustment(ctx, v, in)
	case domain.KindReturnToSupplier:
		err = b.buildReturnToSupplier(ctx, v, in)
	case domain.KindWriteOff:
		err = b.buildWriteOff(ctx, v, in)
	case domain.KindBalancingDiscrepancy:
		err = b.buildBalancingDiscrepancy(ctx, v, in)
	case domain.KindDirectSale:
		err = b.buildDirectSale(ctx, v, in)
	}
	if err != nil {
		return nil, err
	}

	return v, nil
}

func (b *VoucherBuilder) newVoucher(in VoucherInput) *Voucher {
	txID := in.TransactionID
	if txID == "" {
		txID = b.idGen.Generate()
	}

	date := in.Date
	if date.IsZero() {
		date = b.now()
	}

	return &Voucher{
		Date:          date,
		TransactionID: txID,
		Kind:          in.Kind,
		FactoryID:     in.FactoryID,
		Narration:     strings.TrimSpace(in.Narration),
	}
}

// party resolves a required account or partner reference.
func (b *VoucherBuilder) party(ctx context.Context, kind domain.VoucherKind, field, ref string) (*domain.Party, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, domain.NewValidationError(kind, field, "selection is required")
	}

	p, err := b.parties.GetParty(ctx, ref)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// rate resolves the rate of a currency, preferring an explicit override.
func (b *VoucherBuilder) rate(currency string, override *decimal.Decimal) decimal.Decimal {
	if override != nil {
		return *override
	}
	return b.converter.Rate(currency)
}

func (b *VoucherBuilder) currency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return b.converter.Base()
	}
	return code
}

// baseLine is a base-currency line at rate 1.
func (b *VoucherBuilder) baseLine(p *domain.Party, amount decimal.Decimal, narration string) line {
	return line{
		party:     p,
		currency:  b.converter.Base(),
		narration: narration,
		rate:      decimal.NewFromInt(1),
		fcy:       amount,
		base:      amount,
	}
}

func requireAmount(kind domain.VoucherKind, field string, amount decimal.Decimal) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return domain.NewValidationError(kind, field, err.Error())
	}
	return nil
}
