package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/infrastructure/metrics"
)

// BalanceTarget is the desired normal-signed balance of a party.
type BalanceTarget struct {
	AccountRef string
	Target     decimal.Decimal
	FactoryID  string
}

// ItemTarget is the desired quantity and/or worth of a finished-goods item.
type ItemTarget struct {
	ItemID    string
	Quantity  *decimal.Decimal
	Worth     *decimal.Decimal
	FactoryID string
}

// StockTarget is the desired weight and/or worth of an original-stock bucket.
type StockTarget struct {
	Key       domain.BucketKey
	Weight    *decimal.Decimal
	Worth     *decimal.Decimal
	FactoryID string
}

// AlignmentPlanner builds backdated ALN transactions that move derived state onto a
// known-correct target. A plan within tolerance of the target is a no-op and returns nil.
type AlignmentPlanner struct {
	builder *VoucherBuilder
	entries EntryStore
	posting *PostingUseCase
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewAlignmentPlanner creates a new AlignmentPlanner.
func NewAlignmentPlanner(
	builder *VoucherBuilder,
	entries EntryStore,
	posting *PostingUseCase,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *AlignmentPlanner {
	return &AlignmentPlanner{
		builder: builder,
		entries: entries,
		posting: posting,
		logger:  logger,
		metrics: metrics,
	}
}

// PlanBalance plans the alignment of a party balance against owner's capital.
func (p *AlignmentPlanner) PlanBalance(ctx context.Context, t BalanceTarget) (*Voucher, error) {
	b := p.builder

	current, err := b.balances.Balance(ctx, t.AccountRef)
	if err != nil {
		return nil, err
	}

	delta := t.Target.Sub(current.Balance)
	if delta.Abs().LessThan(domain.Tolerance) {
		return nil, nil
	}

	capital, err := b.resolver.Resolve(ctx, b.chart.Capital)
	if err != nil {
		return nil, err
	}

	date, err := p.alignmentDate(ctx, t.AccountRef)
	if err != nil {
		return nil, err
	}

	narration := fmt.Sprintf("Balance alignment: %s from %s to %s",
		current.Party.Name(), current.Balance.StringFixed(2), t.Target.StringFixed(2))
	v := b.newVoucher(VoucherInput{
		Date:      date,
		Kind:      domain.KindAlignment,
		Narration: narration,
		FactoryID: t.FactoryID,
	})

	amount := domain.RoundMoney(delta.Abs())
	target := b.baseLine(current.Party, amount, narration)
	offset := b.baseLine(capital, amount, narration)
	if current.Party.DebitNormal() == delta.IsPositive() {
		v.debit(target)
		v.credit(offset)
	} else {
		v.credit(target)
		v.debit(offset)
	}

	return v, nil
}

// PlanItem plans the alignment of an item's quantity and worth against owner's capital.
func (p *AlignmentPlanner) PlanItem(ctx context.Context, t ItemTarget) (*Voucher, error) {
	b := p.builder

	if t.Quantity == nil && t.Worth == nil {
		return nil, domain.NewValidationError(domain.KindAlignment, "target", "quantity or worth is required")
	}

	item, err := b.items.GetByID(ctx, t.ItemID)
	if err != nil {
		return nil, err
	}

	quantityDelta, worthDelta := decimal.Zero, decimal.Zero
	if t.Quantity != nil {
		quantityDelta = t.Quantity.Sub(item.Quantity)
	}
	if t.Worth != nil {
		worthDelta = t.Worth.Sub(item.Worth())
		if worthDelta.Abs().LessThan(domain.Tolerance) {
			worthDelta = decimal.Zero
		}
	}
	if quantityDelta.IsZero() && worthDelta.IsZero() {
		return nil, nil
	}

	val, err := item.Valuate(quantityDelta, worthDelta)
	if err != nil {
		return nil, err
	}
	if val.Amount.LessThan(domain.Tolerance) {
		return nil, domain.NewValidationError(domain.KindAlignment, "worth",
			fmt.Sprintf("%s has no cost; a target worth is required", item.Name))
	}

	inventory, err := b.resolver.Resolve(ctx, b.chart.FinishedGoods)
	if err != nil {
		return nil, err
	}
	capital, err := b.resolver.Resolve(ctx, b.chart.Capital)
	if err != nil {
		return nil, err
	}

	date, err := p.alignmentDate(ctx, inventory.Ref())
	if err != nil {
		return nil, err
	}

	narration := fmt.Sprintf("Item alignment: %s (Qty: %s, Worth: $%s)",
		item.Name, val.NewQuantity.String(), domain.RoundMoney(val.NewQuantity.Mul(val.NewAvgCost)).StringFixed(2))
	v := b.newVoucher(VoucherInput{
		Date:      date,
		Kind:      domain.KindAlignment,
		Narration: narration,
		FactoryID: t.FactoryID,
	})

	inv := b.baseLine(inventory, val.Amount, narration)
	off := b.baseLine(capital, val.Amount, narration)
	if val.Increase {
		v.debit(inv)
		v.credit(off)
	} else {
		v.credit(inv)
		v.debit(off)
	}

	b.deferItemUpdate(v, item, val)

	return v, nil
}

// PlanStock plans a target-mode side-record for one bucket and, when worth changes,
// the raw-materials posting against owner's capital.
func (p *AlignmentPlanner) PlanStock(ctx context.Context, t StockTarget) (*Voucher, error) {
	b := p.builder

	if t.Weight == nil && t.Worth == nil {
		return nil, domain.NewValidationError(domain.KindAlignment, "target", "weight or worth is required")
	}

	current, err := b.stock.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	pos := current.Find(t.Key)
	if pos == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrBucketNotFound, t.Key)
	}

	weightOff := t.Weight != nil && t.Weight.Sub(pos.WeightInHand).Abs().GreaterThanOrEqual(domain.Tolerance)
	worthOff := t.Worth != nil && t.Worth.Sub(pos.Worth).Abs().GreaterThanOrEqual(domain.Tolerance)
	if !weightOff && !worthOff {
		return nil, nil
	}

	inventory, err := b.resolver.Resolve(ctx, b.chart.RawMaterials)
	if err != nil {
		return nil, err
	}
	capital, err := b.resolver.Resolve(ctx, b.chart.Capital)
	if err != nil {
		return nil, err
	}

	date, err := p.alignmentDate(ctx, inventory.Ref())
	if err != nil {
		return nil, err
	}

	v := b.newVoucher(VoucherInput{
		Date:      date,
		Kind:      domain.KindAlignment,
		FactoryID: t.FactoryID,
	})

	adj, effect := planBucketAdjustment(pos, BucketLine{Key: t.Key, TargetWeight: t.Weight, TargetWorth: t.Worth})
	adj.CreatedAt = date
	adj.TransactionID = v.TransactionID
	adj.Reason = "Alignment"
	adj.Narration = domain.RenderAdjustmentNarration(adj)
	v.Narration = adj.Narration
	v.Adjustments = append(v.Adjustments, adj)

	amount := domain.RoundMoney(effect.Abs())
	if amount.GreaterThanOrEqual(domain.Tolerance) {
		inv := b.baseLine(inventory, amount, adj.Narration)
		off := b.baseLine(capital, amount, adj.Narration)
		if effect.IsPositive() {
			v.debit(inv)
			v.credit(off)
		} else {
			v.credit(inv)
			v.debit(off)
		}
	}

	v.TouchesStock = true
	v.afterPost("stock:invalidate", b.stock.Invalidate)

	return v, nil
}

// AlignBalance plans and posts a balance alignment.
func (p *AlignmentPlanner) AlignBalance(ctx context.Context, t BalanceTarget) (*Voucher, error) {
	v, err := p.PlanBalance(ctx, t)
	return p.post(ctx, "balance", v, err)
}

// AlignItem plans and posts an item alignment.
func (p *AlignmentPlanner) AlignItem(ctx context.Context, t ItemTarget) (*Voucher, error) {
	v, err := p.PlanItem(ctx, t)
	return p.post(ctx, "item", v, err)
}

// AlignStock plans and posts a stock alignment.
func (p *AlignmentPlanner) AlignStock(ctx context.Context, t StockTarget) (*Voucher, error) {
	v, err := p.PlanStock(ctx, t)
	return p.post(ctx, "stock", v, err)
}

func (p *AlignmentPlanner) post(ctx context.Context, target string, v *Voucher, err error) (*Voucher, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		p.logger.Debug().Str("target", target).Msg("already aligned")
		return nil, nil
	}

	if err := p.posting.Post(ctx, v); err != nil {
		return v, err
	}

	if p.metrics != nil {
		p.metrics.AlignmentTransactions.WithLabelValues(target).Inc()
	}

	return v, nil
}

// alignmentDate is the day before the earliest entry of ref, or AlignmentEpoch when
// ref has no entries.
func (p *AlignmentPlanner) alignmentDate(ctx context.Context, ref string) (time.Time, error) {
	earliest, err := p.entries.EarliestDate(ctx, ref)
	if err != nil {
		return time.Time{}, &domain.StoreIOError{Op: "query", Err: err}
	}
	if earliest == nil {
		return AlignmentEpoch, nil
	}

	d := earliest.UTC()
	return time.Date(d.Year(), d.Month(), d.Day()-1, 0, 0, 0, 0, time.UTC), nil
}
