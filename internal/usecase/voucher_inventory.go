package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/factoryledger/internal/domain"
)

// buildInventoryAdjustment values each item line with weighted-average costing and
// pairs finished-goods inventory against the adjustment offset.
func (b *VoucherBuilder) buildInventoryAdjustment(ctx context.Context, v *Voucher, in VoucherInput) error {
	if len(in.Items) == 0 {
		return domain.NewValidationError(in.Kind, "items", "at least one item is required")
	}
	if err := uniqueItems(in.Kind, in.Items); err != nil {
		return err
	}

	inventory, err := b.resolver.Resolve(ctx, b.chart.FinishedGoods)
	if err != nil {
		return err
	}
	offset, err := b.offset(ctx, in.OffsetRef, b.chart.Adjustment)
	if err != nil {
		return err
	}

	for i, l := range in.Items {
		item, err := b.items.GetByID(ctx, l.ItemID)
		if err != nil {
			return err
		}

		val, err := item.Valuate(l.QuantityDelta, l.WorthDelta)
		if err != nil {
			return err
		}
		if val.Amount.LessThan(domain.Tolerance) {
			return domain.NewValidationError(in.Kind, fmt.Sprintf("items[%d]", i), "adjustment has no monetary effect")
		}

		narration := fmt.Sprintf("Inventory Adjustment: %s (Qty: %s, Worth: $%s)",
			item.Name, l.QuantityDelta.String(), val.Amount.StringFixed(2))
		if in.Reason != "" {
			narration += " - " + in.Reason
		}

		inv := b.baseLine(inventory, val.Amount, narration)
		off := b.baseLine(offset, val.Amount, narration)
		if val.Increase {
			v.debit(inv)
			v.credit(off)
		} else {
			v.credit(inv)
			v.debit(off)
		}

		b.deferItemUpdate(v, item, val)
	}

	return nil
}

// buildReturnToSupplier debits the supplier and credits finished-goods inventory at
// the items' average cost.
func (b *VoucherBuilder) buildReturnToSupplier(ctx context.Context, v *Voucher, in VoucherInput) error {
	if err := domain.ValidateReason(in.Kind, in.Reason); err != nil {
		return err
	}
	if len(in.Items) == 0 {
		return domain.NewValidationError(in.Kind, "items", "at least one item is required")
	}
	if err := uniqueItems(in.Kind, in.Items); err != nil {
		return err
	}
	for i, l := range in.Items {
		if !l.QuantityDelta.IsPositive() {
			return domain.NewValidationError(in.Kind, fmt.Sprintf("items[%d].quantity", i), "returned quantity must be positive")
		}
	}

	supplier, err := b.party(ctx, in.Kind, "supplier", in.SourceRef)
	if err != nil {
		return err
	}
	inventory, err := b.resolver.Resolve(ctx, b.chart.FinishedGoods)
	if err != nil {
		return err
	}

	for i, l := range in.Items {
		item, err := b.items.GetByID(ctx, l.ItemID)
		if err != nil {
			return err
		}
		if l.QuantityDelta.GreaterThan(item.Quantity) {
			return domain.NewValidationError(in.Kind, fmt.Sprintf("items[%d].quantity", i),
				fmt.Sprintf("only %s of %s in stock", item.Quantity.String(), item.Name))
		}

		val, err := item.Valuate(l.QuantityDelta.Neg(), decimal.Zero)
		if err != nil {
			return err
		}
		if val.Amount.LessThan(domain.Tolerance) {
			return domain.NewValidationError(in.Kind, fmt.Sprintf("items[%d]", i), "item has no cost to return")
		}

		narration := fmt.Sprintf("Return to supplier: %s x %s - %s", item.Name, l.QuantityDelta.String(), in.Reason)
		v.debit(b.baseLine(supplier, val.Amount, narration))
		v.credit(b.baseLine(inventory, val.Amount, narration))

		b.deferItemUpdate(v, item, val)
	}

	return nil
}

func (b *VoucherBuilder) deferItemUpdate(v *Voucher, item *domain.Item, val *domain.Valuation) {
	v.afterPost("item:"+item.ID, func(ctx context.Context) error {
		item.Apply(val, b.now())
		return b.items.Update(ctx, item)
	})
}

func uniqueItems(kind domain.VoucherKind, lines []ItemLine) error {
	seen := make(map[string]bool, len(lines))
	for i, l := range lines {
		if l.ItemID == "" {
			return domain.NewValidationError(kind, fmt.Sprintf("items[%d]", i), "item selection is required")
		}
		if seen[l.ItemID] {
			return domain.NewValidationError(kind, fmt.Sprintf("items[%d]", i), "item listed twice")
		}
		seen[l.ItemID] = true
	}
	return nil
}

// buildOriginalStockAdjustment adjusts raw-material buckets against the adjustment
// offset. Each bucket line becomes a structured side-record whose rendered narration
// is written on its entries.
func (b *VoucherBuilder) buildOriginalStockAdjustment(ctx context.Context, v *Voucher, in VoucherInput) error {
	if err := domain.ValidateReason(in.Kind, in.Reason); err != nil {
		return err
	}
	if len(in.Buckets) == 0 {
		return domain.NewValidationError(in.Kind, "buckets", "at least one stock position is required")
	}
	for i, l := range in.Buckets {
		if err := validateBucketLine(in.Kind, i, l); err != nil {
			return err
		}
	}

	current, err := b.stock.Reconcile(ctx)
	if err != nil {
		return err
	}
	inventory, err := b.resolver.Resolve(ctx, b.chart.RawMaterials)
	if err != nil {
		return err
	}
	offset, err := b.offset(ctx, in.OffsetRef, b.chart.Adjustment)
	if err != nil {
		return err
	}

	for i, l := range in.Buckets {
		pos := current.Find(l.Key)
		if pos == nil {
			return fmt.Errorf("%w: %s", domain.ErrBucketNotFound, l.Key)
		}

		adj, effect := planBucketAdjustment(pos, l)
		adj.TransactionID = v.TransactionID
		adj.Reason = in.Reason
		adj.LineNo = i
		adj.Narration = domain.RenderAdjustmentNarration(adj)
		v.Adjustments = append(v.Adjustments, adj)

		amount := domain.RoundMoney(effect.Abs())
		if amount.LessThan(domain.Tolerance) {
			continue
		}

		inv := b.baseLine(inventory, amount, adj.Narration)
		off := b.baseLine(offset, amount, adj.Narration)
		if adj.Direction == domain.DirectionIncrease {
			v.debit(inv)
			v.credit(off)
		} else {
			v.credit(inv)
			v.debit(off)
		}
	}

	v.TouchesStock = true
	v.afterPost("stock:invalidate", b.stock.Invalidate)

	return nil
}

func validateBucketLine(kind domain.VoucherKind, i int, l BucketLine) error {
	field := fmt.Sprintf("buckets[%d]", i)
	if l.Key.TypeID == "" || l.Key.SupplierID == "" {
		return domain.NewValidationError(kind, field, "raw material type and supplier are required")
	}
	if l.SetToZero || l.TargetWeight != nil || l.TargetWorth != nil {
		if (l.TargetWeight != nil && l.TargetWeight.IsNegative()) || (l.TargetWorth != nil && l.TargetWorth.IsNegative()) {
			return domain.NewValidationError(kind, field, "targets cannot be negative")
		}
		return nil
	}
	if l.Direction != domain.DirectionIncrease && l.Direction != domain.DirectionDecrease {
		return domain.NewValidationError(kind, field+".direction", "increase or decrease is required")
	}
	if l.Worth.IsNegative() || (l.Weight != nil && l.Weight.IsNegative()) {
		return domain.NewValidationError(kind, field, "weight and worth are magnitudes")
	}
	if l.Worth.IsZero() && (l.Weight == nil || l.Weight.IsZero()) {
		return domain.NewValidationError(kind, field, "weight or worth is required")
	}
	return nil
}

// planBucketAdjustment derives the side-record of one bucket line and its signed
// monetary effect on raw-material inventory.
func planBucketAdjustment(pos *domain.StockPosition, l BucketLine) (*domain.StockAdjustment, decimal.Decimal) {
	adj := &domain.StockAdjustment{
		TypeName:      pos.TypeName,
		SupplierName:  pos.SupplierName,
		TypeID:        pos.Key.TypeID,
		SupplierID:    pos.Key.SupplierID,
		SubSupplierID: pos.Key.SubSupplierID,
		ProductID:     pos.Key.ProductID,
	}

	var weightDelta, effect decimal.Decimal

	switch {
	case l.SetToZero:
		zero := decimal.Zero
		adj.SetToZero = true
		adj.ZeroWorth = true
		adj.TargetWeight, adj.TargetWorth = &zero, &zero
		weightDelta = pos.WeightInHand.Neg()
		effect = pos.Worth.Neg()

	case l.TargetWeight != nil || l.TargetWorth != nil:
		if l.TargetWeight != nil {
			tw := *l.TargetWeight
			adj.TargetWeight = &tw
			weightDelta = tw.Sub(pos.WeightInHand)
		}
		if l.TargetWorth != nil {
			tv := *l.TargetWorth
			adj.TargetWorth = &tv
			adj.ZeroWorth = tv.IsZero()
			effect = tv.Sub(pos.Worth)
		}

	default:
		adj.Direction = l.Direction
		worth := l.Worth
		if l.Weight != nil {
			w := l.Weight.Abs()
			adj.Weight = &w
			if worth.IsZero() {
				worth = w.Mul(pos.AvgCost)
			}
		}
		adj.Worth = domain.RoundMoney(worth)
		return adj, adj.WorthDelta()
	}

	switch {
	case effect.IsNegative(), effect.IsZero() && weightDelta.IsNegative():
		adj.Direction = domain.DirectionDecrease
	default:
		adj.Direction = domain.DirectionIncrease
	}
	if l.TargetWeight != nil || l.SetToZero {
		w := weightDelta.Abs()
		adj.Weight = &w
	}
	adj.Worth = domain.RoundMoney(effect.Abs())

	return adj, effect
}
