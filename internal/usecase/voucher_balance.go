package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iho/factoryledger/internal/domain"
)

// buildBalancingDiscrepancy moves a party's balance away from (increase) or toward
// (decrease) zero against the discrepancy offset. The posting side flips when the
// party's current balance has the opposite sign of its normal side.
func (b *VoucherBuilder) buildBalancingDiscrepancy(ctx context.Context, v *Voucher, in VoucherInput) error {
	if in.Direction != domain.DirectionIncrease && in.Direction != domain.DirectionDecrease {
		return domain.NewValidationError(in.Kind, "direction", "increase or decrease is required")
	}
	if err := requireAmount(in.Kind, "amount", in.Amount); err != nil {
		return err
	}
	if in.SourceRef == "" {
		return domain.NewValidationError(in.Kind, "account", "selection is required")
	}

	current, err := b.balances.Balance(ctx, in.SourceRef)
	if err != nil {
		return err
	}
	offset, err := b.offset(ctx, in.OffsetRef, b.chart.Discrepancy)
	if err != nil {
		return err
	}

	growsOnDebit := current.Party.DebitNormal() != current.Balance.IsNegative()
	debitTarget := growsOnDebit == (in.Direction == domain.DirectionIncrease)

	narration := v.Narration
	if narration == "" {
		narration = fmt.Sprintf("Balancing discrepancy (%s) on %s", in.Direction, current.Party.Name())
	}
	if in.Reason != "" {
		narration += " - " + in.Reason
	}

	cur := b.currency(in.Currency)
	rate := b.rate(cur, in.Rate)
	base := domain.ToBase(in.Amount, rate)

	target := line{party: current.Party, currency: cur, narration: narration, rate: rate, fcy: in.Amount, base: base}
	off := line{party: offset, currency: cur, narration: narration, rate: rate, fcy: in.Amount, base: base}

	v.post(target, debitTarget)
	v.post(off, !debitTarget)

	return nil
}

// buildDirectSale sells raw material straight from purchases: debit the customer,
// credit sales revenue, and record the sold weight against each originating purchase.
func (b *VoucherBuilder) buildDirectSale(ctx context.Context, v *Voucher, in VoucherInput) error {
	if len(in.Sales) == 0 {
		return domain.NewValidationError(in.Kind, "sales", "at least one sale line is required")
	}
	if err := domain.ValidateCurrency(in.Currency); err != nil {
		return domain.NewValidationError(in.Kind, "currency", err.Error())
	}
	for i, s := range in.Sales {
		field := fmt.Sprintf("sales[%d]", i)
		if s.PurchaseID == "" {
			return domain.NewValidationError(in.Kind, field+".purchase", "originating purchase is required")
		}
		if !s.Weight.IsPositive() {
			return domain.NewValidationError(in.Kind, field+".weight", "weight must be positive")
		}
		if err := requireAmount(in.Kind, field+".amount", s.Amount); err != nil {
			return err
		}
	}

	customer, err := b.party(ctx, in.Kind, "customer", in.SourceRef)
	if err != nil {
		return err
	}
	revenue, err := b.resolver.Resolve(ctx, b.chart.SalesRevenue)
	if err != nil {
		return err
	}

	cur := b.currency(in.Currency)
	rate := b.rate(cur, in.Rate)

	sales := make([]*domain.DirectSaleRecord, 0, len(in.Sales))
	for _, s := range in.Sales {
		purchase, err := b.records.GetPurchase(ctx, s.PurchaseID)
		if err != nil {
			if errors.Is(err, domain.ErrPurchaseNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrPurchaseNotFound, s.PurchaseID)
			}
			return err
		}

		narration := v.Narration
		if narration == "" {
			narration = fmt.Sprintf("Direct sale: %s (%s) %s kg", purchase.TypeName, purchase.SupplierLabel(), s.Weight.String())
		}

		base := domain.ToBase(s.Amount, rate)
		v.debit(line{party: customer, currency: cur, narration: narration, rate: rate, fcy: s.Amount, base: base})
		v.credit(line{party: revenue, currency: cur, narration: narration, rate: rate, fcy: s.Amount, base: base})

		sales = append(sales, &domain.DirectSaleRecord{
			Date:          v.Date,
			ID:            b.idGen.Generate(),
			TransactionID: v.TransactionID,
			PurchaseID:    s.PurchaseID,
			Weight:        s.Weight,
			Posted:        true,
		})
	}

	v.TouchesStock = true
	v.afterPost("stock:direct-sales", func(ctx context.Context) error {
		for _, s := range sales {
			if err := b.records.CreateDirectSale(ctx, s); err != nil {
				return err
			}
		}
		return b.stock.Invalidate(ctx)
	})

	return nil
}
