package usecase

import (
	"context"
	"fmt"

	"github.com/iho/factoryledger/internal/domain"
)

// buildTwoLine builds receipts, payments and expenses: debit destination, credit source.
func (b *VoucherBuilder) buildTwoLine(ctx context.Context, v *Voucher, in VoucherInput) error {
	if err := requireAmount(in.Kind, "amount", in.Amount); err != nil {
		return err
	}
	if err := domain.ValidateCurrency(in.Currency); err != nil {
		return domain.NewValidationError(in.Kind, "currency", err.Error())
	}
	if in.SourceRef != "" && in.SourceRef == in.DestinationRef {
		return domain.NewValidationError(in.Kind, "destination", "source and destination must differ")
	}

	source, err := b.party(ctx, in.Kind, "source", in.SourceRef)
	if err != nil {
		return err
	}
	dest, err := b.party(ctx, in.Kind, "destination", in.DestinationRef)
	if err != nil {
		return err
	}

	cur := b.currency(in.Currency)
	rate := b.rate(cur, in.Rate)
	base := domain.ToBase(in.Amount, rate)

	src := line{party: source, currency: cur, rate: rate, fcy: in.Amount, base: base}

	if in.Kind == domain.KindPayment && dest.IsSubSupplier() {
		return b.buildPassThroughPayment(ctx, v, src, dest)
	}

	v.credit(src)
	v.debit(line{party: dest, currency: cur, rate: rate, fcy: in.Amount, base: base})

	return nil
}

// buildPassThroughPayment pays a sub-supplier through its parent supplier. The real
// debit lands on the parent; a reporting-only pair shows the payment on the sub-supplier.
func (b *VoucherBuilder) buildPassThroughPayment(ctx context.Context, v *Voucher, src line, sub *domain.Party) error {
	parent, err := b.parties.GetParty(ctx, sub.Partner.ParentSupplierID)
	if err != nil {
		return fmt.Errorf("parent supplier of %s: %w", sub.Name(), err)
	}

	via := fmt.Sprintf("Paid via %s", parent.Name())
	if v.Narration != "" {
		via = v.Narration + " - " + via
	}

	v.credit(src)
	v.debit(line{party: parent, currency: src.currency, rate: src.rate, fcy: src.fcy, base: src.base})

	v.debit(line{party: sub, currency: src.currency, narration: via, rate: src.rate, fcy: src.fcy, base: src.base, reportingOnly: true})
	v.credit(line{party: parent, currency: src.currency, narration: via, rate: src.rate, fcy: src.fcy, base: src.base, reportingOnly: true})

	return nil
}

// buildPurchaseBill debits the purchase account and credits the supplier (credit mode)
// or the cash account (cash mode).
func (b *VoucherBuilder) buildPurchaseBill(ctx context.Context, v *Voucher, in VoucherInput) error {
	if err := requireAmount(in.Kind, "amount", in.Amount); err != nil {
		return err
	}
	if err := domain.ValidateCurrency(in.Currency); err != nil {
		return domain.NewValidationError(in.Kind, "currency", err.Error())
	}

	mode := in.PurchaseMode
	if mode == "" {
		mode = PurchaseOnCredit
	}

	var creditRef, creditField string
	switch mode {
	case PurchaseOnCredit:
		creditRef, creditField = in.SourceRef, "supplier"
	case PurchaseForCash:
		creditRef, creditField = in.CashRef, "cash_account"
	default:
		return domain.NewValidationError(in.Kind, "mode", fmt.Sprintf("unknown purchase mode %q", mode))
	}

	purchase, err := b.party(ctx, in.Kind, "purchase_account", in.DestinationRef)
	if err != nil {
		return err
	}
	payable, err := b.party(ctx, in.Kind, creditField, creditRef)
	if err != nil {
		return err
	}

	cur := b.currency(in.Currency)
	rate := b.rate(cur, in.Rate)
	base := domain.ToBase(in.Amount, rate)

	v.debit(line{party: purchase, currency: cur, rate: rate, fcy: in.Amount, base: base})
	v.credit(line{party: payable, currency: cur, rate: rate, fcy: in.Amount, base: base})

	return nil
}

// buildWriteOff credits the written-off account against the write-off offset.
func (b *VoucherBuilder) buildWriteOff(ctx context.Context, v *Voucher, in VoucherInput) error {
	if err := domain.ValidateReason(in.Kind, in.Reason); err != nil {
		return err
	}
	if err := requireAmount(in.Kind, "amount", in.Amount); err != nil {
		return err
	}

	target, err := b.party(ctx, in.Kind, "account", in.SourceRef)
	if err != nil {
		return err
	}
	offset, err := b.offset(ctx, in.OffsetRef, b.chart.Adjustment)
	if err != nil {
		return err
	}

	cur := b.currency(in.Currency)
	rate := b.rate(cur, in.Rate)
	base := domain.ToBase(in.Amount, rate)
	narration := withReason(v.Narration, "Write-off", in.Reason)

	v.debit(line{party: offset, currency: cur, narration: narration, rate: rate, fcy: in.Amount, base: base})
	v.credit(line{party: target, currency: cur, narration: narration, rate: rate, fcy: in.Amount, base: base})

	return nil
}

// offset resolves an explicit offset reference or falls back to a chart key.
func (b *VoucherBuilder) offset(ctx context.Context, ref string, key domain.ChartKey) (*domain.Party, error) {
	if ref != "" {
		return b.parties.GetParty(ctx, ref)
	}
	return b.resolver.Resolve(ctx, key)
}

func withReason(narration, label, reason string) string {
	if narration != "" {
		return narration + " - " + reason
	}
	return label + " - " + reason
}
