package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/factoryledger/internal/domain"
)

// buildJournal builds an N-line journal. Each line converts independently and a
// positive base amount overrides its rate.
func (b *VoucherBuilder) buildJournal(ctx context.Context, v *Voucher, in VoucherInput) error {
	if len(in.Lines) < 2 {
		return domain.NewValidationError(in.Kind, "lines", "at least two lines are required")
	}

	for i, l := range in.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return domain.NewValidationError(in.Kind, field, "negative amount")
		}
		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			return domain.NewValidationError(in.Kind, field, "exactly one of debit or credit is required")
		}
		if err := domain.ValidateCurrency(l.Currency); err != nil {
			return domain.NewValidationError(in.Kind, field+".currency", err.Error())
		}
	}

	for i, l := range in.Lines {
		p, err := b.party(ctx, in.Kind, fmt.Sprintf("lines[%d].account", i), l.AccountRef)
		if err != nil {
			return err
		}

		fcy := l.Debit
		if l.Credit.IsPositive() {
			fcy = l.Credit
		}

		cur := b.currency(l.Currency)
		base, rate := domain.Resolve(fcy, b.rate(cur, l.Rate), l.BaseAmount)

		v.post(line{party: p, currency: cur, narration: l.Narration, rate: rate, fcy: fcy, base: base}, l.Debit.IsPositive())
	}

	return nil
}

// buildTransfer moves value between two accounts in their own currencies. A base
// difference above tolerance posts to the exchange-variance account: loss is a debit,
// gain a credit.
func (b *VoucherBuilder) buildTransfer(ctx context.Context, v *Voucher, in VoucherInput) error {
	if err := requireAmount(in.Kind, "amount", in.Amount); err != nil {
		return err
	}
	if in.DestinationAmount.IsNegative() {
		return domain.NewValidationError(in.Kind, "destination_amount", "negative amount")
	}
	if err := domain.ValidateCurrency(in.Currency); err != nil {
		return domain.NewValidationError(in.Kind, "currency", err.Error())
	}
	if err := domain.ValidateCurrency(in.DestinationCurrency); err != nil {
		return domain.NewValidationError(in.Kind, "destination_currency", err.Error())
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

	srcCur := b.currency(in.Currency)
	srcRate := b.rate(srcCur, in.Rate)
	srcBase := domain.RoundMoney(domain.ToBase(in.Amount, srcRate))

	dstCur := b.currency(in.DestinationCurrency)
	if in.DestinationCurrency == "" {
		dstCur = srcCur
	}
	dstRate := b.rate(dstCur, in.DestinationRate)

	dstAmount := in.DestinationAmount
	if dstAmount.IsZero() {
		dstAmount = srcBase.Mul(dstRate)
	}
	dstBase := domain.RoundMoney(domain.ToBase(dstAmount, dstRate))

	v.credit(line{party: source, currency: srcCur, rate: srcRate, fcy: in.Amount, base: srcBase})

	diff := srcBase.Sub(dstBase)
	if diff.Abs().LessThanOrEqual(domain.Tolerance) {
		v.debit(line{party: dest, currency: dstCur, rate: dstRate, fcy: dstAmount, base: dstBase})
		return nil
	}

	variance, err := b.resolver.ResolveOptional(ctx, b.chart.ExchangeVariance)
	if err != nil {
		return err
	}

	if variance == nil {
		warning := fmt.Sprintf("exchange variance account not configured; %s difference carried on %s", diff.StringFixed(2), dest.Name())
		v.Warnings = append(v.Warnings, warning)
		b.logger.Warn().
			Str("transaction_id", v.TransactionID).
			Str("difference", diff.StringFixed(2)).
			Msg("transfer posted without variance line")

		effective := dstRate
		if srcBase.IsPositive() {
			effective = dstAmount.Div(srcBase)
		}
		v.debit(line{party: dest, currency: dstCur, rate: effective, fcy: dstAmount, base: srcBase})
		return nil
	}

	v.debit(line{party: dest, currency: dstCur, rate: dstRate, fcy: dstAmount, base: dstBase})

	one := decimal.NewFromInt(1)
	narration := "Exchange variance on transfer"
	if diff.IsPositive() {
		v.debit(line{party: variance, currency: b.converter.Base(), narration: narration, rate: one, fcy: diff, base: diff})
	} else {
		v.credit(line{party: variance, currency: b.converter.Base(), narration: narration, rate: one, fcy: diff.Neg(), base: diff.Neg()})
	}

	return nil
}
