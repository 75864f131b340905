package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
)

// DateLayout is the calendar date format accepted in requests.
const DateLayout = "2006-01-02"

// VoucherRequest represents a request to post a voucher of any kind.
type VoucherRequest struct {
	Kind          string `json:"kind" validate:"required,oneof=RV PV EV PB JV TR IA OSA RTS WO BD DS"`
	Date          string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	TransactionID string `json:"transaction_id,omitempty" validate:"omitempty,max=64"`
	Narration     string `json:"narration,omitempty" validate:"max=500"`
	FactoryID     string `json:"factory_id,omitempty"`
	Reason        string `json:"reason,omitempty"`

	SourceRef      string `json:"source_ref,omitempty"`
	DestinationRef string `json:"destination_ref,omitempty"`
	CashRef        string `json:"cash_ref,omitempty"`
	OffsetRef      string `json:"offset_ref,omitempty"`

	Amount   decimal.Decimal  `json:"amount"`
	Currency string           `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`

	DestinationAmount   decimal.Decimal  `json:"destination_amount"`
	DestinationCurrency string           `json:"destination_currency,omitempty" validate:"omitempty,len=3,alpha"`
	DestinationRate     *decimal.Decimal `json:"destination_rate,omitempty"`

	PurchaseMode string `json:"purchase_mode,omitempty" validate:"omitempty,oneof=credit cash"`
	Direction    string `json:"direction,omitempty" validate:"omitempty,oneof=Increase Decrease"`

	Lines   []JournalLineRequest `json:"lines,omitempty" validate:"dive"`
	Items   []ItemLineRequest    `json:"items,omitempty" validate:"dive"`
	Buckets []BucketLineRequest  `json:"buckets,omitempty" validate:"dive"`
	Sales   []SaleLineRequest    `json:"sales,omitempty" validate:"dive"`
}

// JournalLineRequest is one line of a journal voucher.
type JournalLineRequest struct {
	AccountRef string           `json:"account_ref" validate:"required"`
	Currency   string           `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Narration  string           `json:"narration,omitempty"`
	Debit      decimal.Decimal  `json:"debit"`
	Credit     decimal.Decimal  `json:"credit"`
	Rate       *decimal.Decimal `json:"rate,omitempty"`
	BaseAmount *decimal.Decimal `json:"base_amount,omitempty"`
}

// ItemLineRequest adjusts one finished-goods item.
type ItemLineRequest struct {
	ItemID        string          `json:"item_id" validate:"required"`
	QuantityDelta decimal.Decimal `json:"quantity_delta"`
	WorthDelta    decimal.Decimal `json:"worth_delta"`
}

// BucketLineRequest adjusts one original-stock bucket.
type BucketLineRequest struct {
	BucketKeyRequest
	Direction    string           `json:"direction,omitempty" validate:"omitempty,oneof=Increase Decrease"`
	Weight       *decimal.Decimal `json:"weight,omitempty"`
	Worth        decimal.Decimal  `json:"worth"`
	TargetWeight *decimal.Decimal `json:"target_weight,omitempty"`
	TargetWorth  *decimal.Decimal `json:"target_worth,omitempty"`
	SetToZero    bool             `json:"set_to_zero,omitempty"`
}

// SaleLineRequest sells raw material from one purchase.
type SaleLineRequest struct {
	PurchaseID string          `json:"purchase_id" validate:"required"`
	Weight     decimal.Decimal `json:"weight"`
	Amount     decimal.Decimal `json:"amount"`
}

// BucketKeyRequest identifies an original-stock bucket.
type BucketKeyRequest struct {
	TypeID        string `json:"type_id" validate:"required"`
	SupplierID    string `json:"supplier_id" validate:"required"`
	SubSupplierID string `json:"sub_supplier_id,omitempty"`
	ProductID     string `json:"product_id,omitempty"`
}

// ToDomain converts to a bucket key.
func (r BucketKeyRequest) ToDomain() domain.BucketKey {
	return domain.BucketKey{
		TypeID:        r.TypeID,
		SupplierID:    r.SupplierID,
		SubSupplierID: r.SubSupplierID,
		ProductID:     r.ProductID,
	}
}

// ToUseCaseInput converts to use case input.
func (r *VoucherRequest) ToUseCaseInput() (usecase.VoucherInput, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return usecase.VoucherInput{}, err
	}

	in := usecase.VoucherInput{
		Date:                date,
		Kind:                domain.VoucherKind(r.Kind),
		TransactionID:       r.TransactionID,
		Narration:           r.Narration,
		FactoryID:           r.FactoryID,
		Reason:              r.Reason,
		SourceRef:           r.SourceRef,
		DestinationRef:      r.DestinationRef,
		CashRef:             r.CashRef,
		OffsetRef:           r.OffsetRef,
		Amount:              r.Amount,
		Currency:            r.Currency,
		Rate:                r.Rate,
		DestinationAmount:   r.DestinationAmount,
		DestinationCurrency: r.DestinationCurrency,
		DestinationRate:     r.DestinationRate,
		PurchaseMode:        usecase.PurchaseMode(r.PurchaseMode),
		Direction:           domain.AdjustmentDirection(r.Direction),
	}

	for _, l := range r.Lines {
		in.Lines = append(in.Lines, usecase.JournalLine{
			AccountRef: l.AccountRef,
			Currency:   l.Currency,
			Narration:  l.Narration,
			Debit:      l.Debit,
			Credit:     l.Credit,
			Rate:       l.Rate,
			BaseAmount: l.BaseAmount,
		})
	}
	for _, l := range r.Items {
		in.Items = append(in.Items, usecase.ItemLine{
			ItemID:        l.ItemID,
			QuantityDelta: l.QuantityDelta,
			WorthDelta:    l.WorthDelta,
		})
	}
	for _, l := range r.Buckets {
		in.Buckets = append(in.Buckets, usecase.BucketLine{
			Key:          l.ToDomain(),
			Direction:    domain.AdjustmentDirection(l.Direction),
			Weight:       l.Weight,
			Worth:        l.Worth,
			TargetWeight: l.TargetWeight,
			TargetWorth:  l.TargetWorth,
			SetToZero:    l.SetToZero,
		})
	}
	for _, l := range r.Sales {
		in.Sales = append(in.Sales, usecase.SaleLine{
			PurchaseID: l.PurchaseID,
			Weight:     l.Weight,
			Amount:     l.Amount,
		})
	}

	return in, nil
}

// BalanceAlignmentRequest represents a request to align a party balance.
type BalanceAlignmentRequest struct {
	AccountRef string          `json:"account_ref" validate:"required"`
	Target     decimal.Decimal `json:"target"`
	FactoryID  string          `json:"factory_id,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *BalanceAlignmentRequest) ToUseCaseInput() usecase.BalanceTarget {
	return usecase.BalanceTarget{
		AccountRef: r.AccountRef,
		Target:     r.Target,
		FactoryID:  r.FactoryID,
	}
}

// ItemAlignmentRequest represents a request to align an item's quantity and/or worth.
type ItemAlignmentRequest struct {
	ItemID    string           `json:"item_id" validate:"required"`
	Quantity  *decimal.Decimal `json:"quantity,omitempty" validate:"required_without=Worth"`
	Worth     *decimal.Decimal `json:"worth,omitempty" validate:"required_without=Quantity"`
	FactoryID string           `json:"factory_id,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ItemAlignmentRequest) ToUseCaseInput() usecase.ItemTarget {
	return usecase.ItemTarget{
		ItemID:    r.ItemID,
		Quantity:  r.Quantity,
		Worth:     r.Worth,
		FactoryID: r.FactoryID,
	}
}

// StockAlignmentRequest represents a request to align a bucket's weight and/or worth.
type StockAlignmentRequest struct {
	BucketKeyRequest
	Weight    *decimal.Decimal `json:"weight,omitempty" validate:"required_without=Worth"`
	Worth     *decimal.Decimal `json:"worth,omitempty" validate:"required_without=Weight"`
	FactoryID string           `json:"factory_id,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *StockAlignmentRequest) ToUseCaseInput() usecase.StockTarget {
	return usecase.StockTarget{
		Key:       r.ToDomain(),
		Weight:    r.Weight,
		Worth:     r.Worth,
		FactoryID: r.FactoryID,
	}
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Limit  int `json:"limit" validate:"gte=0,lte=1000"`
	Offset int `json:"offset" validate:"gte=0"`
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date: %v", domain.ErrValidation, err)
	}
	return t, nil
}
