package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VoucherKind tags the user-facing transaction kind that produced an entry.
type VoucherKind string

const (
	KindReceipt                 VoucherKind = "RV"
	KindPayment                 VoucherKind = "PV"
	KindExpense                 VoucherKind = "EV"
	KindPurchaseBill            VoucherKind = "PB"
	KindJournal                 VoucherKind = "JV"
	KindTransfer                VoucherKind = "TR"
	KindInventoryAdjustment     VoucherKind = "IA"
	KindOriginalStockAdjustment VoucherKind = "OSA"
	KindReturnToSupplier        VoucherKind = "RTS"
	KindWriteOff                VoucherKind = "WO"
	KindBalancingDiscrepancy    VoucherKind = "BD"
	KindDirectSale              VoucherKind = "DS"

	// KindAlignment tags retroactive alignment transactions.
	KindAlignment VoucherKind = "ALN"
)

var voucherKinds = map[VoucherKind]bool{
	KindReceipt:                 true,
	KindPayment:                 true,
	KindExpense:                 true,
	KindPurchaseBill:            true,
	KindJournal:                 true,
	KindTransfer:                true,
	KindInventoryAdjustment:     true,
	KindOriginalStockAdjustment: true,
	KindReturnToSupplier:        true,
	KindWriteOff:                true,
	KindBalancingDiscrepancy:    true,
	KindDirectSale:              true,
	KindAlignment:               true,
}

// IsValid reports whether k is a known voucher kind.
func (k VoucherKind) IsValid() bool {
	return voucherKinds[k]
}

// MutatesItems reports whether posting k changes finished-goods item state.
func (k VoucherKind) MutatesItems() bool {
	return k == KindInventoryAdjustment || k == KindReturnToSupplier
}

// TouchesStock reports whether posting or deleting k changes original-stock positions.
func (k VoucherKind) TouchesStock() bool {
	return k == KindOriginalStockAdjustment || k == KindDirectSale
}

// LedgerEntry is one immutable line of a posted transaction.
type LedgerEntry struct {
	CreatedAt     time.Time
	Date          time.Time
	ID            string
	TransactionID string
	AccountRef    string
	AccountName   string
	Kind          VoucherKind
	Currency      string
	Narration     string
	FactoryID     string
	Rate          decimal.Decimal
	FCYAmount     decimal.Decimal
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Sequence      int64
	ReportingOnly bool
	IsAdjustment  bool
}

// IsDebit reports whether the entry posts to the debit side.
func (e *LedgerEntry) IsDebit() bool {
	return e.Debit.IsPositive()
}

// SameAs compares the observable fields of two entries, ignoring store-assigned
// identity (ID, Sequence, CreatedAt).
func (e *LedgerEntry) SameAs(o *LedgerEntry) bool {
	return e.TransactionID == o.TransactionID &&
		e.Date.Equal(o.Date) &&
		e.AccountRef == o.AccountRef &&
		e.AccountName == o.AccountName &&
		e.Kind == o.Kind &&
		e.Currency == o.Currency &&
		e.Rate.Equal(o.Rate) &&
		e.FCYAmount.Equal(o.FCYAmount) &&
		e.Debit.Equal(o.Debit) &&
		e.Credit.Equal(o.Credit) &&
		e.Narration == o.Narration &&
		e.FactoryID == o.FactoryID &&
		e.ReportingOnly == o.ReportingOnly &&
		e.IsAdjustment == o.IsAdjustment
}

// CloneEntries deep-copies entries so captured originals cannot be mutated by callers.
func CloneEntries(entries []*LedgerEntry) []*LedgerEntry {
	out := make([]*LedgerEntry, 0, len(entries))
	for _, e := range entries {
		c := *e
		out = append(out, &c)
	}
	return out
}

// SameEntrySet reports whether two entry lists are observationally equal regardless of order.
func SameEntrySet(a, b []*LedgerEntry) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ea := range a {
		found := false
		for j, eb := range b {
			if !used[j] && ea.SameAs(eb) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
