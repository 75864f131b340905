package domain

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BucketKey identifies one original-stock position.
type BucketKey struct {
	TypeID        string `json:"type_id"`
	SupplierID    string `json:"supplier_id"`
	SubSupplierID string `json:"sub_supplier_id,omitempty"`
	ProductID     string `json:"product_id,omitempty"`
}

func (k BucketKey) String() string {
	return strings.Join([]string{k.TypeID, k.SupplierID, k.SubSupplierID, k.ProductID}, "/")
}

// PurchaseRecord is one raw-material purchase line.
type PurchaseRecord struct {
	Date            time.Time
	ID              string
	TypeID          string
	TypeName        string
	SupplierID      string
	SupplierName    string
	SubSupplierID   string
	SubSupplierName string
	ProductID       string
	Weight          decimal.Decimal
	// Amount is the base-currency worth of the line.
	Amount decimal.Decimal
}

// Key returns the bucket the purchase accumulates into.
func (p *PurchaseRecord) Key() BucketKey {
	return BucketKey{TypeID: p.TypeID, SupplierID: p.SupplierID, SubSupplierID: p.SubSupplierID, ProductID: p.ProductID}
}

// SupplierLabel is the supplier name as written in adjustment narrations.
// Sub-supplier purchases nest the parent: "Sub (Parent)".
func (p *PurchaseRecord) SupplierLabel() string {
	if p.SubSupplierName != "" {
		return p.SubSupplierName + " (" + p.SupplierName + ")"
	}
	return p.SupplierName
}

// OpeningRecord removes raw material of a (type, supplier) pair from stock.
type OpeningRecord struct {
	Date       time.Time
	ID         string
	TypeID     string
	SupplierID string
	Weight     decimal.Decimal
}

// DirectSaleRecord is a raw-material sale line referencing its originating purchase.
type DirectSaleRecord struct {
	Date          time.Time
	ID            string
	TransactionID string
	PurchaseID    string
	Weight        decimal.Decimal
	Posted        bool
}

// StockPosition is the derived weight and worth of one bucket.
type StockPosition struct {
	Key          BucketKey       `json:"key"`
	TypeName     string          `json:"type_name"`
	SupplierName string          `json:"supplier_name"`
	FirstDate    time.Time       `json:"first_date"`
	WeightInHand decimal.Decimal `json:"weight_in_hand"`
	Worth        decimal.Decimal `json:"worth"`
	AvgCost      decimal.Decimal `json:"avg_cost_per_kg"`
	Adjusted     bool            `json:"adjusted"`
}

// StockHistory is the full input of a reconciliation.
type StockHistory struct {
	Purchases   []*PurchaseRecord
	Openings    []*OpeningRecord
	Sales       []*DirectSaleRecord
	Adjustments []*StockAdjustment
	Entries     []*LedgerEntry
}

// StockReconciliation is the reconciler's output.
type StockReconciliation struct {
	Positions []*StockPosition
	Skipped   []*ReconciliationAmbiguityError
}

// Find returns the position for key, or nil.
func (r *StockReconciliation) Find(key BucketKey) *StockPosition {
	for _, p := range r.Positions {
		if p.Key == key {
			return p
		}
	}
	return nil
}

type bucketState struct {
	pos *StockPosition

	deltaWeight decimal.Decimal
	deltaWorth  decimal.Decimal
	additive    bool

	target     *StockAdjustment
	zeroTarget *StockAdjustment
	share      decimal.Decimal
	zeroShare  decimal.Decimal
}

// ReconcileStock rebuilds every original-stock position from purchases, openings,
// direct sales and the adjustment log. It is a pure function of its input.
func ReconcileStock(h StockHistory) *StockReconciliation {
	result := &StockReconciliation{}

	purchases := append([]*PurchaseRecord(nil), h.Purchases...)
	sort.SliceStable(purchases, func(i, j int) bool {
		if !purchases[i].Date.Equal(purchases[j].Date) {
			return purchases[i].Date.Before(purchases[j].Date)
		}
		return purchases[i].ID < purchases[j].ID
	})

	buckets := make(map[BucketKey]*bucketState)
	var order []*bucketState
	byPurchase := make(map[string]BucketKey, len(purchases))

	// 1. Purchases: weight and running weighted-average cost per kg.
	for _, p := range purchases {
		key := p.Key()
		byPurchase[p.ID] = key
		b, ok := buckets[key]
		if !ok {
			b = &bucketState{pos: &StockPosition{
				Key:          key,
				TypeName:     p.TypeName,
				SupplierName: p.SupplierLabel(),
				FirstDate:    p.Date,
				WeightInHand: decimal.Zero,
				Worth:        decimal.Zero,
				AvgCost:      decimal.Zero,
			}}
			buckets[key] = b
			order = append(order, b)
		}
		newWeight := b.pos.WeightInHand.Add(p.Weight)
		if newWeight.IsPositive() {
			b.pos.AvgCost = b.pos.WeightInHand.Mul(b.pos.AvgCost).Add(p.Amount).Div(newWeight)
		}
		b.pos.WeightInHand = newWeight
	}

	// 2. Openings: spread evenly over the buckets of the (type, supplier) pair.
	for _, o := range h.Openings {
		var matched []*bucketState
		for _, b := range order {
			if b.pos.Key.TypeID == o.TypeID && b.pos.Key.SupplierID == o.SupplierID {
				matched = append(matched, b)
			}
		}
		if len(matched) == 0 {
			continue
		}
		share := o.Weight.Div(decimal.NewFromInt(int64(len(matched))))
		for _, b := range matched {
			b.pos.WeightInHand = b.pos.WeightInHand.Sub(share)
		}
	}

	// 3. Posted direct sales against their originating purchase.
	for _, s := range h.Sales {
		if !s.Posted || s.PurchaseID == "" {
			continue
		}
		key, ok := byPurchase[s.PurchaseID]
		if !ok {
			continue
		}
		b := buckets[key]
		b.pos.WeightInHand = b.pos.WeightInHand.Sub(s.Weight)
	}

	// 4. Baseline worth.
	for _, b := range order {
		b.pos.Worth = baselineWorth(b.pos)
	}

	// 5-7. Adjustments in sequence order.
	for _, a := range collectAdjustments(h, result) {
		matched := matchBuckets(order, a)
		if len(matched) == 0 {
			result.Skipped = append(result.Skipped, &ReconciliationAmbiguityError{
				TransactionID: a.TransactionID,
				Narration:     a.Narration,
				Reason:        "no matching stock bucket for " + a.TypeName + " / " + a.SupplierName,
			})
			continue
		}
		n := decimal.NewFromInt(int64(len(matched)))
		for _, b := range matched {
			switch {
			case a.SetToZero:
				b.zeroTarget = a
				b.zeroShare = n
			case a.IsTarget():
				b.target = a
				b.share = n
			default:
				b.additive = true
				b.deltaWeight = b.deltaWeight.Add(a.WeightDelta().Div(n))
				b.deltaWorth = b.deltaWorth.Add(a.WorthDelta().Div(n))
			}
		}
	}

	// 8. Three passes: additive, regular targets, set-to-zero.
	for _, b := range order {
		if b.additive {
			b.pos.WeightInHand = b.pos.WeightInHand.Add(b.deltaWeight)
			b.pos.Worth = b.pos.Worth.Add(b.deltaWorth)
			b.pos.Adjusted = true
		}
	}
	for _, b := range order {
		if t := b.target; t != nil {
			if t.TargetWeight != nil {
				b.pos.WeightInHand = t.TargetWeight.Div(b.share)
			}
			if t.TargetWorth != nil {
				b.pos.Worth = t.TargetWorth.Div(b.share)
			} else if t.ZeroWorth {
				b.pos.Worth = decimal.Zero
			}
			b.pos.Adjusted = true
		}
	}
	for _, b := range order {
		if z := b.zeroTarget; z != nil {
			b.pos.WeightInHand, b.pos.Worth = decimal.Zero, decimal.Zero
			if z.TargetWeight != nil {
				b.pos.WeightInHand = z.TargetWeight.Div(b.zeroShare)
			}
			if z.TargetWorth != nil {
				b.pos.Worth = z.TargetWorth.Div(b.zeroShare)
			}
			b.pos.Adjusted = true
		}
	}

	// 9. Untouched buckets are recomputed; adjusted worth is final.
	for _, b := range order {
		if !b.pos.Adjusted {
			b.pos.Worth = baselineWorth(b.pos)
		}
		result.Positions = append(result.Positions, b.pos)
	}

	sort.SliceStable(result.Positions, func(i, j int) bool {
		return result.Positions[i].Key.String() < result.Positions[j].Key.String()
	})

	return result
}

func baselineWorth(p *StockPosition) decimal.Decimal {
	if p.WeightInHand.IsPositive() && p.AvgCost.IsPositive() {
		return p.WeightInHand.Mul(p.AvgCost)
	}
	return decimal.Zero
}

// collectAdjustments merges structured side-records with adjustments recovered from
// narrations of transactions that have no side-record, ordered by sequence.
func collectAdjustments(h StockHistory, result *StockReconciliation) []*StockAdjustment {
	structured := make(map[string]bool)
	out := make([]*StockAdjustment, 0, len(h.Adjustments))

	for _, a := range h.Adjustments {
		structured[a.TransactionID] = true
		out = append(out, a)
	}

	parsed := make(map[string]bool)
	for _, e := range h.Entries {
		if structured[e.TransactionID] || parsed[e.TransactionID] || !IsAdjustmentNarration(e.Narration) {
			continue
		}
		// First entry per transaction wins.
		parsed[e.TransactionID] = true
		a, err := ParseAdjustmentNarration(e.TransactionID, e.Narration)
		if err != nil {
			var amb *ReconciliationAmbiguityError
			if errors.As(err, &amb) {
				result.Skipped = append(result.Skipped, amb)
			}
			continue
		}
		a.Sequence = e.Sequence
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		if out[i].TransactionID != out[j].TransactionID {
			return out[i].TransactionID < out[j].TransactionID
		}
		return out[i].LineNo < out[j].LineNo
	})

	return out
}

func matchBuckets(order []*bucketState, a *StockAdjustment) []*bucketState {
	var matched []*bucketState

	if a.HasKey() {
		for _, b := range order {
			k := b.pos.Key
			if k.TypeID == a.TypeID && k.SupplierID == a.SupplierID && k.SubSupplierID == a.SubSupplierID &&
				(a.ProductID == "" || k.ProductID == a.ProductID) {
				matched = append(matched, b)
			}
		}
		return matched
	}

	for _, b := range order {
		if b.pos.TypeName == a.TypeName && b.pos.SupplierName == a.SupplierName {
			matched = append(matched, b)
		}
	}
	if len(matched) > 0 {
		return matched
	}

	for _, b := range order {
		if containsEither(b.pos.TypeName, a.TypeName) && containsEither(b.pos.SupplierName, a.SupplierName) {
			matched = append(matched, b)
		}
	}
	return matched
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
