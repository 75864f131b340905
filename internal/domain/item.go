package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a finished-goods item valued at weighted-average cost.
type Item struct {
	UpdatedAt time.Time
	ID        string
	Code      string
	Name      string
	Quantity  decimal.Decimal
	AvgCost   decimal.Decimal
}

// Worth returns quantity × average cost.
func (i *Item) Worth() decimal.Decimal {
	return i.Quantity.Mul(i.AvgCost)
}

// Valuation is the outcome of one inventory adjustment on an item.
type Valuation struct {
	ItemID        string
	QuantityDelta decimal.Decimal
	WorthDelta    decimal.Decimal
	NewQuantity   decimal.Decimal
	NewAvgCost    decimal.Decimal
	// Amount is the magnitude posted to the inventory/offset pair.
	Amount decimal.Decimal
	// Increase is true when inventory is debited.
	Increase bool
}

// Valuate computes the weighted-average effect of a quantity and/or worth delta
// without mutating the item.
func (i *Item) Valuate(quantityDelta, worthDelta decimal.Decimal) (*Valuation, error) {
	if quantityDelta.IsZero() && worthDelta.IsZero() {
		return nil, NewValidationError(KindInventoryAdjustment, "delta", "quantity or worth delta required")
	}

	v := &Valuation{
		ItemID:        i.ID,
		QuantityDelta: quantityDelta,
		WorthDelta:    worthDelta,
		NewQuantity:   i.Quantity.Add(quantityDelta),
		NewAvgCost:    i.AvgCost,
	}

	switch {
	case !quantityDelta.IsZero() && !worthDelta.IsZero():
		if !v.NewQuantity.IsZero() {
			v.NewAvgCost = i.Worth().Add(worthDelta).Div(v.NewQuantity)
		}
		v.Amount = worthDelta.Abs()
		v.Increase = worthDelta.IsPositive()
	case !quantityDelta.IsZero():
		v.Amount = quantityDelta.Abs().Mul(i.AvgCost)
		v.Increase = quantityDelta.IsPositive()
	default:
		if i.Quantity.IsZero() {
			return nil, NewValidationError(KindInventoryAdjustment, "worth", "cannot revalue an item with zero quantity")
		}
		v.NewAvgCost = i.Worth().Add(worthDelta).Div(i.Quantity)
		v.Amount = worthDelta.Abs()
		v.Increase = worthDelta.IsPositive()
	}

	v.Amount = RoundMoney(v.Amount)

	return v, nil
}

// Apply stores the valuation result on the item.
func (i *Item) Apply(v *Valuation, at time.Time) {
	i.Quantity = v.NewQuantity
	i.AvgCost = v.NewAvgCost
	i.UpdatedAt = at
}
