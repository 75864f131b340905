package usecase

import (
	"context"

	"github.com/iho/factoryledger/internal/domain"
)

// Chart holds the lookup keys of the well-known accounts vouchers post against.
type Chart struct {
	RawMaterials     domain.ChartKey `yaml:"raw_materials"`
	FinishedGoods    domain.ChartKey `yaml:"finished_goods"`
	Adjustment       domain.ChartKey `yaml:"adjustment"`
	Discrepancy      domain.ChartKey `yaml:"discrepancy"`
	ExchangeVariance domain.ChartKey `yaml:"exchange_variance"`
	Capital          domain.ChartKey `yaml:"capital"`
	SalesRevenue     domain.ChartKey `yaml:"sales_revenue"`
}

// DefaultChart returns the conventional chart-of-accounts keys.
func DefaultChart() Chart {
	return Chart{
		RawMaterials:     domain.ChartRawMaterials,
		FinishedGoods:    domain.ChartFinishedGoods,
		Adjustment:       domain.ChartAdjustment,
		Discrepancy:      domain.ChartDiscrepancy,
		ExchangeVariance: domain.ChartExchangeVar,
		Capital:          domain.ChartCapital,
		SalesRevenue:     domain.ChartSalesRevenue,
	}
}

// Merge overlays the non-empty keys of o onto c.
func (c Chart) Merge(o Chart) Chart {
	pick := func(base, over domain.ChartKey) domain.ChartKey {
		if len(over.Codes) == 0 && over.NameContains == "" {
			return base
		}
		if over.Name == "" {
			over.Name = base.Name
		}
		return over
	}

	return Chart{
		RawMaterials:     pick(c.RawMaterials, o.RawMaterials),
		FinishedGoods:    pick(c.FinishedGoods, o.FinishedGoods),
		Adjustment:       pick(c.Adjustment, o.Adjustment),
		Discrepancy:      pick(c.Discrepancy, o.Discrepancy),
		ExchangeVariance: pick(c.ExchangeVariance, o.ExchangeVariance),
		Capital:          pick(c.Capital, o.Capital),
		SalesRevenue:     pick(c.SalesRevenue, o.SalesRevenue),
	}
}

// ChartResolver finds well-known accounts in the chart of accounts.
type ChartResolver struct {
	parties PartyRepository
}

// NewChartResolver creates a new ChartResolver.
func NewChartResolver(parties PartyRepository) *ChartResolver {
	return &ChartResolver{parties: parties}
}

// Resolve returns the account for key. Code matches win over name matches; no account
// is ever substituted when neither matches.
func (r *ChartResolver) Resolve(ctx context.Context, key domain.ChartKey) (*domain.Party, error) {
	accounts, err := r.parties.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	for _, a := range accounts {
		if key.MatchesCode(a) {
			return &domain.Party{Account: a}, nil
		}
	}
	for _, a := range accounts {
		if key.MatchesName(a) {
			return &domain.Party{Account: a}, nil
		}
	}

	return nil, &domain.MissingAccountError{Key: key}
}

// ResolveOptional is Resolve that reports a missing account as nil instead of an error.
func (r *ChartResolver) ResolveOptional(ctx context.Context, key domain.ChartKey) (*domain.Party, error) {
	p, err := r.Resolve(ctx, key)
	if err != nil {
		if _, ok := err.(*domain.MissingAccountError); ok {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}
