package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the chart-of-accounts classification.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// DebitNormal reports whether balances of this type grow on the debit side.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// PartnerType classifies business partners.
type PartnerType string

const (
	PartnerCustomer         PartnerType = "CUSTOMER"
	PartnerSupplier         PartnerType = "SUPPLIER"
	PartnerVendor           PartnerType = "VENDOR"
	PartnerSubSupplier      PartnerType = "SUB_SUPPLIER"
	PartnerFreightForwarder PartnerType = "FREIGHT_FORWARDER"
	PartnerClearingAgent    PartnerType = "CLEARING_AGENT"
	PartnerCommissionAgent  PartnerType = "COMMISSION_AGENT"
)

// DebitNormal reports whether the partner behaves like an asset (customers do,
// the supplier family behaves like a liability).
func (t PartnerType) DebitNormal() bool {
	return t == PartnerCustomer
}

// Account represents a chart-of-accounts account.
type Account struct {
	CreatedAt time.Time
	ID        string
	Code      string
	Name      string
	Type      AccountType
	FactoryID string
}

// Partner represents a customer, supplier or agent that posts like an account.
type Partner struct {
	CreatedAt        time.Time
	ID               string
	Name             string
	Type             PartnerType
	ParentSupplierID string
	FactoryID        string
}

// Party is the unified ledger participant: exactly one of Account or Partner is set.
type Party struct {
	Account *Account
	Partner *Partner
}

// Ref returns the ledger account reference of the party.
func (p *Party) Ref() string {
	if p.Account != nil {
		return p.Account.ID
	}
	return p.Partner.ID
}

// Name returns the display name written to entries.
func (p *Party) Name() string {
	if p.Account != nil {
		return p.Account.Name
	}
	return p.Partner.Name
}

// DebitNormal reports the normal balance side of the party.
func (p *Party) DebitNormal() bool {
	if p.Account != nil {
		return p.Account.Type.DebitNormal()
	}
	return p.Partner.Type.DebitNormal()
}

// IsSubSupplier reports whether the party is a sub-supplier with a parent.
func (p *Party) IsSubSupplier() bool {
	return p.Partner != nil && p.Partner.Type == PartnerSubSupplier && p.Partner.ParentSupplierID != ""
}

// Balance sums the party's entries in its normal-balance sign.
// Reporting-only entries are excluded.
func Balance(entries []*LedgerEntry, ref string, debitNormal bool) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.AccountRef != ref || e.ReportingOnly {
			continue
		}
		if debitNormal {
			total = total.Add(e.Debit).Sub(e.Credit)
		} else {
			total = total.Add(e.Credit).Sub(e.Debit)
		}
	}
	return total
}

// ChartKey describes how a well-known account is looked up in the chart.
type ChartKey struct {
	Name         string   `yaml:"name"`
	Codes        []string `yaml:"codes"`
	NameContains string   `yaml:"name_contains"`
}

// Describe renders the key for error messages.
func (k ChartKey) Describe() string {
	var b strings.Builder
	b.WriteString(k.Name)
	if len(k.Codes) > 0 {
		b.WriteString(" (code ")
		b.WriteString(strings.Join(k.Codes, "/"))
		b.WriteString(")")
	}
	return b.String()
}

// MatchesCode reports whether the account carries one of the key's codes.
func (k ChartKey) MatchesCode(a *Account) bool {
	for _, c := range k.Codes {
		if a.Code == c {
			return true
		}
	}
	return false
}

// MatchesName reports whether the account name contains the key's name fragment.
func (k ChartKey) MatchesName(a *Account) bool {
	return k.NameContains != "" && strings.Contains(strings.ToLower(a.Name), strings.ToLower(k.NameContains))
}

// Well-known chart keys.
var (
	ChartRawMaterials  = ChartKey{Name: "Inventory - Raw Materials", Codes: []string{"104", "1201"}, NameContains: "Raw Materials"}
	ChartFinishedGoods = ChartKey{Name: "Inventory - Finished Goods", Codes: []string{"105", "1202"}, NameContains: "Finished Goods"}
	ChartAdjustment    = ChartKey{Name: "Inventory Adjustment / Write-off", Codes: []string{"503"}}
	ChartDiscrepancy   = ChartKey{Name: "Balancing Discrepancy", Codes: []string{"505"}}
	ChartExchangeVar   = ChartKey{Name: "Exchange Variance", Codes: []string{"502"}}
	ChartCapital       = ChartKey{Name: "Owner's Capital", Codes: []string{"301"}}
	ChartSalesRevenue  = ChartKey{Name: "Sales Revenue", Codes: []string{"401"}, NameContains: "Sales"}
)
