package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParty_DebitNormal(t *testing.T) {
	tests := []struct {
		name  string
		party Party
		want  bool
	}{
		{"asset account", Party{Account: &Account{ID: "a1", Type: AccountTypeAsset}}, true},
		{"expense account", Party{Account: &Account{ID: "a2", Type: AccountTypeExpense}}, true},
		{"liability account", Party{Account: &Account{ID: "a3", Type: AccountTypeLiability}}, false},
		{"revenue account", Party{Account: &Account{ID: "a4", Type: AccountTypeRevenue}}, false},
		{"equity account", Party{Account: &Account{ID: "a5", Type: AccountTypeEquity}}, false},
		{"customer", Party{Partner: &Partner{ID: "p1", Type: PartnerCustomer}}, true},
		{"supplier", Party{Partner: &Partner{ID: "p2", Type: PartnerSupplier}}, false},
		{"commission agent", Party{Partner: &Partner{ID: "p3", Type: PartnerCommissionAgent}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.party.DebitNormal(); got != tt.want {
				t.Errorf("DebitNormal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParty_RefAndName(t *testing.T) {
	acc := Party{Account: &Account{ID: "acc-1", Name: "Bank"}}
	if acc.Ref() != "acc-1" || acc.Name() != "Bank" {
		t.Errorf("unexpected account party identity %s/%s", acc.Ref(), acc.Name())
	}

	sub := Party{Partner: &Partner{ID: "p-9", Name: "Sub Co", Type: PartnerSubSupplier, ParentSupplierID: "p-1"}}
	if sub.Ref() != "p-9" || sub.Name() != "Sub Co" {
		t.Errorf("unexpected partner party identity %s/%s", sub.Ref(), sub.Name())
	}
	if !sub.IsSubSupplier() {
		t.Error("expected sub-supplier with parent to be detected")
	}

	orphan := Party{Partner: &Partner{ID: "p-10", Type: PartnerSubSupplier}}
	if orphan.IsSubSupplier() {
		t.Error("sub-supplier without parent must not pass through")
	}
}

func TestBalance(t *testing.T) {
	entries := []*LedgerEntry{
		{TransactionID: "t1", AccountRef: "bank", Debit: decimal.NewFromInt(1000)},
		{TransactionID: "t1", AccountRef: "cust", Credit: decimal.NewFromInt(1000)},
		{TransactionID: "t2", AccountRef: "bank", Credit: decimal.NewFromInt(250)},
		{TransactionID: "t3", AccountRef: "bank", Debit: decimal.NewFromInt(75), ReportingOnly: true},
	}

	if got := Balance(entries, "bank", true); !got.Equal(decimal.NewFromInt(750)) {
		t.Errorf("bank balance = %s, want 750", got)
	}
	if got := Balance(entries, "cust", false); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("customer credit-normal balance = %s, want 1000", got)
	}
	if got := Balance(entries, "missing", true); !got.IsZero() {
		t.Errorf("unknown ref balance = %s, want 0", got)
	}
}

func TestChartKey_Matching(t *testing.T) {
	byCode := &Account{Code: "1201", Name: "Stock"}
	byName := &Account{Code: "999", Name: "Inventory - raw materials"}
	other := &Account{Code: "105", Name: "Finished Goods"}

	if !ChartRawMaterials.MatchesCode(byCode) {
		t.Error("expected code 1201 to match raw materials")
	}
	if ChartRawMaterials.MatchesCode(byName) {
		t.Error("code 999 must not match raw materials")
	}
	if !ChartRawMaterials.MatchesName(byName) {
		t.Error("expected case-insensitive name match")
	}
	if ChartRawMaterials.MatchesCode(other) || ChartRawMaterials.MatchesName(other) {
		t.Error("finished goods must not match raw materials")
	}
	if ChartAdjustment.MatchesName(byName) {
		t.Error("key without name fragment must never match by name")
	}

	if got := ChartRawMaterials.Describe(); got != "Inventory - Raw Materials (code 104/1201)" {
		t.Errorf("Describe() = %q", got)
	}
}
