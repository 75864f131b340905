package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
)

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID            string          `json:"id"`
	Sequence      int64           `json:"sequence"`
	TransactionID string          `json:"transaction_id"`
	Date          string          `json:"date"`
	AccountRef    string          `json:"account_ref"`
	AccountName   string          `json:"account_name"`
	Kind          string          `json:"kind"`
	Currency      string          `json:"currency"`
	Rate          decimal.Decimal `json:"rate"`
	FCYAmount     decimal.Decimal `json:"fcy_amount"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Narration     string          `json:"narration"`
	FactoryID     string          `json:"factory_id,omitempty"`
	ReportingOnly bool            `json:"reporting_only,omitempty"`
	IsAdjustment  bool            `json:"is_adjustment,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// EntryFromDomain converts a domain entry to response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:            e.ID,
		Sequence:      e.Sequence,
		TransactionID: e.TransactionID,
		Date:          e.Date.Format(DateLayout),
		AccountRef:    e.AccountRef,
		AccountName:   e.AccountName,
		Kind:          string(e.Kind),
		Currency:      e.Currency,
		Rate:          e.Rate,
		FCYAmount:     e.FCYAmount,
		Debit:         e.Debit,
		Credit:        e.Credit,
		Narration:     e.Narration,
		FactoryID:     e.FactoryID,
		ReportingOnly: e.ReportingOnly,
		IsAdjustment:  e.IsAdjustment,
		CreatedAt:     e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// TransactionResponse represents a posted transaction.
type TransactionResponse struct {
	TransactionID string           `json:"transaction_id"`
	Kind          string           `json:"kind"`
	Date          string           `json:"date"`
	Narration     string           `json:"narration,omitempty"`
	Entries       []*EntryResponse `json:"entries"`
	Adjustments   int              `json:"stock_adjustments,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`
}

// TransactionFromVoucher converts a posted voucher to response.
func TransactionFromVoucher(v *usecase.Voucher) *TransactionResponse {
	return &TransactionResponse{
		TransactionID: v.TransactionID,
		Kind:          string(v.Kind),
		Date:          v.Date.Format(DateLayout),
		Narration:     v.Narration,
		Entries:       EntriesFromDomain(v.Entries),
		Adjustments:   len(v.Adjustments),
		Warnings:      v.Warnings,
	}
}

// TransactionFromEntries converts the stored entries of one transaction to response.
func TransactionFromEntries(transactionID string, entries []*domain.LedgerEntry) *TransactionResponse {
	resp := &TransactionResponse{
		TransactionID: transactionID,
		Entries:       EntriesFromDomain(entries),
	}
	if len(entries) > 0 {
		resp.Kind = string(entries[0].Kind)
		resp.Date = entries[0].Date.Format(DateLayout)
		resp.Narration = entries[0].Narration
	}
	return resp
}

// ListEntriesResponse represents a page of entries.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// BalanceResponse represents a party's balance in its normal sign.
type BalanceResponse struct {
	Ref         string          `json:"ref"`
	Name        string          `json:"name"`
	DebitNormal bool            `json:"debit_normal"`
	Balance     decimal.Decimal `json:"balance"`
	Entries     int             `json:"entries"`
}

// BalanceFromUseCase converts a party balance to response.
func BalanceFromUseCase(b *usecase.PartyBalance) *BalanceResponse {
	return &BalanceResponse{
		Ref:         b.Party.Ref(),
		Name:        b.Party.Name(),
		DebitNormal: b.Party.DebitNormal(),
		Balance:     b.Balance,
		Entries:     b.Entries,
	}
}

// StockPositionResponse represents one original-stock bucket.
type StockPositionResponse struct {
	TypeID        string          `json:"type_id"`
	TypeName      string          `json:"type_name"`
	SupplierID    string          `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"`
	SubSupplierID string          `json:"sub_supplier_id,omitempty"`
	ProductID     string          `json:"product_id,omitempty"`
	FirstDate     string          `json:"first_date"`
	WeightInHand  decimal.Decimal `json:"weight_in_hand"`
	Worth         decimal.Decimal `json:"worth"`
	AvgCostPerKg  decimal.Decimal `json:"avg_cost_per_kg"`
	Adjusted      bool            `json:"adjusted"`
}

// StockPositionFromDomain converts a stock position to response.
func StockPositionFromDomain(p *domain.StockPosition) *StockPositionResponse {
	return &StockPositionResponse{
		TypeID:        p.Key.TypeID,
		TypeName:      p.TypeName,
		SupplierID:    p.Key.SupplierID,
		SupplierName:  p.SupplierName,
		SubSupplierID: p.Key.SubSupplierID,
		ProductID:     p.Key.ProductID,
		FirstDate:     p.FirstDate.Format(DateLayout),
		WeightInHand:  p.WeightInHand,
		Worth:         p.Worth,
		AvgCostPerKg:  p.AvgCost,
		Adjusted:      p.Adjusted,
	}
}

// StockPositionsResponse represents every original-stock bucket.
type StockPositionsResponse struct {
	Positions []*StockPositionResponse `json:"positions"`
}

// StockPositionsFromDomain converts stock positions to response.
func StockPositionsFromDomain(positions []*domain.StockPosition) *StockPositionsResponse {
	result := make([]*StockPositionResponse, len(positions))
	for i, p := range positions {
		result[i] = StockPositionFromDomain(p)
	}
	return &StockPositionsResponse{Positions: result}
}

// AlignmentResponse reports the outcome of an alignment request. Transaction is nil when
// the current value was already within tolerance of the target.
type AlignmentResponse struct {
	Aligned     bool                 `json:"aligned"`
	Posted      bool                 `json:"posted"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

// AlignmentFromVoucher converts a planned or posted alignment to response.
func AlignmentFromVoucher(v *usecase.Voucher, posted bool) *AlignmentResponse {
	if v == nil {
		return &AlignmentResponse{Aligned: true}
	}
	return &AlignmentResponse{
		Posted:      posted,
		Transaction: TransactionFromVoucher(v),
	}
}

// ViolationResponse describes one unbalanced transaction.
type ViolationResponse struct {
	TransactionID string          `json:"transaction_id"`
	TotalDebit    decimal.Decimal `json:"total_debit"`
	TotalCredit   decimal.Decimal `json:"total_credit"`
	Difference    decimal.Decimal `json:"difference"`
	Reason        string          `json:"reason"`
}

// ConsistencyResponse represents a ledger consistency scan.
type ConsistencyResponse struct {
	Status       string               `json:"status"`
	Consistent   bool                 `json:"consistent"`
	Transactions int                  `json:"transactions"`
	Entries      int                  `json:"entries"`
	TotalDebit   decimal.Decimal      `json:"total_debit"`
	TotalCredit  decimal.Decimal      `json:"total_credit"`
	Violations   []*ViolationResponse `json:"violations,omitempty"`
	CheckedAt    time.Time            `json:"checked_at"`
}

// ConsistencyFromReport converts a consistency report to response.
func ConsistencyFromReport(r *usecase.ConsistencyReport) *ConsistencyResponse {
	resp := &ConsistencyResponse{
		Status:       "consistent",
		Consistent:   r.Consistent,
		Transactions: r.Transactions,
		Entries:      r.Entries,
		TotalDebit:   r.TotalDebit,
		TotalCredit:  r.TotalCredit,
		CheckedAt:    r.CheckedAt,
	}
	if !r.Consistent {
		resp.Status = "inconsistent"
	}
	for _, v := range r.Violations {
		resp.Violations = append(resp.Violations, &ViolationResponse{
			TransactionID: v.TransactionID,
			TotalDebit:    v.TotalDebit,
			TotalCredit:   v.TotalCredit,
			Difference:    v.Difference,
			Reason:        v.Reason,
		})
	}
	return resp
}

// EditRecordResponse represents one edit log row.
type EditRecordResponse struct {
	ID            string           `json:"id"`
	TransactionID string           `json:"transaction_id"`
	Kind          string           `json:"kind"`
	State         string           `json:"state"`
	Status        string           `json:"status"`
	Error         string           `json:"error,omitempty"`
	Original      []*EntryResponse `json:"original"`
	CreatedAt     time.Time        `json:"created_at"`
}

// EditLogResponse represents a page of edit log rows.
type EditLogResponse struct {
	Edits  []*EditRecordResponse `json:"edits"`
	Status string                `json:"status"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// EditRecordsFromDomain converts edit log rows to response.
func EditRecordsFromDomain(records []*domain.EditRecord) []*EditRecordResponse {
	result := make([]*EditRecordResponse, len(records))
	for i, rec := range records {
		result[i] = &EditRecordResponse{
			ID:            rec.ID,
			TransactionID: rec.TransactionID,
			Kind:          string(rec.Kind),
			State:         string(rec.State),
			Status:        string(rec.Status),
			Error:         rec.ErrorMessage,
			Original:      EntriesFromDomain(rec.Original),
			CreatedAt:     rec.CreatedAt,
		}
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
