package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/factoryledger/internal/adapter/http/dto"
	"github.com/iho/factoryledger/internal/usecase"
)

// ConsistencyService defines the behavior needed by LedgerHandler.
type ConsistencyService interface {
	CheckConsistency(ctx context.Context) (*usecase.ConsistencyReport, error)
	ReconcileTransaction(ctx context.Context, transactionID string) (*usecase.TransactionViolation, error)
}

// LedgerHandler handles ledger-wide operations.
type LedgerHandler struct {
	reconciliationUC ConsistencyService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reconciliationUC ConsistencyService) *LedgerHandler {
	return &LedgerHandler{reconciliationUC: reconciliationUC}
}

// CheckConsistency checks every transaction against the balance invariant.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.CheckConsistency(r.Context())
	if err != nil {
		writeDomainError(w, "failed to check consistency", err)
		return
	}

	status := http.StatusOK
	if !report.Consistent {
		status = http.StatusConflict
	}
	writeJSON(w, status, dto.ConsistencyFromReport(report))
}

// ReconcileTransaction checks one transaction against the balance invariant.
func (h *LedgerHandler) ReconcileTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	violation, err := h.reconciliationUC.ReconcileTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to reconcile transaction", err)
		return
	}

	if violation == nil {
		writeJSON(w, http.StatusOK, map[string]any{"transaction_id": id, "consistent": true})
		return
	}

	writeJSON(w, http.StatusConflict, dto.ViolationResponse{
		TransactionID: violation.TransactionID,
		TotalDebit:    violation.TotalDebit,
		TotalCredit:   violation.TotalCredit,
		Difference:    violation.Difference,
		Reason:        violation.Reason,
	})
}
