package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/factoryledger/internal/adapter/http/dto"
	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
)

// LedgerService defines the behavior needed by PartyHandler.
type LedgerService interface {
	Balance(ctx context.Context, ref string) (*usecase.PartyBalance, error)
	ListByAccount(ctx context.Context, input usecase.ListByAccountInput) ([]*domain.LedgerEntry, error)
}

// PartyHandler handles balance and entry queries for accounts and partners.
type PartyHandler struct {
	ledgerUC LedgerService
}

// NewPartyHandler creates a new PartyHandler.
func NewPartyHandler(ledgerUC LedgerService) *PartyHandler {
	return &PartyHandler{ledgerUC: ledgerUC}
}

// Balance returns the live balance of a party.
func (h *PartyHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	b, err := h.ledgerUC.Balance(r.Context(), ref)
	if err != nil {
		writeDomainError(w, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromUseCase(b))
}

// Entries lists the entries of a party, newest first.
func (h *PartyHandler) Entries(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.ledgerUC.ListByAccount(r.Context(), usecase.ListByAccountInput{
		AccountRef: ref,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(entries),
		Limit:   limit,
		Offset:  offset,
	})
}
