package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/factoryledger/internal/adapter/http/dto"
	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
)

// VoucherService defines the behavior needed to post vouchers.
type VoucherService interface {
	Submit(ctx context.Context, in usecase.VoucherInput) (*usecase.Voucher, error)
}

// EditService defines the behavior needed to edit posted transactions.
type EditService interface {
	Begin(ctx context.Context, transactionID string) (*usecase.EditSession, error)
	Commit(ctx context.Context, transactionID string, in usecase.VoucherInput) (*usecase.Voucher, error)
	Cancel(ctx context.Context, transactionID string) error
	Edit(ctx context.Context, transactionID string, in usecase.VoucherInput) (*usecase.Voucher, error)
}

// TransactionReader defines the behavior needed to read posted transactions.
type TransactionReader interface {
	GetTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error)
}

// TransactionHandler handles voucher posting and transaction edits.
type TransactionHandler struct {
	vouchers VoucherService
	edits    EditService
	reader   TransactionReader
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(vouchers VoucherService, edits EditService, reader TransactionReader) *TransactionHandler {
	return &TransactionHandler{
		vouchers: vouchers,
		edits:    edits,
		reader:   reader,
	}
}

// Submit builds and posts a voucher.
func (h *TransactionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeVoucher(w, r)
	if !ok {
		return
	}

	v, err := h.vouchers.Submit(r.Context(), in)
	writePosted(w, http.StatusCreated, "failed to post voucher", v, err)
}

// Get retrieves the entries of a transaction.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	entries, err := h.reader.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromEntries(id, entries))
}

// Edit replaces a transaction in one call, restoring the original on failure.
func (h *TransactionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, ok := decodeVoucher(w, r)
	if !ok {
		return
	}

	v, err := h.edits.Edit(r.Context(), id, in)
	writePosted(w, http.StatusOK, "failed to edit transaction", v, err)
}

// BeginEdit opens an edit session, removing the transaction until it is committed
// or cancelled.
func (h *TransactionHandler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s, err := h.edits.Begin(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to begin edit", err)
		return
	}

	resp := dto.TransactionFromEntries(s.TransactionID, s.Original)
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    string(s.State),
		"original": resp,
	})
}

// CommitEdit posts the replacement voucher of an open edit session.
func (h *TransactionHandler) CommitEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, ok := decodeVoucher(w, r)
	if !ok {
		return
	}

	v, err := h.edits.Commit(r.Context(), id, in)
	writePosted(w, http.StatusOK, "failed to commit edit", v, err)
}

// CancelEdit restores the original transaction of an open edit session.
func (h *TransactionHandler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.edits.Cancel(r.Context(), id); err != nil {
		writeDomainError(w, "failed to cancel edit", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeVoucher(w http.ResponseWriter, r *http.Request) (usecase.VoucherInput, bool) {
	var req dto.VoucherRequest
	if !decodeAndValidate(w, r, &req) {
		return usecase.VoucherInput{}, false
	}

	in, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, "invalid request", err)
		return usecase.VoucherInput{}, false
	}
	return in, true
}

// writePosted writes a posted voucher. A failed deferred update still reports the
// posted transaction, with the failure as a warning.
func writePosted(w http.ResponseWriter, status int, message string, v *usecase.Voucher, err error) {
	if err != nil && !(v != nil && errors.Is(err, usecase.ErrDeferredAction)) {
		writeDomainError(w, message, err)
		return
	}

	resp := dto.TransactionFromVoucher(v)
	if err != nil {
		resp.Warnings = append(resp.Warnings, err.Error())
	}
	writeJSON(w, status, resp)
}
