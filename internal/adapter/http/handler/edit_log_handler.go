package handler

import (
	"context"
	"net/http"

	"github.com/iho/factoryledger/internal/adapter/http/dto"
	"github.com/iho/factoryledger/internal/domain"
)

// EditHistoryService defines the behavior needed by EditLogHandler.
type EditHistoryService interface {
	History(ctx context.Context, status domain.EditStatus, limit, offset int) ([]*domain.EditRecord, error)
}

// EditLogHandler lists recorded edit outcomes.
type EditLogHandler struct {
	editUC EditHistoryService
}

// NewEditLogHandler creates a new EditLogHandler.
func NewEditLogHandler(editUC EditHistoryService) *EditLogHandler {
	return &EditLogHandler{editUC: editUC}
}

// List returns edit log rows for ?status=, stuck edits by default.
func (h *EditLogHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.EditStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.EditStatusStuck
	}
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	records, err := h.editUC.History(r.Context(), status, limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list edits", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EditLogResponse{
		Edits:  dto.EditRecordsFromDomain(records),
		Status: string(status),
		Limit:  limit,
		Offset: offset,
	})
}
