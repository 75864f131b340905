package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/factoryledger/internal/adapter/http/dto"
	"github.com/iho/factoryledger/internal/domain"
)

type editHistoryStub struct {
	status        domain.EditStatus
	limit, offset int
}

func (s *editHistoryStub) History(_ context.Context, status domain.EditStatus, limit, offset int) ([]*domain.EditRecord, error) {
	s.status, s.limit, s.offset = status, limit, offset
	if !status.IsValid() {
		return nil, domain.NewValidationError("", "status", fmt.Sprintf("unknown edit status %q", status))
	}
	return []*domain.EditRecord{{
		ID:            "e1",
		TransactionID: "tx-1",
		Kind:          domain.KindReceipt,
		State:         domain.EditVerifyingDeletion,
		Status:        status,
		ErrorMessage:  "entries still present",
		Original:      []*domain.LedgerEntry{{TransactionID: "tx-1", AccountRef: "bank"}},
	}}, nil
}

func TestEditLogHandler_DefaultsToStuck(t *testing.T) {
	stub := &editHistoryStub{}
	h := NewEditLogHandler(stub)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/edits", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.EditStatusStuck, stub.status)
	assert.Equal(t, 50, stub.limit)

	var resp dto.EditLogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Edits, 1)
	assert.Equal(t, "stuck", resp.Status)
	assert.Equal(t, "verifying_deletion", resp.Edits[0].State)
	require.Len(t, resp.Edits[0].Original, 1)
	assert.Equal(t, "bank", resp.Edits[0].Original[0].AccountRef)
}

func TestEditLogHandler_StatusAndPaging(t *testing.T) {
	stub := &editHistoryStub{}
	h := NewEditLogHandler(stub)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/edits?status=restored&limit=5&offset=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.EditStatusRestored, stub.status)
	assert.Equal(t, 5, stub.limit)
	assert.Equal(t, 10, stub.offset)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/edits?status=lost", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
