package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/iho/factoryledger/internal/adapter/http/dto"
	"github.com/iho/factoryledger/internal/domain"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/parties/bank/entries?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/parties/bank/entries?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/parties/bank/entries?limit=-5", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected negative value to fall back, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"party not found", fmt.Errorf("%w: ghost", domain.ErrPartyNotFound), http.StatusNotFound},
		{"transaction not found", domain.ErrTransactionNotFound, http.StatusNotFound},
		{"bucket not found", domain.ErrBucketNotFound, http.StatusNotFound},
		{"in flight", domain.ErrTransactionInFlight, http.StatusConflict},
		{"already posted", fmt.Errorf("%w: RV-1", domain.ErrTransactionExists), http.StatusConflict},
		{"unbalanced", &domain.UnbalancedTransactionError{MissingSide: true}, http.StatusUnprocessableEntity},
		{"invalid rate", &domain.InvalidRateError{AccountRef: "bank"}, http.StatusUnprocessableEntity},
		{"validation", domain.NewValidationError(domain.KindReceipt, "amount", "must be positive"), http.StatusBadRequest},
		{"field errors", dto.FieldErrors{"kind": "oneof"}, http.StatusBadRequest},
		{"store io", &domain.StoreIOError{Op: "append", Err: errors.New("conn reset")}, http.StatusServiceUnavailable},
		{"missing account", &domain.MissingAccountError{}, http.StatusInternalServerError},
		{"edit stuck", domain.ErrEditStuck, http.StatusInternalServerError},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	payload := map[string]string{"status": "ok"}

	writeJSON(rr, http.StatusCreated, payload)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %s", ct)
	}

	var decoded map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if decoded["status"] != "ok" {
		t.Fatalf("expected payload to round-trip, got %+v", decoded)
	}
}

func TestWriteDomainErrorIncludesFields(t *testing.T) {
	rr := httptest.NewRecorder()

	writeDomainError(rr, "invalid request", dto.FieldErrors{"kind": "required"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if resp.Error != "invalid request" || resp.Fields["kind"] != "required" {
		t.Fatalf("expected field errors to propagate, got %+v", resp)
	}
}
