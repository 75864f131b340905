package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/factoryledger/internal/adapter/http/dto"
	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/usecase"
)

type ledgerServiceStub struct {
	balanceFn func(ctx context.Context, ref string) (*usecase.PartyBalance, error)
	listFn    func(ctx context.Context, input usecase.ListByAccountInput) ([]*domain.LedgerEntry, error)
}

func (s *ledgerServiceStub) Balance(ctx context.Context, ref string) (*usecase.PartyBalance, error) {
	return s.balanceFn(ctx, ref)
}

func (s *ledgerServiceStub) ListByAccount(ctx context.Context, input usecase.ListByAccountInput) ([]*domain.LedgerEntry, error) {
	return s.listFn(ctx, input)
}

type stockServiceStub struct {
	positionsFn func(ctx context.Context) ([]*domain.StockPosition, error)
	positionFn  func(ctx context.Context, key domain.BucketKey) (*domain.StockPosition, error)
}

func (s *stockServiceStub) Positions(ctx context.Context) ([]*domain.StockPosition, error) {
	return s.positionsFn(ctx)
}

func (s *stockServiceStub) Position(ctx context.Context, key domain.BucketKey) (*domain.StockPosition, error) {
	return s.positionFn(ctx, key)
}

type consistencyServiceStub struct {
	report    *usecase.ConsistencyReport
	violation *usecase.TransactionViolation
	err       error
}

func (s *consistencyServiceStub) CheckConsistency(context.Context) (*usecase.ConsistencyReport, error) {
	return s.report, s.err
}

func (s *consistencyServiceStub) ReconcileTransaction(context.Context, string) (*usecase.TransactionViolation, error) {
	return s.violation, s.err
}

func TestPartyHandler_Balance(t *testing.T) {
	h := NewPartyHandler(&ledgerServiceStub{
		balanceFn: func(ctx context.Context, ref string) (*usecase.PartyBalance, error) {
			if ref != "acme" {
				return nil, fmt.Errorf("%w: %s", domain.ErrPartyNotFound, ref)
			}
			return &usecase.PartyBalance{
				Party:   &domain.Party{Partner: &domain.Partner{ID: "acme", Name: "Acme Cotton", Type: domain.PartnerSupplier}},
				Balance: decimal.NewFromInt(200),
				Entries: 1,
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Balance(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/parties/acme/balance", nil), "ref", "acme"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Acme Cotton", resp.Name)
	assert.False(t, resp.DebitNormal)
	assert.True(t, resp.Balance.Equal(decimal.NewFromInt(200)))

	rec = httptest.NewRecorder()
	h.Balance(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/parties/ghost/balance", nil), "ref", "ghost"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPartyHandler_EntriesPagination(t *testing.T) {
	var captured usecase.ListByAccountInput
	h := NewPartyHandler(&ledgerServiceStub{
		listFn: func(ctx context.Context, input usecase.ListByAccountInput) ([]*domain.LedgerEntry, error) {
			captured = input
			return []*domain.LedgerEntry{{AccountRef: "bank", Debit: decimal.NewFromInt(10)}}, nil
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/parties/bank/entries?limit=5&offset=10", nil), "ref", "bank")
	rec := httptest.NewRecorder()
	h.Entries(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.ListByAccountInput{AccountRef: "bank", Limit: 5, Offset: 10}, captured)

	var resp dto.ListEntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Entries, 1)
	assert.Equal(t, 5, resp.Limit)
}

func TestStockHandler_Positions(t *testing.T) {
	cotton := &domain.StockPosition{
		Key:          domain.BucketKey{TypeID: "cotton", SupplierID: "acme"},
		TypeName:     "Cotton",
		WeightInHand: decimal.NewFromInt(100),
		Worth:        decimal.NewFromInt(500),
		AvgCost:      decimal.NewFromInt(5),
	}

	var lookedUp *domain.BucketKey
	h := NewStockHandler(&stockServiceStub{
		positionsFn: func(ctx context.Context) ([]*domain.StockPosition, error) {
			return []*domain.StockPosition{cotton}, nil
		},
		positionFn: func(ctx context.Context, key domain.BucketKey) (*domain.StockPosition, error) {
			lookedUp = &key
			if key != cotton.Key {
				return nil, domain.ErrBucketNotFound
			}
			return cotton, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Positions(rec, httptest.NewRequest(http.MethodGet, "/stock/positions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, lookedUp)

	var resp dto.StockPositionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Positions, 1)
	assert.True(t, resp.Positions[0].AvgCostPerKg.Equal(decimal.NewFromInt(5)))

	rec = httptest.NewRecorder()
	h.Positions(rec, httptest.NewRequest(http.MethodGet, "/stock/positions?type_id=cotton&supplier_id=acme", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, lookedUp)

	rec = httptest.NewRecorder()
	h.Positions(rec, httptest.NewRequest(http.MethodGet, "/stock/positions?type_id=wool&supplier_id=acme", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStockHandler_StoreFailure(t *testing.T) {
	h := NewStockHandler(&stockServiceStub{
		positionsFn: func(ctx context.Context) ([]*domain.StockPosition, error) {
			return nil, &domain.StoreIOError{Op: "query", Err: errors.New("timeout")}
		},
	})

	rec := httptest.NewRecorder()
	h.Positions(rec, httptest.NewRequest(http.MethodGet, "/stock/positions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLedgerHandler_CheckConsistency(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLedgerHandler(&consistencyServiceStub{
		report: &usecase.ConsistencyReport{Consistent: true, Transactions: 3, Entries: 6},
	}).CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/ledger/consistency", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"consistent"`)

	rec = httptest.NewRecorder()
	NewLedgerHandler(&consistencyServiceStub{
		report: &usecase.ConsistencyReport{Violations: []*usecase.TransactionViolation{{TransactionID: "broken"}}},
	}).CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/ledger/consistency", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "broken")

	rec = httptest.NewRecorder()
	NewLedgerHandler(&consistencyServiceStub{
		err: &domain.StoreIOError{Op: "query", Err: errors.New("down")},
	}).CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/ledger/consistency", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLedgerHandler_ReconcileTransaction(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLedgerHandler(&consistencyServiceStub{}).
		ReconcileTransaction(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/ledger/transactions/tx-1", nil), "id", "tx-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewLedgerHandler(&consistencyServiceStub{
		violation: &usecase.TransactionViolation{TransactionID: "tx-1", Difference: decimal.NewFromInt(10)},
	}).ReconcileTransaction(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/ledger/transactions/tx-1", nil), "id", "tx-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy := HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }}
	down := HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("refused") }}

	rec = httptest.NewRecorder()
	NewHealthHandler(healthy).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"ok"`)

	rec = httptest.NewRecorder()
	NewHealthHandler(healthy, down).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis unhealthy")
}
