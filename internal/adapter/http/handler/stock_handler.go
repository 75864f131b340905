package handler

import (
	"context"
	"net/http"

	"github.com/iho/factoryledger/internal/adapter/http/dto"
	"github.com/iho/factoryledger/internal/domain"
)

// StockService defines the behavior needed by StockHandler.
type StockService interface {
	Positions(ctx context.Context) ([]*domain.StockPosition, error)
	Position(ctx context.Context, key domain.BucketKey) (*domain.StockPosition, error)
}

// StockHandler handles original-stock queries.
type StockHandler struct {
	stockUC StockService
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(stockUC StockService) *StockHandler {
	return &StockHandler{stockUC: stockUC}
}

// Positions lists every bucket, or one bucket when type_id and supplier_id are given.
func (h *StockHandler) Positions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := domain.BucketKey{
		TypeID:        q.Get("type_id"),
		SupplierID:    q.Get("supplier_id"),
		SubSupplierID: q.Get("sub_supplier_id"),
		ProductID:     q.Get("product_id"),
	}

	if key.TypeID != "" && key.SupplierID != "" {
		pos, err := h.stockUC.Position(r.Context(), key)
		if err != nil {
			writeDomainError(w, "failed to get stock position", err)
			return
		}
		writeJSON(w, http.StatusOK, dto.StockPositionsFromDomain([]*domain.StockPosition{pos}))
		return
	}

	positions, err := h.stockUC.Positions(r.Context())
	if err != nil {
		writeDomainError(w, "failed to list stock positions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StockPositionsFromDomain(positions))
}
