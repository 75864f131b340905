package handler

import (
	"context"
	"net/http"

	"github.com/iho/factoryledger/internal/adapter/http/dto"
	"github.com/iho/factoryledger/internal/usecase"
)

// AlignmentService defines the behavior needed by AlignmentHandler.
type AlignmentService interface {
	PlanBalance(ctx context.Context, t usecase.BalanceTarget) (*usecase.Voucher, error)
	PlanItem(ctx context.Context, t usecase.ItemTarget) (*usecase.Voucher, error)
	PlanStock(ctx context.Context, t usecase.StockTarget) (*usecase.Voucher, error)
	AlignBalance(ctx context.Context, t usecase.BalanceTarget) (*usecase.Voucher, error)
	AlignItem(ctx context.Context, t usecase.ItemTarget) (*usecase.Voucher, error)
	AlignStock(ctx context.Context, t usecase.StockTarget) (*usecase.Voucher, error)
}

// AlignmentHandler handles alignment requests. With ?dry_run=true the alignment is
// planned and returned without posting.
type AlignmentHandler struct {
	planner AlignmentService
}

// NewAlignmentHandler creates a new AlignmentHandler.
func NewAlignmentHandler(planner AlignmentService) *AlignmentHandler {
	return &AlignmentHandler{planner: planner}
}

// Balance aligns a party balance.
func (h *AlignmentHandler) Balance(w http.ResponseWriter, r *http.Request) {
	var req dto.BalanceAlignmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	target := req.ToUseCaseInput()
	h.respond(w, r, func(ctx context.Context, dryRun bool) (*usecase.Voucher, error) {
		if dryRun {
			return h.planner.PlanBalance(ctx, target)
		}
		return h.planner.AlignBalance(ctx, target)
	})
}

// Item aligns a finished-goods item.
func (h *AlignmentHandler) Item(w http.ResponseWriter, r *http.Request) {
	var req dto.ItemAlignmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	target := req.ToUseCaseInput()
	h.respond(w, r, func(ctx context.Context, dryRun bool) (*usecase.Voucher, error) {
		if dryRun {
			return h.planner.PlanItem(ctx, target)
		}
		return h.planner.AlignItem(ctx, target)
	})
}

// Stock aligns an original-stock bucket.
func (h *AlignmentHandler) Stock(w http.ResponseWriter, r *http.Request) {
	var req dto.StockAlignmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	target := req.ToUseCaseInput()
	h.respond(w, r, func(ctx context.Context, dryRun bool) (*usecase.Voucher, error) {
		if dryRun {
			return h.planner.PlanStock(ctx, target)
		}
		return h.planner.AlignStock(ctx, target)
	})
}

func (h *AlignmentHandler) respond(
	w http.ResponseWriter,
	r *http.Request,
	run func(ctx context.Context, dryRun bool) (*usecase.Voucher, error),
) {
	dryRun := parseBoolQuery(r, "dry_run")

	v, err := run(r.Context(), dryRun)
	if err != nil {
		writeDomainError(w, "failed to align", err)
		return
	}

	status := http.StatusOK
	if v != nil && !dryRun {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.AlignmentFromVoucher(v, !dryRun))
}
