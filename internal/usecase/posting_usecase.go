package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/infrastructure/metrics"
)

// ErrDeferredAction is returned when entries were posted but a follow-up item or
// stock mutation failed.
var ErrDeferredAction = errors.New("voucher posted but deferred update failed")

// PostingUseCase validates and appends built vouchers.
type PostingUseCase struct {
	txManager   TransactionManager
	entries     EntryStore
	adjustments StockAdjustmentRepository
	guard       ProcessingGuard
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewPostingUseCase creates a new PostingUseCase.
func NewPostingUseCase(
	txManager TransactionManager,
	entries EntryStore,
	adjustments StockAdjustmentRepository,
	guard ProcessingGuard,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *PostingUseCase {
	return &PostingUseCase{
		txManager:   txManager,
		entries:     entries,
		adjustments: adjustments,
		guard:       guard,
		logger:      logger,
		metrics:     metrics,
	}
}

// Post guards, validates and appends v, then runs its deferred actions.
// Nothing is appended when validation fails or the transaction id is taken.
func (uc *PostingUseCase) Post(ctx context.Context, v *Voucher) error {
	release, err := uc.guard.Acquire(ctx, v.TransactionID)
	if err != nil {
		uc.recordError(err)
		return err
	}
	defer release()

	if err := uc.ensureUnused(ctx, v.TransactionID); err != nil {
		uc.recordError(err)
		return err
	}

	return uc.postLocked(ctx, v)
}

// ensureUnused rejects a transaction id that already has entries or side-records.
// Edits reuse an id only after deleting it, through postLocked.
func (uc *PostingUseCase) ensureUnused(ctx context.Context, transactionID string) error {
	existing, err := uc.entries.QueryByTransaction(ctx, transactionID)
	if err != nil {
		return &domain.StoreIOError{Op: "query", TransactionID: transactionID, Err: err}
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrTransactionExists, transactionID)
	}

	adjustments, err := uc.adjustments.ListByTransaction(ctx, transactionID)
	if err != nil {
		return &domain.StoreIOError{Op: "query adjustments", TransactionID: transactionID, Err: err}
	}
	if len(adjustments) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrTransactionExists, transactionID)
	}

	return nil
}

// postLocked posts v; the caller holds the processing guard for its transaction id.
func (uc *PostingUseCase) postLocked(ctx context.Context, v *Voucher) error {
	start := time.Now()

	if len(v.Entries) == 0 && len(v.Adjustments) == 0 {
		uc.recordError(domain.ErrEmptyTransaction)
		return domain.ErrEmptyTransaction
	}
	if len(v.Entries) > 0 {
		if err := domain.ValidateEntries(v.Entries); err != nil {
			uc.recordError(err)
			return err
		}
	}

	if err := uc.persist(ctx, v.TransactionID, v.Entries, v.Adjustments); err != nil {
		uc.recordError(err)
		return err
	}

	uc.logger.Info().
		Str("transaction_id", v.TransactionID).
		Str("kind", string(v.Kind)).
		Int("entries", len(v.Entries)).
		Msg("voucher posted")

	for _, w := range v.Warnings {
		uc.logger.Warn().Str("transaction_id", v.TransactionID).Msg(w)
	}

	if uc.metrics != nil {
		uc.metrics.VouchersPosted.WithLabelValues(string(v.Kind)).Inc()
		uc.metrics.PostingDuration.Observe(time.Since(start).Seconds())
	}

	return uc.runDeferred(ctx, v)
}

// persist appends entries and side-records in one database transaction.
func (uc *PostingUseCase) persist(
	ctx context.Context,
	transactionID string,
	entries []*domain.LedgerEntry,
	adjustments []*domain.StockAdjustment,
) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return &domain.StoreIOError{Op: "begin", TransactionID: transactionID, Err: err}
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if len(entries) > 0 {
		if err := uc.entries.Append(txCtx, tx, entries); err != nil {
			return &domain.StoreIOError{Op: "append", TransactionID: transactionID, Err: err}
		}
	}

	for _, adj := range adjustments {
		if err := uc.adjustments.Create(txCtx, tx, adj); err != nil {
			return &domain.StoreIOError{Op: "append adjustment", TransactionID: transactionID, Err: err}
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return &domain.StoreIOError{Op: "commit", TransactionID: transactionID, Err: err}
	}

	return nil
}

func (uc *PostingUseCase) runDeferred(ctx context.Context, v *Voucher) error {
	var errs []error
	for _, action := range v.Deferred {
		if err := action.Run(ctx); err != nil {
			uc.logger.Error().
				Err(err).
				Str("transaction_id", v.TransactionID).
				Str("action", action.Name).
				Msg("deferred update failed")
			errs = append(errs, fmt.Errorf("%s: %w", action.Name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrDeferredAction, errors.Join(errs...))
	}
	return nil
}

func (uc *PostingUseCase) recordError(err error) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.VoucherErrors.WithLabelValues(errorType(err)).Inc()
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRate):
		return "invalid_rate"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrUnbalanced):
		return "unbalanced"
	case errors.Is(err, domain.ErrMissingAccount):
		return "missing_account"
	case errors.Is(err, domain.ErrStoreIO):
		return "store_io"
	case errors.Is(err, domain.ErrTransactionInFlight):
		return "in_flight"
	case errors.Is(err, domain.ErrTransactionExists):
		return "duplicate"
	default:
		return "other"
	}
}

// VoucherUseCase builds and posts vouchers.
type VoucherUseCase struct {
	builder *VoucherBuilder
	posting *PostingUseCase
}

// NewVoucherUseCase creates a new VoucherUseCase.
func NewVoucherUseCase(builder *VoucherBuilder, posting *PostingUseCase) *VoucherUseCase {
	return &VoucherUseCase{
		builder: builder,
		posting: posting,
	}
}

// Submit builds the voucher for in and posts it.
func (uc *VoucherUseCase) Submit(ctx context.Context, in VoucherInput) (*Voucher, error) {
	v, err := uc.builder.Build(ctx, in)
	if err != nil {
		uc.posting.recordError(err)
		return nil, err
	}

	if err := uc.posting.Post(ctx, v); err != nil {
		return v, err
	}

	return v, nil
}
