package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/infrastructure/metrics"
)

var (
	// ErrEditSessionNotFound is returned when no edit is open for a transaction id.
	ErrEditSessionNotFound = errors.New("no edit in progress for transaction")

	errResidualEntries = errors.New("entries still present")
	errPostNotVisible  = errors.New("posted entries not yet visible")
)

// VerifyConfig bounds the read-after-write polling of the edit workflow.
type VerifyConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     uint64
}

// DefaultVerifyConfig returns the polling bounds used when none are configured.
func DefaultVerifyConfig() VerifyConfig {
	return VerifyConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxAttempts:     6,
	}
}

// EditSession is an open edit. The original entries and side-records are captured
// before anything is deleted.
type EditSession struct {
	TransactionID string
	Kind          domain.VoucherKind
	State         domain.EditState
	Original      []*domain.LedgerEntry

	adjustments []*domain.StockAdjustment
	sales       []*domain.DirectSaleRecord
	release     func()
}

// EditUseCase deletes and reposts a transaction under its original id.
type EditUseCase struct {
	txManager   TransactionManager
	entries     EntryStore
	adjustments StockAdjustmentRepository
	records     StockRecordRepository
	editLog     EditLogRepository
	stock       StockReader
	builder     *VoucherBuilder
	posting     *PostingUseCase
	guard       ProcessingGuard
	idGen       IDGenerator
	verify      VerifyConfig
	logger      zerolog.Logger
	metrics     *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*EditSession
}

// NewEditUseCase creates a new EditUseCase. editLog may be nil; a zero verify uses
// DefaultVerifyConfig.
func NewEditUseCase(
	txManager TransactionManager,
	entries EntryStore,
	adjustments StockAdjustmentRepository,
	records StockRecordRepository,
	editLog EditLogRepository,
	stock StockReader,
	builder *VoucherBuilder,
	posting *PostingUseCase,
	guard ProcessingGuard,
	idGen IDGenerator,
	verify VerifyConfig,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *EditUseCase {
	if verify.MaxAttempts == 0 {
		verify = DefaultVerifyConfig()
	}

	return &EditUseCase{
		txManager:   txManager,
		entries:     entries,
		adjustments: adjustments,
		records:     records,
		editLog:     editLog,
		stock:       stock,
		builder:     builder,
		posting:     posting,
		guard:       guard,
		idGen:       idGen,
		verify:      verify,
		logger:      logger,
		metrics:     metrics,
		sessions:    make(map[string]*EditSession),
	}
}

// Begin captures and deletes a transaction. On success the session is in the
// building state and holds the processing guard until Commit or Cancel.
func (uc *EditUseCase) Begin(ctx context.Context, transactionID string) (*EditSession, error) {
	release, err := uc.guard.Acquire(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	s, err := uc.capture(ctx, transactionID)
	if err != nil {
		release()
		return nil, err
	}
	s.release = release

	// Deletion runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if err := uc.deleteVerified(ctx, s); err != nil {
		uc.abandon(ctx, s, err)
		return nil, err
	}

	s.State = domain.EditBuilding

	uc.mu.Lock()
	uc.sessions[transactionID] = s
	uc.mu.Unlock()

	uc.logger.Info().
		Str("transaction_id", transactionID).
		Str("kind", string(s.Kind)).
		Int("entries", len(s.Original)).
		Msg("edit started")

	return s, nil
}

// Commit builds the replacement voucher under the session's transaction id and posts
// it. A build or validation failure leaves the session open.
func (uc *EditUseCase) Commit(ctx context.Context, transactionID string, in VoucherInput) (*Voucher, error) {
	s, err := uc.session(transactionID)
	if err != nil {
		return nil, err
	}
	if in.Kind != s.Kind {
		return nil, domain.NewValidationError(in.Kind, "kind",
			fmt.Sprintf("an edit of %s cannot change the voucher kind", s.Kind))
	}

	in.TransactionID = s.TransactionID
	v, err := uc.builder.Build(ctx, in)
	if err != nil {
		return nil, err
	}

	s.State = domain.EditValidating
	if len(v.Entries) > 0 {
		if err := domain.ValidateEntries(v.Entries); err != nil {
			s.State = domain.EditBuilding
			return nil, err
		}
	}

	ctx = context.WithoutCancel(ctx)

	s.State = domain.EditPosting
	if err := uc.posting.postLocked(ctx, v); err != nil {
		if errors.Is(err, ErrDeferredAction) {
			uc.finish(ctx, s, domain.EditStatusCompleted, err)
			return v, err
		}
		return nil, uc.revert(ctx, s, err)
	}

	s.State = domain.EditVerifyingPost
	if err := uc.verifyPost(ctx, v); err != nil {
		return nil, uc.revert(ctx, s, err)
	}

	uc.finish(ctx, s, domain.EditStatusCompleted, nil)

	uc.logger.Info().
		Str("transaction_id", s.TransactionID).
		Int("entries", len(v.Entries)).
		Msg("edit committed")

	return v, nil
}

// Cancel reposts the captured entries unchanged.
func (uc *EditUseCase) Cancel(ctx context.Context, transactionID string) error {
	s, err := uc.session(transactionID)
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)

	if err := uc.restore(ctx, s); err != nil {
		uc.finish(ctx, s, domain.EditStatusStuck, err)
		return restoreFailed(s.TransactionID, err)
	}

	uc.finish(ctx, s, domain.EditStatusCancelled, nil)
	return nil
}

// Edit runs Begin and Commit in one call, restoring the original on any failure.
func (uc *EditUseCase) Edit(ctx context.Context, transactionID string, in VoucherInput) (*Voucher, error) {
	if _, err := uc.Begin(ctx, transactionID); err != nil {
		return nil, err
	}

	v, err := uc.Commit(ctx, transactionID, in)
	if err == nil {
		return v, nil
	}

	// Commit already closed the session on posting failures.
	if _, open := uc.lookup(transactionID); !open {
		return v, err
	}

	if cerr := uc.Cancel(ctx, transactionID); cerr != nil {
		return nil, errors.Join(err, cerr)
	}
	return nil, err
}

// Session returns the open edit for transactionID, if any.
func (uc *EditUseCase) Session(transactionID string) (*EditSession, bool) {
	return uc.lookup(transactionID)
}

// History lists edit log rows with the given status, newest first. Stuck rows carry
// the captured original entries needed for manual recovery.
func (uc *EditUseCase) History(ctx context.Context, status domain.EditStatus, limit, offset int) ([]*domain.EditRecord, error) {
	if !status.IsValid() {
		return nil, domain.NewValidationError("", "status", fmt.Sprintf("unknown edit status %q", status))
	}
	if uc.editLog == nil {
		return []*domain.EditRecord{}, nil
	}

	limit, offset, _ = domain.ValidatePagination(limit, offset)
	records, err := uc.editLog.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, &domain.StoreIOError{Op: "query edit log", Err: err}
	}
	return records, nil
}

func (uc *EditUseCase) capture(ctx context.Context, transactionID string) (*EditSession, error) {
	original, err := uc.entries.QueryByTransaction(ctx, transactionID)
	if err != nil {
		return nil, &domain.StoreIOError{Op: "query", TransactionID: transactionID, Err: err}
	}
	adjustments, err := uc.adjustments.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, &domain.StoreIOError{Op: "query adjustments", TransactionID: transactionID, Err: err}
	}

	var kind domain.VoucherKind
	switch {
	case len(original) > 0:
		kind = original[0].Kind
	case len(adjustments) > 0:
		// An adjustment below a cent posts only its side-records.
		kind = domain.KindOriginalStockAdjustment
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, transactionID)
	}

	if kind.MutatesItems() || kind == domain.KindAlignment {
		return nil, domain.NewValidationError(kind, "kind", "cannot be edited; post a new adjustment instead")
	}

	s := &EditSession{
		TransactionID: transactionID,
		Kind:          kind,
		State:         domain.EditIdle,
		Original:      domain.CloneEntries(original),
		adjustments:   adjustments,
	}

	if kind == domain.KindDirectSale {
		all, err := uc.records.ListDirectSales(ctx)
		if err != nil {
			return nil, fmt.Errorf("list direct sales: %w", err)
		}
		for _, sale := range all {
			if sale.TransactionID == transactionID {
				s.sales = append(s.sales, sale)
			}
		}
	}

	return s, nil
}

// deleteVerified deletes the transaction and polls until it is gone, retrying the
// delete once.
func (uc *EditUseCase) deleteVerified(ctx context.Context, s *EditSession) error {
	s.State = domain.EditDeleting
	err := uc.delete(ctx, s)
	if err == nil {
		s.State = domain.EditVerifyingDeletion
		err = uc.verifyDeleted(ctx, s.TransactionID)
	}
	if err == nil {
		return nil
	}

	uc.logger.Warn().Err(err).Str("transaction_id", s.TransactionID).Msg("delete not confirmed, retrying")

	s.State = domain.EditRetrying
	if err := uc.delete(ctx, s); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrEditStuck, s.TransactionID, err)
	}
	s.State = domain.EditVerifyingDeletion
	if err := uc.verifyDeleted(ctx, s.TransactionID); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrEditStuck, s.TransactionID, err)
	}

	return nil
}

func (uc *EditUseCase) delete(ctx context.Context, s *EditSession) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return &domain.StoreIOError{Op: "begin", TransactionID: s.TransactionID, Err: err}
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if _, err := uc.entries.DeleteByTransaction(txCtx, tx, s.TransactionID); err != nil {
		return &domain.StoreIOError{Op: "delete", TransactionID: s.TransactionID, Err: err}
	}
	if len(s.adjustments) > 0 {
		if err := uc.adjustments.DeleteByTransaction(txCtx, tx, s.TransactionID); err != nil {
			return &domain.StoreIOError{Op: "delete adjustments", TransactionID: s.TransactionID, Err: err}
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return &domain.StoreIOError{Op: "commit", TransactionID: s.TransactionID, Err: err}
	}

	if len(s.sales) > 0 {
		if err := uc.records.DeleteDirectSales(ctx, s.TransactionID); err != nil {
			return fmt.Errorf("delete direct sales: %w", err)
		}
	}

	uc.invalidate(ctx, s)
	return nil
}

func (uc *EditUseCase) verifyDeleted(ctx context.Context, transactionID string) error {
	return uc.poll(ctx, func() error {
		residual, err := uc.entries.QueryByTransaction(ctx, transactionID)
		if err != nil {
			return &domain.StoreIOError{Op: "query", TransactionID: transactionID, Err: err}
		}
		if len(residual) > 0 {
			return fmt.Errorf("%w: %d", errResidualEntries, len(residual))
		}
		return nil
	})
}

func (uc *EditUseCase) verifyPost(ctx context.Context, v *Voucher) error {
	if len(v.Entries) == 0 {
		return nil
	}
	return uc.poll(ctx, func() error {
		stored, err := uc.entries.QueryByTransaction(ctx, v.TransactionID)
		if err != nil {
			return &domain.StoreIOError{Op: "query", TransactionID: v.TransactionID, Err: err}
		}
		if !domain.SameEntrySet(stored, v.Entries) {
			return errPostNotVisible
		}
		if err := domain.ValidateEntries(stored); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	})
}

func (uc *EditUseCase) poll(ctx context.Context, check func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = uc.verify.InitialInterval
	b.MaxInterval = uc.verify.MaxInterval
	b.MaxElapsedTime = 0

	return backoff.Retry(check, backoff.WithContext(backoff.WithMaxRetries(b, uc.verify.MaxAttempts), ctx))
}

// revert restores the original after a failed repost.
func (uc *EditUseCase) revert(ctx context.Context, s *EditSession, cause error) error {
	uc.logger.Error().Err(cause).Str("transaction_id", s.TransactionID).Msg("edit failed, restoring original")

	// A partially visible repost must be removed before the original goes back.
	if err := uc.deleteVerified(ctx, s); err != nil {
		uc.finish(ctx, s, domain.EditStatusStuck, errors.Join(cause, err))
		return errors.Join(cause, restoreFailed(s.TransactionID, err))
	}

	if err := uc.restore(ctx, s); err != nil {
		uc.finish(ctx, s, domain.EditStatusStuck, errors.Join(cause, err))
		return errors.Join(cause, restoreFailed(s.TransactionID, err))
	}

	uc.finish(ctx, s, domain.EditStatusRestored, cause)
	return cause
}

// restore reposts the captured entries, side-records and sale records unchanged.
func (uc *EditUseCase) restore(ctx context.Context, s *EditSession) error {
	original := domain.CloneEntries(s.Original)
	if err := uc.posting.persist(ctx, s.TransactionID, original, s.adjustments); err != nil {
		return err
	}

	for _, sale := range s.sales {
		if err := uc.records.CreateDirectSale(ctx, sale); err != nil {
			return fmt.Errorf("restore direct sale: %w", err)
		}
	}

	uc.invalidate(ctx, s)

	return uc.poll(ctx, func() error {
		stored, err := uc.entries.QueryByTransaction(ctx, s.TransactionID)
		if err != nil {
			return &domain.StoreIOError{Op: "query", TransactionID: s.TransactionID, Err: err}
		}
		if !domain.SameEntrySet(stored, s.Original) {
			return errPostNotVisible
		}
		return nil
	})
}

// abandon records a Begin that could not delete the original.
func (uc *EditUseCase) abandon(ctx context.Context, s *EditSession, cause error) {
	uc.logger.Error().
		Err(cause).
		Str("transaction_id", s.TransactionID).
		Msg("edit stuck, manual ledger inspection required")
	uc.finish(ctx, s, domain.EditStatusStuck, cause)
}

func (uc *EditUseCase) finish(ctx context.Context, s *EditSession, status domain.EditStatus, cause error) {
	state := s.State
	s.State = domain.EditIdle

	uc.mu.Lock()
	delete(uc.sessions, s.TransactionID)
	uc.mu.Unlock()

	if s.release != nil {
		s.release()
	}

	if uc.metrics != nil {
		uc.metrics.EditOutcomes.WithLabelValues(string(status)).Inc()
	}

	if uc.editLog == nil {
		return
	}

	rec := &domain.EditRecord{
		CreatedAt:     time.Now().UTC(),
		ID:            uc.idGen.Generate(),
		TransactionID: s.TransactionID,
		Kind:          s.Kind,
		State:         state,
		Status:        status,
		Original:      s.Original,
	}
	if cause != nil {
		rec.ErrorMessage = cause.Error()
	}

	if err := uc.editLog.Create(ctx, rec); err != nil {
		uc.logger.Error().Err(err).Str("transaction_id", s.TransactionID).Msg("failed to write edit log")
	}
}

func (uc *EditUseCase) invalidate(ctx context.Context, s *EditSession) {
	if !s.Kind.TouchesStock() {
		return
	}
	if err := uc.stock.Invalidate(ctx); err != nil {
		uc.logger.Warn().Err(err).Str("transaction_id", s.TransactionID).Msg("stock invalidation failed")
	}
}

func (uc *EditUseCase) session(transactionID string) (*EditSession, error) {
	s, ok := uc.lookup(transactionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEditSessionNotFound, transactionID)
	}
	return s, nil
}

func (uc *EditUseCase) lookup(transactionID string) (*EditSession, bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	s, ok := uc.sessions[transactionID]
	return s, ok
}

func restoreFailed(transactionID string, err error) error {
	return fmt.Errorf("original transaction %s could not be restored; inspect the ledger manually: %w", transactionID, err)
}
