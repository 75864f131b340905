package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/factoryledger/internal/domain"
	"github.com/iho/factoryledger/internal/infrastructure/metrics"
)

// StockUseCase reconstructs original-stock positions and caches the snapshot per
// stock version.
type StockUseCase struct {
	records     StockRecordRepository
	adjustments StockAdjustmentRepository
	entries     EntryStore
	cache       SnapshotCache
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewStockUseCase creates a new StockUseCase. cache may be nil.
func NewStockUseCase(
	records StockRecordRepository,
	adjustments StockAdjustmentRepository,
	entries EntryStore,
	cache SnapshotCache,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *StockUseCase {
	return &StockUseCase{
		records:     records,
		adjustments: adjustments,
		entries:     entries,
		cache:       cache,
		logger:      logger,
		metrics:     metrics,
	}
}

// Reconcile returns the current positions, from cache when the stock version is unchanged.
func (uc *StockUseCase) Reconcile(ctx context.Context) (*domain.StockReconciliation, error) {
	version := int64(-1)
	if uc.cache != nil {
		if v, err := uc.cache.Version(ctx); err == nil {
			version = v
			if rec, ok := uc.load(ctx, version); ok {
				return rec, nil
			}
		} else {
			uc.logger.Warn().Err(err).Msg("stock version unavailable, reconciling without cache")
		}
	}

	start := time.Now()

	history, err := uc.history(ctx)
	if err != nil {
		return nil, err
	}

	rec := domain.ReconcileStock(*history)

	for _, s := range rec.Skipped {
		uc.logger.Warn().
			Str("transaction_id", s.TransactionID).
			Str("reason", s.Reason).
			Msg("stock adjustment skipped")
	}

	if uc.metrics != nil {
		uc.metrics.ReconciliationDuration.Observe(time.Since(start).Seconds())
		uc.metrics.AdjustmentsSkipped.Add(float64(len(rec.Skipped)))
	}

	if version >= 0 {
		uc.store(ctx, version, rec)
	}

	return rec, nil
}

// Positions returns every bucket ordered by key.
func (uc *StockUseCase) Positions(ctx context.Context) ([]*domain.StockPosition, error) {
	rec, err := uc.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Positions, nil
}

// Position returns one bucket.
func (uc *StockUseCase) Position(ctx context.Context, key domain.BucketKey) (*domain.StockPosition, error) {
	rec, err := uc.Reconcile(ctx)
	if err != nil {
		return nil, err
	}

	pos := rec.Find(key)
	if pos == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrBucketNotFound, key)
	}
	return pos, nil
}

// Invalidate bumps the stock version so the next Reconcile rebuilds the snapshot.
func (uc *StockUseCase) Invalidate(ctx context.Context) error {
	if uc.cache == nil {
		return nil
	}

	version, err := uc.cache.Bump(ctx)
	if err != nil {
		return fmt.Errorf("bump stock version: %w", err)
	}

	uc.logger.Debug().Int64("version", version).Msg("stock snapshot invalidated")
	return nil
}

func (uc *StockUseCase) history(ctx context.Context) (*domain.StockHistory, error) {
	purchases, err := uc.records.ListPurchases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	openings, err := uc.records.ListOpenings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list openings: %w", err)
	}
	sales, err := uc.records.ListDirectSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list direct sales: %w", err)
	}
	adjustments, err := uc.adjustments.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock adjustments: %w", err)
	}
	entries, err := uc.entries.ListAll(ctx)
	if err != nil {
		return nil, &domain.StoreIOError{Op: "query", Err: err}
	}

	return &domain.StockHistory{
		Purchases:   purchases,
		Openings:    openings,
		Sales:       sales,
		Adjustments: adjustments,
		Entries:     entries,
	}, nil
}

func (uc *StockUseCase) load(ctx context.Context, version int64) (*domain.StockReconciliation, bool) {
	data, err := uc.cache.Load(ctx, version)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			uc.logger.Warn().Err(err).Int64("version", version).Msg("stock snapshot load failed")
		}
		uc.recordCache("miss")
		return nil, false
	}

	var rec domain.StockReconciliation
	if err := json.Unmarshal(data, &rec); err != nil {
		uc.logger.Warn().Err(err).Int64("version", version).Msg("stock snapshot corrupt")
		uc.recordCache("miss")
		return nil, false
	}

	uc.recordCache("hit")
	return &rec, true
}

func (uc *StockUseCase) store(ctx context.Context, version int64, rec *domain.StockReconciliation) {
	data, err := json.Marshal(rec)
	if err != nil {
		uc.logger.Warn().Err(err).Msg("stock snapshot encode failed")
		return
	}
	if err := uc.cache.Store(ctx, version, data); err != nil {
		uc.logger.Warn().Err(err).Int64("version", version).Msg("stock snapshot store failed")
	}
}

func (uc *StockUseCase) recordCache(result string) {
	if uc.metrics != nil {
		uc.metrics.SnapshotCache.WithLabelValues(result).Inc()
	}
}
