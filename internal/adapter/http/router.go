package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/factoryledger/internal/adapter/http/handler"
	"github.com/iho/factoryledger/internal/adapter/http/middleware"
	"github.com/iho/factoryledger/internal/infrastructure/metrics"
	"github.com/iho/factoryledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	TransactionHandler *handler.TransactionHandler
	PartyHandler       *handler.PartyHandler
	StockHandler       *handler.StockHandler
	AlignmentHandler   *handler.AlignmentHandler
	LedgerHandler      *handler.LedgerHandler
	EditLogHandler     *handler.EditLogHandler
	HealthHandler      *handler.HealthHandler
	IdempotencyStore   usecase.IdempotencyStore
	IdempotencyTTL     time.Duration
	RateLimiter        *middleware.RateLimiter
	Metrics            *metrics.Metrics
	Logger             *zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if cfg.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(*cfg.Logger).Wrap)
	}
	r.Use(middleware.Recovery)
	r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore).WithTTL(cfg.IdempotencyTTL).Wrap)
		}

		r.Post("/vouchers", cfg.TransactionHandler.Submit)

		r.Route("/transactions/{id}", func(r chi.Router) {
			r.Get("/", cfg.TransactionHandler.Get)
			r.Put("/", cfg.TransactionHandler.Edit)
			r.Get("/consistency", cfg.LedgerHandler.ReconcileTransaction)

			r.Post("/edit", cfg.TransactionHandler.BeginEdit)
			r.Put("/edit", cfg.TransactionHandler.CommitEdit)
			r.Delete("/edit", cfg.TransactionHandler.CancelEdit)
		})

		r.Route("/parties/{ref}", func(r chi.Router) {
			r.Get("/balance", cfg.PartyHandler.Balance)
			r.Get("/entries", cfg.PartyHandler.Entries)
		})

		r.Get("/stock/positions", cfg.StockHandler.Positions)

		if cfg.EditLogHandler != nil {
			r.Get("/edits", cfg.EditLogHandler.List)
		}

		r.Route("/alignments", func(r chi.Router) {
			r.Post("/balance", cfg.AlignmentHandler.Balance)
			r.Post("/items", cfg.AlignmentHandler.Item)
			r.Post("/stock", cfg.AlignmentHandler.Stock)
		})

		r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
	})

	return r
}
