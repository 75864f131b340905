package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/factoryledger/internal/adapter/http"
	"github.com/iho/factoryledger/internal/adapter/http/handler"
	"github.com/iho/factoryledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/factoryledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/factoryledger/internal/adapter/repository/redis"
	"github.com/iho/factoryledger/internal/infrastructure/config"
	"github.com/iho/factoryledger/internal/infrastructure/logger"
	"github.com/iho/factoryledger/internal/infrastructure/metrics"
	"github.com/iho/factoryledger/internal/infrastructure/postgres"
	"github.com/iho/factoryledger/internal/infrastructure/redis"
	"github.com/iho/factoryledger/internal/usecase"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.SetGlobal(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger) error {
	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		return err
	}
	converter, err := settings.Converter(cfg.BaseCurrency)
	if err != nil {
		return err
	}

	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, appLogger); err != nil {
			return err
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	appLogger.Info().Msg("connected to postgres")

	// Redis is optional
	redisClient := redis.NewOptionalClient(ctx, cfg.RedisURL, appLogger)
	if redisClient != nil {
		defer redisClient.Close()
		appLogger.Info().Msg("connected to redis")
	}

	m := metrics.New()

	// Initialize repositories
	retrier := postgresRepo.NewRetrier(appLogger, m)
	idGen := postgresRepo.NewULIDGenerator()
	txManager := postgresRepo.NewTxManager(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool, idGen, retrier)
	partyRepo := postgresRepo.NewPartyRepository(pool, retrier)
	itemRepo := postgresRepo.NewItemRepository(pool, retrier)
	recordRepo := postgresRepo.NewStockRecordRepository(pool, retrier)
	adjustmentRepo := postgresRepo.NewStockAdjustmentRepository(pool, retrier)
	editLogRepo := postgresRepo.NewEditLogRepository(pool, retrier)

	guard := newGuard(redisClient, cfg.GuardTTL, appLogger)

	// Initialize use cases
	stockUC := usecase.NewStockUseCase(recordRepo, adjustmentRepo, entryRepo,
		newSnapshotCache(redisClient, cfg.SnapshotTTL), appLogger, m)
	ledgerUC := usecase.NewLedgerUseCase(entryRepo, partyRepo)
	builder := usecase.NewVoucherBuilder(partyRepo, itemRepo, recordRepo, stockUC, ledgerUC,
		settings.ResolvedChart(), converter, idGen, appLogger)
	postingUC := usecase.NewPostingUseCase(txManager, entryRepo, adjustmentRepo, guard, appLogger, m)
	voucherUC := usecase.NewVoucherUseCase(builder, postingUC)
	editUC := usecase.NewEditUseCase(txManager, entryRepo, adjustmentRepo, recordRepo, editLogRepo,
		stockUC, builder, postingUC, guard, idGen, cfg.VerifyConfig(), appLogger, m)
	planner := usecase.NewAlignmentPlanner(builder, entryRepo, postingUC, appLogger, m)
	reconciliationUC := usecase.NewReconciliationUseCase(entryRepo, appLogger)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)
	go rateLimiter.RunCleanup(ctx, 10*time.Minute)

	routerCfg := httpAdapter.RouterConfig{
		TransactionHandler: handler.NewTransactionHandler(voucherUC, editUC, ledgerUC),
		PartyHandler:       handler.NewPartyHandler(ledgerUC),
		StockHandler:       handler.NewStockHandler(stockUC),
		AlignmentHandler:   handler.NewAlignmentHandler(planner),
		LedgerHandler:      handler.NewLedgerHandler(reconciliationUC),
		EditLogHandler:     handler.NewEditLogHandler(editUC),
		HealthHandler:      handler.NewHealthHandler(healthChecks(pool, redisClient)...),
		IdempotencyTTL:     cfg.IdempotencyTTL,
		RateLimiter:        rateLimiter,
		Metrics:            m,
		Logger:             &appLogger,
	}
	if redisClient != nil {
		routerCfg.IdempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLogger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// newGuard returns the distributed guard when Redis is available, else the in-process one.
func newGuard(client *goredis.Client, ttl time.Duration, l zerolog.Logger) usecase.ProcessingGuard {
	if client == nil {
		l.Info().Msg("using in-process processing guard")
		return usecase.NewMemoryGuard()
	}
	return redisRepo.NewLockGuard(client, ttl, l)
}

func newSnapshotCache(client *goredis.Client, ttl time.Duration) usecase.SnapshotCache {
	if client == nil {
		return nil
	}
	return redisRepo.NewSnapshotCache(client, ttl)
}

func healthChecks(pool *pgxpool.Pool, client *goredis.Client) []handler.HealthCheck {
	checks := []handler.HealthCheck{handler.PostgresCheck(pool)}
	if client != nil {
		checks = append(checks, handler.RedisCheck(client))
	}
	return checks
}
