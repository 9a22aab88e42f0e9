package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/fastprodman/loyalty/internal/api"
	"github.com/fastprodman/loyalty/internal/auth"
	"github.com/fastprodman/loyalty/internal/infra/logging"
	"github.com/fastprodman/loyalty/internal/infra/metrics"
	"github.com/fastprodman/loyalty/internal/infra/pgutils"
	"github.com/fastprodman/loyalty/internal/services/ledger"
	"github.com/fastprodman/loyalty/internal/services/reconcile"
	"github.com/fastprodman/loyalty/internal/services/redemption"
	"github.com/fastprodman/loyalty/internal/services/reporting"
	"github.com/fastprodman/loyalty/internal/tiers"
	"github.com/fastprodman/loyalty/pkg/envconf"
	"github.com/fastprodman/loyalty/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg := new(apiConfig)

	err = envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logFile := logging.SetupJSONWithFile(cfg.LogLevel, cfg.LogFile)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// registered first so it closes last
	shutdownqueue.Add("log file", func(context.Context) error {
		return logFile.Close()
	})

	// --- Domain config ---
	table, err := tiers.LoadFile(cfg.TiersFile)
	if err != nil {
		return fmt.Errorf("load tiers: %w", err)
	}

	slog.Info("tier table loaded", "tiers", table.Names())

	verifier, err := auth.NewJWTVerifier(cfg.Auth)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	// --- Infra ---
	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add("postgres", func(context.Context) error {
		return dbConns.Close()
	})

	var reportCache reporting.Cache

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		err = rdb.Ping(ctx).Err()
		if err != nil {
			// reports still work without the cache
			slog.Warn("redis unavailable, report cache degraded", "addr", cfg.Redis.Addr, "error", err)
		}

		shutdownqueue.Add("redis", func(context.Context) error {
			return rdb.Close()
		})

		reportCache = reporting.NewRedisCache(rdb, "loyalty:")
	}

	m := metrics.New()

	// --- Services ---
	engine := ledger.New(dbConns, table, m)
	redeemSrv := redemption.New(dbConns, engine, m)
	reportSrv := reporting.New(dbConns, table, reportCache, cfg.Redis.TTL)

	if cfg.Reconcile.Schedule != "" {
		scheduler, serr := reconcile.New(dbConns, table, m).Schedule(cfg.Reconcile.Schedule, cfg.Reconcile.Timeout)
		if serr != nil {
			return fmt.Errorf("init reconciliation: %w", serr)
		}

		scheduler.Start()

		shutdownqueue.Add("reconciliation", func(c context.Context) error {
			select {
			case <-scheduler.Stop().Done():
				return nil
			case <-c.Done():
				return c.Err()
			}
		})

		slog.Info("ledger reconciliation scheduled", "schedule", cfg.Reconcile.Schedule)
	}

	// --- HTTP server ---
	handlers := api.NewHandler(engine, redeemSrv, reportSrv, table)
	limiter := api.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	srv := api.NewServer(cfg.HTTP, api.NewRouter(handlers, verifier, limiter, m))

	shutdownqueue.Add("http server", func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.HTTP.Port)

	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
