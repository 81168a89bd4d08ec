// Command stockrelay-api serves the supplier ingestion endpoint.
//
// It authenticates suppliers against the relational store, deduplicates items against
// the Redis state store and enqueues forward jobs for stockrelay-worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/velmie/stockrelay"
	"github.com/velmie/stockrelay/cmd/internal/config"
	"github.com/velmie/stockrelay/cmd/internal/logging"
	"github.com/velmie/stockrelay/cmd/internal/wiring"
	"github.com/velmie/stockrelay/gateway"
	"github.com/velmie/stockrelay/httpapi"
	"github.com/velmie/stockrelay/redisstream"
	"github.com/velmie/stockrelay/sqlstore"

	_ "time/tzdata"
)

const (
	exitUsage       = 2
	shutdownTimeout = 15 * time.Second
)

func main() {
	var (
		configPath string
		envFile    string
	)

	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (optional)")
	flag.StringVar(&envFile, "env-file", ".env", "Path to a .env file (optional)")
	flag.Parse()

	cfg, logger, err := wiring.Bootstrap(configPath, envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
	if err := cfg.ValidateAPI(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(exitUsage)
	}

	ctx, stop := wiring.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logging.Logger) error {
	db, dialect, err := wiring.OpenDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := sqlstore.NewStore(db, sqlstore.WithDialect(dialect), sqlstore.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	pool, err := wiring.OpenRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	state, err := redisstream.NewStateStore(pool)
	if err != nil {
		return fmt.Errorf("init state store: %w", err)
	}
	queue, closeQueue, err := wiring.OpenQueue(ctx, cfg, pool, "", logger)
	if err != nil {
		return err
	}
	defer closeQueue()

	gw, err := gateway.New(store, state, queue,
		gateway.WithEndpoint(cfg.ERP.WebhookURL),
		gateway.WithAction(cfg.ERP.Action),
		gateway.WithKey(cfg.ERP.WebhookKey),
		gateway.WithCacheTTL(cfg.Relay.CacheTTL),
		gateway.WithSettings(store),
		gateway.WithAudit(store),
		gateway.WithLogger(logger.With("component", "gateway")),
	)
	if err != nil {
		return fmt.Errorf("init gateway: %w", err)
	}

	if cfg.Audit.Retention > 0 {
		maintainer, err := sqlstore.NewCleanupMaintainer(db, sqlstore.CleanupMaintainerConfig{
			Dialect:   dialect,
			Retention: cfg.Audit.Retention,
			Clock:     stockrelay.SystemClock{},
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("init audit cleanup: %w", err)
		}
		scheduler := wiring.NewScheduler(logger)
		if err := scheduler.Add(ctx, "audit-cleanup", cfg.Audit.Schedule, func(ctx context.Context) error {
			_, err := maintainer.Ensure(ctx)

			return err
		}); err != nil {
			return err
		}
		scheduler.Start(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(gw,
		httpapi.WithHealthCheck("db", db.PingContext),
		httpapi.WithHealthCheck("redis", wiring.PingRedis(pool)),
		httpapi.WithLogger(logger.With("component", "http")),
	)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("stockrelay api listening", "addr", srv.Addr, "queue", cfg.Queue.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("stockrelay api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
