// Command stockrelay-worker drains the durable queue and forwards each item to the ERP webhook.
//
// Confirmed deliveries commit the item state to Redis, failures are re-queued with an
// incremented retry counter and messages that exhaust the retry budget go to the dead-letter stream.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/velmie/stockrelay"
	"github.com/velmie/stockrelay/cmd/internal/config"
	"github.com/velmie/stockrelay/cmd/internal/logging"
	"github.com/velmie/stockrelay/cmd/internal/wiring"
	"github.com/velmie/stockrelay/erp"
	"github.com/velmie/stockrelay/redisstream"
	"github.com/velmie/stockrelay/sqlstore"

	_ "time/tzdata"
)

const exitUsage = 2

func main() {
	var (
		configPath string
		envFile    string
		once       bool
	)

	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (optional)")
	flag.StringVar(&envFile, "env-file", ".env", "Path to a .env file (optional)")
	flag.BoolVar(&once, "once", false, "Process a single batch and exit")
	flag.Parse()

	cfg, logger, err := wiring.Bootstrap(configPath, envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
	if err := cfg.ValidateWorker(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(exitUsage)
	}

	ctx, stop := wiring.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger, once); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logging.Logger, once bool) error {
	loc, err := stockrelay.LoadLocation(cfg.Relay.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
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

	consumerName := "worker-" + uuid.NewString()
	queue, closeQueue, err := wiring.OpenQueue(ctx, cfg, pool, consumerName, logger)
	if err != nil {
		return err
	}
	defer closeQueue()

	workerLog := logger.With("consumer", consumerName)
	forwarder := erp.NewForwarder(
		erp.WithEndpoint(cfg.ERP.WebhookURL),
		erp.WithTimeout(cfg.ERP.Timeout),
		erp.WithLogger(workerLog),
	)

	metrics := &stockrelay.AtomicMetrics{}
	opts := []stockrelay.RelayOption{
		stockrelay.WithBatchSize(cfg.Relay.BatchSize),
		stockrelay.WithReadBlock(cfg.Relay.ReadBlock),
		stockrelay.WithWorkers(cfg.Relay.Workers),
		stockrelay.WithMaxRetry(cfg.Relay.MaxRetry),
		stockrelay.WithCacheTTL(cfg.Relay.CacheTTL),
		stockrelay.WithReclaimIdle(cfg.Relay.ReclaimIdle),
		stockrelay.WithLocation(loc),
		stockrelay.WithLogger(workerLog),
		stockrelay.WithMetrics(metrics),
	}
	if cfg.Relay.DeadOnRejection {
		opts = append(opts, stockrelay.WithFailureClassifier(stockrelay.DeadOnPermanentRejection))
	}

	db, dialect, err := openAudit(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		store, err := sqlstore.NewStore(db, sqlstore.WithDialect(dialect), sqlstore.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("init audit store: %w", err)
		}
		opts = append(opts, stockrelay.WithAudit(store))
	}

	relay := stockrelay.NewRelay(queue, forwarder, state, opts...)

	if once {
		processed, err := relay.ProcessOnce(ctx)
		if err != nil {
			return fmt.Errorf("process batch: %w", err)
		}
		logger.Info("stockrelay worker single pass done", "processed", processed)

		return nil
	}

	scheduler := wiring.NewScheduler(logger)
	if err := scheduler.Add(ctx, "reclaim", cfg.Relay.ReclaimSchedule, func(ctx context.Context) error {
		_, err := relay.ReclaimOnce(ctx)

		return err
	}); err != nil {
		return err
	}
	if err := scheduler.Add(ctx, "stats", cfg.Relay.StatsSchedule, func(ctx context.Context) error {
		return logStats(ctx, queue, metrics, logger)
	}); err != nil {
		return err
	}
	scheduler.Start(ctx)

	logger.Info("stockrelay worker started",
		"consumer", consumerName, "queue", cfg.Queue.Backend, "dead_on_rejection", cfg.Relay.DeadOnRejection)
	if err := relay.Run(ctx); err != nil {
		return fmt.Errorf("run relay: %w", err)
	}
	logger.Info("stockrelay worker stopped")

	return nil
}

// openAudit opens the audit database when one is configured. The worker runs without it otherwise.
func openAudit(ctx context.Context, cfg config.Config, logger *logging.Logger) (*sql.DB, sqlstore.Dialect, error) {
	if cfg.DB.DSN == "" && cfg.DB.Host == "" {
		logger.Info("no database configured, delivery audit disabled")

		return nil, "", nil
	}

	return wiring.OpenDB(ctx, cfg)
}

func logStats(ctx context.Context, queue stockrelay.PendingCounter, metrics *stockrelay.AtomicMetrics, logger stockrelay.Logger) error {
	pending, err := queue.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("pending count: %w", err)
	}
	metrics.SetPending(pending)

	snap := metrics.Snapshot()
	logger.Info("stockrelay worker stats",
		"pending", snap.Pending,
		"batches", snap.Batches,
		"forwarded", snap.Forwarded,
		"errors", snap.Errors,
		"retries", snap.Retries,
		"dead", snap.Dead,
		"batch_time", snap.BatchDuration,
	)

	return nil
}
