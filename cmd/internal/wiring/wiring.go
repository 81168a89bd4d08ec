// Package wiring opens the external resources shared by the stockrelay binaries.
package wiring

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gomodule/redigo/redis"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"

	"github.com/velmie/stockrelay"
	"github.com/velmie/stockrelay/cmd/internal/config"
	"github.com/velmie/stockrelay/natsqueue"
	"github.com/velmie/stockrelay/redisstream"
	"github.com/velmie/stockrelay/sqlstore"
)

// Queue is the durable queue as seen by the binaries.
type Queue interface {
	stockrelay.Producer
	stockrelay.Consumer
	stockrelay.PendingCounter
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// OpenDB opens and pings the relational store.
func OpenDB(ctx context.Context, cfg config.Config) (*sql.DB, sqlstore.Dialect, error) {
	dialect, err := sqlstore.ParseDialect(cfg.DB.Driver)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(dialect.DriverName(), cfg.DataSourceName())
	if err != nil {
		return nil, "", fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()

		return nil, "", fmt.Errorf("ping db: %w", err)
	}

	return db, dialect, nil
}

// OpenRedis builds the Redis pool and checks one connection.
func OpenRedis(ctx context.Context, cfg config.Config) (*redis.Pool, error) {
	pool := redisstream.NewPool(cfg.Redis.URL, cfg.Redis.MaxIdle)
	if err := PingRedis(pool)(ctx); err != nil {
		_ = pool.Close()

		return nil, err
	}

	return pool, nil
}

// PingRedis returns a health check issuing PING on a pooled connection.
func PingRedis(pool *redis.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		conn, err := pool.GetContext(ctx)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer conn.Close()

		if _, err := redis.DoContext(conn, ctx, "PING"); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}

		return nil
	}
}

// OpenQueue builds the configured queue backend and makes sure its streams exist.
// The returned close function releases backend-specific resources.
func OpenQueue(ctx context.Context, cfg config.Config, pool *redis.Pool, consumer string, logger stockrelay.Logger) (Queue, func(), error) {
	switch cfg.Queue.Backend {
	case config.BackendRedis:
		opts := []redisstream.Option{
			redisstream.WithLogger(logger),
		}
		if cfg.Queue.Stream != "" {
			opts = append(opts, redisstream.WithStream(cfg.Queue.Stream))
		}
		if cfg.Queue.Group != "" {
			opts = append(opts, redisstream.WithGroup(cfg.Queue.Group))
		}
		if cfg.Queue.DeadLetter != "" {
			opts = append(opts, redisstream.WithDeadLetterStream(cfg.Queue.DeadLetter))
		}
		if consumer != "" {
			opts = append(opts, redisstream.WithConsumer(consumer))
		}
		q, err := redisstream.NewQueue(pool, opts...)
		if err != nil {
			return nil, nil, err
		}
		if err := q.EnsureGroup(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure group: %w", err)
		}

		return q, func() {}, nil

	case config.BackendNATS:
		nc, err := nats.Connect(cfg.Queue.NATSURL, nats.Name("stockrelay"))
		if err != nil {
			return nil, nil, fmt.Errorf("nats connect: %w", err)
		}
		opts := []natsqueue.Option{
			natsqueue.WithLogger(logger),
		}
		if cfg.Queue.Group != "" {
			opts = append(opts, natsqueue.WithDurable(cfg.Queue.Group))
		}
		if cfg.Relay.ReclaimIdle > 0 {
			opts = append(opts, natsqueue.WithAckWait(cfg.Relay.ReclaimIdle))
		}
		q, err := natsqueue.NewQueue(nc, opts...)
		if err != nil {
			nc.Close()

			return nil, nil, err
		}
		if err := q.EnsureStreams(ctx); err != nil {
			nc.Close()

			return nil, nil, fmt.Errorf("ensure streams: %w", err)
		}

		return q, func() { _ = nc.Drain() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported queue backend %q", cfg.Queue.Backend)
	}
}
