package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/velmie/stockrelay"
)

const (
	defaultCleanupLimit      = 10000
	defaultCleanupEvery      = time.Hour
	defaultCleanupLockPrefix = "stockrelay:cleanup:"
)

// CleanupOptions defines which audit rows are removed.
type CleanupOptions struct {
	// Before removes rows created at or before this timestamp (required).
	Before time.Time
	// Limit caps the number of rows deleted per call (0 uses the default).
	Limit int
}

// CleanupMaintainerConfig controls periodic pruning of the audit table.
type CleanupMaintainerConfig struct {
	Dialect Dialect
	Tables  Tables
	// Retention removes rows older than now-retention (required).
	Retention time.Duration
	// CheckEvery is the interval between cleanup runs.
	CheckEvery time.Duration
	// Limit caps the number of rows deleted per run (0 uses the default).
	Limit int
	// LockName is the advisory lock name. Defaults to stockrelay:cleanup:<table>.
	LockName string
	Clock    stockrelay.Clock
	Logger   stockrelay.Logger
}

// CleanupMaintainer prunes old audit rows. Only one session across all processes
// runs a pass at a time, guarded by a database advisory lock.
type CleanupMaintainer struct {
	db    *sql.DB
	store *Store
	cfg   CleanupMaintainerConfig
}

// Cleanup removes audit rows created at or before opts.Before and returns the number deleted.
func (s *Store) Cleanup(ctx context.Context, opts CleanupOptions) (int64, error) {
	if opts.Before.IsZero() {
		return 0, ErrCleanupBeforeRequired
	}
	limit := opts.Limit
	if limit == 0 {
		limit = defaultCleanupLimit
	}
	if limit < 0 {
		return 0, ErrCleanupLimitInvalid
	}

	res, err := s.db.ExecContext(ctx, s.queries.cleanupAudit, opts.Before.UTC(), limit)
	if err != nil {
		return 0, fmt.Errorf("stockrelay sql: cleanup delete failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stockrelay sql: cleanup rows failed: %w", err)
	}

	return affected, nil
}

// NewCleanupMaintainer creates a new cleanup maintainer with defaults applied.
func NewCleanupMaintainer(db *sql.DB, cfg CleanupMaintainerConfig) (*CleanupMaintainer, error) {
	if db == nil {
		return nil, ErrDBRequired
	}
	if cfg.Retention <= 0 {
		return nil, ErrCleanupRetentionInvalid
	}
	if cfg.Clock == nil {
		cfg.Clock = stockrelay.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = stockrelay.NopLogger{}
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = defaultCleanupEvery
	}
	if cfg.Limit == 0 {
		cfg.Limit = defaultCleanupLimit
	}
	if cfg.Limit < 0 {
		return nil, ErrCleanupLimitInvalid
	}

	store, err := NewStore(db, WithDialect(cfg.Dialect), WithTables(cfg.Tables), WithClock(cfg.Clock), WithLogger(cfg.Logger))
	if err != nil {
		return nil, err
	}
	cfg.Dialect = store.cfg.Dialect
	cfg.Tables = store.tables
	if cfg.LockName == "" {
		cfg.LockName = defaultCleanupLockPrefix + store.tables.SyncLogs
	}

	return &CleanupMaintainer{db: db, store: store, cfg: cfg}, nil
}

// Run periodically deletes old audit rows until the context is canceled.
func (m *CleanupMaintainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.CheckEvery)
	defer ticker.Stop()

	m.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.runOnce(ctx)
		}
	}
}

func (m *CleanupMaintainer) runOnce(ctx context.Context) {
	deleted, err := m.Ensure(ctx)
	if err != nil {
		m.cfg.Logger.Warn("stockrelay audit cleanup failed", "err", err)

		return
	}
	if deleted > 0 {
		m.cfg.Logger.Info("stockrelay audit cleanup", "deleted", deleted)
	}
}

// Ensure executes a single cleanup pass. It returns zero when another session holds the lock.
func (m *CleanupMaintainer) Ensure(ctx context.Context) (int64, error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("stockrelay sql: cleanup conn failed: %w", err)
	}
	defer conn.Close()

	locked, err := m.tryLock(ctx, conn)
	if err != nil {
		return 0, err
	}
	if !locked {
		m.cfg.Logger.Debug("stockrelay cleanup lock held by another session")

		return 0, nil
	}
	defer m.releaseLock(ctx, conn)

	before := m.cfg.Clock.Now().Add(-m.cfg.Retention)

	return m.store.Cleanup(ctx, CleanupOptions{Before: before, Limit: m.cfg.Limit})
}

func (m *CleanupMaintainer) tryLock(ctx context.Context, conn *sql.Conn) (bool, error) {
	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, m.store.queries.tryLock, m.cfg.LockName).Scan(&got); err != nil {
		return false, fmt.Errorf("stockrelay sql: acquire cleanup lock failed: %w", err)
	}
	if !got.Valid || got.Int64 == 0 {
		return false, nil
	}

	return true, nil
}

func (m *CleanupMaintainer) releaseLock(ctx context.Context, conn *sql.Conn) {
	var released sql.NullInt64
	if err := conn.QueryRowContext(ctx, m.store.queries.releaseLock, m.cfg.LockName).Scan(&released); err != nil {
		m.cfg.Logger.Warn("stockrelay cleanup release lock failed", "err", err)
	}
}
