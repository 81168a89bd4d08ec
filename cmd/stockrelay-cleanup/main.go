// Command stockrelay-cleanup prunes old rows from the sync_logs audit table.
//
// It wraps sqlstore.CleanupMaintainer for use in cron/CronJobs when the API process
// should not run DELETE statements itself. With -init-schema it creates the tables first.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/velmie/stockrelay"
	"github.com/velmie/stockrelay/cmd/internal/logging"
	"github.com/velmie/stockrelay/sqlstore"
)

const exitUsage = 2

type options struct {
	driver     string
	dsn        string
	table      string
	retention  time.Duration
	checkEvery time.Duration
	limit      int
	lockName   string
	initSchema bool
	once       bool
	verbose    bool
}

func main() {
	var opts options

	flag.StringVar(&opts.driver, "driver", envOr("DB_DRIVER", "mysql"), "Database driver: mysql or postgres")
	flag.StringVar(&opts.dsn, "dsn", os.Getenv("DATABASE_DSN"), "DSN, e.g. user:pass@tcp(host:3306)/db?parseTime=true")
	flag.StringVar(&opts.table, "table", "sync_logs", "Audit table name")
	flag.DurationVar(&opts.retention, "retention", 0, "Delete rows older than this duration")
	flag.DurationVar(&opts.checkEvery, "check-every", time.Hour, "How often to run cleanup")
	flag.IntVar(&opts.limit, "limit", 0, "Max rows deleted per run (0 uses default)")
	flag.StringVar(&opts.lockName, "lock-name", "", "Advisory lock name (optional)")
	flag.BoolVar(&opts.initSchema, "init-schema", false, "Create the stockrelay tables if missing")
	flag.BoolVar(&opts.once, "once", false, "Run once and exit")
	flag.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	if err := opts.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(exitUsage)
	}

	if err := run(opts); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}

	return fallback
}

func (o options) validate() error {
	if o.dsn == "" {
		return errors.New("dsn is required")
	}
	if _, err := sqlstore.ParseDialect(o.driver); err != nil {
		return err
	}
	if o.retention <= 0 && !o.initSchema {
		return errors.New("retention must be positive")
	}

	return nil
}

func run(opts options) error {
	dialect, err := sqlstore.ParseDialect(opts.driver)
	if err != nil {
		return err
	}
	db, err := sql.Open(dialect.DriverName(), opts.dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	level := "info"
	if opts.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, "text", os.Stdout)
	if err != nil {
		return err
	}

	ctx := context.Background()
	tables := sqlstore.Tables{SyncLogs: opts.table}
	if opts.initSchema {
		if err := createSchema(ctx, db, dialect, tables); err != nil {
			return err
		}
		logger.Info("schema ready", "driver", dialect)
		if opts.retention <= 0 {
			return nil
		}
	}

	maintainer, err := sqlstore.NewCleanupMaintainer(db, sqlstore.CleanupMaintainerConfig{
		Dialect:    dialect,
		Tables:     tables,
		Retention:  opts.retention,
		CheckEvery: opts.checkEvery,
		Limit:      opts.limit,
		LockName:   opts.lockName,
		Clock:      stockrelay.SystemClock{},
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("init maintainer: %w", err)
	}

	if opts.once {
		deleted, err := maintainer.Ensure(ctx)
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		logger.Info("cleanup done", "deleted", deleted)

		return nil
	}

	if err := maintainer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run maintainer: %w", err)
	}

	return nil
}

func createSchema(ctx context.Context, db *sql.DB, dialect sqlstore.Dialect, tables sqlstore.Tables) error {
	schema, err := sqlstore.Schema(dialect, tables)
	if err != nil {
		return fmt.Errorf("render schema: %w", err)
	}
	for _, stmt := range sqlstore.Statements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	return nil
}
