//go:build integration

package main

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/velmie/stockrelay"
	"github.com/velmie/stockrelay/cmd/internal/testutil"
	"github.com/velmie/stockrelay/sqlstore"
)

func TestCleanupCLIContainer(t *testing.T) {
	ctx := context.Background()
	env := testutil.StartMySQLContainer(t, ctx)

	bin := testutil.BuildBinary(t, ".")
	code, logs := testutil.RunCLIContainer(t, ctx, env.Network.Name, bin, []string{
		"-dsn", env.DSN,
		"-init-schema",
	}, nil)
	if code != 0 {
		t.Fatalf("init schema exit code %d logs: %s", code, logs)
	}

	store, err := sqlstore.NewStore(env.DB)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, sku := range []string{"A1", "B2", "C3"} {
		if err := store.Append(ctx, stockrelay.AuditEntry{SupplierID: "7", Identifier: sku, Status: stockrelay.StatusSuccess}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	oldTime := time.Now().Add(-48 * time.Hour).UTC()
	if err := backdate(ctx, env.DB, "A1", oldTime); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	if err := backdate(ctx, env.DB, "B2", oldTime); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	code, logs = testutil.RunCLIContainer(t, ctx, env.Network.Name, bin, []string{
		"-dsn", env.DSN,
		"-retention", "24h",
		"-once",
	}, nil)
	if code != 0 {
		t.Fatalf("cleanup exit code %d logs: %s", code, logs)
	}

	if got := countRows(t, ctx, env.DB); got != 1 {
		t.Fatalf("remaining rows = %d, want 1", got)
	}
}

func backdate(ctx context.Context, db *sql.DB, sku string, ts time.Time) error {
	_, err := db.ExecContext(ctx, "UPDATE sync_logs SET created_at = ?, updated_at = ? WHERE sku = ?", ts, ts, sku)

	return err
}

func countRows(t *testing.T, ctx context.Context, db *sql.DB) int {
	t.Helper()

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_logs").Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}

	return count
}
