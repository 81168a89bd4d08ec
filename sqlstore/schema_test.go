package sqlstore

import (
	"errors"
	"strings"
	"testing"
)

func TestSchemaMySQL(t *testing.T) {
	schema, err := Schema(MySQL, Tables{})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	stmts := Statements(schema)
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[2], "CREATE TABLE IF NOT EXISTS sync_logs") {
		t.Fatalf("unexpected sync_logs statement %q", stmts[2])
	}
	if !strings.Contains(stmts[0], "field_mapping JSON NULL") {
		t.Fatalf("expected json mapping column")
	}
}

func TestSchemaPostgres(t *testing.T) {
	schema, err := Schema(Postgres, Tables{SyncLogs: "audit.sync_logs"})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	stmts := Statements(schema)
	if len(stmts) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[3], "idx_audit_sync_logs_supplier_sku_status ON audit.sync_logs") {
		t.Fatalf("unexpected index statement %q", stmts[3])
	}
	if strings.Contains(schema, "AUTO_INCREMENT") {
		t.Fatalf("unexpected mysql syntax in postgres schema")
	}
}

func TestSchemaErrors(t *testing.T) {
	if _, err := Schema("oracle", Tables{}); !errors.Is(err, ErrUnsupportedDialect) {
		t.Fatalf("expected ErrUnsupportedDialect, got %v", err)
	}
	if _, err := Schema(MySQL, Tables{Suppliers: "bad-name"}); !errors.Is(err, ErrInvalidTableName) {
		t.Fatalf("expected ErrInvalidTableName, got %v", err)
	}
}
