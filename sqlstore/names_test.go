package sqlstore

import "testing"

func TestSanitizeTableName(t *testing.T) {
	valid := []string{"suppliers", "hub.sync_logs", "CONFIGS_1"}
	for _, name := range valid {
		if _, err := sanitizeTableName(name); err != nil {
			t.Fatalf("expected valid name %q: %v", name, err)
		}
	}

	invalid := []string{"", "suppliers;drop", "sync-logs", "hub..configs", "hub.configs;"}
	for _, name := range invalid {
		if _, err := sanitizeTableName(name); err == nil {
			t.Fatalf("expected invalid name %q", name)
		}
	}
}

func TestTablesDefaults(t *testing.T) {
	tables, err := Tables{SyncLogs: "audit.sync_logs"}.withDefaults().sanitize()
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if tables.Suppliers != "suppliers" || tables.Configs != "configs" || tables.SyncLogs != "audit.sync_logs" {
		t.Fatalf("unexpected tables %+v", tables)
	}

	if _, err := (Tables{Configs: "bad name"}).withDefaults().sanitize(); err == nil {
		t.Fatalf("expected invalid table error")
	}
}
