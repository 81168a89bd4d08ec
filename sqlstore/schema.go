package sqlstore

import (
	"fmt"
	"strings"
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	name VARCHAR(191) NOT NULL,
	api_key VARCHAR(191) NOT NULL,
	is_active TINYINT(1) NOT NULL DEFAULT 1,
	field_mapping JSON NULL,
	created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	PRIMARY KEY (id),
	UNIQUE KEY uniq_api_key (api_key)
);
CREATE TABLE IF NOT EXISTS %[2]s (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	name VARCHAR(191) NOT NULL,
	value TEXT NULL,
	PRIMARY KEY (id),
	UNIQUE KEY uniq_name (name)
);
CREATE TABLE IF NOT EXISTS %[3]s (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	supplier_id VARCHAR(64) NOT NULL,
	sku VARCHAR(191) NOT NULL,
	status VARCHAR(32) NOT NULL,
	message TEXT NULL,
	created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	PRIMARY KEY (id),
	INDEX idx_supplier_sku_status (supplier_id, sku, status),
	INDEX idx_created_at (created_at)
);`

const postgresSchema = `CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(191) NOT NULL,
	api_key VARCHAR(191) NOT NULL UNIQUE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	field_mapping JSONB NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS %[2]s (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(191) NOT NULL UNIQUE,
	value TEXT NULL
);
CREATE TABLE IF NOT EXISTS %[3]s (
	id BIGSERIAL PRIMARY KEY,
	supplier_id VARCHAR(64) NOT NULL,
	sku VARCHAR(191) NOT NULL,
	status VARCHAR(32) NOT NULL,
	message TEXT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_%[4]s_supplier_sku_status ON %[3]s (supplier_id, sku, status);
CREATE INDEX IF NOT EXISTS idx_%[4]s_created_at ON %[3]s (created_at);`

// Schema returns the CREATE statements for the suppliers, configs and sync_logs tables.
// Statements are separated by semicolons; split them with Statements when the driver
// does not accept several statements per Exec.
func Schema(d Dialect, tables Tables) (string, error) {
	t, err := tables.withDefaults().sanitize()
	if err != nil {
		return "", err
	}

	switch d {
	case MySQL, "":
		return fmt.Sprintf(mysqlSchema, t.Suppliers, t.Configs, t.SyncLogs), nil
	case Postgres:
		indexPrefix := strings.ReplaceAll(t.SyncLogs, ".", "_")

		return fmt.Sprintf(postgresSchema, t.Suppliers, t.Configs, t.SyncLogs, indexPrefix), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDialect, d)
	}
}

// Statements splits a schema into individual statements.
func Statements(schema string) []string {
	parts := strings.Split(schema, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}

	return out
}
