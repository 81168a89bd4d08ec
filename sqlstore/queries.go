package sqlstore

import "fmt"

type queries struct {
	supplierByKey string
	configValue   string
	insertAudit   string
	cleanupAudit  string
	tryLock       string
	releaseLock   string
}

func newQueries(d Dialect, t Tables) queries {
	supplierByKey := fmt.Sprintf(
		"SELECT id, name, api_key, is_active, field_mapping FROM %s WHERE api_key = ? AND is_active = TRUE LIMIT 1",
		t.Suppliers,
	)
	configValue := fmt.Sprintf("SELECT value FROM %s WHERE name = ? LIMIT 1", t.Configs)

	// MySQL needs FROM DUAL for a SELECT with WHERE and no table; Postgres needs typed parameters.
	var insertAudit string
	switch d {
	case Postgres:
		insertAudit = fmt.Sprintf(
			"INSERT INTO %s (supplier_id, sku, status, message, created_at, updated_at) "+
				"SELECT CAST(? AS VARCHAR), CAST(? AS VARCHAR), CAST(? AS VARCHAR), CAST(? AS TEXT), CAST(? AS TIMESTAMP), CAST(? AS TIMESTAMP) "+
				"WHERE NOT EXISTS (SELECT 1 FROM %s WHERE supplier_id = ? AND sku = ? AND status = ?)",
			t.SyncLogs, t.SyncLogs,
		)
	default:
		insertAudit = fmt.Sprintf(
			"INSERT INTO %s (supplier_id, sku, status, message, created_at, updated_at) "+
				"SELECT ?, ?, ?, ?, ?, ? FROM DUAL "+
				"WHERE NOT EXISTS (SELECT 1 FROM %s WHERE supplier_id = ? AND sku = ? AND status = ?)",
			t.SyncLogs, t.SyncLogs,
		)
	}

	var cleanupAudit, tryLock, releaseLock string
	switch d {
	case Postgres:
		cleanupAudit = fmt.Sprintf(
			"DELETE FROM %s WHERE id IN (SELECT id FROM %s WHERE created_at <= ? ORDER BY id LIMIT ?)",
			t.SyncLogs, t.SyncLogs,
		)
		tryLock = "SELECT CASE WHEN pg_try_advisory_lock(hashtext(?)) THEN 1 ELSE 0 END"
		releaseLock = "SELECT CASE WHEN pg_advisory_unlock(hashtext(?)) THEN 1 ELSE 0 END"
	default:
		cleanupAudit = fmt.Sprintf("DELETE FROM %s WHERE created_at <= ? ORDER BY id LIMIT ?", t.SyncLogs)
		tryLock = "SELECT GET_LOCK(?, 0)"
		releaseLock = "SELECT RELEASE_LOCK(?)"
	}

	return queries{
		supplierByKey: d.rebind(supplierByKey),
		configValue:   d.rebind(configValue),
		insertAudit:   d.rebind(insertAudit),
		cleanupAudit:  d.rebind(cleanupAudit),
		tryLock:       d.rebind(tryLock),
		releaseLock:   d.rebind(releaseLock),
	}
}
