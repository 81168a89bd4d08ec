// Package sqlstore provides the relational side of stockrelay on MySQL 8.0+ or PostgreSQL.
//
// Store resolves suppliers by API key, reads dynamic settings from the configs table and appends
// audit rows to sync_logs. Audit appends are idempotent per (supplier, item, status).
//
// See Schema for the table layout and CleanupMaintainer for periodic pruning of old audit rows.
package sqlstore
