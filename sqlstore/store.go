package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/velmie/stockrelay"
)

const maxAuditMessageLen = 1024

// Querier is the subset of *sql.DB used by Store.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store reads suppliers and settings and appends audit rows.
type Store struct {
	db      Querier
	cfg     Config
	queries queries
	tables  Tables
}

var _ stockrelay.AuditLog = (*Store)(nil)

// NewStore constructs a store with validated configuration.
func NewStore(db Querier, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}
	if sqlDB, ok := db.(*sql.DB); ok && sqlDB == nil {
		return nil, ErrDBRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	if _, err := ParseDialect(string(cfg.Dialect)); err != nil {
		return nil, err
	}
	tables, err := cfg.Tables.sanitize()
	if err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		cfg:     cfg,
		queries: newQueries(cfg.Dialect, tables),
		tables:  tables,
	}, nil
}

// MustNewStore constructs a store or panics on error.
func MustNewStore(db Querier, opts ...Option) *Store {
	store, err := NewStore(db, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

// SupplierByAPIKey returns the active supplier owning key.
// It returns stockrelay.ErrSupplierNotFound when no active supplier matches.
func (s *Store) SupplierByAPIKey(ctx context.Context, key string) (stockrelay.Supplier, error) {
	if key == "" {
		return stockrelay.Supplier{}, stockrelay.ErrSupplierNotFound
	}

	var (
		id      int64
		name    string
		apiKey  string
		active  bool
		mapping sql.NullString
	)
	err := s.db.QueryRowContext(ctx, s.queries.supplierByKey, key).Scan(&id, &name, &apiKey, &active, &mapping)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stockrelay.Supplier{}, stockrelay.ErrSupplierNotFound
		}

		return stockrelay.Supplier{}, fmt.Errorf("stockrelay sql: supplier lookup failed: %w", err)
	}

	supplier := stockrelay.Supplier{
		ID:     strconv.FormatInt(id, 10),
		Name:   name,
		APIKey: apiKey,
		Active: active,
	}
	if mapping.Valid {
		supplier.Mapping, err = parseMapping([]byte(mapping.String))
		if err != nil {
			return stockrelay.Supplier{}, fmt.Errorf("supplier %d: %w", id, err)
		}
	}

	return supplier, nil
}

// ConfigValue returns the value stored under name in the configs table.
// The boolean is false when the row is missing or the value is empty.
func (s *Store) ConfigValue(ctx context.Context, name string) (string, bool, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, s.queries.configValue, name).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("stockrelay sql: config lookup failed: %w", err)
	}
	if !value.Valid || value.String == "" {
		return "", false, nil
	}

	return value.String, true, nil
}

// Append inserts an audit row unless one with the same supplier, item and status exists.
func (s *Store) Append(ctx context.Context, entry stockrelay.AuditEntry) error {
	if !entry.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, entry.Status)
	}

	now := s.cfg.Clock.Now().UTC()
	status := string(entry.Status)
	_, err := s.db.ExecContext(ctx, s.queries.insertAudit,
		entry.SupplierID, entry.Identifier, status, truncate(entry.Message, maxAuditMessageLen), now, now,
		entry.SupplierID, entry.Identifier, status,
	)
	if err != nil {
		return fmt.Errorf("stockrelay sql: audit insert failed: %w", err)
	}

	return nil
}

// parseMapping accepts a single mapping object or a list whose first element is used.
func parseMapping(raw []byte) (stockrelay.Mapping, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return stockrelay.Mapping{}, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []stockrelay.Mapping
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return stockrelay.Mapping{}, fmt.Errorf("%w: %w", ErrInvalidMapping, err)
		}
		if len(list) == 0 {
			return stockrelay.Mapping{}, nil
		}

		return list[0], nil
	}

	var mapping stockrelay.Mapping
	if err := json.Unmarshal([]byte(trimmed), &mapping); err != nil {
		return stockrelay.Mapping{}, fmt.Errorf("%w: %w", ErrInvalidMapping, err)
	}

	return mapping, nil
}

func truncate(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}

	return string([]rune(value)[:limit])
}
