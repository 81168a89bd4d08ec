package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/velmie/stockrelay"
)

type fakeResult struct{ rows int64 }

func (fakeResult) LastInsertId() (int64, error)   { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, nil }

type fakeQuerier struct {
	query string
	args  []any
	rows  int64
	err   error
}

func (f *fakeQuerier) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.query = query
	f.args = args
	if f.err != nil {
		return nil, f.err
	}

	return fakeResult{rows: f.rows}, nil
}

func (f *fakeQuerier) QueryRowContext(context.Context, string, ...any) *sql.Row {
	panic("unexpected QueryRowContext")
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore(nil); !errors.Is(err, ErrDBRequired) {
		t.Fatalf("expected ErrDBRequired, got %v", err)
	}
	var nilDB *sql.DB
	if _, err := NewStore(nilDB); !errors.Is(err, ErrDBRequired) {
		t.Fatalf("expected ErrDBRequired for typed nil, got %v", err)
	}
	if _, err := NewStore(&fakeQuerier{}, WithDialect("oracle")); !errors.Is(err, ErrUnsupportedDialect) {
		t.Fatalf("expected ErrUnsupportedDialect, got %v", err)
	}
	if _, err := NewStore(&fakeQuerier{}, WithTables(Tables{SyncLogs: "logs;"})); !errors.Is(err, ErrInvalidTableName) {
		t.Fatalf("expected ErrInvalidTableName, got %v", err)
	}
}

func TestStoreAppendArgs(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeQuerier{rows: 1}
	store := MustNewStore(db, WithClock(fixedClock{now: now}))

	err := store.Append(context.Background(), stockrelay.AuditEntry{
		SupplierID: "7",
		Identifier: "A1",
		Status:     stockrelay.StatusSimulation,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !strings.Contains(db.query, "FROM DUAL") || !strings.Contains(db.query, "NOT EXISTS") {
		t.Fatalf("unexpected query %q", db.query)
	}
	want := []any{"7", "A1", "simulation", "", now, now, "7", "A1", "simulation"}
	if len(db.args) != len(want) {
		t.Fatalf("expected %d args, got %d", len(want), len(db.args))
	}
	for i := range want {
		if db.args[i] != want[i] {
			t.Fatalf("arg %d: expected %v, got %v", i, want[i], db.args[i])
		}
	}
}

func TestStoreAppendPostgres(t *testing.T) {
	db := &fakeQuerier{}
	store := MustNewStore(db, WithDialect(Postgres))

	if err := store.Append(context.Background(), stockrelay.AuditEntry{SupplierID: "1", Identifier: "B", Status: stockrelay.StatusSuccess}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if strings.Contains(db.query, "?") {
		t.Fatalf("expected rebound placeholders, got %q", db.query)
	}
	if !strings.Contains(db.query, "$9") {
		t.Fatalf("expected nine parameters, got %q", db.query)
	}
}

func TestStoreAppendRejectsUnknownStatus(t *testing.T) {
	db := &fakeQuerier{}
	store := MustNewStore(db)

	err := store.Append(context.Background(), stockrelay.AuditEntry{SupplierID: "1", Identifier: "B", Status: "queued"})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if db.query != "" {
		t.Fatalf("expected no query for invalid status")
	}
}

func TestStoreAppendTruncatesMessage(t *testing.T) {
	db := &fakeQuerier{}
	store := MustNewStore(db)

	long := strings.Repeat("é", maxAuditMessageLen+10)
	if err := store.Append(context.Background(), stockrelay.AuditEntry{
		SupplierID: "1", Identifier: "B", Status: stockrelay.StatusError, Message: long,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	msg, _ := db.args[3].(string)
	if got := len([]rune(msg)); got != maxAuditMessageLen {
		t.Fatalf("expected %d runes, got %d", maxAuditMessageLen, got)
	}
}

func TestStoreAppendWrapsExecError(t *testing.T) {
	boom := errors.New("boom")
	store := MustNewStore(&fakeQuerier{err: boom})

	err := store.Append(context.Background(), stockrelay.AuditEntry{SupplierID: "1", Identifier: "B", Status: stockrelay.StatusError})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
}

func TestStoreSupplierByEmptyKey(t *testing.T) {
	store := MustNewStore(&fakeQuerier{})

	if _, err := store.SupplierByAPIKey(context.Background(), ""); !errors.Is(err, stockrelay.ErrSupplierNotFound) {
		t.Fatalf("expected ErrSupplierNotFound, got %v", err)
	}
}

func TestParseMapping(t *testing.T) {
	list := `[{"list_root":"data.items","mapping":[{"from":"codigo","to":"sku"},{"from":"","to":"updated","value":"DYNAMIC_TIMESTAMP","exclude_from_cache":true}]},{"mapping":[]}]`
	mapping, err := parseMapping([]byte(list))
	if err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if mapping.ListRoot != "data.items" || len(mapping.Rules) != 2 {
		t.Fatalf("unexpected mapping %+v", mapping)
	}
	if !mapping.Rules[1].ExcludeFromCache || mapping.Rules[1].Value != "DYNAMIC_TIMESTAMP" {
		t.Fatalf("unexpected rule %+v", mapping.Rules[1])
	}

	obj, err := parseMapping([]byte(`{"identifier_field":"ean","mapping":[{"from":"a.0.b","to":"price"}]}`))
	if err != nil {
		t.Fatalf("parse object: %v", err)
	}
	if obj.IdentifierField != "ean" || obj.Rules[0].From != "a.0.b" {
		t.Fatalf("unexpected mapping %+v", obj)
	}

	for _, raw := range []string{"", "null", "[]"} {
		empty, err := parseMapping([]byte(raw))
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if len(empty.Rules) != 0 || empty.ListRoot != "" {
			t.Fatalf("expected empty mapping for %q", raw)
		}
	}

	if _, err := parseMapping([]byte(`{"mapping":"nope"}`)); !errors.Is(err, ErrInvalidMapping) {
		t.Fatalf("expected ErrInvalidMapping, got %v", err)
	}
}
