package sqlstore

import (
	"errors"
	"strings"
	"testing"
)

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"":           MySQL,
		"mysql":      MySQL,
		"Postgres":   Postgres,
		"postgresql": Postgres,
		" pg ":       Postgres,
	}
	for in, want := range cases {
		got, err := ParseDialect(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", in, want, got)
		}
	}

	if _, err := ParseDialect("sqlite"); !errors.Is(err, ErrUnsupportedDialect) {
		t.Fatalf("expected ErrUnsupportedDialect, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	query := "SELECT a FROM t WHERE b = ? AND c = ?"
	if got := MySQL.rebind(query); got != query {
		t.Fatalf("mysql rebind changed query: %q", got)
	}
	if got := Postgres.rebind(query); got != "SELECT a FROM t WHERE b = $1 AND c = $2" {
		t.Fatalf("unexpected postgres query %q", got)
	}
}

func TestQueriesPerDialect(t *testing.T) {
	tables := Tables{}.withDefaults()

	my := newQueries(MySQL, tables)
	if !strings.Contains(my.cleanupAudit, "ORDER BY id LIMIT ?") {
		t.Fatalf("unexpected mysql cleanup %q", my.cleanupAudit)
	}
	if my.tryLock != "SELECT GET_LOCK(?, 0)" {
		t.Fatalf("unexpected mysql lock %q", my.tryLock)
	}

	pg := newQueries(Postgres, tables)
	if !strings.Contains(pg.cleanupAudit, "id IN (SELECT id FROM sync_logs") {
		t.Fatalf("unexpected postgres cleanup %q", pg.cleanupAudit)
	}
	if !strings.Contains(pg.tryLock, "pg_try_advisory_lock(hashtext($1))") {
		t.Fatalf("unexpected postgres lock %q", pg.tryLock)
	}
	if !strings.Contains(pg.supplierByKey, "api_key = $1") {
		t.Fatalf("unexpected postgres supplier query %q", pg.supplierByKey)
	}
}
