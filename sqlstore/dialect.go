package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects SQL syntax and the database/sql driver name.
type Dialect string

const (
	// MySQL uses github.com/go-sql-driver/mysql.
	MySQL Dialect = "mysql"
	// Postgres uses github.com/lib/pq.
	Postgres Dialect = "postgres"
)

// ParseDialect maps a driver name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDialect, name)
	}
}

// DriverName returns the database/sql driver name registered for d.
func (d Dialect) DriverName() string {
	return string(d)
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))

			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}
