package repositories

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect selects the SQL flavor of the connected database.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return DialectSQLite, nil
	case "pgx", "postgres":
		return DialectPostgres, nil
	}
	return 0, fmt.Errorf("dialect for driver %q: unsupported", driver)
}

func (d Dialect) String() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// Rebind rewrites ? placeholders into $n for Postgres. Queries are written
// with ? and must not contain literal question marks.
func (d Dialect) Rebind(q string) string {
	if d != DialectPostgres {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
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

// column types that differ between dialects
func (d Dialect) types() *strings.Replacer {
	if d == DialectPostgres {
		return strings.NewReplacer(
			"{{serial}}", "BIGSERIAL PRIMARY KEY",
			"{{bool}}", "BOOLEAN",
			"{{money}}", "NUMERIC(12,2)",
			"{{timestamp}}", "TIMESTAMPTZ",
			"{{date}}", "DATE",
		)
	}
	return strings.NewReplacer(
		"{{serial}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{bool}}", "INTEGER",
		"{{money}}", "TEXT",
		"{{timestamp}}", "TEXT",
		"{{date}}", "TEXT",
	)
}

const timestampLayout = time.RFC3339Nano

// formatTime is the wire form of timestamps in both dialects.
func formatTime(t time.Time) string { return t.UTC().Format(timestampLayout) }

// sqlTime scans TIMESTAMPTZ values from Postgres and RFC 3339 text from SQLite.
type sqlTime struct{ time.Time }

func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	}
	return fmt.Errorf("scan time: unsupported type %T", src)
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range []string{timestampLayout, "2006-01-02 15:04:05.999999999-07:00", time.DateOnly} {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("scan time: unrecognized value %q", s)
}
