package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name         string
	Driver       string
	GooseDialect string
	// Numbered placeholders ($1, $2) instead of ?.
	Numbered bool
	// NotifyInTx sends pg_notify inside the write transaction; otherwise
	// subscribers are refreshed in-process after commit.
	NotifyInTx bool
}

var (
	Postgres = Dialect{Name: "postgres", Driver: "pgx", GooseDialect: "pgx", Numbered: true, NotifyInTx: true}
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite", GooseDialect: "sqlite3"}
)

func DialectByName(name string) (Dialect, error) {
	switch name {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect %q", name)
	}
}

// rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
