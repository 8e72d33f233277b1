package sqlstore

import (
	"fmt"
	"strings"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ParseDialect maps a STORE_DRIVER value to a dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	default:
		return "", fmt.Errorf("unsupported SQL driver %q", driver)
	}
}

// driverName is the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	switch d {
	case SQLite:
		return "sqlite"
	case MySQL:
		return "mysql"
	default:
		return "postgres"
	}
}

// placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// rebind rewrites '?' placeholders for the dialect.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) upsertCollection() string {
	switch d {
	case MySQL:
		return `INSERT INTO collections (name, payload, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)`
	default:
		return d.rebind(`INSERT INTO collections (name, payload, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`)
	}
}

func (d Dialect) upsertSession() string {
	switch d {
	case MySQL:
		return `INSERT INTO sessions (id, username, created_at, expires_at) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE username = VALUES(username), created_at = VALUES(created_at), expires_at = VALUES(expires_at)`
	default:
		return d.rebind(`INSERT INTO sessions (id, username, created_at, expires_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET username = excluded.username,
				created_at = excluded.created_at, expires_at = excluded.expires_at`)
	}
}

func (d Dialect) createMigrationsTable() string {
	return `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) NOT NULL PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`
}
