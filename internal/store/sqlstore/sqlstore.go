// Package sqlstore keeps the collection documents in a SQL database.
// SQLite, PostgreSQL and MySQL/MariaDB are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// Store is a store.Backend with one row per collection.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database, verifies the connection and applies
// pending migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == SQLite {
		// single writer; concurrent writers get SQLITE_BUSY otherwise
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(10 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// DB returns the underlying sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect of the connection.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Load returns the stored document, or nil when the collection has never
// been written.
func (s *Store) Load(ctx context.Context, c store.Collection) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT payload FROM collections WHERE name = ?"), string(c),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", c, err)
	}
	return []byte(payload), nil
}

// Save replaces the stored document in a single statement.
func (s *Store) Save(ctx context.Context, c store.Collection, data []byte) error {
	_, err := s.db.ExecContext(ctx, s.dialect.upsertCollection(), string(c), string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save collection %s: %w", c, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}
