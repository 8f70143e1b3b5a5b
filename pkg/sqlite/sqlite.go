package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jakechorley/legacy-migrator/pkg/db"
)

var _ db.MigrationStore = (*DB)(nil)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout keeps stored timestamps lexically comparable
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB implements db.MigrationStore on a local SQLite file. It is used to rehearse a
// migration before pointing it at the production database.
type DB struct {
	conn *sql.DB
}

// NewDB opens (creating if needed) the SQLite database at path
func NewDB(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// a single connection serialises writers and keeps :memory: databases shared
	conn.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %v: %w", err, db.ErrUnavailable)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database
func (d *DB) Close() {
	d.conn.Close()
}

// RunMigrations applies pending SQL migration files in filename order
func (d *DB) RunMigrations(ctx context.Context, logger *zap.Logger) error {
	_, err := d.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	rows, err := d.conn.QueryContext(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied := make(map[string]bool)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration filename: %w", err)
		}
		applied[filename] = true
	}
	rows.Close()

	pending, err := db.PendingMigrations(migrationsFS, "migrations", applied)
	if err != nil {
		return err
	}

	for _, filename := range pending {
		content, err := db.ReadMigration(migrationsFS, "migrations", filename)
		if err != nil {
			return err
		}

		tx, err := d.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", filename, err)
		}

		if _, err := tx.ExecContext(ctx, content); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename, applied_at) VALUES (?, ?)`,
			filename, formatTime(time.Now())); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", filename, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", filename, err)
		}
		logger.Info("Applied schema migration", zap.String("file", filename))
	}

	logger.Debug("Schema is up to date", zap.Int("applied", len(pending)), zap.Int("already_applied", len(applied)))
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func formatNullableTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return db.ErrNotFound
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("failed to %s: %w", op, db.ErrAlreadyExists)
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN:
			return fmt.Errorf("failed to %s: %v: %w", op, err, db.ErrUnavailable)
		}
		if strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("failed to %s: %w", op, db.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to %s: %v: %w", op, err, db.ErrUnavailable)
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}
