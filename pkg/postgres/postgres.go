package postgres

import (
	"context"
	"embed"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jakechorley/legacy-migrator/pkg/db"
)

var _ db.MigrationStore = (*DB)(nil)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	connectTimeout = 10 * time.Second

	// queryTimeout bounds each Find/Create call
	queryTimeout = 15 * time.Second
)

// DB implements db.MigrationStore on PostgreSQL
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new PostgreSQL database connection
func NewDB(ctx context.Context, connString string) (*DB, error) {
	poolCfg, err := poolConfig(connString)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %v: %w", err, db.ErrUnavailable)
	}

	return &DB{pool: pool}, nil
}

// poolConfig parses connString and applies the connect and statement timeouts.
// A statement_timeout given in the connection string wins.
func poolConfig(connString string) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolCfg.ConnConfig.ConnectTimeout = connectTimeout
	if _, ok := poolCfg.ConnConfig.RuntimeParams["statement_timeout"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(queryTimeout.Milliseconds(), 10)
	}
	return poolCfg, nil
}

// Close closes the database connection pool
func (d *DB) Close() {
	d.pool.Close()
}

// withTimeout derives the context for a single statement. A deadline already shorter than
// queryTimeout is kept.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// RunMigrations applies pending SQL migration files in filename order, each in its own
// transaction, recording them in a schema_migrations table.
func (d *DB) RunMigrations(ctx context.Context, logger *zap.Logger) error {
	_, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := d.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	pending, err := db.PendingMigrations(migrationsFS, "migrations", applied)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		logger.Debug("Schema is up to date", zap.Int("applied", len(applied)))
		return nil
	}

	for _, filename := range pending {
		started := time.Now()
		if err := d.applyMigration(ctx, filename); err != nil {
			logger.Error("Schema migration failed", zap.String("file", filename), zap.Error(err))
			return err
		}
		logger.Info("Applied schema migration",
			zap.String("file", filename),
			zap.Duration("took", time.Since(started)))
	}

	logger.Info("Schema migrations complete",
		zap.Int("applied", len(pending)),
		zap.Int("already_applied", len(applied)))
	return nil
}

func (d *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := d.pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, fmt.Errorf("failed to scan migration filename: %w", err)
		}
		applied[filename] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	return applied, nil
}

func (d *DB) applyMigration(ctx context.Context, filename string) error {
	content, err := db.ReadMigration(migrationsFS, "migrations", filename)
	if err != nil {
		return err
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", filename, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, content); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", filename, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", filename, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", filename, err)
	}
	return nil
}
