package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jakechorley/legacy-migrator/pkg/db"
)

const uniqueViolation = "23505"

// classifyError maps driver errors onto the db sentinels so the importer can tell
// duplicates and outages apart from ordinary per-record failures
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return db.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return fmt.Errorf("failed to %s: %s: %w", op, pgErr.ConstraintName, db.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) || pgconn.Timeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to %s: %v: %w", op, err, db.ErrUnavailable)
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}
