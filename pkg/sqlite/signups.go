package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jakechorley/legacy-migrator/pkg/db"
)

// FindSignupByUserAndShift looks a signup up by its (user, shift) pair
func (d *DB) FindSignupByUserAndShift(ctx context.Context, userID, shiftID string) (*db.Signup, error) {
	var s db.Signup
	var canceledAt sql.NullString
	var createdAt string
	err := d.conn.QueryRowContext(ctx, `
		SELECT id, user_id, shift_id, status, canceled_at, created_at
		FROM signups
		WHERE user_id = ? AND shift_id = ?
	`, userID, shiftID).Scan(&s.ID, &s.UserID, &s.ShiftID, &s.Status, &canceledAt, &createdAt)
	if err != nil {
		return nil, classifyError("query signup", err)
	}

	if s.CanceledAt, err = parseNullableTime(canceledAt); err != nil {
		return nil, fmt.Errorf("failed to parse canceled_at for signup %s: %w", s.ID, err)
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for signup %s: %w", s.ID, err)
	}
	return &s, nil
}

// CreateSignup inserts a new signup record
func (d *DB) CreateSignup(ctx context.Context, signup *db.Signup) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO signups (id, user_id, shift_id, status, canceled_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, signup.ID, signup.UserID, signup.ShiftID, signup.Status, formatNullableTime(signup.CanceledAt), formatTime(signup.CreatedAt))
	return classifyError("insert signup", err)
}
