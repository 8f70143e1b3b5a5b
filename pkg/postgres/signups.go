package postgres

import (
	"context"

	"github.com/jakechorley/legacy-migrator/pkg/db"
)

// FindSignupByUserAndShift looks a signup up by its (user, shift) pair
func (d *DB) FindSignupByUserAndShift(ctx context.Context, userID, shiftID string) (*db.Signup, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var s db.Signup
	err := d.pool.QueryRow(ctx, `
		SELECT id, user_id, shift_id, status, canceled_at, created_at
		FROM signups
		WHERE user_id = $1 AND shift_id = $2
	`, userID, shiftID).Scan(&s.ID, &s.UserID, &s.ShiftID, &s.Status, &s.CanceledAt, &s.CreatedAt)
	if err != nil {
		return nil, classifyError("query signup", err)
	}
	return &s, nil
}

// CreateSignup inserts a new signup record
func (d *DB) CreateSignup(ctx context.Context, signup *db.Signup) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := d.pool.Exec(ctx, `
		INSERT INTO signups (id, user_id, shift_id, status, canceled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, signup.ID, signup.UserID, signup.ShiftID, signup.Status, signup.CanceledAt, signup.CreatedAt.UTC())
	return classifyError("insert signup", err)
}
