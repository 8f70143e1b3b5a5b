package postgres

import (
	"context"
	"time"

	"github.com/jakechorley/legacy-migrator/pkg/db"
)

// FindShiftTypeByName looks a shift type up by exact name
func (d *DB) FindShiftTypeByName(ctx context.Context, name string) (*db.ShiftType, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var st db.ShiftType
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at
		FROM shift_types
		WHERE name = $1
	`, name).Scan(&st.ID, &st.Name, &st.Description, &st.CreatedAt)
	if err != nil {
		return nil, classifyError("query shift type", err)
	}
	return &st, nil
}

// CreateShiftType inserts a new shift type record
func (d *DB) CreateShiftType(ctx context.Context, shiftType *db.ShiftType) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := d.pool.Exec(ctx, `
		INSERT INTO shift_types (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)
	`, shiftType.ID, shiftType.Name, shiftType.Description, shiftType.CreatedAt.UTC())
	return classifyError("insert shift type", err)
}

// FindShiftByWindow looks a shift up by its (start, end, shift type) dedup key
func (d *DB) FindShiftByWindow(ctx context.Context, start, end time.Time, shiftTypeID string) (*db.Shift, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var s db.Shift
	err := d.pool.QueryRow(ctx, `
		SELECT id, shift_type_id, start_time, end_time, location, capacity, created_at
		FROM shifts
		WHERE start_time = $1 AND end_time = $2 AND shift_type_id = $3
	`, start.UTC(), end.UTC(), shiftTypeID).Scan(&s.ID, &s.ShiftTypeID, &s.Start, &s.End, &s.Location, &s.Capacity, &s.CreatedAt)
	if err != nil {
		return nil, classifyError("query shift", err)
	}
	return &s, nil
}

// CreateShift inserts a new shift record
func (d *DB) CreateShift(ctx context.Context, shift *db.Shift) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := d.pool.Exec(ctx, `
		INSERT INTO shifts (id, shift_type_id, start_time, end_time, location, capacity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, shift.ID, shift.ShiftTypeID, shift.Start.UTC(), shift.End.UTC(), shift.Location, shift.Capacity, shift.CreatedAt.UTC())
	return classifyError("insert shift", err)
}
