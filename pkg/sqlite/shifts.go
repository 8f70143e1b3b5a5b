package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/legacy-migrator/pkg/db"
)

// FindShiftTypeByName looks a shift type up by exact name
func (d *DB) FindShiftTypeByName(ctx context.Context, name string) (*db.ShiftType, error) {
	var st db.ShiftType
	var createdAt string
	err := d.conn.QueryRowContext(ctx, `
		SELECT id, name, description, created_at
		FROM shift_types
		WHERE name = ?
	`, name).Scan(&st.ID, &st.Name, &st.Description, &createdAt)
	if err != nil {
		return nil, classifyError("query shift type", err)
	}
	if st.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for shift type %s: %w", st.ID, err)
	}
	return &st, nil
}

// CreateShiftType inserts a new shift type record
func (d *DB) CreateShiftType(ctx context.Context, shiftType *db.ShiftType) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO shift_types (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
	`, shiftType.ID, shiftType.Name, shiftType.Description, formatTime(shiftType.CreatedAt))
	return classifyError("insert shift type", err)
}

// FindShiftByWindow looks a shift up by its (start, end, shift type) dedup key
func (d *DB) FindShiftByWindow(ctx context.Context, start, end time.Time, shiftTypeID string) (*db.Shift, error) {
	var s db.Shift
	var startStr, endStr, createdAt string
	err := d.conn.QueryRowContext(ctx, `
		SELECT id, shift_type_id, start_time, end_time, location, capacity, created_at
		FROM shifts
		WHERE start_time = ? AND end_time = ? AND shift_type_id = ?
	`, formatTime(start), formatTime(end), shiftTypeID).Scan(&s.ID, &s.ShiftTypeID, &startStr, &endStr, &s.Location, &s.Capacity, &createdAt)
	if err != nil {
		return nil, classifyError("query shift", err)
	}

	if s.Start, err = parseTime(startStr); err != nil {
		return nil, fmt.Errorf("failed to parse start_time for shift %s: %w", s.ID, err)
	}
	if s.End, err = parseTime(endStr); err != nil {
		return nil, fmt.Errorf("failed to parse end_time for shift %s: %w", s.ID, err)
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for shift %s: %w", s.ID, err)
	}
	return &s, nil
}

// CreateShift inserts a new shift record
func (d *DB) CreateShift(ctx context.Context, shift *db.Shift) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO shifts (id, shift_type_id, start_time, end_time, location, capacity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, shift.ID, shift.ShiftTypeID, formatTime(shift.Start), formatTime(shift.End), shift.Location, shift.Capacity, formatTime(shift.CreatedAt))
	return classifyError("insert shift", err)
}
