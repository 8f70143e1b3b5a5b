package db

import (
	"context"
	"time"
)

// UserStore defines the user operations the migration needs
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
}

// ShiftTypeStore defines the shift type operations the migration needs
type ShiftTypeStore interface {
	FindShiftTypeByName(ctx context.Context, name string) (*ShiftType, error)
	CreateShiftType(ctx context.Context, shiftType *ShiftType) error
}

// ShiftStore defines the shift operations the migration needs
type ShiftStore interface {
	FindShiftByWindow(ctx context.Context, start, end time.Time, shiftTypeID string) (*Shift, error)
	CreateShift(ctx context.Context, shift *Shift) error
}

// SignupStore defines the signup operations the migration needs
type SignupStore interface {
	FindSignupByUserAndShift(ctx context.Context, userID, shiftID string) (*Signup, error)
	CreateSignup(ctx context.Context, signup *Signup) error
}

// MigrationStore is the full create/find-existing contract consumed by the importer.
// Both postgres.DB and sqlite.DB implement this interface.
//
// Find methods return ErrNotFound when no row matches. Create methods return ErrAlreadyExists
// when a unique constraint on the dedup key rejects the row, and ErrUnavailable when the
// store cannot be reached.
type MigrationStore interface {
	UserStore
	ShiftTypeStore
	ShiftStore
	SignupStore
}
