package db

import (
	"strings"
	"time"
)

// User represents a target user row
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Name         string
	Phone        string
	PasswordHash string
	ProfilePhoto string // data: URI, empty when no photo was migrated
	IsMigrated   bool
	MigratedAt   *time.Time
	CreatedAt    time.Time
}

// ShiftType represents a target shift type row
type ShiftType struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Shift represents a target shift row
type Shift struct {
	ID          string
	ShiftTypeID string
	Start       time.Time
	End         time.Time
	Location    string
	Capacity    int
	CreatedAt   time.Time
}

// Signup represents a target signup row
type Signup struct {
	ID         string
	UserID     string
	ShiftID    string
	Status     string
	CanceledAt *time.Time
	CreatedAt  time.Time
}

// NormalizeEmail returns the dedup form of an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
