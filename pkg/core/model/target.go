package model

import (
	"encoding/base64"
	"time"
)

// SignupStatus is the target application's signup state
type SignupStatus string

const (
	SignupPending     SignupStatus = "PENDING"
	SignupConfirmed   SignupStatus = "CONFIRMED"
	SignupWaitlisted  SignupStatus = "WAITLISTED"
	SignupCanceled    SignupStatus = "CANCELED"
	SignupNotNeeded   SignupStatus = "NOT_NEEDED"
	SignupUnavailable SignupStatus = "UNAVAILABLE"
	SignupNoShow      SignupStatus = "NO_SHOW"
)

// AllSignupStatuses lists every status a migrated signup can take
var AllSignupStatuses = []SignupStatus{
	SignupPending,
	SignupConfirmed,
	SignupWaitlisted,
	SignupCanceled,
	SignupNotNeeded,
	SignupUnavailable,
	SignupNoShow,
}

// IsValid reports whether s is one of AllSignupStatuses
func (s SignupStatus) IsValid() bool {
	for _, status := range AllSignupStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// EmbeddedImage is a normalized photo stored inline with its owner
type EmbeddedImage struct {
	MimeType string
	Data     []byte
	Width    int
	Height   int
}

// DataURI renders the image as a self-describing data: URI
func (img *EmbeddedImage) DataURI() string {
	if img == nil {
		return ""
	}
	return "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// UserDraft is a transformed user awaiting the importer's existence check
type UserDraft struct {
	LegacyID     string
	Email        string // normalized (trimmed, lower-cased), also the dedup key
	FirstName    string
	LastName     string
	Name         string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
	Migrated     bool
	MigratedAt   *time.Time
	Photo        *EmbeddedImage
	PhotoURL     string // legacy reference, kept for the photo pipeline
}

// ShiftDraft is a transformed legacy event. Shift types are created from ShiftTypeName before shifts.
type ShiftDraft struct {
	LegacyID      string
	ShiftTypeName string
	Location      string
	Start         time.Time
	End           time.Time
	Capacity      int
	CreatedAt     time.Time
}

// SignupDraft is a transformed legacy signup with resolved target user and shift IDs
type SignupDraft struct {
	LegacyID   string
	UserID     string
	ShiftID    string
	Status     SignupStatus
	Position   string
	CreatedAt  time.Time
	CanceledAt *time.Time
}
