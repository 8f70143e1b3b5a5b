package transform

import "fmt"

// Record kinds used in errors and reports
const (
	KindUser      = "user"
	KindShiftType = "shift_type"
	KindShift     = "shift"
	KindSignup    = "signup"
)

// TransformError rejects a single legacy record. The rest of the batch continues.
type TransformError struct {
	Kind     string
	LegacyID string
	Err      error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("failed to transform %s %s: %v", e.Kind, e.LegacyID, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}
