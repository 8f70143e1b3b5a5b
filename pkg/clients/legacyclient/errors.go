package legacyclient

import (
	"errors"
	"fmt"
)

// AuthError means the legacy panel rejected the login or could not be reached to attempt it.
// It aborts a migration run.
type AuthError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("authentication failed (status %d): %v", e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("authentication failed: %v", e.Err)
	default:
		return fmt.Sprintf("authentication failed (status %d)", e.Status)
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// PageFetchError reports a page that could not be fetched. Pages collected before it are kept.
type PageFetchError struct {
	Resource string
	Page     int
	Err      error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s page %d: %v", e.Resource, e.Page, e.Err)
}

func (e *PageFetchError) Unwrap() error {
	return e.Err
}

// RecordError reports a single record that could not be decoded. Scraping continues past it.
type RecordError struct {
	Resource string
	LegacyID string
	Message  string
}

func (e RecordError) Error() string {
	return fmt.Sprintf("%s record %s: %s", e.Resource, e.LegacyID, e.Message)
}

// ErrSessionExpired is returned when an API call is redirected, which the panel does
// when the session cookie is no longer valid
var ErrSessionExpired = errors.New("session expired: request was redirected")
