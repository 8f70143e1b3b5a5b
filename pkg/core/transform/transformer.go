package transform

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultShiftTypeName is used for events whose signups carry no position
const DefaultShiftTypeName = "General Volunteering"

// Options controls how legacy records are mapped
type Options struct {
	MarkAsMigrated   bool
	DefaultPassword  string
	PasswordHashCost int
	Location         *time.Location
	Now              func() time.Time
	Policy           *ShiftTimePolicy
}

// Transformer maps legacy records to drafts. Fallbacks are logged and collected as warnings.
type Transformer struct {
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	warnings []string
}

// NewTransformer creates a transformer, filling unset options with defaults
func NewTransformer(opts Options, logger *zap.Logger) *Transformer {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Policy == nil {
		opts.Policy = DefaultShiftTimePolicy()
	}
	if opts.PasswordHashCost == 0 {
		opts.PasswordHashCost = 10
	}
	return &Transformer{opts: opts, logger: logger}
}

// Policy returns the shift-time policy in use
func (t *Transformer) Policy() *ShiftTimePolicy {
	return t.opts.Policy
}

// Warnings returns the warnings collected so far and clears them
func (t *Transformer) Warnings() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.warnings
	t.warnings = nil
	return out
}

func (t *Transformer) warn(kind, legacyID, msg string, fields ...zap.Field) {
	t.logger.Warn(msg, append([]zap.Field{zap.String("kind", kind), zap.String("legacy_id", legacyID)}, fields...)...)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.warnings = append(t.warnings, fmt.Sprintf("%s %s: %s", kind, legacyID, msg))
}

func (t *Transformer) now() time.Time {
	return t.opts.Now().In(t.opts.Location)
}
