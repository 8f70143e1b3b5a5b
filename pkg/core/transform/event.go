package transform

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jakechorley/legacy-migrator/pkg/core/model"
)

// TransformEvent maps a legacy event and its signups to a shift draft
func (t *Transformer) TransformEvent(event model.LegacyEvent, signups []model.LegacySignup) (model.ShiftDraft, error) {
	name := strings.TrimSpace(event.Name)
	if name == "" {
		return model.ShiftDraft{}, &TransformError{Kind: KindShift, LegacyID: event.ID, Err: errors.New("event name is required")}
	}

	// Step 1: Shift type from the first signup that names a position
	shiftType := ShiftTypeName(signups)

	// Step 2: Location
	location := eventLocation(event.Location, name)
	if location == "" {
		t.warn(KindShift, event.ID, "no location found for event", zap.String("name", name))
	}

	// Step 3: Date, then the window from the shift-time policy
	createdAt, ok := parseTimestamp(event.CreatedAt, t.opts.Location)
	if !ok {
		createdAt = t.now()
	}
	date := t.eventDate(event, name, createdAt)
	window, _ := t.opts.Policy.Lookup(shiftType)

	capacity := event.Capacity
	if capacity <= 0 {
		capacity = len(signups)
	}

	return model.ShiftDraft{
		LegacyID:      event.ID,
		ShiftTypeName: shiftType,
		Location:      location,
		Start:         window.Start.On(date),
		End:           window.End.On(date),
		Capacity:      capacity,
		CreatedAt:     createdAt,
	}, nil
}

func (t *Transformer) eventDate(event model.LegacyEvent, name string, createdAt time.Time) time.Time {
	loc := t.opts.Location
	if parsed, ok := parseTimestamp(event.Date, loc); ok {
		return dateOnly(parsed, loc)
	}
	if parsed, ok := dateFromName(name, createdAt.In(loc)); ok {
		return parsed
	}
	t.warn(KindShift, event.ID, "no date found for event, using current date",
		zap.String("name", name),
		zap.String("date", event.Date))
	return dateOnly(t.now(), loc)
}

// ShiftTypeName derives the shift type for an event from its signups' positions
func ShiftTypeName(signups []model.LegacySignup) string {
	for _, s := range signups {
		if name := CanonicalShiftTypeName(s.Position); name != "" {
			return name
		}
	}
	return DefaultShiftTypeName
}

// CanonicalShiftTypeName collapses whitespace and title-cases a position name
func CanonicalShiftTypeName(position string) string {
	fields := strings.Fields(position)
	if len(fields) == 0 {
		return ""
	}
	// Casers keep state, so each call gets its own
	return cases.Title(language.English).String(strings.Join(fields, " "))
}
