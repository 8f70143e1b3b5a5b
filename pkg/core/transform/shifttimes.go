package transform

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ShiftTimePolicyVersion identifies the current shift-time table. Bump it whenever an entry changes
// so reports show which table a run used.
const ShiftTimePolicyVersion = "2025.2"

// Clock is a local time of day
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the clock time on the given date
func (c Clock) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

// ShiftWindow is the start and end of a shift on its day
type ShiftWindow struct {
	Start Clock
	End   Clock
}

// ShiftTimeEntry maps a normalized shift-type key to its window
type ShiftTimeEntry struct {
	Key    string
	Window ShiftWindow
}

// ShiftTimePolicy resolves a shift type name to its window. Keys match as substrings of the
// normalized name with spacing ignored, so "Dishwashers" and "KitchenPrep" both match. The
// longest matching key wins; names matching nothing get Default.
type ShiftTimePolicy struct {
	Name    string
	Version string
	Entries []ShiftTimeEntry
	Default ShiftWindow
}

// DefaultShiftTimePolicy is the drop-in roster's shift table
func DefaultShiftTimePolicy() *ShiftTimePolicy {
	return &ShiftTimePolicy{
		Name:    "drop-in-roster",
		Version: ShiftTimePolicyVersion,
		Entries: []ShiftTimeEntry{
			{Key: "dishwash", Window: ShiftWindow{Clock{17, 30}, Clock{21, 0}}},
			{Key: "kitchen prep and service", Window: ShiftWindow{Clock{12, 0}, Clock{21, 0}}},
			{Key: "kitchen prep", Window: ShiftWindow{Clock{12, 0}, Clock{16, 0}}},
			{Key: "kitchen service", Window: ShiftWindow{Clock{16, 0}, Clock{21, 0}}},
			{Key: "front of house", Window: ShiftWindow{Clock{17, 0}, Clock{21, 0}}},
			{Key: "anywhere i am needed", Window: ShiftWindow{Clock{17, 30}, Clock{21, 0}}},
			{Key: "anywhere im needed", Window: ShiftWindow{Clock{17, 30}, Clock{21, 0}}},
		},
		Default: ShiftWindow{Clock{17, 0}, Clock{21, 0}},
	}
}

// Lookup returns the window for a shift type name and the key that matched ("" for the default)
func (p *ShiftTimePolicy) Lookup(shiftTypeName string) (ShiftWindow, string) {
	name := compactKey(shiftTypeName)

	best, bestLen := -1, 0
	for i, entry := range p.Entries {
		key := compactKey(entry.Key)
		if key == "" || !strings.Contains(name, key) {
			continue
		}
		if len(key) > bestLen {
			best, bestLen = i, len(key)
		}
	}

	if best < 0 {
		return p.Default, ""
	}
	return p.Entries[best].Window, p.Entries[best].Key
}

func compactKey(s string) string {
	return strings.ReplaceAll(normalizeKey(s), " ", "")
}

// normalizeKey lower-cases, spells out "&", drops apostrophes and collapses everything else
// that is not a letter or digit into single spaces
func normalizeKey(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.NewReplacer("'", "", "’", "").Replace(s)

	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space && b.Len() > 0 {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
