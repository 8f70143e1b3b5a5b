package transform

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order for legacy timestamp fields
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"2 January 2006",
	"January 2, 2006",
}

// parseTimestamp parses a legacy timestamp. Values without a zone are read in loc.
func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	// Unix seconds
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).In(loc), true
	}
	return time.Time{}, false
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

const monthPattern = `(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)`

var (
	// "7th September", "7 Sept"
	dayMonthRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\b`)
	// "September 7", "Sept 7th"
	monthDayRe = regexp.MustCompile(`(?i)\b` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
)

// rollForwardAfter is how far before its creation a named date may fall before it is read as next year
const rollForwardAfter = 60 * 24 * time.Hour

// dateFromName finds a day and month in free text and picks the year relative to reference
func dateFromName(name string, reference time.Time) (time.Time, bool) {
	var (
		day   int
		month time.Month
	)

	if m := dayMonthRe.FindStringSubmatch(name); m != nil {
		day, _ = strconv.Atoi(m[1])
		month = months[strings.ToLower(m[2])]
	} else if m := monthDayRe.FindStringSubmatch(name); m != nil {
		month = months[strings.ToLower(m[1])]
		day, _ = strconv.Atoi(m[2])
	} else {
		return time.Time{}, false
	}

	loc := reference.Location()
	candidate := time.Date(reference.Year(), month, day, 0, 0, 0, 0, loc)
	if candidate.Day() != day || candidate.Month() != month {
		return time.Time{}, false
	}

	refDay := time.Date(reference.Year(), reference.Month(), reference.Day(), 0, 0, 0, 0, loc)
	if candidate.Before(refDay.Add(-rollForwardAfter)) {
		candidate = time.Date(reference.Year()+1, month, day, 0, 0, 0, 0, loc)
		if candidate.Day() != day {
			return time.Time{}, false
		}
	}
	return candidate, true
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
