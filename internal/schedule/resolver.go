// Package schedule interprets the free-form day/time labels attached to tasks
// and turns the resolvable ones into an iCalendar export.
//
// The labels come from an LLM (or a user editing its output) and are not
// trustworthy: resolution is deliberately permissive about formats and
// deliberately quiet about failures. A label that cannot be interpreted makes
// that one task unresolvable; it never aborts the batch.
package schedule

import (
	"regexp"
	"strings"
	"time"
)

var isoDayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var weekdayIndex = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ResolveDay interprets a free-form day label against a reference date and
// returns the concrete calendar day (at midnight in ref's location). Matchers
// are tried in order; the first hit wins:
//
//  1. ISO date (YYYY-MM-DD), calendar-validated
//  2. "today" / "tomorrow" (case-insensitive)
//  3. a weekday name, resolved to the NEXT occurrence after ref. When ref
//     already falls on that weekday the result is a full week ahead, never
//     ref itself. That matches the behavior users have come to rely on even
//     though most calendar tools would pick "today"; do not change it without
//     a migration plan for existing schedules.
//  4. "<Month> <day>" with full or abbreviated month name, year taken from ref
//
// Anything else is unresolvable and reported via ok=false.
func ResolveDay(day string, ref time.Time) (time.Time, bool) {
	day = strings.TrimSpace(day)
	if day == "" {
		return time.Time{}, false
	}

	if isoDayPattern.MatchString(day) {
		if t, err := time.ParseInLocation("2006-01-02", day, ref.Location()); err == nil {
			return t, true
		}
	}

	switch strings.ToLower(day) {
	case "today":
		return midnight(ref), true
	case "tomorrow":
		return midnight(ref).AddDate(0, 0, 1), true
	}

	if target, ok := weekdayIndex[strings.ToLower(day)]; ok {
		daysAhead := int(target) - int(ref.Weekday())
		if daysAhead <= 0 {
			daysAhead += 7
		}
		return midnight(ref).AddDate(0, 0, daysAhead), true
	}

	for _, layout := range []string{"January 2", "Jan 2"} {
		t, err := time.ParseInLocation(layout, normalizeMonthDay(day), ref.Location())
		if err != nil {
			continue
		}
		return time.Date(ref.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ref.Location()), true
	}

	return time.Time{}, false
}

// clockLayouts are tried in order when parsing a single time of day.
var clockLayouts = []string{"3:04 PM", "3:04PM", "3 PM", "3PM", "15:04", "3:04"}

var timeRangePattern = regexp.MustCompile(`^(.+?)\s*-\s*(.+)$`)

// ResolveTime interprets a free-form time label against an already-resolved
// day. A "left - right" range yields [left, right) when both sides parse and
// right is later; a lone parseable time (or a range whose right side is
// garbage) yields a one-hour event starting at that time. Seconds are always
// zeroed. ok=false means the label carries no usable time information.
func ResolveTime(label string, day time.Time) (start, end time.Time, ok bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return time.Time{}, time.Time{}, false
	}

	if m := timeRangePattern.FindStringSubmatch(label); m != nil {
		left, lok := parseClock(m[1], day)
		right, rok := parseClock(m[2], day)
		if lok && rok && right.After(left) {
			return left, right, true
		}
		if lok && !rok {
			return left, left.Add(time.Hour), true
		}
	}

	if t, tok := parseClock(label, day); tok {
		return t, t.Add(time.Hour), true
	}

	return time.Time{}, time.Time{}, false
}

// ResolveTaskDateTime composes day and time resolution for one task. If the
// day label is unresolvable the time label is never consulted.
func ResolveTaskDateTime(dayLabel, timeLabel string, ref time.Time) (start, end time.Time, ok bool) {
	day, ok := ResolveDay(dayLabel, ref)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return ResolveTime(timeLabel, day)
}

func parseClock(s string, day time.Time) (time.Time, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), true
	}
	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// normalizeMonthDay capitalizes the month word so Go's case-sensitive layouts
// accept inputs like "april 12".
func normalizeMonthDay(s string) string {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return s
	}
	month := strings.ToLower(fields[0])
	month = strings.ToUpper(month[:1]) + month[1:]
	return month + " " + fields[1]
}
