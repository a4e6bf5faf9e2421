package schedule

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// Entry is one successfully resolved task ready for serialization.
type Entry struct {
	UID         string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

var (
	// ErrNothingToExport is the user-correctable "no resolvable tasks"
	// condition, distinct from a serialization failure.
	ErrNothingToExport = errors.New("no tasks with a resolvable day and time to export")

	// ErrEmptyPayload indicates the calendar library produced an empty
	// document despite being handed entries.
	ErrEmptyPayload = errors.New("calendar serialization produced an empty payload")
)

// EmptyCalendar serializes a calendar with no events. Feed clients poll on a
// schedule and treat errors as a broken subscription, so an empty schedule is
// served as a valid, empty document instead.
func EmptyCalendar() string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//Planwise//Schedule Export//EN")
	return cal.Serialize()
}

// BuildCalendar serializes resolved entries into an iCalendar document with
// one VEVENT per entry. Entries must already carry valid start/end instants;
// unresolvable tasks are filtered out before this point (see ResolveTasks).
func BuildCalendar(entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "", ErrNothingToExport
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//Planwise//Schedule Export//EN")

	stamp := time.Now().UTC()
	for _, e := range entries {
		ev := cal.AddEvent(e.UID)
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(FloatingUTC(e.Start))
		ev.SetEndAt(FloatingUTC(e.End))
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
	}

	payload := cal.Serialize()
	if strings.TrimSpace(payload) == "" {
		return "", ErrEmptyPayload
	}
	return payload, nil
}
