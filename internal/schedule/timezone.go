package schedule

import "time"

// FloatingUTC reinterprets the wall-clock reading of t as UTC components
// without performing an offset conversion: a task resolved to 09:00 local is
// exported as 09:00Z regardless of the server's zone.
//
// This is a known limitation carried over from the original export behavior.
// Changing it to a real conversion would shift every event for users outside
// UTC, so the policy is isolated here; any future fix touches only this
// function and its tests.
func FloatingUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
