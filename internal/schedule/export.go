package schedule

import (
	"time"

	"github.com/planwise/planwise/internal/store"
)

// ResolveTasks resolves each task's day/time labels against the reference
// date and splits the batch into serializable entries and skipped tasks.
// Input order is preserved so exports are stable across requests.
func ResolveTasks(tasks []store.Task, ref time.Time) (entries []Entry, skipped []store.Task) {
	for _, t := range tasks {
		start, end, ok := ResolveTaskDateTime(t.Day, t.Time, ref)
		if !ok {
			skipped = append(skipped, t)
			continue
		}
		entries = append(entries, Entry{
			UID:         t.ID,
			Title:       t.Content,
			Description: t.Notes,
			Start:       start,
			End:         end,
		})
	}
	return entries, skipped
}

// Export resolves a user's tasks and serializes the resolvable subset.
// It returns ErrNothingToExport when no task survives resolution, including
// the zero-task case.
func Export(tasks []store.Task, ref time.Time) (payload string, skipped []store.Task, err error) {
	entries, skipped := ResolveTasks(tasks, ref)
	payload, err = BuildCalendar(entries)
	if err != nil {
		return "", skipped, err
	}
	return payload, skipped, nil
}
