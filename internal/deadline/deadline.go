// Package deadline flags overdue tasks and forecasts when a project finishes.
package deadline

import "kanban/internal/models"

// TaskDeadline is the deadline state of one task relative to a given day.
type TaskDeadline struct {
	TaskID   int64 `json:"task_id"`
	Overdue  bool  `json:"overdue"`
	DueToday bool  `json:"due_today"`
}

// Analysis summarises the deadlines of a set of tasks.
type Analysis struct {
	PerTask  []TaskDeadline `json:"per_task"`
	Forecast models.Date    `json:"forecast"`
	Overdue  int            `json:"overdue"`
	DueToday int            `json:"due_today"`
}

// IsOverdue reports whether an open task ended before today.
func IsOverdue(t models.Task, today models.Date) bool {
	return t.Open() && !t.EndDate.IsNull() && t.EndDate.Before(today)
}

// IsDueToday reports whether an open task ends today.
func IsDueToday(t models.Task, today models.Date) bool {
	return t.Open() && !t.EndDate.IsNull() && t.EndDate.Equal(today)
}

// Forecast returns the latest end date among all tasks regardless of status,
// or a null date when no task has one.
func Forecast(tasks []models.Task) models.Date {
	var latest models.Date
	for _, t := range tasks {
		if t.EndDate.IsNull() {
			continue
		}
		if latest.IsNull() || t.EndDate.After(latest) {
			latest = t.EndDate
		}
	}
	return latest
}

// Analyze computes per-task flags and the project forecast as of today.
func Analyze(tasks []models.Task, today models.Date) Analysis {
	a := Analysis{
		PerTask:  make([]TaskDeadline, 0, len(tasks)),
		Forecast: Forecast(tasks),
	}
	for _, t := range tasks {
		td := TaskDeadline{
			TaskID:   t.ID,
			Overdue:  IsOverdue(t, today),
			DueToday: IsDueToday(t, today),
		}
		if td.Overdue {
			a.Overdue++
		}
		if td.DueToday {
			a.DueToday++
		}
		a.PerTask = append(a.PerTask, td)
	}
	return a
}

// Lookup indexes the per-task results by task id.
func (a Analysis) Lookup() map[int64]TaskDeadline {
	out := make(map[int64]TaskDeadline, len(a.PerTask))
	for _, td := range a.PerTask {
		out[td.TaskID] = td
	}
	return out
}
