package models

// Status is the board column a task belongs to.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusDone}

// Valid reports whether s is one of the known board columns.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Label returns the human readable column title.
func (s Status) Label() string {
	switch s {
	case StatusDone:
		return "Done"
	case StatusInProgress:
		return "In progress"
	default:
		return "Not started"
	}
}

// DeriveStatus maps a progress percentage to its status. It is the only way a
// task status is ever computed.
func DeriveStatus(progress int) Status {
	if progress == 100 {
		return StatusDone
	}
	if progress == 0 {
		return StatusNotStarted
	}
	return StatusInProgress
}

// ClampProgress bounds a progress value to [0,100].
func ClampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
