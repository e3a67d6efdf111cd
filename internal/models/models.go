package models

import "time"

// Member is a roster entry that can own tasks.
type Member struct {
	Name string `json:"name"`
}

// Project groups tasks on one board. Mutations require the project pin.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PinHash     string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Task represents a single card on the board.
type Task struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OwnerName   string    `json:"owner_name"`
	Owners      []string  `json:"owners"`
	StartDate   Date      `json:"start_date"`
	EndDate     Date      `json:"end_date"`
	Progress    int       `json:"progress"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProject carries the fields accepted when creating a project.
type NewProject struct {
	Name        string
	Description string
	Pin         string
}

// NewTask carries the fields accepted when creating a task.
type NewTask struct {
	ProjectID   int64
	Title       string
	Description string
	Owners      []string
	StartDate   Date
	EndDate     Date
}

// TaskUpdate replaces every editable field of a task. Status is not part of
// it: it always follows Progress.
type TaskUpdate struct {
	Title       string
	Description string
	Owners      []string
	StartDate   Date
	EndDate     Date
	Progress    int
}

// Open reports whether the task still counts against deadlines.
func (t Task) Open() bool {
	return t.Status != StatusDone
}
