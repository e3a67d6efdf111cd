// Package storage defines the gateway between the board and its persistence
// backend, along with the errors every backend reports.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"kanban/internal/models"
)

// PinLength is the exact number of characters of a project pin.
const PinLength = 4

// Gateway is the narrow CRUD surface over projects, tasks and members.
// Every write is visible to the next read; there is no caching layer.
type Gateway interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id int64) (models.Project, error)
	CreateProject(ctx context.Context, p models.NewProject) (models.Project, error)
	UpdateProject(ctx context.Context, id int64, name, description string) (models.Project, error)
	DeleteProject(ctx context.Context, id int64) error

	ListMembers(ctx context.Context) ([]models.Member, error)
	EnsureMembers(ctx context.Context, names []string) error

	ListTasks(ctx context.Context, projectID int64) ([]models.Task, error)
	GetTask(ctx context.Context, id int64) (models.Task, error)
	CreateTask(ctx context.Context, t models.NewTask) (models.Task, error)
	UpdateTask(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, error)
	DeleteTask(ctx context.Context, id int64) error

	Close() error
}

// ErrNotFound is wrapped by gateways when a row does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError rejects input before it reaches the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// StoreError reports a backend failure for the named operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Fail wraps a backend error as a StoreError unless it already carries a
// gateway error kind.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var se *StoreError
	if errors.As(err, &ve) || errors.As(err, &se) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// NotFound builds the error returned for a missing entity.
func NotFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// ValidateNewProject checks the required project fields and the pin shape.
func ValidateNewProject(p models.NewProject) error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	return ValidatePin(p.Pin)
}

// ValidatePin checks that a pin is exactly PinLength digits.
func ValidatePin(pin string) error {
	if pin == "" {
		return &ValidationError{Field: "pin", Message: "must not be empty"}
	}
	if len([]rune(pin)) != PinLength {
		return &ValidationError{Field: "pin", Message: fmt.Sprintf("must be exactly %d characters", PinLength)}
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return &ValidationError{Field: "pin", Message: "must contain digits only"}
		}
	}
	return nil
}

// ValidateProjectName checks a project name on update.
func ValidateProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	return nil
}

// ValidateTitle checks a task title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	return nil
}

// ValidateSchedule rejects a task ending before it starts.
func ValidateSchedule(start, end models.Date) error {
	if !start.IsNull() && !end.IsNull() && end.Before(start) {
		return &ValidationError{Field: "end_date", Message: "must not be before start_date"}
	}
	return nil
}
