// Package access gates project mutations behind the project pin.
package access

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"kanban/internal/models"
)

// ErrDenied is returned when the supplied pin does not match. Its message is
// the only detail ever shown to the caller.
var ErrDenied = errors.New("incorrect pin")

// ProjectReader is the part of the store gateway the guard needs.
type ProjectReader interface {
	GetProject(ctx context.Context, id int64) (models.Project, error)
}

// Guard authorizes project mutations. It never performs them.
type Guard struct {
	projects ProjectReader
}

// NewGuard returns a guard reading stored secrets from projects.
func NewGuard(projects ProjectReader) *Guard {
	return &Guard{projects: projects}
}

// Authorize loads the project and checks the supplied pin against it.
// A nil error means access is granted.
func (g *Guard) Authorize(ctx context.Context, projectID int64, pin string) error {
	project, err := g.projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	return Check(pin, project)
}

// Check compares a supplied pin with the project's stored pin hash.
func Check(pin string, project models.Project) error {
	if pin == "" || project.PinHash == "" {
		return ErrDenied
	}
	if err := bcrypt.CompareHashAndPassword([]byte(project.PinHash), []byte(pin)); err != nil {
		return ErrDenied
	}
	return nil
}

// HashPin derives the stored form of a project pin.
func HashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}
