// Package service wires the store gateway, the access guard and the board
// aggregator into the operations exposed to users.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"kanban/internal/access"
	"kanban/internal/board"
	"kanban/internal/models"
	"kanban/internal/report"
	"kanban/internal/storage"
)

// Service holds no per-request state; everything request-scoped is passed in.
type Service struct {
	store      storage.Gateway
	guard      *access.Guard
	logger     *slog.Logger
	ownerMatch board.OwnerMatch
}

// New builds a service over store.
func New(store storage.Gateway, logger *slog.Logger, ownerMatch board.OwnerMatch) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ownerMatch == "" {
		ownerMatch = board.MatchExact
	}
	return &Service{
		store:      store,
		guard:      access.NewGuard(store),
		logger:     logger,
		ownerMatch: ownerMatch,
	}
}

// TaskPatch lists the task fields a caller wants to change. Nil fields keep
// their current value.
type TaskPatch struct {
	Title       *string
	Description *string
	Owners      *[]string
	StartDate   *models.Date
	EndDate     *models.Date
	Progress    *int
}

// Dashboard is a project with its aggregated board.
type Dashboard struct {
	Project models.Project `json:"project"`
	Board   board.Board    `json:"board"`
}

func (s *Service) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *Service) GetProject(ctx context.Context, id int64) (models.Project, error) {
	return s.store.GetProject(ctx, id)
}

func (s *Service) ListMembers(ctx context.Context) ([]models.Member, error) {
	return s.store.ListMembers(ctx)
}

// ListTasks returns a project's tasks in end date order. A deleted or unknown
// project simply has no tasks.
func (s *Service) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	return s.store.ListTasks(ctx, projectID)
}

func (s *Service) GetTask(ctx context.Context, id int64) (models.Task, error) {
	return s.store.GetTask(ctx, id)
}

// CreateProject validates and stores a new project.
func (s *Service) CreateProject(ctx context.Context, in models.NewProject) (models.Project, error) {
	if err := storage.ValidateNewProject(in); err != nil {
		return models.Project{}, err
	}
	p, err := s.store.CreateProject(ctx, in)
	if err != nil {
		return models.Project{}, err
	}
	s.logger.Info("project created", slog.Int64("project_id", p.ID), slog.String("name", p.Name))
	return p, nil
}

// UpdateProject changes name and description once pin is accepted.
func (s *Service) UpdateProject(ctx context.Context, id int64, pin, name, description string) (models.Project, error) {
	if err := storage.ValidateProjectName(name); err != nil {
		return models.Project{}, err
	}
	if err := s.authorize(ctx, id, pin); err != nil {
		return models.Project{}, err
	}
	return s.store.UpdateProject(ctx, id, name, description)
}

// DeleteProject removes a project and its tasks once pin is accepted.
func (s *Service) DeleteProject(ctx context.Context, id int64, pin string) error {
	if err := s.authorize(ctx, id, pin); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", slog.Int64("project_id", id))
	return nil
}

func (s *Service) authorize(ctx context.Context, id int64, pin string) error {
	err := s.guard.Authorize(ctx, id, pin)
	if errors.Is(err, access.ErrDenied) {
		s.logger.Warn("project pin rejected", slog.Int64("project_id", id))
	}
	return err
}

// CreateTask adds a task to a project. With no owners given, the acting
// member owns it.
func (s *Service) CreateTask(ctx context.Context, in models.NewTask, actingMember string) (models.Task, error) {
	if err := storage.ValidateTitle(in.Title); err != nil {
		return models.Task{}, err
	}
	in.Owners = models.NormalizeOwners(in.Owners)
	if len(in.Owners) == 0 && strings.TrimSpace(actingMember) != "" {
		in.Owners = []string{strings.TrimSpace(actingMember)}
	}
	return s.store.CreateTask(ctx, in)
}

// UpdateTask replaces every editable field of a task.
func (s *Service) UpdateTask(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, error) {
	return s.store.UpdateTask(ctx, id, u)
}

// EditTask applies patch over the stored task and saves the result.
func (s *Service) EditTask(ctx context.Context, id int64, patch TaskPatch) (models.Task, error) {
	current, err := s.store.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}

	u := models.TaskUpdate{
		Title:       current.Title,
		Description: current.Description,
		Owners:      current.Owners,
		StartDate:   current.StartDate,
		EndDate:     current.EndDate,
		Progress:    current.Progress,
	}
	if patch.Title != nil {
		u.Title = *patch.Title
	}
	if patch.Description != nil {
		u.Description = *patch.Description
	}
	if patch.Owners != nil {
		u.Owners = *patch.Owners
	}
	if patch.StartDate != nil {
		u.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		u.EndDate = *patch.EndDate
	}
	if patch.Progress != nil {
		u.Progress = models.ClampProgress(*patch.Progress)
	}
	return s.store.UpdateTask(ctx, id, u)
}

func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	return s.store.DeleteTask(ctx, id)
}

// Dashboard loads a project and its tasks and aggregates the board.
func (s *Service) Dashboard(ctx context.Context, projectID int64, opts board.Options) (Dashboard, error) {
	var (
		project models.Project
		tasks   []models.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		project, err = s.store.GetProject(gctx, projectID)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = s.store.ListTasks(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	if opts.OwnerMatch == "" {
		opts.OwnerMatch = s.ownerMatch
	}
	return Dashboard{Project: project, Board: board.Build(tasks, opts)}, nil
}

// Report renders the printable report of a project to w.
func (s *Service) Report(ctx context.Context, w io.Writer, projectID int64, opts board.Options, now time.Time) error {
	d, err := s.Dashboard(ctx, projectID, opts)
	if err != nil {
		return err
	}
	return report.Render(w, report.FromBoard(d.Project.Name, d.Board, now))
}
