// Package postgres implements the store gateway on a PostgreSQL database,
// the hosted relational backend the board was first built against.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"kanban/internal/access"
	"kanban/internal/models"
	"kanban/internal/storage"
)

// Store implements storage.Gateway over PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.Gateway = (*Store)(nil)

// Open connects to dsn, checks the connection and applies the schema.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	logger.Debug("postgres store ready")
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS members (
            name TEXT PRIMARY KEY
        )`,
		`CREATE TABLE IF NOT EXISTS projects (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL UNIQUE,
            description TEXT NOT NULL DEFAULT '',
            pin_hash TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id BIGSERIAL PRIMARY KEY,
            project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT,
            owner_name TEXT NOT NULL DEFAULT '',
            start_date DATE,
            end_date DATE,
            progress INTEGER NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
            status TEXT NOT NULL DEFAULT 'not_started',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project_end ON tasks(project_id, end_date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

const projectColumns = `id, name, description, pin_hash, created_at, updated_at`

const taskColumns = `id, project_id, title, description, owner_name, start_date, end_date, progress, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PinHash, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t           models.Task
		description sql.NullString
		status      string
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &description, &t.OwnerName, &t.StartDate, &t.EndDate, &t.Progress, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t.Description = description.String
	t.Status = models.Status(status)
	t.Owners = models.ParseOwners(t.OwnerName)
	return t, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, storage.Fail("list projects", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, storage.Fail("list projects", err)
		}
		projects = append(projects, p)
	}
	return projects, storage.Fail("list projects", rows.Err())
}

func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, storage.NotFound("project", id)
	}
	if err != nil {
		return models.Project{}, storage.Fail("get project", err)
	}
	return p, nil
}

func (s *Store) CreateProject(ctx context.Context, in models.NewProject) (models.Project, error) {
	if err := storage.ValidateNewProject(in); err != nil {
		return models.Project{}, err
	}
	hash, err := access.HashPin(in.Pin)
	if err != nil {
		return models.Project{}, storage.Fail("create project", err)
	}

	p, err := scanProject(s.db.QueryRowContext(ctx, `INSERT INTO projects(name, description, pin_hash) VALUES($1, $2, $3)
        RETURNING `+projectColumns, strings.TrimSpace(in.Name), strings.TrimSpace(in.Description), hash))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Project{}, &storage.ValidationError{Field: "name", Message: "is already taken"}
		}
		return models.Project{}, storage.Fail("create project", err)
	}
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, id int64, name, description string) (models.Project, error) {
	if err := storage.ValidateProjectName(name); err != nil {
		return models.Project{}, err
	}

	p, err := scanProject(s.db.QueryRowContext(ctx, `UPDATE projects SET name = $1, description = $2, updated_at = NOW()
        WHERE id = $3 RETURNING `+projectColumns, strings.TrimSpace(name), strings.TrimSpace(description), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, storage.NotFound("project", id)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return models.Project{}, &storage.ValidationError{Field: "name", Message: "is already taken"}
		}
		return models.Project{}, storage.Fail("update project", err)
	}
	return p, nil
}

func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "delete project", "projects", "project", id)
}

func (s *Store) ListMembers(ctx context.Context) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM members ORDER BY name ASC`)
	if err != nil {
		return nil, storage.Fail("list members", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.Name); err != nil {
			return nil, storage.Fail("list members", err)
		}
		members = append(members, m)
	}
	return members, storage.Fail("list members", rows.Err())
}

// EnsureMembers inserts every missing name in a single statement.
func (s *Store) EnsureMembers(ctx context.Context, names []string) error {
	names = models.NormalizeOwners(names)
	if len(names) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO members(name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`, pq.Array(names))
	if err != nil {
		return storage.Fail("ensure members", err)
	}
	s.logger.Debug("member roster seeded", slog.Int("count", len(names)))
	return nil
}

func (s *Store) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+`
        FROM tasks WHERE project_id = $1 ORDER BY end_date ASC NULLS LAST, id ASC`, projectID)
	if err != nil {
		return nil, storage.Fail("list tasks", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, storage.Fail("list tasks", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, storage.Fail("list tasks", rows.Err())
}

func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, storage.NotFound("task", id)
	}
	if err != nil {
		return models.Task{}, storage.Fail("get task", err)
	}
	return t, nil
}

func (s *Store) CreateTask(ctx context.Context, in models.NewTask) (models.Task, error) {
	if err := storage.ValidateTitle(in.Title); err != nil {
		return models.Task{}, err
	}
	if err := storage.ValidateSchedule(in.StartDate, in.EndDate); err != nil {
		return models.Task{}, err
	}

	t, err := scanTask(s.db.QueryRowContext(ctx, `INSERT INTO tasks(project_id, title, description, owner_name, start_date, end_date, progress, status)
        VALUES($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+taskColumns,
		in.ProjectID, strings.TrimSpace(in.Title), nullableText(in.Description), models.JoinOwners(in.Owners),
		in.StartDate, in.EndDate, 0, string(models.DeriveStatus(0))))
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Task{}, storage.NotFound("project", in.ProjectID)
		}
		return models.Task{}, storage.Fail("create task", err)
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, error) {
	if err := storage.ValidateTitle(u.Title); err != nil {
		return models.Task{}, err
	}
	if err := storage.ValidateSchedule(u.StartDate, u.EndDate); err != nil {
		return models.Task{}, err
	}

	progress := models.ClampProgress(u.Progress)
	t, err := scanTask(s.db.QueryRowContext(ctx, `UPDATE tasks SET title = $1, description = $2, owner_name = $3, start_date = $4,
        end_date = $5, progress = $6, status = $7, updated_at = NOW() WHERE id = $8 RETURNING `+taskColumns,
		strings.TrimSpace(u.Title), nullableText(u.Description), models.JoinOwners(u.Owners),
		u.StartDate, u.EndDate, progress, string(models.DeriveStatus(progress)), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, storage.NotFound("task", id)
	}
	if err != nil {
		return models.Task{}, storage.Fail("update task", err)
	}
	return t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "delete task", "tasks", "task", id)
}

func (s *Store) deleteByID(ctx context.Context, op, table, entity string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return storage.Fail(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Fail(op, err)
	}
	if affected == 0 {
		return storage.NotFound(entity, id)
	}
	return nil
}

func nullableText(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
