package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"kanban/internal/access"
	"kanban/internal/models"
	"kanban/internal/storage"
)

// Store wraps access to the SQLite database and implements storage.Gateway.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.Gateway = (*Store)(nil)

// Open initializes a new SQLite store and runs the required migrations.
// The special path ":memory:" opens a private in-memory database.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dsn := "file::memory:?_foreign_keys=ON"
	if dbPath != ":memory:" {
		if err := ensureDir(dbPath); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath)
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serializes writers.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Debug("sqlite store ready", slog.String("path", dbPath))
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS members (
            name TEXT PRIMARY KEY
        );`,
		`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            description TEXT NOT NULL DEFAULT '',
            pin_hash TEXT NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            description TEXT,
            owner_name TEXT NOT NULL DEFAULT '',
            start_date TEXT,
            end_date TEXT,
            progress INTEGER NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
            status TEXT NOT NULL DEFAULT 'not_started',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project_end ON tasks(project_id, end_date);`,
		`CREATE TRIGGER IF NOT EXISTS trg_projects_updated
            AFTER UPDATE ON projects
            FOR EACH ROW BEGIN
                UPDATE projects SET updated_at = CURRENT_TIMESTAMP WHERE id = OLD.id;
            END;`,
		`CREATE TRIGGER IF NOT EXISTS trg_tasks_updated
            AFTER UPDATE ON tasks
            FOR EACH ROW BEGIN
                UPDATE tasks SET updated_at = CURRENT_TIMESTAMP WHERE id = OLD.id;
            END;`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
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

// ListProjects retrieves all projects ordered by creation date.
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
			return nil, storage.Fail("list projects", fmt.Errorf("scan project: %w", err))
		}
		projects = append(projects, p)
	}
	return projects, storage.Fail("list projects", rows.Err())
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, storage.NotFound("project", id)
	}
	if err != nil {
		return models.Project{}, storage.Fail("get project", err)
	}
	return p, nil
}

// CreateProject validates and persists a new project with a hashed pin.
func (s *Store) CreateProject(ctx context.Context, in models.NewProject) (models.Project, error) {
	if err := storage.ValidateNewProject(in); err != nil {
		return models.Project{}, err
	}
	hash, err := access.HashPin(in.Pin)
	if err != nil {
		return models.Project{}, storage.Fail("create project", err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO projects(name, description, pin_hash) VALUES(?, ?, ?)`,
		strings.TrimSpace(in.Name), strings.TrimSpace(in.Description), hash)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Project{}, &storage.ValidationError{Field: "name", Message: "is already taken"}
		}
		return models.Project{}, storage.Fail("create project", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, storage.Fail("create project", fmt.Errorf("project id: %w", err))
	}
	return s.GetProject(ctx, id)
}

// UpdateProject renames a project and replaces its description. Callers must
// authorize the change first.
func (s *Store) UpdateProject(ctx context.Context, id int64, name, description string) (models.Project, error) {
	if err := storage.ValidateProjectName(name); err != nil {
		return models.Project{}, err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		strings.TrimSpace(name), strings.TrimSpace(description), id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Project{}, &storage.ValidationError{Field: "name", Message: "is already taken"}
		}
		return models.Project{}, storage.Fail("update project", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Project{}, storage.Fail("update project", err)
	}
	if affected == 0 {
		return models.Project{}, storage.NotFound("project", id)
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project along with its tasks. Callers must
// authorize the deletion first.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return storage.Fail("delete project", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Fail("delete project", err)
	}
	if affected == 0 {
		return storage.NotFound("project", id)
	}
	return nil
}

// ListMembers returns the roster ordered by name.
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
			return nil, storage.Fail("list members", fmt.Errorf("scan member: %w", err))
		}
		members = append(members, m)
	}
	return members, storage.Fail("list members", rows.Err())
}

// EnsureMembers inserts the given names into the roster when absent.
func (s *Store) EnsureMembers(ctx context.Context, names []string) error {
	names = models.NormalizeOwners(names)
	if len(names) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Fail("ensure members", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO members(name) VALUES(?)`, name); err != nil {
			return storage.Fail("ensure members", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storage.Fail("ensure members", err)
	}
	s.logger.Debug("member roster seeded", slog.Int("count", len(names)))
	return nil
}

// ListTasks returns tasks for the given project ordered by end date, tasks
// without one last.
func (s *Store) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+`
        FROM tasks WHERE project_id = ? ORDER BY end_date IS NULL, end_date ASC, id ASC`, projectID)
	if err != nil {
		return nil, storage.Fail("list tasks", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, storage.Fail("list tasks", fmt.Errorf("scan task: %w", err))
		}
		tasks = append(tasks, t)
	}
	return tasks, storage.Fail("list tasks", rows.Err())
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, storage.NotFound("task", id)
	}
	if err != nil {
		return models.Task{}, storage.Fail("get task", err)
	}
	return t, nil
}

// CreateTask inserts a new, not yet started task for a project.
func (s *Store) CreateTask(ctx context.Context, in models.NewTask) (models.Task, error) {
	if err := storage.ValidateTitle(in.Title); err != nil {
		return models.Task{}, err
	}
	if err := storage.ValidateSchedule(in.StartDate, in.EndDate); err != nil {
		return models.Task{}, err
	}
	if _, err := s.GetProject(ctx, in.ProjectID); err != nil {
		return models.Task{}, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(project_id, title, description, owner_name, start_date, end_date, progress, status)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ProjectID, strings.TrimSpace(in.Title), nullableText(in.Description), models.JoinOwners(in.Owners),
		in.StartDate, in.EndDate, 0, models.DeriveStatus(0))
	if err != nil {
		return models.Task{}, storage.Fail("create task", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, storage.Fail("create task", fmt.Errorf("task id: %w", err))
	}
	return s.GetTask(ctx, id)
}

// UpdateTask replaces the editable fields of a task and recomputes its status
// from the new progress.
func (s *Store) UpdateTask(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, error) {
	if err := storage.ValidateTitle(u.Title); err != nil {
		return models.Task{}, err
	}
	if err := storage.ValidateSchedule(u.StartDate, u.EndDate); err != nil {
		return models.Task{}, err
	}

	progress := models.ClampProgress(u.Progress)
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, owner_name = ?, start_date = ?, end_date = ?,
        progress = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		strings.TrimSpace(u.Title), nullableText(u.Description), models.JoinOwners(u.Owners),
		u.StartDate, u.EndDate, progress, models.DeriveStatus(progress), id)
	if err != nil {
		return models.Task{}, storage.Fail("update task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Task{}, storage.Fail("update task", err)
	}
	if affected == 0 {
		return models.Task{}, storage.NotFound("task", id)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return storage.Fail("delete task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Fail("delete task", err)
	}
	if affected == 0 {
		return storage.NotFound("task", id)
	}
	return nil
}

func nullableText(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
