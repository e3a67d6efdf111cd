package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"kanban/internal/access"
	"kanban/internal/models"
	"kanban/internal/storage"
)

// fakeStore is an in-memory gateway that counts write calls.
type fakeStore struct {
	mu       sync.Mutex
	projects map[int64]models.Project
	tasks    map[int64]models.Task
	members  []models.Member
	nextID   int64
	writes   int
	failOp   string
}

var _ storage.Gateway = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{projects: map[int64]models.Project{}, tasks: map[int64]models.Task{}}
}

func (f *fakeStore) fail(op string) error {
	if f.failOp == op {
		return &storage.StoreError{Op: op, Err: errors.New("backend unavailable")}
	}
	return nil
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) ListProjects(context.Context) ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("list projects"); err != nil {
		return nil, err
	}
	out := []models.Project{}
	for _, p := range f.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetProject(_ context.Context, id int64) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("get project"); err != nil {
		return models.Project{}, err
	}
	p, ok := f.projects[id]
	if !ok {
		return models.Project{}, storage.NotFound("project", id)
	}
	return p, nil
}

func (f *fakeStore) CreateProject(_ context.Context, in models.NewProject) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if err := storage.ValidateNewProject(in); err != nil {
		return models.Project{}, err
	}
	hash, err := access.HashPin(in.Pin)
	if err != nil {
		return models.Project{}, err
	}
	p := models.Project{ID: f.id(), Name: in.Name, Description: in.Description, PinHash: hash}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeStore) UpdateProject(_ context.Context, id int64, name, description string) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	p, ok := f.projects[id]
	if !ok {
		return models.Project{}, storage.NotFound("project", id)
	}
	p.Name, p.Description = name, description
	f.projects[id] = p
	return p, nil
}

func (f *fakeStore) DeleteProject(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if _, ok := f.projects[id]; !ok {
		return storage.NotFound("project", id)
	}
	delete(f.projects, id)
	for tid, t := range f.tasks {
		if t.ProjectID == id {
			delete(f.tasks, tid)
		}
	}
	return nil
}

func (f *fakeStore) ListMembers(context.Context) ([]models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Member{}, f.members...), nil
}

func (f *fakeStore) EnsureMembers(_ context.Context, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	for _, n := range models.NormalizeOwners(names) {
		f.members = append(f.members, models.Member{Name: n})
	}
	return nil
}

func (f *fakeStore) ListTasks(_ context.Context, projectID int64) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("list tasks"); err != nil {
		return nil, err
	}
	out := []models.Task{}
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetTask(_ context.Context, id int64) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return models.Task{}, storage.NotFound("task", id)
	}
	return t, nil
}

func (f *fakeStore) CreateTask(_ context.Context, in models.NewTask) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if _, ok := f.projects[in.ProjectID]; !ok {
		return models.Task{}, storage.NotFound("project", in.ProjectID)
	}
	t := models.Task{
		ID:          f.id(),
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		OwnerName:   models.JoinOwners(in.Owners),
		Owners:      models.NormalizeOwners(in.Owners),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      models.DeriveStatus(0),
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeStore) UpdateTask(_ context.Context, id int64, u models.TaskUpdate) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	t, ok := f.tasks[id]
	if !ok {
		return models.Task{}, storage.NotFound("task", id)
	}
	t.Title, t.Description = u.Title, u.Description
	t.OwnerName, t.Owners = models.JoinOwners(u.Owners), models.NormalizeOwners(u.Owners)
	t.StartDate, t.EndDate = u.StartDate, u.EndDate
	t.Progress = models.ClampProgress(u.Progress)
	t.Status = models.DeriveStatus(t.Progress)
	f.tasks[id] = t
	return t, nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if _, ok := f.tasks[id]; !ok {
		return storage.NotFound("task", id)
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}
