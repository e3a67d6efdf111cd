package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/board"
	"kanban/internal/service"
	"kanban/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureMembers(context.Background(), []string{"Ana", "Bruno"}))

	return New(service.New(store, logger, board.MatchExact), logger, []string{"http://localhost:5173"})
}

func do(t *testing.T, srv *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createProject(t *testing.T, srv *Server, name string) int64 {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/projects", fmt.Sprintf(`{"name":%q,"pin":"1234"}`, name))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode(t, rec)["project"].(map[string]any)
	assert.NotContains(t, project, "pin_hash")
	assert.NotContains(t, project, "PinHash")
	return int64(project["id"].(float64))
}

func TestHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	rec = do(t, srv, http.MethodGet, "/api/healthz", "", headerRequestID, "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))

	rec = do(t, srv, http.MethodGet, "/api/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMembers(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/members", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Ana"`)
	assert.Contains(t, rec.Body.String(), `"Bruno"`)
}

func TestProjectValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"blank name", `{"name":"  ","pin":"1234"}`, "name"},
		{"short pin", `{"name":"Site","pin":"12"}`, "pin"},
		{"letters in pin", `{"name":"Site","pin":"12ab"}`, "pin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/projects", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.field, decode(t, rec)["field"])
		})
	}

	createProject(t, srv, "Site")
	rec := do(t, srv, http.MethodPost, "/api/projects", `{"name":"Site","pin":"9999"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjectPinGuard(t *testing.T) {
	srv := newTestServer(t)
	id := createProject(t, srv, "Migration")
	path := fmt.Sprintf("/api/projects/%d", id)

	rec := do(t, srv, http.MethodPut, path, `{"name":"Renamed","pin":"0000"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "incorrect pin", decode(t, rec)["error"])

	rec = do(t, srv, http.MethodDelete, path, `{"pin":"0000"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Migration", decode(t, rec)["project"].(map[string]any)["name"])

	rec = do(t, srv, http.MethodPut, path, `{"name":"Renamed","description":"phase two","pin":"1234"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", decode(t, rec)["project"].(map[string]any)["name"])

	rec = do(t, srv, http.MethodDelete, path, `{"pin":"1234"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidIdentifiers(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/api/projects/abc", "/api/projects/0/board", "/api/tasks/-1"} {
		rec := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	rec := do(t, srv, http.MethodGet, "/api/tasks/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)
	id := createProject(t, srv, "Migration")
	tasksPath := fmt.Sprintf("/api/projects/%d/tasks", id)

	rec := do(t, srv, http.MethodPost, tasksPath, `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, tasksPath,
		`{"title":"Inventory","start_date":"2024-06-03","end_date":"2024-06-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, tasksPath,
		`{"title":"Inventory","start_date":"2024-06-01","end_date":"2024-06-05"}`, headerMember, "Ana")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decode(t, rec)["task"].(map[string]any)
	assert.Equal(t, "Ana", task["owner_name"])
	assert.Equal(t, "not_started", task["status"])
	taskPath := fmt.Sprintf("/api/tasks/%d", int64(task["id"].(float64)))

	rec = do(t, srv, http.MethodPut, taskPath, `{"progress":140}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPut, taskPath, `{"progress":40,"owner_name":"Ana / Bruno"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	task = decode(t, rec)["task"].(map[string]any)
	assert.Equal(t, "in_progress", task["status"])
	assert.Equal(t, "Ana / Bruno", task["owner_name"])
	assert.Equal(t, "Inventory", task["title"])
	assert.Equal(t, "2024-06-05", task["end_date"])

	rec = do(t, srv, http.MethodPut, taskPath, `{"progress":100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", decode(t, rec)["task"].(map[string]any)["status"])

	rec = do(t, srv, http.MethodGet, tasksPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["tasks"], 1)

	rec = do(t, srv, http.MethodDelete, taskPath, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodGet, taskPath, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBoardEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := createProject(t, srv, "Migration")
	tasksPath := fmt.Sprintf("/api/projects/%d/tasks", id)

	for _, body := range []string{
		`{"title":"Inventory","owners":["Ana"],"start_date":"2024-06-01","end_date":"2024-06-05"}`,
		`{"title":"Cutover","owners":["Bruno"],"start_date":"2024-06-01","end_date":"2024-06-10"}`,
	} {
		rec := do(t, srv, http.MethodPost, tasksPath, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	boardPath := fmt.Sprintf("/api/projects/%d/board", id)
	rec := do(t, srv, http.MethodGet, boardPath+"?today=2024-06-07", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got service.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Migration", got.Project.Name)
	assert.Equal(t, 2, got.Board.Metrics.Total)
	assert.Equal(t, 1, got.Board.Metrics.Overdue)
	assert.Equal(t, "2024-06-10", got.Board.Metrics.Forecast.String())
	assert.Len(t, got.Board.Columns.NotStarted, 2)
	assert.Len(t, got.Board.Owners, 2)

	rec = do(t, srv, http.MethodGet, boardPath+"?today=2024-06-07&owner=Bruno", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = service.Dashboard{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Board.Metrics.Total)
	assert.Equal(t, 0, got.Board.Metrics.Overdue)
	assert.Len(t, got.Board.Owners, 2)

	rec = do(t, srv, http.MethodGet, boardPath+"?today=07/06/2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv, http.MethodGet, boardPath+"?match=fuzzy", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/projects/999/board", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := createProject(t, srv, "Migration")
	rec := do(t, srv, http.MethodPost, fmt.Sprintf("/api/projects/%d/tasks", id),
		`{"title":"Inventory <draft>","owners":["Ana"],"start_date":"2024-06-01","end_date":"2024-06-05"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, fmt.Sprintf("/api/projects/%d/report", id), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), fmt.Sprintf("project-%d-report-", id))

	body := rec.Body.String()
	assert.Contains(t, body, "Migration")
	assert.Contains(t, body, "Inventory &lt;draft&gt;")
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("05/06/2024")))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
