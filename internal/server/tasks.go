package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kanban/internal/models"
	"kanban/internal/service"
)

type taskRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Owners      *[]string    `json:"owners"`
	OwnerName   *string      `json:"owner_name"`
	StartDate   *models.Date `json:"start_date"`
	EndDate     *models.Date `json:"end_date"`
	Progress    *int         `json:"progress"`
}

// owners resolves the owner list from either the array or the delimited form.
func (r taskRequest) owners() *[]string {
	if r.Owners != nil {
		return r.Owners
	}
	if r.OwnerName != nil {
		parsed := models.ParseOwners(*r.OwnerName)
		return &parsed
	}
	return nil
}

// handleListTasks fetches tasks for a project.
func (s *Server) handleListTasks(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	tasks, err := s.svc.ListTasks(c.Request.Context(), projectID)
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := s.svc.GetTask(c.Request.Context(), id)
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleCreateTask inserts a new task into a project. Without owners the
// member named in X-Member owns it.
func (s *Server) handleCreateTask(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("title is required"))
		return
	}

	in := models.NewTask{
		ProjectID:   projectID,
		Title:       *req.Title,
		Description: getString(req.Description),
	}
	if owners := req.owners(); owners != nil {
		in.Owners = *owners
	}
	if req.StartDate != nil {
		in.StartDate = *req.StartDate
	} else {
		in.StartDate = models.Today()
	}
	if req.EndDate != nil {
		in.EndDate = *req.EndDate
	}

	task, err := s.svc.CreateTask(c.Request.Context(), in, c.GetHeader(headerMember))
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleUpdateTask updates task fields; status follows progress.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Progress != nil && (*req.Progress < 0 || *req.Progress > 100) {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("progress must be between 0 and 100"))
		return
	}

	task, err := s.svc.EditTask(c.Request.Context(), id, service.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Owners:      req.owners(),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Progress:    req.Progress,
	})
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.svc.DeleteTask(c.Request.Context(), id); err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
