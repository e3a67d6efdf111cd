package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/models"
)

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Pin         string `json:"pin"`
}

type pinRequest struct {
	Pin string `json:"pin"`
}

// handleListMembers returns the roster used to pick task owners.
func (s *Server) handleListMembers(c *gin.Context) {
	members, err := s.svc.ListMembers(c.Request.Context())
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"members": members})
}

// handleListProjects returns all available projects.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.svc.ListProjects(c.Request.Context())
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := s.svc.GetProject(c.Request.Context(), id)
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleCreateProject creates a new project protected by a pin.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.svc.CreateProject(c.Request.Context(), models.NewProject{
		Name:        req.Name,
		Description: req.Description,
		Pin:         req.Pin,
	})
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleUpdateProject renames or re-describes a project when the pin matches.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.svc.UpdateProject(c.Request.Context(), id, req.Pin, req.Name, req.Description)
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project and all related tasks when the pin matches.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	if err := s.svc.DeleteProject(c.Request.Context(), id, req.Pin); err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
