package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kanban/internal/board"
	"kanban/internal/models"
	"kanban/internal/report"
)

// boardOptions reads the request-scoped board inputs from the query string.
func boardOptions(c *gin.Context) (board.Options, error) {
	opts := board.Options{Owner: c.Query("owner")}
	if raw := c.Query("today"); raw != "" {
		today, err := models.ParseDate(raw)
		if err != nil {
			return board.Options{}, err
		}
		opts.Today = today
	}
	if raw := c.Query("match"); raw != "" {
		match, err := board.ParseOwnerMatch(raw)
		if err != nil {
			return board.Options{}, err
		}
		opts.OwnerMatch = match
	}
	return opts, nil
}

// handleBoard returns the project's metrics, columns and owner view.
func (s *Server) handleBoard(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	opts, err := boardOptions(c)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	dashboard, err := s.svc.Dashboard(c.Request.Context(), projectID, opts)
	if err != nil {
		s.respondFailure(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, dashboard)
}

// handleReport streams the printable HTML report as a download.
func (s *Server) handleReport(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	opts, err := boardOptions(c)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := s.svc.Report(c.Request.Context(), &buf, projectID, opts, now); err != nil {
		s.respondFailure(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename(projectID, now)))
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
