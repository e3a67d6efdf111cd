// Package report renders a printable HTML summary of a project board.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"kanban/internal/board"
	"kanban/internal/models"
)

//go:embed templates/report.html.tmpl
var templates embed.FS

var page = template.Must(template.ParseFS(templates, "templates/report.html.tmpl"))

const displayDate = "02/01/2006"

// Row is one line of the task table.
type Row struct {
	Title     string
	Status    string
	StatusKey models.Status
	Progress  int
	Owners    string
	Start     string
	End       string
	Overdue   bool
	DueToday  bool
}

// Data is everything the report shows. It is computed before rendering.
type Data struct {
	ProjectName string
	Metrics     board.Metrics
	Forecast    string
	Rows        []Row
	GeneratedAt time.Time
}

// FromBoard prepares report data from an aggregated board.
func FromBoard(projectName string, b board.Board, generatedAt time.Time) Data {
	cards := b.Columns.All()
	d := Data{
		ProjectName: projectName,
		Metrics:     b.Metrics,
		Forecast:    b.Metrics.Forecast.Format(displayDate, "Undefined"),
		Rows:        make([]Row, 0, len(cards)),
		GeneratedAt: generatedAt,
	}
	for _, c := range cards {
		status := board.Column(c.Status)
		d.Rows = append(d.Rows, Row{
			Title:     c.Title,
			Status:    status.Label(),
			StatusKey: status,
			Progress:  c.Progress,
			Owners:    models.JoinOwners(c.Owners),
			Start:     c.StartDate.Format(displayDate, "-"),
			End:       c.EndDate.Format(displayDate, "-"),
			Overdue:   c.Overdue,
			DueToday:  c.DueToday,
		})
	}
	return d
}

// Render writes the HTML document for d to w.
func Render(w io.Writer, d Data) error {
	if err := page.Execute(w, d); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Filename suggests a download name for a project report.
func Filename(projectID int64, generatedAt time.Time) string {
	return fmt.Sprintf("project-%d-report-%s.html", projectID, generatedAt.Format("20060102"))
}
