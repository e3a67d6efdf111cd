// Package board groups a project's tasks into status columns and computes the
// dashboard metrics shown above them.
package board

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"kanban/internal/deadline"
	"kanban/internal/models"
)

// OwnerMatch selects how the owner filter matches tasks.
type OwnerMatch string

const (
	// MatchExact keeps tasks whose parsed owner set contains the name.
	MatchExact OwnerMatch = "exact"
	// MatchContains keeps tasks whose raw owner_name contains the name as a
	// substring. A name that is part of another name over-matches.
	MatchContains OwnerMatch = "contains"
)

// ParseOwnerMatch validates a configured match mode. Empty means exact.
func ParseOwnerMatch(s string) (OwnerMatch, error) {
	switch OwnerMatch(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchContains:
		return MatchContains, nil
	}
	return "", fmt.Errorf("unknown owner match %q: want %q or %q", s, MatchExact, MatchContains)
}

// Options are the request-scoped inputs of a board build.
type Options struct {
	Today      models.Date
	Owner      string
	OwnerMatch OwnerMatch
}

// Metrics is the dashboard header.
type Metrics struct {
	Total           int         `json:"total"`
	Completed       int         `json:"completed"`
	CompletionPct   int         `json:"completion_pct"`
	AverageProgress int         `json:"average_progress"`
	Forecast        models.Date `json:"forecast"`
	Overdue         int         `json:"overdue"`
	DueToday        int         `json:"due_today"`
}

// Card is a task as placed on the board.
type Card struct {
	models.Task
	Overdue  bool `json:"overdue"`
	DueToday bool `json:"due_today"`
}

// Columns holds the three status columns.
type Columns struct {
	NotStarted []Card `json:"not_started"`
	InProgress []Card `json:"in_progress"`
	Done       []Card `json:"done"`
}

// Get returns the column for status.
func (c Columns) Get(status models.Status) []Card {
	switch status {
	case models.StatusDone:
		return c.Done
	case models.StatusInProgress:
		return c.InProgress
	default:
		return c.NotStarted
	}
}

// All returns every card across the columns ordered by end date.
func (c Columns) All() []Card {
	all := make([]Card, 0, len(c.NotStarted)+len(c.InProgress)+len(c.Done))
	all = append(all, c.NotStarted...)
	all = append(all, c.InProgress...)
	all = append(all, c.Done...)
	sortByEndDate(all)
	return all
}

// OwnerCount is one row of the per-owner view.
type OwnerCount struct {
	Name       string `json:"name"`
	Total      int    `json:"total"`
	NotStarted int    `json:"not_started"`
	InProgress int    `json:"in_progress"`
	Done       int    `json:"done"`
}

// Board is the aggregated dashboard of one project.
type Board struct {
	Metrics Metrics      `json:"metrics"`
	Columns Columns      `json:"columns"`
	Owners  []OwnerCount `json:"owners"`
	Owner   string       `json:"owner,omitempty"`
}

// Column returns the column a stored status belongs to. Unknown statuses
// fall back to not started.
func Column(status models.Status) models.Status {
	if status.Valid() {
		return status
	}
	return models.StatusNotStarted
}

// Build aggregates tasks into a board. Owners are counted over every task;
// metrics and columns only over the tasks matching opts.Owner.
func Build(tasks []models.Task, opts Options) Board {
	if opts.Today.IsNull() {
		opts.Today = models.Today()
	}

	b := Board{
		Owners: CountOwners(tasks),
		Owner:  strings.TrimSpace(opts.Owner),
		Columns: Columns{
			NotStarted: []Card{},
			InProgress: []Card{},
			Done:       []Card{},
		},
	}

	visible := Filter(tasks, opts.Owner, opts.OwnerMatch)
	b.Metrics = ComputeMetrics(visible, opts.Today)

	flags := deadline.Analyze(visible, opts.Today).Lookup()
	for _, t := range visible {
		card := Card{Task: t, Overdue: flags[t.ID].Overdue, DueToday: flags[t.ID].DueToday}
		switch Column(t.Status) {
		case models.StatusDone:
			b.Columns.Done = append(b.Columns.Done, card)
		case models.StatusInProgress:
			b.Columns.InProgress = append(b.Columns.InProgress, card)
		default:
			b.Columns.NotStarted = append(b.Columns.NotStarted, card)
		}
	}
	sortByEndDate(b.Columns.NotStarted)
	sortByEndDate(b.Columns.InProgress)
	sortByEndDate(b.Columns.Done)
	return b
}

// ComputeMetrics returns the dashboard header for tasks.
func ComputeMetrics(tasks []models.Task, today models.Date) Metrics {
	analysis := deadline.Analyze(tasks, today)
	m := Metrics{
		Total:    len(tasks),
		Forecast: analysis.Forecast,
		Overdue:  analysis.Overdue,
		DueToday: analysis.DueToday,
	}
	if m.Total == 0 {
		return m
	}

	progress := 0
	for _, t := range tasks {
		if t.Status == models.StatusDone {
			m.Completed++
		}
		progress += models.ClampProgress(t.Progress)
	}
	m.CompletionPct = percent(m.Completed, m.Total)
	m.AverageProgress = int(math.Round(float64(progress) / float64(m.Total)))
	return m
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

// Filter keeps the tasks owned by owner. An empty owner keeps every task.
func Filter(tasks []models.Task, owner string, match OwnerMatch) []models.Task {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return tasks
	}
	needle := strings.ToLower(owner)

	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		var ok bool
		if match == MatchContains {
			ok = strings.Contains(strings.ToLower(t.OwnerName), needle)
		} else {
			ok = t.HasOwner(owner)
		}
		if ok {
			out = append(out, t)
		}
	}
	return out
}

// CountOwners lists every distinct owner across tasks with task counts per
// column, sorted by name ignoring case.
func CountOwners(tasks []models.Task) []OwnerCount {
	index := map[string]int{}
	counts := []OwnerCount{}
	for _, t := range tasks {
		owners := t.Owners
		if owners == nil {
			owners = models.ParseOwners(t.OwnerName)
		}
		for _, name := range owners {
			key := strings.ToLower(name)
			i, ok := index[key]
			if !ok {
				i = len(counts)
				index[key] = i
				counts = append(counts, OwnerCount{Name: name})
			}
			c := &counts[i]
			c.Total++
			switch Column(t.Status) {
			case models.StatusDone:
				c.Done++
			case models.StatusInProgress:
				c.InProgress++
			default:
				c.NotStarted++
			}
		}
	}
	slices.SortStableFunc(counts, func(a, b OwnerCount) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return counts
}

// sortByEndDate orders cards by ascending end date with undated cards last,
// keeping the incoming order for ties.
func sortByEndDate(cards []Card) {
	slices.SortStableFunc(cards, func(a, b Card) int {
		an, bn := a.EndDate.IsNull(), b.EndDate.IsNull()
		switch {
		case an && bn:
			return 0
		case an:
			return 1
		case bn:
			return -1
		case a.EndDate.Before(b.EndDate):
			return -1
		case a.EndDate.After(b.EndDate):
			return 1
		}
		return 0
	})
}
