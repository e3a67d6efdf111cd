package deadline

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"kanban/internal/models"
)

func day(d int) models.Date {
	return models.NewDate(2025, time.January, d)
}

func task(id int64, progress int, end models.Date) models.Task {
	return models.Task{ID: id, Progress: progress, Status: models.DeriveStatus(progress), EndDate: end}
}

func TestAnalyze(t *testing.T) {
	today := day(15)
	tasks := []models.Task{
		task(1, 0, day(10)),
		task(2, 50, day(15)),
		task(3, 100, day(10)),
		task(4, 100, day(15)),
		task(5, 30, day(20)),
		task(6, 30, models.Date{}),
	}

	got := Analyze(tasks, today)
	want := Analysis{
		PerTask: []TaskDeadline{
			{TaskID: 1, Overdue: true},
			{TaskID: 2, DueToday: true},
			{TaskID: 3},
			{TaskID: 4},
			{TaskID: 5},
			{TaskID: 6},
		},
		Forecast: day(20),
		Overdue:  1,
		DueToday: 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	got := Analyze(nil, day(1))
	assert.True(t, got.Forecast.IsNull())
	assert.Zero(t, got.Overdue)
	assert.Zero(t, got.DueToday)
	assert.Empty(t, got.PerTask)
}

func TestOverdueNeverForDoneTasks(t *testing.T) {
	today := day(15)
	for d := 1; d <= 31; d++ {
		done := task(1, 100, day(d))
		assert.False(t, IsOverdue(done, today), "end day %d", d)
		assert.False(t, IsDueToday(done, today), "end day %d", d)
	}
}

func TestForecastMonotonic(t *testing.T) {
	tasks := []models.Task{task(1, 0, day(10)), task(2, 100, day(12))}
	base := Forecast(tasks)
	assert.Equal(t, day(12), base, "completed tasks still count towards the forecast")

	later := append(tasks, task(3, 0, day(28)))
	assert.Equal(t, day(28), Forecast(later))

	earlier := append(tasks, task(3, 0, day(2)))
	assert.Equal(t, base, Forecast(earlier))
}

func TestForecastAllNull(t *testing.T) {
	var stored models.Date
	_ = stored.Scan("31/02/2025")
	tasks := []models.Task{task(1, 0, models.Date{}), task(2, 10, stored)}
	assert.True(t, Forecast(tasks).IsNull())
	assert.False(t, IsOverdue(tasks[1], day(15)))
}

func TestLookup(t *testing.T) {
	a := Analyze([]models.Task{task(7, 10, day(1))}, day(2))
	assert.True(t, a.Lookup()[7].Overdue)
	_, ok := a.Lookup()[8]
	assert.False(t, ok)
}
