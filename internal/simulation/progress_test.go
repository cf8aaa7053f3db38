package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/strategy-sim/internal/models"
)

func TestNewProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		ratio     float64
		finished  bool
		total     int
		label     string
	}{
		{name: "not started", completed: 0, ratio: 0, total: 0, label: "Starting simulation..."},
		{name: "halfway", completed: 5, ratio: 0.5, total: 10, label: "Day 5 of 10 - Running..."},
		{name: "rounded estimate", completed: 1, ratio: 1.0 / 3, total: 3, label: "Day 1 of 3 - Running..."},
		{name: "ratio above one", completed: 13, ratio: 13, total: 13, label: "Day 13 of 13 - Running..."},
		{name: "complete", completed: 3, ratio: 1, finished: true, total: 3, label: "Simulation Complete!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProgress(tt.completed, tt.ratio, tt.finished)
			assert.Equal(t, tt.completed, p.Completed)
			assert.Equal(t, tt.total, p.EstimatedTotal)
			assert.Equal(t, tt.label, p.Label)
		})
	}
}

func TestProgressPercentIsClamped(t *testing.T) {
	assert.Equal(t, 50.0, Progress{Ratio: 0.5}.Percent())
	assert.Equal(t, 100.0, Progress{Ratio: 4}.Percent())
	assert.Equal(t, 0.0, Progress{Ratio: -1}.Percent())
}

func TestHistoryRecordsAndEvicts(t *testing.T) {
	h := NewHistory(time.Minute, 2)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	h.Record(Summary{JobID: "a", Status: models.JobStatusCompleted, FinishedAt: base})
	h.Record(Summary{JobID: "b", Status: models.JobStatusStopped, FinishedAt: base.Add(time.Minute)})
	h.Record(Summary{JobID: "c", Status: models.JobStatusFailed, FinishedAt: base.Add(2 * time.Minute)})

	_, ok := h.Get("a")
	assert.False(t, ok, "oldest entry is evicted when full")

	list := h.List()
	if assert.Len(t, list, 2) {
		assert.Equal(t, "c", list[0].JobID)
		assert.Equal(t, "b", list[1].JobID)
	}
}

func TestHistoryExpires(t *testing.T) {
	h := NewHistory(10*time.Millisecond, 10)
	h.Record(Summary{JobID: "a", FinishedAt: time.Now()})

	time.Sleep(20 * time.Millisecond)

	_, ok := h.Get("a")
	assert.False(t, ok)
}
