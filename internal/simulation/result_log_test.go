package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/strategy-sim/internal/models"
)

func TestResultLogMergeIsIdempotent(t *testing.T) {
	log := NewResultLog()

	added, dupes := log.Merge([]models.DayResult{day(1), day(2)})
	assert.Equal(t, 2, added)
	assert.Zero(t, dupes)

	redelivered := day(2)
	redelivered.Trades = []string{"BUY 5 NVDA"}
	added, dupes = log.Merge([]models.DayResult{redelivered, day(3)})
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, dupes)

	days := log.Days()
	assert.Equal(t, []int{1, 2, 3}, dayKeys(days))
	assert.Empty(t, days[1].Trades, "first delivery of a day wins")
}

func TestResultLogKeepsAscendingOrder(t *testing.T) {
	tests := []struct {
		name    string
		batches [][]int
		want    []int
	}{
		{name: "in order", batches: [][]int{{1}, {2}, {3}}, want: []int{1, 2, 3}},
		{name: "overlapping slices", batches: [][]int{{1, 2}, {1, 2, 3}, {2, 3, 4}}, want: []int{1, 2, 3, 4}},
		{name: "late earlier day", batches: [][]int{{1, 3}, {2}}, want: []int{1, 2, 3}},
		{name: "reversed batch", batches: [][]int{{3, 2, 1}}, want: []int{1, 2, 3}},
		{name: "empty batch", batches: [][]int{{}, {1}}, want: []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := NewResultLog()
			for _, batch := range tt.batches {
				results := make([]models.DayResult, 0, len(batch))
				for _, d := range batch {
					results = append(results, day(d))
				}
				log.Merge(results)
			}
			assert.Equal(t, tt.want, dayKeys(log.Days()))
			assert.Equal(t, len(tt.want), log.Len())
		})
	}
}

func TestResultLogDaysIsACopy(t *testing.T) {
	log := NewResultLog()
	log.Merge([]models.DayResult{day(1)})

	days := log.Days()
	days[0].Day = 99

	last, ok := log.Last()
	require.True(t, ok)
	assert.Equal(t, 1, last.Day)
	assert.True(t, log.Contains(1))
	assert.False(t, log.Contains(99))
}

func TestResultLogEmpty(t *testing.T) {
	log := NewResultLog()

	_, ok := log.Last()
	assert.False(t, ok)
	assert.Empty(t, log.Days())
}
