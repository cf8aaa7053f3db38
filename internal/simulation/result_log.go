package simulation

import (
	"sort"

	"github.com/yourusername/strategy-sim/internal/models"
)

// ResultLog is an append-only sequence of day results keyed by day.
// Days are kept in ascending order and each day appears at most once.
type ResultLog struct {
	days  []models.DayResult
	index map[int]struct{}
}

// NewResultLog creates an empty log
func NewResultLog() *ResultLog {
	return &ResultLog{index: make(map[int]struct{})}
}

// Merge adds results whose day is not yet present, in the order received.
// A day already in the log keeps its original entry and position.
func (l *ResultLog) Merge(results []models.DayResult) (added, duplicates int) {
	for _, r := range results {
		if _, ok := l.index[r.Day]; ok {
			duplicates++
			continue
		}
		l.index[r.Day] = struct{}{}
		l.insert(r)
		added++
	}
	return added, duplicates
}

// insert appends in the common case and falls back to a sorted insert
// when the engine delivers an earlier day late.
func (l *ResultLog) insert(r models.DayResult) {
	n := len(l.days)
	if n == 0 || l.days[n-1].Day < r.Day {
		l.days = append(l.days, r)
		return
	}
	i := sort.Search(n, func(i int) bool { return l.days[i].Day > r.Day })
	l.days = append(l.days, models.DayResult{})
	copy(l.days[i+1:], l.days[i:])
	l.days[i] = r
}

// Len returns the number of merged days
func (l *ResultLog) Len() int {
	return len(l.days)
}

// Contains reports whether day has been merged
func (l *ResultLog) Contains(day int) bool {
	_, ok := l.index[day]
	return ok
}

// Days returns a copy of the merged results
func (l *ResultLog) Days() []models.DayResult {
	out := make([]models.DayResult, len(l.days))
	copy(out, l.days)
	return out
}

// Last returns the most recent day, if any
func (l *ResultLog) Last() (models.DayResult, bool) {
	if len(l.days) == 0 {
		return models.DayResult{}, false
	}
	return l.days[len(l.days)-1], true
}
