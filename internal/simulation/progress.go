package simulation

import (
	"fmt"
	"math"
)

// Progress is the display view of a job's advancement.
// EstimatedTotal is derived from the engine's ratio and is not authoritative.
type Progress struct {
	Completed      int     `json:"completed"`
	EstimatedTotal int     `json:"estimated_total"`
	Ratio          float64 `json:"ratio"`
	Label          string  `json:"label"`
}

// NewProgress derives the display progress from the merged result count and the engine ratio
func NewProgress(completed int, ratio float64, finished bool) Progress {
	p := Progress{Completed: completed, Ratio: ratio}
	if ratio > 0 {
		p.EstimatedTotal = int(math.Round(float64(completed) / ratio))
	}
	if p.EstimatedTotal < completed {
		p.EstimatedTotal = completed
	}

	switch {
	case finished:
		p.Label = "Simulation Complete!"
	case p.EstimatedTotal > 0:
		p.Label = fmt.Sprintf("Day %d of %d - Running...", completed, p.EstimatedTotal)
	default:
		p.Label = "Starting simulation..."
	}
	return p
}

// Percent returns the completion ratio as a percentage clamped to [0,100]
func (p Progress) Percent() float64 {
	return math.Max(0, math.Min(100, p.Ratio*100))
}
