package simulation

import (
	"sort"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/strategy-sim/internal/models"
)

// Summary is the record kept for a finished job
type Summary struct {
	JobID        string               `json:"job_id"`
	Status       models.JobStatus     `json:"status"`
	Days         int                  `json:"days"`
	FinalMetrics *models.FinalMetrics `json:"final_metrics,omitempty"`
	Error        string               `json:"error,omitempty"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   time.Time            `json:"finished_at"`
}

// History keeps recently finished job summaries in memory for a limited time
type History struct {
	cache   *cache.Cache
	ttl     time.Duration
	maxSize int
	mu      sync.Mutex
}

// NewHistory creates a history retaining entries for ttl, holding at most maxSize entries
func NewHistory(ttl time.Duration, maxSize int) *History {
	return &History{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Record stores a summary, evicting the oldest entry when full
func (h *History) Record(s Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.maxSize > 0 && h.cache.ItemCount() >= h.maxSize {
		// Remove expired items first
		h.cache.DeleteExpired()
		if h.cache.ItemCount() >= h.maxSize {
			h.evictOldest()
		}
	}

	h.cache.Set(s.JobID, s, h.ttl)
}

// Get returns the summary for a job if it is still retained
func (h *History) Get(jobID string) (Summary, bool) {
	item, found := h.cache.Get(jobID)
	if !found {
		return Summary{}, false
	}
	s, ok := item.(Summary)
	return s, ok
}

// List returns retained summaries, most recently finished first
func (h *History) List() []Summary {
	items := h.cache.Items()
	out := make([]Summary, 0, len(items))
	for _, item := range items {
		if s, ok := item.Object.(Summary); ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	return out
}

func (h *History) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, item := range h.cache.Items() {
		s, ok := item.Object.(Summary)
		if !ok {
			continue
		}
		if oldestID == "" || s.FinishedAt.Before(oldest) {
			oldestID, oldest = id, s.FinishedAt
		}
	}
	if oldestID != "" {
		h.cache.Delete(oldestID)
	}
}
