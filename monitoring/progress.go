package monitoring

import (
	"sync"
	"time"
)

// Phases of a scenario run.
const (
	PhaseTraffic = "traffic"
	PhaseDrain   = "drain"
)

// A ProgressBar follows a run tick by tick.
type ProgressBar struct {
	lock sync.Mutex

	id    string
	name  string
	start time.Time
	clock func() time.Time
	total uint64
	ticks uint64
	phase string
}

// Progress is what the dashboard receives for a progress bar.
type Progress struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phase          string    `json:"phase"`
	StartTime      time.Time `json:"start_time"`
	Total          uint64    `json:"total"`
	Ticks          uint64    `json:"ticks"`
	TicksPerSecond float64   `json:"ticks_per_second"`

	// RemainingSeconds is absent until the first tick finishes.
	RemainingSeconds *float64 `json:"remaining_seconds,omitempty"`
}

// Tick records a finished tick of the given phase. Ticks past the total are
// not counted.
func (b *ProgressBar) Tick(phase string) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.phase = phase
	if b.ticks < b.total {
		b.ticks++
	}
}

// Ticks returns the number of finished ticks.
func (b *ProgressBar) Ticks() uint64 {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.ticks
}

func (b *ProgressBar) snapshot() Progress {
	b.lock.Lock()
	defer b.lock.Unlock()

	p := Progress{
		ID:        b.id,
		Name:      b.name,
		Phase:     b.phase,
		StartTime: b.start,
		Total:     b.total,
		Ticks:     b.ticks,
	}

	elapsed := b.clock().Sub(b.start).Seconds()
	if elapsed <= 0 || b.ticks == 0 {
		return p
	}

	p.TicksPerSecond = float64(b.ticks) / elapsed
	remaining := float64(b.total-b.ticks) / p.TicksPerSecond
	p.RemainingSeconds = &remaining

	return p
}
