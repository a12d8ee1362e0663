package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar counts progress through one quantity of the run, such as
// chunks persisted or attempts executed.
type ProgressBar struct {
	mu sync.Mutex

	id        string
	name      string
	startTime time.Time
	total     uint64
	done      uint64
	active    uint64
}

type progressSnapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Done      uint64    `json:"done"`
	Active    uint64    `json:"active"`
}

// Begin marks an amount as actively being worked on.
func (b *ProgressBar) Begin(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active += amount
}

// Complete moves an amount from active to done.
func (b *ProgressBar) Complete(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active -= amount
	b.done += amount
}

// Advance marks an amount done without it having been active.
func (b *ProgressBar) Advance(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.done += amount
}

// Done returns the amount finished so far.
func (b *ProgressBar) Done() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.done
}

func (b *ProgressBar) snapshot() progressSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return progressSnapshot{
		ID:        b.id,
		Name:      b.name,
		StartTime: b.startTime,
		Total:     b.total,
		Done:      b.done,
		Active:    b.active,
	}
}
