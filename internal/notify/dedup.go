package notify

import (
	"sync"
	"time"
)

// DefaultDedupWindow is how long a job id suppresses repeat deliveries.
const DefaultDedupWindow = 10 * time.Second

// Deduper drops repeat deliveries of the same job within a window. Expired
// entries are swept on each arrival; there is no timer.
type Deduper struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDeduper creates a Deduper. A non-positive window uses DefaultDedupWindow.
func NewDeduper(window time.Duration) *Deduper {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Deduper{window: window, now: time.Now, seen: make(map[string]time.Time)}
}

// Accept records jobID and reports whether it should be shown. Messages
// without a job id are always accepted.
func (d *Deduper) Accept(jobID string) bool {
	if jobID == "" {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.seen[jobID]; ok && now.Sub(last) < d.window {
		return false
	}

	for id, ts := range d.seen {
		if now.Sub(ts) > d.window {
			delete(d.seen, id)
		}
	}
	d.seen[jobID] = now
	return true
}

// Len returns the number of tracked job ids.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
