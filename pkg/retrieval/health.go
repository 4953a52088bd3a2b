package retrieval

import "sync"

const (
	// healthWindowSize is the number of recent queries tracked.
	healthWindowSize = 20

	// failureRateThreshold marks the gateway unhealthy at or above this
	// share of failed queries in the window.
	failureRateThreshold = 0.5
)

// healthWindow is a fixed ring over the outcomes of recent queries.
// An empty window counts as healthy.
type healthWindow struct {
	mu       sync.Mutex
	outcomes [healthWindowSize]bool // true = failed
	next     int
	filled   int
	failures int
}

func (w *healthWindow) record(failed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.filled == len(w.outcomes) {
		if w.outcomes[w.next] {
			w.failures--
		}
	} else {
		w.filled++
	}

	w.outcomes[w.next] = failed
	if failed {
		w.failures++
	}
	w.next = (w.next + 1) % len(w.outcomes)
}

func (w *healthWindow) failing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.filled == 0 {
		return false
	}
	return float64(w.failures)/float64(w.filled) >= failureRateThreshold
}
