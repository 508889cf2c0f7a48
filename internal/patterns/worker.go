package patterns

import (
	"sync"
	"time"

	"daybook/internal/logging"
	"daybook/internal/types"
)

// Worker runs the detector periodically in the background and hands findings
// to a callback (the planner records surfaced findings to the log). Start and
// Stop are idempotent; Stop waits for the in-flight cycle to finish.
type Worker struct {
	detector *Detector
	interval time.Duration
	onFound  func([]types.Pattern)

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewWorker builds a background scanner. onFound may be nil, in which case
// findings are only logged.
func NewWorker(d *Detector, interval time.Duration, onFound func([]types.Pattern)) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{detector: d, interval: interval, onFound: onFound}
}

// Start launches the background scan loop. A second Start is a no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	if w.stop != nil {
		w.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	w.stop = stop
	w.done = done
	w.mu.Unlock()

	go w.run(stop, done)
}

// Stop halts the loop and waits briefly for the current cycle.
func (w *Worker) Stop() {
	w.mu.Lock()
	stop := w.stop
	done := w.done
	w.stop = nil
	w.done = nil
	w.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}
}

func (w *Worker) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.cycle()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.cycle()
		}
	}
}

func (w *Worker) cycle() {
	asOf := time.Now().Format(types.DateLayout)
	found, err := w.detector.Detect(asOf)
	if err != nil {
		logging.Get(logging.CategoryPatterns).Error("Background scan failed: %v", err)
		return
	}
	if len(found) == 0 {
		return
	}

	logging.Patterns("Background scan found %d patterns", len(found))
	if w.onFound != nil {
		w.onFound(found)
	}
}
