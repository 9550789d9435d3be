package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/funnel-monitor/internal/pkg/distlock"
	"github.com/ignite/funnel-monitor/internal/service/dashboard"
)

// DefaultRefreshInterval is how often the funnel view is rebuilt.
const DefaultRefreshInterval = 5 * time.Minute

// Refresher rebuilds dashboard views.
type Refresher interface {
	Refresh(ctx context.Context) (*dashboard.View, error)
}

// RefreshStats counts refresh cycles since start.
type RefreshStats struct {
	Runs     int64 `json:"runs"`
	Skipped  int64 `json:"skipped"`
	Failures int64 `json:"failures"`
}

// RefreshWorker periodically refreshes the funnel view. Only the replica
// holding the lock refreshes in a given cycle; the others pick the view up
// from the shared cache.
type RefreshWorker struct {
	refresher Refresher
	lock      distlock.DistLock
	interval  time.Duration
	timeout   time.Duration

	runs     int64
	skipped  int64
	failures int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewRefreshWorker creates a worker. lock may be nil for a single replica.
func NewRefreshWorker(r Refresher, lock distlock.DistLock, interval time.Duration) *RefreshWorker {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &RefreshWorker{
		refresher: r,
		lock:      lock,
		interval:  interval,
		timeout:   interval,
	}
}

// Start runs one refresh immediately and then one per interval.
func (w *RefreshWorker) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("refresh worker already running")
	}
	w.running = true
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.mu.Unlock()

	log.Printf("[RefreshWorker] Starting (interval=%s)", w.interval)

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop cancels the loop and waits for an in-flight refresh to return.
func (w *RefreshWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	s := w.Stats()
	log.Printf("[RefreshWorker] Stopped. Runs: %d, skipped: %d, failures: %d", s.Runs, s.Skipped, s.Failures)
}

// Running reports whether the loop is active.
func (w *RefreshWorker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stats returns the cycle counters.
func (w *RefreshWorker) Stats() RefreshStats {
	return RefreshStats{
		Runs:     atomic.LoadInt64(&w.runs),
		Skipped:  atomic.LoadInt64(&w.skipped),
		Failures: atomic.LoadInt64(&w.failures),
	}
}

func (w *RefreshWorker) loop() {
	defer w.wg.Done()

	w.RunOnce(w.ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(w.ctx)
		}
	}
}

// RunOnce performs a single locked refresh cycle.
func (w *RefreshWorker) RunOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()

	if w.lock != nil {
		acquired, err := w.lock.Acquire(ctx)
		if err != nil {
			log.Printf("[RefreshWorker] Error acquiring lock: %v", err)
			atomic.AddInt64(&w.failures, 1)
			return
		}
		if !acquired {
			atomic.AddInt64(&w.skipped, 1)
			return
		}
		defer func() {
			if err := w.lock.Release(context.Background()); err != nil {
				log.Printf("[RefreshWorker] Error releasing lock: %v", err)
			}
		}()
	}

	start := time.Now()
	view, err := w.refresher.Refresh(ctx)
	if err != nil {
		if parent.Err() == nil {
			log.Printf("[RefreshWorker] Refresh failed: %v", err)
		}
		atomic.AddInt64(&w.failures, 1)
		return
	}
	atomic.AddInt64(&w.runs, 1)
	log.Printf("[RefreshWorker] Refreshed generation %d in %s (%d warnings)",
		view.Generation, time.Since(start).Round(time.Millisecond), len(view.Warnings))
}
