// Package viewport coordinates viewport state propagation: a debounced
// writer that collapses bursts of map movement into one persisted state,
// and a version gate that discards stale in-flight responses.
package viewport

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/plano-labs/mapsearch/internal/domain/viewport"
	"github.com/plano-labs/mapsearch/internal/metrics"
)

// Debounce defaults.
const (
	DefaultDelay = 500 * time.Millisecond
	writeTimeout = 5 * time.Second
)

// Writer persists one viewport state.
type Writer interface {
	Write(ctx context.Context, state viewport.State) error
}

// Sync debounces viewport writes for one session. Rapid Propagate calls
// collapse into a single write of the latest state after the delay;
// immediate writes and Flush bypass the delay and supersede anything
// pending. Safe for concurrent use.
type Sync struct {
	writer Writer
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending viewport.State
	dirty   bool
	closed  bool
}

// NewSync creates a debounced syncer. A non-positive delay falls back to
// DefaultDelay.
func NewSync(writer Writer, delay time.Duration, logger *zap.Logger) *Sync {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Sync{writer: writer, delay: delay, logger: logger}
}

// Propagate schedules state for persistence. Later calls replace the
// pending state and restart the delay; immediate writes now, dropping
// whatever was pending.
func (s *Sync) Propagate(state viewport.State, immediate bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	if immediate {
		s.dirty = false
		s.mu.Unlock()
		s.write(state)
		return
	}
	s.pending = state
	s.dirty = true
	s.timer = time.AfterFunc(s.delay, s.fire)
	s.mu.Unlock()
}

// Flush writes any pending state now.
func (s *Sync) Flush() {
	s.fire()
}

// Cancel drops any pending state without writing it.
func (s *Sync) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.dirty = false
}

// Close cancels pending work and rejects further propagation. Used on
// session teardown so a dangling timer never writes after the session is
// gone.
func (s *Sync) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.dirty = false
	s.closed = true
}

func (s *Sync) fire() {
	s.mu.Lock()
	if !s.dirty || s.closed {
		s.mu.Unlock()
		return
	}
	state := s.pending
	s.dirty = false
	s.stopTimerLocked()
	s.mu.Unlock()
	s.write(state)
}

func (s *Sync) write(state viewport.State) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.writer.Write(ctx, state); err != nil {
		metrics.ViewportWritesTotal.WithLabelValues("error").Inc()
		s.logger.Warn("viewport write failed", zap.Error(err))
		return
	}
	metrics.ViewportWritesTotal.WithLabelValues("success").Inc()
}

func (s *Sync) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
