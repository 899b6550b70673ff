package viewport

import "sync"

// Gate serializes response application for one session. Every new
// request bumps the version; an in-flight response is applied only when
// it carries the current version, and the settled-response hook fires at
// most once per version. Safe for concurrent use.
type Gate struct {
	mu          sync.Mutex
	version     uint64
	lastHandled uint64
}

// NewGate creates a gate at version 1 with nothing handled yet.
func NewGate() *Gate {
	return &Gate{version: 1}
}

// Bump invalidates all in-flight responses and returns the new current
// version for tagging the next request.
func (g *Gate) Bump() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.version++
	return g.version
}

// Current returns the version in effect.
func (g *Gate) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.version
}

// ShouldApply reports whether a response tagged with version is still
// current.
func (g *Gate) ShouldApply(version uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return version == g.version
}

// TryConsume claims the settled-response hook for version. It reports
// true exactly once per version, and only for a current, settled,
// non-empty response; every other combination leaves the gate untouched.
func (g *Gate) TryConsume(version uint64, settled, nonEmpty bool) bool {
	if !settled || !nonEmpty {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if version != g.version || version <= g.lastHandled {
		return false
	}
	g.lastHandled = version
	return true
}
