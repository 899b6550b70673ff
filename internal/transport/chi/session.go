package chi

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/plano-labs/mapsearch/internal/repository/viewstate"
	viewportuc "github.com/plano-labs/mapsearch/internal/usecase/viewport"
)

// session bundles the per-session coordination state: the debounced
// viewport writer and the request version gate.
type session struct {
	sync *viewportuc.Sync
	gate *viewportuc.Gate

	mu    sync.Mutex
	acted bool
}

// nextVersion tags one explicit search action. The first action on a
// session runs at the gate's starting version; every later action bumps
// it, invalidating in-flight pages.
func (s *session) nextVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acted {
		s.acted = true
		return s.gate.Current()
	}
	return s.gate.Bump()
}

// sessionRegistry creates sessions on demand and tears them down on
// request.
type sessionRegistry struct {
	store  *viewstate.Store
	delay  time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionRegistry(store *viewstate.Store, delay time.Duration, logger *zap.Logger) *sessionRegistry {
	return &sessionRegistry{
		store:    store,
		delay:    delay,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

func (r *sessionRegistry) get(id string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = &session{
			sync: viewportuc.NewSync(
				viewstate.SessionWriter{Store: r.store, Session: id}, r.delay, r.logger,
			),
			gate: viewportuc.NewGate(),
		}
		r.sessions[id] = s
	}
	return s
}

// close tears a session down. flush persists any pending viewport state
// first; without it the pending write is cancelled.
func (r *sessionRegistry) close(id string, flush bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	if flush {
		s.sync.Flush()
	}
	s.sync.Close()
}
