// Package session owns per-connection state and the process-wide
// registry of live sessions. Each session serializes its own
// dispatches: at most one utterance is in flight at a time, and a
// second one arriving meanwhile is dropped rather than queued.
package session

import "sync"

// Session is owned by the channel that created it. All mutation goes
// through these methods; nothing outside the owning channel should
// hold a reference.
type Session struct {
	ID string

	mu         sync.Mutex
	inFlight   bool
	continuous bool
}

func New(id string) *Session {
	return &Session{ID: id}
}

// TryBeginDispatch flips the session from Idle to Dispatching. It
// returns false, without blocking, when a dispatch is already in
// flight; the caller must then drop the utterance.
func (s *Session) TryBeginDispatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

// EndDispatch returns the session to Idle. It is called on every
// dispatch exit path, success or failure.
func (s *Session) EndDispatch() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// SetContinuous toggles continuous-listening mode for this session
// only; there is no process-wide flag.
func (s *Session) SetContinuous(v bool) {
	s.mu.Lock()
	s.continuous = v
	s.mu.Unlock()
}

func (s *Session) Continuous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.continuous
}
