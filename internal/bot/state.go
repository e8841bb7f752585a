package bot

import "sync"

// sessionState is the per-session counter and stop signal, shared by all
// dispatch workers. It has its own lock, distinct from the gateway's client
// lock, so bookkeeping never holds up network I/O.
//
// The stop flag is irreversible within a cycle: once the platform blocks an
// action, no further sends may start.
type sessionState struct {
	mu      sync.Mutex
	sent    int
	stopped bool
}

// reset starts a new cycle. The stop flag is deliberately not cleared: a
// blocked session terminates the continuous loop instead.
func (s *sessionState) reset() {
	s.mu.Lock()
	s.sent = 0
	s.mu.Unlock()
}

func (s *sessionState) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func (s *sessionState) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *sessionState) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// allowSend peeks at the stop flag and session cap under the counter lock.
// Returns (false, reason) when a send could not proceed right now. A zero cap
// trips immediately: max_dms_per_session = 0 pauses outreach entirely.
func (s *sessionState) allowSend(cap int) (bool, Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false, OutcomeStopped
	}
	if s.sent >= cap {
		return false, OutcomeLimitReached
	}
	return true, ""
}

// reserveSend claims one unit of the session budget. The claim happens under
// the lock BEFORE the network send so concurrent workers can never all pass a
// stale counter read; a failed send gives the unit back with releaseSend.
func (s *sessionState) reserveSend(cap int) (bool, Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false, OutcomeStopped
	}
	if s.sent >= cap {
		return false, OutcomeLimitReached
	}
	s.sent++
	return true, ""
}

func (s *sessionState) releaseSend() {
	s.mu.Lock()
	if s.sent > 0 {
		s.sent--
	}
	s.mu.Unlock()
}
