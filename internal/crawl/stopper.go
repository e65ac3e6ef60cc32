package crawl

import "sync"

// Stopper carries a graceful stop request into a running crawl. The
// engine polls it between pages, finishes persisting the page it is
// on, and then halts. The caller decides what a repeated request
// means; the CLI treats it as a demand to exit immediately.
type Stopper struct {
	mu        sync.Mutex
	requested bool
}

// NewStopper returns a stopper with no stop requested.
func NewStopper() *Stopper {
	return &Stopper{}
}

// Request flags the crawl to stop. It reports whether this call was
// the first request, so callers can escalate on the second one.
func (s *Stopper) Request() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requested {
		return false
	}
	s.requested = true
	return true
}

// Requested reports whether a stop has been asked for.
func (s *Stopper) Requested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}
