package enrichment

import "sync"

// Outcome describes how a run ended.
type Outcome int

const (
	// Completed means every book was processed.
	Completed Outcome = iota
	// Cancelled means the run stopped early and covers written during it
	// were rolled back.
	Cancelled
	// Stopped means the run stopped early and kept everything it wrote.
	Stopped
)

func (o Outcome) String() string {
	switch o {
	case Cancelled:
		return "cancelled"
	case Stopped:
		return "stopped"
	default:
		return "completed"
	}
}

// Stopper is a cancellation token shared between a run and whoever controls
// it. The first request wins; later requests are ignored.
type Stopper struct {
	mu   sync.Mutex
	mode Outcome
	done chan struct{}
}

// NewStopper returns a Stopper with no request made.
func NewStopper() *Stopper {
	return &Stopper{done: make(chan struct{})}
}

// Cancel asks the run to stop as soon as possible and undo its cover writes.
func (s *Stopper) Cancel() { s.request(Cancelled) }

// StopAndSave asks the run to stop as soon as possible and keep its writes.
func (s *Stopper) StopAndSave() { s.request(Stopped) }

func (s *Stopper) request(mode Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Completed {
		return
	}
	s.mode = mode
	close(s.done)
}

// Requested returns the pending request, or Completed when none was made.
func (s *Stopper) Requested() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Stopped reports whether any stop was requested.
func (s *Stopper) Stopped() bool {
	return s.Requested() != Completed
}

// Done is closed once a stop is requested.
func (s *Stopper) Done() <-chan struct{} { return s.done }
