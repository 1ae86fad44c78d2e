package arbiter

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// Debounce is how long a scheduled request waits before it plays.
	Debounce = 50 * time.Millisecond
	// Cooldown is the minimum spacing after a played sound during which
	// only strictly higher priority requests are accepted.
	Cooldown = 150 * time.Millisecond
)

// Request asks for a sound to be played.
type Request struct {
	ID       string
	Priority int
	// Play is invoked at most once, after the debounce delay, unless the
	// request is dropped or preempted. It must not block.
	Play func()
}

// Snapshot is a read-only view of the arbiter state.
type Snapshot struct {
	LastFired    time.Time
	LastPriority int
	Pending      bool
	PendingID    string
}

// pending is the single scheduled request. Identity of the pointer is what
// the timer callback checks, so a cancelled request can never fire.
type pending struct {
	req   Request
	timer Timer
}

// Arbiter serializes sound requests and applies the priority policy.
type Arbiter struct {
	mu     sync.Mutex
	clock  Clock
	logger *slog.Logger

	lastFire     time.Time
	lastPriority int
	pending      *pending

	closed bool
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(a *Arbiter) { a.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arbiter) { a.logger = l }
}

// New creates an Arbiter. There should be one per process.
func New(opts ...Option) *Arbiter {
	a := &Arbiter{
		clock:        systemClock{},
		logger:       slog.Default(),
		lastPriority: -1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit offers a request to the arbiter. It never blocks on playback and
// never reports an error; a request that loses arbitration simply never plays.
func (a *Arbiter) Submit(req Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	now := a.clock.Now()
	p := req.Priority

	switch {
	case a.pending != nil:
		if p <= a.lastPriority {
			return
		}
		a.pending.timer.Stop()
		a.logger.Debug("sound preempted", "id", a.pending.req.ID, "by", req.ID)
		a.pending = nil
	case now.Sub(a.lastFire) < Cooldown:
		if p <= a.lastPriority {
			return
		}
	}

	a.lastPriority = p
	pr := &pending{req: req}
	pr.timer = a.clock.AfterFunc(Debounce, func() { a.fire(pr) })
	a.pending = pr
}

// fire plays pr if it still owns the pending slot.
func (a *Arbiter) fire(pr *pending) {
	a.mu.Lock()
	if a.pending != pr {
		a.mu.Unlock()
		return
	}
	a.lastFire = a.clock.Now()
	a.pending = nil
	a.mu.Unlock()

	if pr.req.Play != nil {
		pr.req.Play()
	}
}

// Snapshot returns the current state.
func (a *Arbiter) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		LastFired:    a.lastFire,
		LastPriority: a.lastPriority,
		Pending:      a.pending != nil,
	}
	if a.pending != nil {
		s.PendingID = a.pending.req.ID
	}
	return s
}

// Close cancels any pending request. Requests submitted afterwards are
// dropped.
func (a *Arbiter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending != nil {
		a.pending.timer.Stop()
		a.pending = nil
	}
	a.closed = true
}
