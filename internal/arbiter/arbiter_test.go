package arbiter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// played records which requests fired and when, relative to the clock's
// starting point.
type played struct {
	mu    sync.Mutex
	start time.Time
	clock Clock
	ids   []string
	at    map[string]time.Duration
}

func newPlayed(c Clock) *played {
	return &played{start: c.Now(), clock: c, at: make(map[string]time.Duration)}
}

func (p *played) request(id string, priority int) Request {
	return Request{
		ID:       id,
		Priority: priority,
		Play: func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.ids = append(p.ids, id)
			p.at[id] = p.clock.Now().Sub(p.start)
		},
	}
}

func (p *played) IDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

func (p *played) At(id string) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.at[id]
	return d, ok
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestSubmit_SchedulesAfterDebounce(t *testing.T) {
	clock := newManualClock()
	a := New(WithClock(clock))
	rec := newPlayed(clock)

	a.Submit(rec.request("A", 1))
	assert.True(t, a.Snapshot().Pending)

	clock.Advance(ms(49))
	assert.Empty(t, rec.IDs())

	clock.Advance(ms(1))
	assert.Equal(t, []string{"A"}, rec.IDs())
	at, _ := rec.At("A")
	assert.Equal(t, ms(50), at)
	assert.False(t, a.Snapshot().Pending)
}

func TestSubmit_HigherPriorityPreemptsPending(t *testing.T) {
	clock := newManualClock()
	a := New(WithClock(clock))
	rec := newPlayed(clock)

	a.Submit(rec.request("A", 1))
	clock.Advance(ms(10))
	a.Submit(rec.request("B", 2))
	clock.Advance(ms(10))
	a.Submit(rec.request("C", 1))

	clock.Advance(ms(39))
	assert.Empty(t, rec.IDs(), "nothing fires before B's debounce elapses")

	clock.Advance(ms(1))
	assert.Equal(t, []string{"B"}, rec.IDs())
	at, _ := rec.At("B")
	assert.Equal(t, ms(60), at)

	clock.Advance(time.Second)
	assert.Equal(t, []string{"B"}, rec.IDs(), "A was cancelled and C dropped")
}

func TestSubmit_EqualPriorityNeverPreempts(t *testing.T) {
	clock := newManualClock()
	a := New(WithClock(clock))
	rec := newPlayed(clock)

	a.Submit(rec.request("first", 1))
	clock.Advance(ms(5))
	a.Submit(rec.request("second", 1))

	clock.Advance(time.Second)
	assert.Equal(t, []string{"first"}, rec.IDs())
}

func TestSubmit_CooldownDropsLowerOrEqual(t *testing.T) {
	tests := []struct {
		name     string
		priority int
	}{
		{"lower", 0},
		{"equal", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newManualClock()
			a := New(WithClock(clock))
			rec := newPlayed(clock)

			clock.Advance(ms(50))
			a.Submit(rec.request("A", 1))
			clock.Advance(ms(50))
			require.Equal(t, []string{"A"}, rec.IDs())

			clock.Advance(ms(20))
			a.Submit(rec.request("D", tt.priority))
			assert.False(t, a.Snapshot().Pending)

			clock.Advance(time.Second)
			assert.Equal(t, []string{"A"}, rec.IDs())
		})
	}
}

func TestSubmit_HigherPriorityBypassesCooldown(t *testing.T) {
	clock := newManualClock()
	a := New(WithClock(clock))
	rec := newPlayed(clock)

	clock.Advance(ms(50))
	a.Submit(rec.request("A", 1))
	clock.Advance(ms(50))

	clock.Advance(ms(20))
	a.Submit(rec.request("E", 2))

	clock.Advance(ms(49))
	assert.Equal(t, []string{"A"}, rec.IDs())
	clock.Advance(ms(1))
	assert.Equal(t, []string{"A", "E"}, rec.IDs())
	at, _ := rec.At("E")
	assert.Equal(t, ms(170), at)
}

func TestSubmit_CooldownExpires(t *testing.T) {
	clock := newManualClock()
	a := New(WithClock(clock))
	rec := newPlayed(clock)

	a.Submit(rec.request("A", 2))
	clock.Advance(ms(50))

	clock.Advance(ms(149))
	a.Submit(rec.request("early", 0))
	assert.False(t, a.Snapshot().Pending)

	clock.Advance(ms(1))
	a.Submit(rec.request("late", 0))
	assert.True(t, a.Snapshot().Pending, "cooldown is measured with a strict less-than")

	clock.Advance(ms(50))
	assert.Equal(t, []string{"A", "late"}, rec.IDs())
}

func TestSubmit_PriorityRecordedAtScheduleTime(t *testing.T) {
	clock := newManualClock()
	a := New(WithClock(clock))
	rec := newPlayed(clock)

	// A fires with priority 0, then B (2) is pending. C (1) is compared to
	// B, the sound about to play, not to A.
	a.Submit(rec.request("A", 0))
	clock.Advance(ms(50))
	clock.Advance(ms(200))
	a.Submit(rec.request("B", 2))
	assert.Equal(t, 2, a.Snapshot().LastPriority)

	clock.Advance(ms(10))
	a.Submit(rec.request("C", 1))

	clock.Advance(time.Second)
	assert.Equal(t, []string{"A", "B"}, rec.IDs())
}

func TestSubmit_PreemptionChain(t *testing.T) {
	clock := newManualClock()
	a := New(WithClock(clock))
	rec := newPlayed(clock)

	a.Submit(rec.request("p0", 0))
	clock.Advance(ms(10))
	a.Submit(rec.request("p1", 1))
	clock.Advance(ms(10))
	a.Submit(rec.request("p2", 2))
	clock.Advance(ms(10))
	a.Submit(rec.request("p3", 3))

	clock.Advance(time.Second)
	assert.Equal(t, []string{"p3"}, rec.IDs())
	at, _ := rec.At("p3")
	assert.Equal(t, ms(80), at)
}

func TestSubmit_NilPlay(t *testing.T) {
	clock := newManualClock()
	a := New(WithClock(clock))

	a.Submit(Request{ID: "silent", Priority: 1})
	require.NotPanics(t, func() { clock.Advance(ms(50)) })
	assert.False(t, a.Snapshot().LastFired.IsZero())
}

func TestSnapshot(t *testing.T) {
	clock := newManualClock()
	a := New(WithClock(clock))

	s := a.Snapshot()
	assert.Equal(t, -1, s.LastPriority)
	assert.True(t, s.LastFired.IsZero())
	assert.False(t, s.Pending)

	a.Submit(Request{ID: "x", Priority: 1})
	s = a.Snapshot()
	assert.True(t, s.Pending)
	assert.Equal(t, "x", s.PendingID)
	assert.Equal(t, 1, s.LastPriority)

	clock.Advance(ms(50))
	s = a.Snapshot()
	assert.False(t, s.Pending)
	assert.Empty(t, s.PendingID)
	assert.Equal(t, clock.Now(), s.LastFired)
}

func TestClose_CancelsPending(t *testing.T) {
	clock := newManualClock()
	a := New(WithClock(clock))
	rec := newPlayed(clock)

	a.Submit(rec.request("A", 1))
	a.Close()
	a.Submit(rec.request("B", 2))

	clock.Advance(time.Second)
	assert.Empty(t, rec.IDs())
	assert.False(t, a.Snapshot().Pending)
}

func TestSubmit_SystemClock(t *testing.T) {
	a := New()
	defer a.Close()

	done := make(chan string, 2)
	a.Submit(Request{ID: "low", Priority: 0, Play: func() { done <- "low" }})
	a.Submit(Request{ID: "high", Priority: 2, Play: func() { done <- "high" }})

	select {
	case id := <-done:
		assert.Equal(t, "high", id)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sound")
	}

	select {
	case id := <-done:
		t.Fatalf("unexpected second sound %q", id)
	case <-time.After(3 * Debounce):
	}
}
