package arbiter

import (
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// submission is what the harness observed around one Submit call.
type submission struct {
	id       string
	priority int
	at       time.Time
	before   Snapshot
	after    Snapshot
}

// runRandomSequence drives an arbiter with a random sequence of requests
// and returns what was submitted and when each request played.
func runRandomSequence(t *rapid.T) ([]submission, map[string][]time.Time) {
	clock := newManualClock()
	a := New(WithClock(clock))

	fires := make(map[string][]time.Time)
	n := rapid.IntRange(1, 40).Draw(t, "n")
	subs := make([]submission, 0, n)

	for i := range n {
		gap := rapid.IntRange(0, 250).Draw(t, fmt.Sprintf("gap-%d", i))
		priority := rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("priority-%d", i))
		clock.Advance(ms(gap))

		id := fmt.Sprintf("req-%d", i)
		before := a.Snapshot()
		now := clock.Now()
		a.Submit(Request{
			ID:       id,
			Priority: priority,
			Play: func() {
				fires[id] = append(fires[id], clock.Now())
			},
		})
		subs = append(subs, submission{
			id:       id,
			priority: priority,
			at:       now,
			before:   before,
			after:    a.Snapshot(),
		})
	}

	clock.Advance(time.Second)
	return subs, fires
}

func TestProperty_StrictPreemption(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		subs, fires := runRandomSequence(t)

		for _, s := range subs {
			if !s.before.Pending {
				continue
			}
			pendingID := s.before.PendingID
			if s.priority > s.before.LastPriority {
				if len(fires[pendingID]) != 0 {
					t.Fatalf("%s was preempted by %s but still played", pendingID, s.id)
				}
				if s.after.PendingID != s.id {
					t.Fatalf("%s should be pending after preempting %s", s.id, pendingID)
				}
			} else {
				if len(fires[s.id]) != 0 {
					t.Fatalf("%s (priority %d) played over pending priority %d",
						s.id, s.priority, s.before.LastPriority)
				}
				if s.after.PendingID != pendingID {
					t.Fatalf("%s should still be pending", pendingID)
				}
			}
		}
	})
}

func TestProperty_CooldownGate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		subs, fires := runRandomSequence(t)

		for _, s := range subs {
			if s.before.Pending || s.before.LastFired.IsZero() {
				continue
			}
			if s.at.Sub(s.before.LastFired) >= Cooldown {
				continue
			}
			if s.priority <= s.before.LastPriority {
				if len(fires[s.id]) != 0 {
					t.Fatalf("%s played inside the cooldown window", s.id)
				}
			} else if s.after.PendingID != s.id {
				t.Fatalf("%s should bypass the cooldown", s.id)
			}
		}
	})
}

func TestProperty_SingleFlightAndNoDoubleFire(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		subs, fires := runRandomSequence(t)

		var all []time.Time
		for _, s := range subs {
			times := fires[s.id]
			if len(times) > 1 {
				t.Fatalf("%s played %d times", s.id, len(times))
			}
			if len(times) == 1 {
				if got := times[0].Sub(s.at); got != Debounce {
					t.Fatalf("%s played %v after submit, want %v", s.id, got, Debounce)
				}
				all = append(all, times[0])
			}
		}

		for i := 1; i < len(all); i++ {
			if all[i].Sub(all[i-1]) < Debounce {
				t.Fatalf("two sounds played %v apart", all[i].Sub(all[i-1]))
			}
		}
	})
}
