package speaker

import (
	"sync"
	"time"
)

// Subscription delivers change snapshots and poll errors on channels, for
// consumers that run their own event loop. Each channel holds only the latest
// value: a slow reader sees the newest state, never a backlog.
// The channels are never closed; Done is closed by Close.
type Subscription struct {
	C      <-chan Snapshot
	Errors <-chan error

	remove      func()
	removeError func()
	done        chan struct{}
	once        sync.Once
}

// Subscribe registers a change observer and a poll error observer and starts
// polling at interval. Subscriptions are independent: each one receives every
// change and every poll error. Close the subscription to release its
// observers; polling stops by itself once no change observers remain.
func (s *Speaker) Subscribe(interval time.Duration) *Subscription {
	snaps := make(chan Snapshot, 1)
	errs := make(chan error, 1)

	sub := &Subscription{C: snaps, Errors: errs, done: make(chan struct{})}
	sub.remove = s.OnChange(func(snap Snapshot) { offer(snaps, snap) })
	sub.removeError = s.OnPollError(func(err error) { offer(errs, err) })
	s.Poll(interval)
	return sub
}

// Close removes the subscription's observers. Other subscriptions are unaffected.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.remove()
		sub.removeError()
		close(sub.done)
	})
}

// Done is closed once the subscription is closed
func (sub *Subscription) Done() <-chan struct{} { return sub.done }

// offer replaces whatever is buffered in ch with v. There is one producer per
// channel, so the loop ends after at most one drain.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
