package speaker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is used by callers that have no preference
	DefaultPollInterval = 60 * time.Second

	// MinPollInterval is the floor applied to any requested interval
	MinPollInterval = 5 * time.Second
)

// Snapshot is the polled device state. It is comparable: two polls that read
// the same state produce equal snapshots.
type Snapshot struct {
	Power  PowerState
	Input  string
	Volume int
	Mute   bool
}

type pollLoop struct {
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once

	last    Snapshot
	hasLast bool
}

func (l *pollLoop) halt() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *pollLoop) stopped() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}

// Snapshot reads power, input, volume and mute, one request at a time
func (s *Speaker) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Power, err = s.Power.Get(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("read power: %w", err)
	}
	if snap.Input, err = s.Input.Get(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("read input: %w", err)
	}
	if snap.Volume, err = s.Volume.Get(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("read volume: %w", err)
	}
	if snap.Mute, err = s.Volume.GetMute(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("read mute: %w", err)
	}
	return snap, nil
}

// OnChange registers fn to receive every state change found by the poller.
// The returned function removes the registration. Once no observer remains the
// poller stops by itself at its next tick.
func (s *Speaker) OnChange(fn func(Snapshot)) (remove func()) {
	s.observersMu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.observersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.observersMu.Lock()
			delete(s.observers, id)
			s.observersMu.Unlock()
		})
	}
}

// OnPollError registers fn to receive the error of every failed poll tick.
// The returned function removes the registration. While no error observer is
// registered, failures are logged as warnings. The baseline is not updated on
// failure.
func (s *Speaker) OnPollError(fn func(error)) (remove func()) {
	s.observersMu.Lock()
	id := s.nextID
	s.nextID++
	s.errorObservers[id] = fn
	s.observersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.observersMu.Lock()
			delete(s.errorObservers, id)
			s.observersMu.Unlock()
		})
	}
}

// Poll starts polling every interval, replacing any running loop. A
// non-positive interval stops polling; intervals below MinPollInterval are
// raised to it. The first tick runs immediately.
func (s *Speaker) Poll(interval time.Duration) {
	if interval <= 0 {
		s.StopPoll()
		return
	}
	if interval < s.minInterval {
		interval = s.minInterval
	}

	loop := &pollLoop{interval: interval, stop: make(chan struct{})}

	s.pollMu.Lock()
	prev := s.poll
	s.poll = loop
	s.pollMu.Unlock()

	if prev != nil {
		prev.halt()
	}

	s.logger.Debug("Polling started", zap.Duration("interval", interval))
	go s.runPoll(loop)
}

// StopPoll stops the timer. A tick already in flight is allowed to finish.
func (s *Speaker) StopPoll() {
	s.pollMu.Lock()
	loop := s.poll
	s.poll = nil
	s.pollMu.Unlock()

	if loop != nil {
		loop.halt()
		s.logger.Debug("Polling stopped")
	}
}

// Polling reports whether a poll loop is active
func (s *Speaker) Polling() bool {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	return s.poll != nil
}

func (s *Speaker) runPoll(loop *pollLoop) {
	ticker := time.NewTicker(loop.interval)
	defer ticker.Stop()

	// Requests are not tied to the loop: stopping only cancels future ticks
	ctx := context.Background()

	if !s.tick(ctx, loop) {
		return
	}
	for {
		select {
		case <-loop.stop:
			return
		case <-ticker.C:
			if loop.stopped() {
				return
			}
			if !s.tick(ctx, loop) {
				return
			}
		}
	}
}

// tick runs one poll cycle and reports whether the loop should continue
func (s *Speaker) tick(ctx context.Context, loop *pollLoop) bool {
	if s.observerCount() == 0 {
		s.pollMu.Lock()
		if s.poll == loop {
			s.poll = nil
		}
		s.pollMu.Unlock()
		loop.halt()
		s.logger.Debug("No change observers left, polling stopped")
		return false
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.reportPollError(err)
		return true
	}

	if loop.hasLast && snap == loop.last {
		return true
	}
	loop.last = snap
	loop.hasLast = true

	s.logger.Debug("Device state changed",
		zap.Stringer("power", snap.Power),
		zap.String("input", snap.Input),
		zap.Int("volume", snap.Volume),
		zap.Bool("mute", snap.Mute),
	)
	for _, fn := range s.observerList() {
		fn(snap)
	}
	return true
}

func (s *Speaker) observerCount() int {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	return len(s.observers)
}

// observerList returns observers in registration order
func (s *Speaker) observerList() []func(Snapshot) {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()

	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	return fns
}

// reportPollError hands err to every error observer in registration order
func (s *Speaker) reportPollError(err error) {
	s.observersMu.Lock()
	ids := make([]int, 0, len(s.errorObservers))
	for id := range s.errorObservers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(error), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.errorObservers[id])
	}
	s.observersMu.Unlock()

	if len(fns) == 0 {
		s.logger.Warn("Poll failed", zap.Error(err))
		return
	}
	for _, fn := range fns {
		fn(err)
	}
}
