package speaker

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/muurk/smartcast/internal/devicetest"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newPollingSpeaker(dev *devicetest.Device) *Speaker {
	spk := newTestSpeaker(dev)
	spk.minInterval = time.Millisecond
	return spk
}

func TestPoll_IdleStop(t *testing.T) {
	dev := devicetest.Standard()
	spk := newPollingSpeaker(dev)

	spk.Poll(5 * time.Millisecond)
	waitFor(t, "idle poller to stop", func() bool { return !spk.Polling() })

	if n := len(dev.Calls()); n != 0 {
		t.Errorf("idle poller made %d requests, want 0", n)
	}
}

func TestPoll_StopsWhenLastObserverRemoved(t *testing.T) {
	spk := newPollingSpeaker(devicetest.Standard())

	events := make(chan Snapshot, 16)
	remove := spk.OnChange(func(s Snapshot) { events <- s })
	spk.Poll(5 * time.Millisecond)

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no initial change event")
	}

	remove()
	remove()
	waitFor(t, "poller to stop after observer removal", func() bool { return !spk.Polling() })
}

func TestPoll_DiffSuppression(t *testing.T) {
	dev := devicetest.Standard()
	spk := newPollingSpeaker(dev)

	events := make(chan Snapshot, 16)
	defer spk.OnChange(func(s Snapshot) { events <- s })()

	spk.Poll(5 * time.Millisecond)
	waitFor(t, "three poll ticks", func() bool {
		return dev.CallCount(http.MethodGet, devicetest.MutePath) >= 3
	})
	spk.StopPoll()

	if n := len(events); n != 1 {
		t.Fatalf("got %d change events for an unchanged device, want 1", n)
	}
	want := Snapshot{Power: PowerOn, Input: "HDMI-ARC", Volume: 22, Mute: false}
	if got := <-events; got != want {
		t.Errorf("initial event = %+v, want %+v", got, want)
	}
}

func TestPoll_EmitsOnChange(t *testing.T) {
	dev := devicetest.Standard()
	spk := newPollingSpeaker(dev)

	events := make(chan Snapshot, 16)
	defer spk.OnChange(func(s Snapshot) { events <- s })()
	spk.Poll(5 * time.Millisecond)
	defer spk.StopPoll()

	next := func() Snapshot {
		t.Helper()
		select {
		case s := <-events:
			return s
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for change event")
			return Snapshot{}
		}
	}

	if first := next(); first.Volume != 22 {
		t.Fatalf("initial volume = %d, want 22", first.Volume)
	}

	dev.SetValue(devicetest.VolumePath, 30)
	if got := next(); got.Volume != 30 || got.Power != PowerOn {
		t.Errorf("change event = %+v, want volume 30", got)
	}

	dev.SetValue(devicetest.MutePath, "On")
	if got := next(); !got.Mute || got.Volume != 30 {
		t.Errorf("change event = %+v, want muted at 30", got)
	}
}

func TestPoll_ErrorsGoToHandler(t *testing.T) {
	dev := devicetest.Standard()
	dev.Fail(devicetest.PowerPath, devicetest.ErrDropped)
	spk := newPollingSpeaker(dev)

	errs := make(chan error, 64)
	defer spk.OnPollError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})()
	events := make(chan Snapshot, 16)
	defer spk.OnChange(func(s Snapshot) { events <- s })()

	spk.Poll(5 * time.Millisecond)
	defer spk.StopPoll()

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if !errors.Is(err, devicetest.ErrDropped) {
				t.Errorf("poll error = %v, want ErrDropped", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("poll error not reported")
		}
	}
	if len(events) != 0 {
		t.Error("failed ticks emitted a change")
	}
	if !spk.Polling() {
		t.Error("poll errors stopped the poller")
	}

	dev.Fail(devicetest.PowerPath, nil)
	select {
	case got := <-events:
		if got.Power != PowerOn {
			t.Errorf("event after recovery = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event after the device recovered")
	}
}

func TestPoll_ClampsInterval(t *testing.T) {
	spk := newTestSpeaker(devicetest.Standard())
	defer spk.OnChange(func(Snapshot) {})()

	spk.Poll(time.Millisecond)
	defer spk.StopPoll()

	spk.pollMu.Lock()
	interval := spk.poll.interval
	spk.pollMu.Unlock()

	if interval != MinPollInterval {
		t.Errorf("interval = %v, want %v", interval, MinPollInterval)
	}
}

func TestPoll_NonPositiveStops(t *testing.T) {
	spk := newPollingSpeaker(devicetest.Standard())
	defer spk.OnChange(func(Snapshot) {})()

	spk.Poll(time.Hour)
	if !spk.Polling() {
		t.Fatal("Poll() did not start")
	}
	spk.Poll(0)
	if spk.Polling() {
		t.Error("Poll(0) did not stop polling")
	}

	spk.Poll(time.Hour)
	spk.Poll(-time.Second)
	if spk.Polling() {
		t.Error("Poll(-1s) did not stop polling")
	}
}

func TestPoll_RestartReplacesLoop(t *testing.T) {
	spk := newPollingSpeaker(devicetest.Standard())
	defer spk.OnChange(func(Snapshot) {})()

	spk.Poll(time.Hour)
	spk.pollMu.Lock()
	first := spk.poll
	spk.pollMu.Unlock()

	spk.Poll(2 * time.Hour)
	defer spk.StopPoll()

	if !first.stopped() {
		t.Error("previous loop still running after restart")
	}
	spk.pollMu.Lock()
	defer spk.pollMu.Unlock()
	if spk.poll == first || spk.poll.interval != 2*time.Hour {
		t.Error("restart did not install a new loop")
	}
}

func TestSubscribe(t *testing.T) {
	dev := devicetest.Standard()
	spk := newPollingSpeaker(dev)

	sub := spk.Subscribe(5 * time.Millisecond)

	select {
	case snap := <-sub.C:
		if snap.Volume != 22 || snap.Input != "HDMI-ARC" {
			t.Errorf("first snapshot = %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}

	dev.Fail(devicetest.VolumePath, devicetest.ErrDropped)
	select {
	case err := <-sub.Errors:
		if !errors.Is(err, devicetest.ErrDropped) {
			t.Errorf("error = %v, want ErrDropped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no poll error delivered")
	}

	sub.Close()
	sub.Close()
	select {
	case <-sub.Done():
	default:
		t.Error("Done() not closed after Close()")
	}
	waitFor(t, "poller to stop after Close", func() bool { return !spk.Polling() })
}

func TestSubscribe_ClosingOneKeepsOthers(t *testing.T) {
	dev := devicetest.Standard()
	dev.Fail(devicetest.VolumePath, devicetest.ErrDropped)
	spk := newPollingSpeaker(dev)

	first := spk.Subscribe(5 * time.Millisecond)
	second := spk.Subscribe(5 * time.Millisecond)
	defer second.Close()

	for _, sub := range []*Subscription{first, second} {
		select {
		case <-sub.Errors:
		case <-time.After(2 * time.Second):
			t.Fatal("poll error not delivered to every subscription")
		}
	}

	first.Close()
	select {
	case <-second.Errors:
	default:
	}

	select {
	case err := <-second.Errors:
		if !errors.Is(err, devicetest.ErrDropped) {
			t.Errorf("error = %v, want ErrDropped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("closing one subscription silenced the other's poll errors")
	}

	dev.Fail(devicetest.VolumePath, nil)
	select {
	case snap := <-second.C:
		if snap.Volume != 22 {
			t.Errorf("snapshot = %+v, want volume 22", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after recovery")
	}
}

func TestOnPollError_Remove(t *testing.T) {
	dev := devicetest.Standard()
	dev.Fail(devicetest.PowerPath, devicetest.ErrDropped)
	spk := newPollingSpeaker(dev)

	var mu sync.Mutex
	counts := map[string]int{}
	record := func(name string) func(error) {
		return func(error) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
		}
	}
	count := func(name string) int {
		mu.Lock()
		defer mu.Unlock()
		return counts[name]
	}

	removeA := spk.OnPollError(record("a"))
	defer spk.OnPollError(record("b"))()
	defer spk.OnChange(func(Snapshot) {})()

	spk.Poll(5 * time.Millisecond)
	defer spk.StopPoll()

	waitFor(t, "both error observers", func() bool { return count("a") > 0 && count("b") > 0 })

	removeA()
	removeA()
	settled, before := count("a"), count("b")
	waitFor(t, "remaining observer", func() bool { return count("b") > before+3 })
	if got := count("a"); got > settled+1 {
		t.Errorf("removed observer called %d more times", got-settled)
	}
}

func TestOffer_KeepsLatest(t *testing.T) {
	ch := make(chan int, 1)
	offer(ch, 1)
	offer(ch, 2)
	offer(ch, 3)

	if got := <-ch; got != 3 {
		t.Errorf("buffered value = %d, want 3", got)
	}
	select {
	case v := <-ch:
		t.Errorf("unexpected extra value %d", v)
	default:
	}
}
