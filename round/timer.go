package round

import (
	"sync"
	"time"
)

// Timer tracks the launch countdown and the flight clock of the current
// round. Only one callback is pending at a time; scheduling a new one or
// calling Cancel invalidates the previous one, including a callback that
// has already fired and is waiting for the lock.
//
// Timer is not safe for concurrent use on its own: callers hold lock while
// calling its methods, and every callback it fires runs with lock held.
type Timer struct {
	clock Clock
	lock  sync.Locker

	gen     uint64
	pending Stopper

	countdown   int
	flightStart time.Time
}

func NewTimer(clock Clock, lock sync.Locker) *Timer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Timer{clock: clock, lock: lock}
}

// Cancel stops the pending callback, if any.
func (t *Timer) Cancel() {
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Timer) schedule(d time.Duration, fn func()) {
	t.Cancel()
	gen := t.gen
	t.pending = t.clock.AfterFunc(d, func() {
		t.lock.Lock()
		defer t.lock.Unlock()
		if gen != t.gen {
			return
		}
		t.pending = nil
		fn()
	})
}

// StartCountdown decrements the countdown once per second. onTick sees each
// remaining value above zero; onZero runs once when it reaches zero.
func (t *Timer) StartCountdown(seconds int, onTick func(remaining int), onZero func()) {
	t.countdown = seconds
	if seconds <= 0 {
		t.countdown = 0
		t.schedule(0, onZero)
		return
	}
	var step func()
	step = func() {
		t.countdown--
		if t.countdown <= 0 {
			t.countdown = 0
			onZero()
			return
		}
		onTick(t.countdown)
		t.schedule(time.Second, step)
	}
	t.schedule(time.Second, step)
}

// Countdown is the number of whole seconds left before launch.
func (t *Timer) Countdown() int {
	return t.countdown
}

// StartFlightClock marks now as the flight start.
func (t *Timer) StartFlightClock() {
	t.flightStart = t.clock.Now()
}

// ElapsedFlightSeconds is the wall-clock time since StartFlightClock.
func (t *Timer) ElapsedFlightSeconds() float64 {
	if t.flightStart.IsZero() {
		return 0
	}
	return t.clock.Now().Sub(t.flightStart).Seconds()
}

// Every runs fn every d until fn returns false or the timer is rescheduled.
func (t *Timer) Every(d time.Duration, fn func() bool) {
	var step func()
	step = func() {
		if fn() {
			t.schedule(d, step)
		}
	}
	t.schedule(d, step)
}

// After runs fn once after d.
func (t *Timer) After(d time.Duration, fn func()) {
	t.schedule(d, fn)
}

// Now reads the timer's clock.
func (t *Timer) Now() time.Time {
	return t.clock.Now()
}
