package round

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ashenafi-pixel/skyhigh-crash/games/crash"
)

// Status is the phase of the current round.
type Status string

const (
	StatusIdle    Status = "IDLE"
	StatusWaiting Status = "WAITING"
	StatusFlying  Status = "FLYING"
	StatusCrashed Status = "CRASHED"
)

// Fixed round timing.
const (
	CountdownSeconds    = 5
	GraceWindow         = 3 * time.Second
	DefaultTickInterval = 50 * time.Millisecond
)

// Kind names a round transition or tick.
type Kind string

const (
	KindWaiting   Kind = "waiting"
	KindCountdown Kind = "countdown"
	KindLaunch    Kind = "launch"
	KindTick      Kind = "tick"
	KindCrash     Kind = "crash"
)

// Snapshot is the published, read-only view of the round. The crash point
// only appears here, as LastCrashMultiplier, once the round has crashed.
type Snapshot struct {
	RoundID             string   `json:"roundId"`
	Round               uint64   `json:"round"`
	Status              Status   `json:"status"`
	CurrentMultiplier   float64  `json:"currentMultiplier"`
	CountdownSeconds    int      `json:"countdownSeconds"`
	LastCrashMultiplier *float64 `json:"lastCrashMultiplier"`
}

// Event is emitted on every transition and flight tick.
type Event struct {
	Kind     Kind      `json:"kind"`
	Snapshot Snapshot  `json:"snapshot"`
	At       time.Time `json:"at"`
}

// Listener observes transitions. It is called with the machine's lock held
// and must not call back into the machine.
type Listener interface {
	OnRound(ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev Event)

func (f ListenerFunc) OnRound(ev Event) { f(ev) }

// Machine runs the IDLE → WAITING → FLYING → CRASHED → WAITING cycle.
//
// Machine is not safe for concurrent use by itself. The owner passes the
// lock that guards it; timer callbacks acquire that lock, and every exported
// method must be called with it held.
type Machine struct {
	timer     *Timer
	generator *crash.Generator
	history   *History
	listener  Listener
	tick      time.Duration

	status     Status
	roundID    string
	seq        uint64
	crashPoint float64
	multiplier float64
	lastCrash  float64
	hasCrashed bool
}

// Options configures a Machine. Zero values pick defaults.
type Options struct {
	Clock        Clock
	Generator    *crash.Generator
	TickInterval time.Duration
	HistoryLimit int
	Listener     Listener
}

func NewMachine(lock sync.Locker, opts Options) *Machine {
	if opts.Generator == nil {
		opts.Generator = crash.NewGenerator(nil, nil)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Listener == nil {
		opts.Listener = ListenerFunc(func(Event) {})
	}
	return &Machine{
		timer:      NewTimer(opts.Clock, lock),
		generator:  opts.Generator,
		history:    NewHistory(opts.HistoryLimit),
		listener:   opts.Listener,
		tick:       opts.TickInterval,
		status:     StatusIdle,
		multiplier: 1.0,
	}
}

// Start leaves IDLE. Calling it in any other state does nothing.
func (m *Machine) Start() {
	if m.status != StatusIdle {
		return
	}
	m.enterWaiting()
}

// Stop cancels the pending timer; the round freezes where it is.
func (m *Machine) Stop() {
	m.timer.Cancel()
}

func (m *Machine) enterWaiting() {
	m.seq++
	m.roundID = uuid.NewString()
	m.status = StatusWaiting
	m.multiplier = 1.0
	m.crashPoint = 0
	m.timer.StartCountdown(CountdownSeconds, func(int) {
		m.notify(KindCountdown)
	}, m.launch)
	m.notify(KindWaiting)
}

func (m *Machine) launch() {
	m.crashPoint = m.generator.Generate()
	m.status = StatusFlying
	m.multiplier = 1.0
	m.timer.StartFlightClock()
	m.notify(KindLaunch)
	m.timer.Every(m.tick, m.sample)
}

// sample publishes the curve value for the current instant, or crashes the
// round once the curve has reached the crash point.
func (m *Machine) sample() bool {
	if !m.advance() {
		return false
	}
	m.notify(KindTick)
	return true
}

// advance moves the multiplier to the curve value for now. It returns false
// when that value reaches the crash point, in which case the round is
// crashed before returning.
func (m *Machine) advance() bool {
	v := crash.Multiplier(m.timer.ElapsedFlightSeconds())
	if v >= m.crashPoint {
		m.crash()
		return false
	}
	if v > m.multiplier {
		m.multiplier = v
	}
	return true
}

func (m *Machine) crash() {
	m.timer.Cancel()
	m.status = StatusCrashed
	m.multiplier = m.crashPoint
	m.lastCrash = m.crashPoint
	m.hasCrashed = true
	m.history.Record(m.roundID, m.crashPoint, m.timer.Now())
	m.notify(KindCrash)
	m.timer.After(GraceWindow, m.enterWaiting)
}

// LiveMultiplier evaluates the curve at this instant for a cash-out. The
// second result is false when the round is not flying, or when this instant
// is already past the crash point (the round is crashed as a side effect).
func (m *Machine) LiveMultiplier() (float64, bool) {
	if m.status != StatusFlying {
		return 0, false
	}
	if !m.advance() {
		return 0, false
	}
	return m.multiplier, true
}

func (m *Machine) notify(kind Kind) {
	m.listener.OnRound(Event{Kind: kind, Snapshot: m.Snapshot(), At: m.timer.Now()})
}

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		RoundID:           m.roundID,
		Round:             m.seq,
		Status:            m.status,
		CurrentMultiplier: m.multiplier,
	}
	if m.status == StatusWaiting {
		s.CountdownSeconds = m.timer.Countdown()
	}
	if m.hasCrashed {
		last := m.lastCrash
		s.LastCrashMultiplier = &last
	}
	return s
}

func (m *Machine) Status() Status { return m.status }

func (m *Machine) RoundID() string { return m.roundID }

// History returns the crash log, newest first.
func (m *Machine) History() []Entry { return m.history.Entries() }

func (m *Machine) HistoryStats() HistoryStats { return m.history.Stats() }

// Generator exposes the crash point source.
func (m *Machine) Generator() *crash.Generator { return m.generator }
