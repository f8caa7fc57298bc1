// Package game wires the round machine to the bet ledger and publishes the
// combined state to observers.
package game

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/skyhigh-crash/gamemath"
	"github.com/Ashenafi-pixel/skyhigh-crash/games/crash"
	"github.com/Ashenafi-pixel/skyhigh-crash/ledger"
	"github.com/Ashenafi-pixel/skyhigh-crash/round"
)

// Bet events; round events reuse round.Kind.
const (
	KindBetPlaced = "bet_placed"
	KindCashedOut = "cashed_out"
	KindBetLost   = "bet_lost"
)

// Event is what subscribers see: the round snapshot at the moment of the
// event, the balance, and the bet riding the current round if any.
type Event struct {
	Type    string          `json:"type"`
	Round   round.Snapshot  `json:"round"`
	Bet     *ledger.Bet     `json:"bet,omitempty"`
	Balance decimal.Decimal `json:"balance"`
	At      time.Time       `json:"at"`
}

// Options configures a Session. Zero values pick defaults; a nil
// StartingBalance means ledger.DefaultStartingBalance, so zero is allowed.
type Options struct {
	StartingBalance *decimal.Decimal
	Clock           round.Clock
	Generator       *crash.Generator
	TickInterval    time.Duration
	HistoryLimit    int
	LedgerLimit     int
	Logger          *zap.Logger
}

// Session is one player's game: a round machine, a ledger and the event
// stream built from both. All state sits behind one mutex; events queued
// while it is held are delivered, in order, after it is released.
type Session struct {
	mu       sync.Mutex
	dispatch sync.Mutex

	clock   round.Clock
	machine *round.Machine
	ledger  *ledger.Ledger
	log     *zap.Logger
	queue   []Event

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
	dropped uint64
}

// sessionLock is handed to the round machine so timer callbacks flush the
// event queue on the way out, just like the exported methods.
type sessionLock struct{ s *Session }

func (l sessionLock) Lock()   { l.s.mu.Lock() }
func (l sessionLock) Unlock() { l.s.unlock() }

func NewSession(opts Options) *Session {
	balance := ledger.DefaultStartingBalance
	if opts.StartingBalance != nil {
		balance = *opts.StartingBalance
	}
	if opts.Clock == nil {
		opts.Clock = round.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Session{
		clock:  opts.Clock,
		ledger: ledger.New(balance, opts.LedgerLimit),
		log:    opts.Logger,
		subs:   make(map[int]chan Event),
	}
	s.machine = round.NewMachine(sessionLock{s}, round.Options{
		Clock:        opts.Clock,
		Generator:    opts.Generator,
		TickInterval: opts.TickInterval,
		HistoryLimit: opts.HistoryLimit,
		Listener:     round.ListenerFunc(s.onRound),
	})
	return s
}

func (s *Session) lock() { s.mu.Lock() }

// unlock releases the session and delivers whatever was queued while it
// was held. The dispatch mutex is taken first so a later holder cannot
// deliver ahead of us.
func (s *Session) unlock() {
	events := s.queue
	s.queue = nil
	if len(events) == 0 {
		s.mu.Unlock()
		return
	}
	s.dispatch.Lock()
	s.mu.Unlock()
	s.broadcast(events)
	s.dispatch.Unlock()
}

// onRound runs under the session lock on every machine transition.
func (s *Session) onRound(ev round.Event) {
	switch ev.Kind {
	case round.KindWaiting:
		s.ledger.ClearSettled()
		s.ledger.Attach(ev.Snapshot.RoundID)
		s.log.Debug("round waiting", zap.String("round_id", ev.Snapshot.RoundID), zap.Uint64("round", ev.Snapshot.Round))
	case round.KindLaunch:
		s.log.Debug("round launched", zap.String("round_id", ev.Snapshot.RoundID))
	case round.KindCrash:
		if bet, ok := s.ledger.Lose(ev.At); ok {
			s.log.Info("bet lost",
				zap.String("bet_id", bet.ID),
				zap.String("amount", bet.Amount.String()),
				zap.Float64("crash", ev.Snapshot.CurrentMultiplier))
		}
		s.log.Debug("round crashed", zap.String("round_id", ev.Snapshot.RoundID), zap.Float64("crash", ev.Snapshot.CurrentMultiplier))
	}
	s.enqueue(string(ev.Kind), ev.Snapshot, ev.At)
}

func (s *Session) enqueue(kind string, snap round.Snapshot, at time.Time) {
	ev := Event{Type: kind, Round: snap, Balance: s.ledger.Balance(), At: at}
	if bet, ok := s.ledger.Active(); ok && (bet.RoundID == "" || bet.RoundID == snap.RoundID) {
		ev.Bet = &bet
	}
	s.queue = append(s.queue, ev)
}

func (s *Session) broadcast(events []Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ev := range events {
		for _, ch := range s.subs {
			select {
			case ch <- ev:
			default:
				s.dropped++
			}
		}
	}
}

// Subscribe returns a channel of session events and a function that ends
// the subscription. Events are dropped for a subscriber whose buffer is
// full.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()
	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Dropped counts events not delivered to full subscriber buffers.
func (s *Session) Dropped() uint64 {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return s.dropped
}

// Start begins the round cycle. It is a no-op once started.
func (s *Session) Start() {
	s.lock()
	defer s.unlock()
	if s.machine.Status() == round.StatusIdle {
		s.log.Info("session started", zap.String("balance", s.ledger.Balance().String()))
	}
	s.machine.Start()
}

// Stop freezes the round cycle and closes every subscription.
func (s *Session) Stop() {
	s.lock()
	s.machine.Stop()
	s.unlock()

	s.subsMu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
	s.log.Info("session stopped")
}

// PlaceBet stakes amount on the next round. It only succeeds before launch
// (WAITING, or IDLE before the first round) with no other bet pending and
// enough balance; otherwise nothing changes and ok is false.
func (s *Session) PlaceBet(amount decimal.Decimal) (ledger.Bet, bool) {
	s.lock()
	defer s.unlock()
	st := s.machine.Status()
	if st != round.StatusWaiting && st != round.StatusIdle {
		return ledger.Bet{}, false
	}
	bet, ok := s.ledger.Place(amount, s.machine.RoundID(), s.clock.Now())
	if !ok {
		return ledger.Bet{}, false
	}
	s.log.Info("bet placed",
		zap.String("bet_id", bet.ID),
		zap.String("round_id", bet.RoundID),
		zap.String("amount", amount.String()))
	s.enqueue(KindBetPlaced, s.machine.Snapshot(), bet.PlacedAt)
	return bet, true
}

// CashOut settles the pending bet at the multiplier of this instant. If the
// round has already passed its crash point, the crash is applied first and
// the cash-out fails.
func (s *Session) CashOut() (ledger.Bet, bool) {
	s.lock()
	defer s.unlock()
	if !s.ledger.HasPending() {
		return ledger.Bet{}, false
	}
	m, ok := s.machine.LiveMultiplier()
	if !ok {
		return ledger.Bet{}, false
	}
	bet, ok := s.ledger.CashOut(m, s.clock.Now())
	if !ok {
		return ledger.Bet{}, false
	}
	s.log.Info("cashed out",
		zap.String("bet_id", bet.ID),
		zap.Float64("multiplier", m),
		zap.String("payout", bet.Payout.String()))
	s.enqueue(KindCashedOut, s.machine.Snapshot(), *bet.SettledAt)
	return bet, true
}

func (s *Session) Snapshot() round.Snapshot {
	s.lock()
	defer s.unlock()
	return s.machine.Snapshot()
}

func (s *Session) Balance() decimal.Decimal {
	s.lock()
	defer s.unlock()
	return s.ledger.Balance()
}

// ActiveBet is the bet in the active slot: pending, or settled in the
// current round.
func (s *Session) ActiveBet() (ledger.Bet, bool) {
	s.lock()
	defer s.unlock()
	return s.ledger.Active()
}

// History is the crash log, newest first.
func (s *Session) History() []round.Entry {
	s.lock()
	defer s.unlock()
	return s.machine.History()
}

// Bets is the settled-bet record, newest first.
func (s *Session) Bets() []ledger.Bet {
	s.lock()
	defer s.unlock()
	return s.ledger.Records()
}

func (s *Session) Stats() ledger.Stats {
	s.lock()
	defer s.unlock()
	return s.ledger.Stats()
}

func (s *Session) HistoryStats() round.HistoryStats {
	s.lock()
	defer s.unlock()
	return s.machine.HistoryStats()
}

// Model is the crash point model in use.
func (s *Session) Model() *gamemath.GameMath {
	return s.machine.Generator().Model()
}
