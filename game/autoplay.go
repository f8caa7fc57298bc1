package game

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/skyhigh-crash/ledger"
	"github.com/Ashenafi-pixel/skyhigh-crash/round"
)

// Auto-play limits and defaults.
const (
	MinAutoCashout     = 1.01
	DefaultAutoCashout = 2.00
)

var DefaultAutoStake = decimal.NewFromInt(10)

// AutoSettings are the player's auto-play policies.
type AutoSettings struct {
	AutoCashout bool            `json:"autoCashout"`
	CashoutAt   float64         `json:"cashoutAt"`
	AutoBet     bool            `json:"autoBet"`
	Stake       decimal.Decimal `json:"stake"`
}

func DefaultAutoSettings() AutoSettings {
	return AutoSettings{CashoutAt: DefaultAutoCashout, Stake: DefaultAutoStake}
}

var (
	ErrCashoutTarget = errors.New("auto cash-out target must be at least 1.01")
	ErrStake         = errors.New("auto-bet stake must be positive")
)

func (a AutoSettings) Validate() error {
	if a.CashoutAt < MinAutoCashout {
		return ErrCashoutTarget
	}
	if !a.Stake.IsPositive() {
		return ErrStake
	}
	return nil
}

// AutoPlay places a bet at the start of every round and cashes out at a
// target multiplier, driven by the session's own events.
type AutoPlay struct {
	session *Session
	log     *zap.Logger

	mu       sync.Mutex
	settings AutoSettings
}

func NewAutoPlay(s *Session, log *zap.Logger) *AutoPlay {
	if log == nil {
		log = zap.NewNop()
	}
	return &AutoPlay{session: s, log: log, settings: DefaultAutoSettings()}
}

// Configure replaces the settings after validating them. Turning auto-bet on
// while the round is WAITING bets into that round straight away.
func (a *AutoPlay) Configure(st AutoSettings) (AutoSettings, error) {
	if err := st.Validate(); err != nil {
		return a.Settings(), err
	}
	a.mu.Lock()
	a.settings = st
	a.mu.Unlock()
	a.log.Info("auto-play configured",
		zap.Bool("auto_cashout", st.AutoCashout),
		zap.Float64("cashout_at", st.CashoutAt),
		zap.Bool("auto_bet", st.AutoBet),
		zap.String("stake", st.Stake.String()))

	if st.AutoBet {
		snap := a.session.Snapshot()
		bet, ok := a.session.ActiveBet()
		if snap.Status == round.StatusWaiting && !(ok && bet.Status == ledger.StatusPending) {
			a.autoBet(st.Stake, a.session.Balance(), snap.RoundID)
		}
	}
	return a.Settings(), nil
}

func (a *AutoPlay) Settings() AutoSettings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// Run consumes session events until ctx is done or the session stops.
func (a *AutoPlay) Run(ctx context.Context) {
	events, cancel := a.session.Subscribe(256)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.handle(ev)
		}
	}
}

func (a *AutoPlay) handle(ev Event) {
	st := a.Settings()
	switch ev.Type {
	case string(round.KindWaiting):
		if !st.AutoBet || (ev.Bet != nil && ev.Bet.Status == ledger.StatusPending) {
			return
		}
		a.autoBet(st.Stake, ev.Balance, ev.Round.RoundID)
	case string(round.KindTick):
		if !st.AutoCashout || ev.Bet == nil || ev.Bet.Status != ledger.StatusPending {
			return
		}
		if ev.Round.CurrentMultiplier >= st.CashoutAt {
			a.session.CashOut()
		}
	}
}

func (a *AutoPlay) autoBet(stake, balance decimal.Decimal, roundID string) {
	if balance.LessThan(stake) {
		a.disableAutoBet()
		return
	}
	if _, ok := a.session.PlaceBet(stake); !ok {
		a.log.Debug("auto-bet declined", zap.String("round_id", roundID))
	}
}

func (a *AutoPlay) disableAutoBet() {
	a.mu.Lock()
	a.settings.AutoBet = false
	a.mu.Unlock()
	a.log.Info("auto-bet disabled: balance below stake")
}
