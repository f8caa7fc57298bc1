// Package ledger holds the player's balance, the single active bet and the
// bounded record of settled bets.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of a bet.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusWon     Status = "WON"
	StatusLost    Status = "LOST"
)

// DefaultLimit is how many settled bets the ledger keeps.
const DefaultLimit = 50

// DefaultStartingBalance is the balance of a fresh session.
var DefaultStartingBalance = decimal.NewFromInt(1000)

// Bet is one wager. It moves PENDING -> WON on cash-out or PENDING -> LOST on
// crash and never leaves a terminal status.
type Bet struct {
	ID                  string          `json:"id"`
	RoundID             string          `json:"roundId"`
	Amount              decimal.Decimal `json:"amount"`
	Status              Status          `json:"status"`
	IsCashedOut         bool            `json:"isCashedOut"`
	MultiplierAtCashout *float64        `json:"multiplierAtCashout,omitempty"`
	Payout              decimal.Decimal `json:"payout"`
	PlacedAt            time.Time       `json:"placedAt"`
	SettledAt           *time.Time      `json:"settledAt,omitempty"`
}

func (b Bet) Terminal() bool { return b.Status == StatusWon || b.Status == StatusLost }

// Profit is payout minus stake for a won bet, minus the stake for a lost
// one, and zero while pending.
func (b Bet) Profit() decimal.Decimal {
	switch b.Status {
	case StatusWon:
		return b.Payout.Sub(b.Amount)
	case StatusLost:
		return b.Amount.Neg()
	default:
		return decimal.Zero
	}
}

func (b Bet) clone() Bet {
	if b.MultiplierAtCashout != nil {
		m := *b.MultiplierAtCashout
		b.MultiplierAtCashout = &m
	}
	if b.SettledAt != nil {
		at := *b.SettledAt
		b.SettledAt = &at
	}
	return b
}

// Ledger is not safe for concurrent use; the owning session serialises
// access to it.
type Ledger struct {
	balance decimal.Decimal
	active  *Bet
	records []Bet
	limit   int
	stats   Stats
}

func New(startingBalance decimal.Decimal, limit int) *Ledger {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Ledger{balance: startingBalance, limit: limit}
}

// Place debits amount and opens a PENDING bet. It declines when the amount
// is not positive, exceeds the balance, or another bet is still pending.
// Phase checks belong to the caller.
func (l *Ledger) Place(amount decimal.Decimal, roundID string, at time.Time) (Bet, bool) {
	if !amount.IsPositive() || amount.GreaterThan(l.balance) {
		return Bet{}, false
	}
	if l.active != nil && !l.active.Terminal() {
		return Bet{}, false
	}
	l.balance = l.balance.Sub(amount)
	l.active = &Bet{
		ID:       uuid.NewString(),
		RoundID:  roundID,
		Amount:   amount,
		Status:   StatusPending,
		Payout:   decimal.Zero,
		PlacedAt: at,
	}
	return l.active.clone(), true
}

// Attach binds a pending bet placed between rounds to roundID.
func (l *Ledger) Attach(roundID string) {
	if l.active != nil && l.active.Status == StatusPending && l.active.RoundID == "" {
		l.active.RoundID = roundID
	}
}

// CashOut settles the pending bet as WON at multiplier, crediting exactly
// amount*multiplier. Rounding is left to whoever displays it.
func (l *Ledger) CashOut(multiplier float64, at time.Time) (Bet, bool) {
	if l.active == nil || l.active.Status != StatusPending || l.active.IsCashedOut {
		return Bet{}, false
	}
	b := l.active
	m := multiplier
	b.Payout = b.Amount.Mul(decimal.NewFromFloat(multiplier))
	b.Status = StatusWon
	b.IsCashedOut = true
	b.MultiplierAtCashout = &m
	b.SettledAt = &at
	l.balance = l.balance.Add(b.Payout)
	l.settle(*b)
	return b.clone(), true
}

// Lose settles the pending bet as LOST. The stake was already debited.
func (l *Ledger) Lose(at time.Time) (Bet, bool) {
	if l.active == nil || l.active.Status != StatusPending {
		return Bet{}, false
	}
	b := l.active
	b.Status = StatusLost
	b.SettledAt = &at
	l.settle(*b)
	return b.clone(), true
}

func (l *Ledger) settle(b Bet) {
	l.records = append([]Bet{b.clone()}, l.records...)
	if len(l.records) > l.limit {
		l.records = l.records[:l.limit]
	}
	l.stats.add(b)
}

// ClearSettled empties the active slot if its bet is terminal. A pending
// bet stays.
func (l *Ledger) ClearSettled() {
	if l.active != nil && l.active.Terminal() {
		l.active = nil
	}
}

func (l *Ledger) Balance() decimal.Decimal { return l.balance }

// Active returns the bet in the active slot, pending or just settled.
func (l *Ledger) Active() (Bet, bool) {
	if l.active == nil {
		return Bet{}, false
	}
	return l.active.clone(), true
}

// HasPending reports whether a bet is waiting on the current round.
func (l *Ledger) HasPending() bool {
	return l.active != nil && l.active.Status == StatusPending
}

// Records returns settled bets, newest first.
func (l *Ledger) Records() []Bet {
	out := make([]Bet, len(l.records))
	for i, b := range l.records {
		out[i] = b.clone()
	}
	return out
}

func (l *Ledger) Stats() Stats { return l.stats }
