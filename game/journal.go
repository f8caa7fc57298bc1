package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/skyhigh-crash/ledger"
	"github.com/Ashenafi-pixel/skyhigh-crash/round"
)

// ResultFor turns a crash event into a journal row.
func ResultFor(ev Event) round.Result {
	r := round.Result{
		RoundID:    ev.Round.RoundID,
		Round:      ev.Round.Round,
		CrashPoint: ev.Round.CurrentMultiplier,
		Outcome:    round.OutcomeNone,
		SettledAt:  ev.At,
	}
	if ev.Bet == nil || !ev.Bet.Terminal() {
		return r
	}
	r.BetID = ev.Bet.ID
	r.Amount = ev.Bet.Amount.InexactFloat64()
	r.BalanceDelta = ev.Bet.Profit().InexactFloat64()
	if ev.Bet.Status == ledger.StatusWon {
		r.Outcome = round.OutcomeWin
		if ev.Bet.MultiplierAtCashout != nil {
			r.CashoutMultiplier = *ev.Bet.MultiplierAtCashout
		}
	} else {
		r.Outcome = round.OutcomeLose
	}
	return r
}

// RecordRounds appends one result per crash event to j until ctx is done
// or events is closed.
func RecordRounds(ctx context.Context, events <-chan Event, j round.Journal, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != string(round.KindCrash) {
				continue
			}
			wctx, done := context.WithTimeout(ctx, 2*time.Second)
			if err := j.Append(wctx, ResultFor(ev)); err != nil {
				log.Warn("journal append failed", zap.String("round_id", ev.Round.RoundID), zap.Error(err))
			}
			done()
		}
	}
}
