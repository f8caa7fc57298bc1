package ledger

import "github.com/shopspring/decimal"

// Stats accumulates over every settled bet of the session, not just the
// ones still in the record.
type Stats struct {
	Bets          int             `json:"bets"`
	Wins          int             `json:"wins"`
	Losses        int             `json:"losses"`
	Wagered       decimal.Decimal `json:"wagered"`
	Profit        decimal.Decimal `json:"profit"`
	WinStreak     int             `json:"winStreak"`
	LossStreak    int             `json:"lossStreak"`
	BestWinStreak int             `json:"bestWinStreak"`
	WorstLossRun  int             `json:"worstLossRun"`
	BestCashout   float64         `json:"bestCashout"`
	BiggestWin    decimal.Decimal `json:"biggestWin"`
}

// WinRate is wins over settled bets, 0 when nothing settled.
func (s Stats) WinRate() float64 {
	if s.Bets == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Bets)
}

func (s *Stats) add(b Bet) {
	s.Bets++
	s.Wagered = s.Wagered.Add(b.Amount)
	profit := b.Profit()
	s.Profit = s.Profit.Add(profit)

	switch b.Status {
	case StatusWon:
		s.Wins++
		s.WinStreak++
		s.LossStreak = 0
		if s.WinStreak > s.BestWinStreak {
			s.BestWinStreak = s.WinStreak
		}
		if b.MultiplierAtCashout != nil && *b.MultiplierAtCashout > s.BestCashout {
			s.BestCashout = *b.MultiplierAtCashout
		}
		if profit.GreaterThan(s.BiggestWin) {
			s.BiggestWin = profit
		}
	case StatusLost:
		s.Losses++
		s.LossStreak++
		s.WinStreak = 0
		if s.LossStreak > s.WorstLossRun {
			s.WorstLossRun = s.LossStreak
		}
	}
}
