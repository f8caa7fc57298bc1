package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPlace_Debits(t *testing.T) {
	l := New(DefaultStartingBalance, 0)
	b, ok := l.Place(d("100"), "r1", t0)
	if !ok {
		t.Fatal("Place rejected a valid bet")
	}
	if b.Status != StatusPending || b.IsCashedOut || b.MultiplierAtCashout != nil || b.ID == "" || b.RoundID != "r1" {
		t.Fatalf("bet = %+v", b)
	}
	if !l.Balance().Equal(d("900")) {
		t.Fatalf("balance = %s want 900", l.Balance())
	}
}

func TestPlace_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		amount string
	}{
		{"zero", "0"},
		{"negative", "-5"},
		{"above balance", "1000.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(DefaultStartingBalance, 0)
			if _, ok := l.Place(d(tt.amount), "r", t0); ok {
				t.Fatal("expected rejection")
			}
			if !l.Balance().Equal(DefaultStartingBalance) {
				t.Fatalf("balance changed to %s", l.Balance())
			}
			if _, ok := l.Active(); ok {
				t.Fatal("rejected bet occupies the slot")
			}
		})
	}
}

func TestPlace_WholeBalance(t *testing.T) {
	l := New(d("50"), 0)
	if _, ok := l.Place(d("50"), "r", t0); !ok {
		t.Fatal("betting the whole balance should be allowed")
	}
	if !l.Balance().IsZero() {
		t.Fatalf("balance = %s", l.Balance())
	}
}

func TestPlace_SingleActiveBet(t *testing.T) {
	l := New(DefaultStartingBalance, 0)
	first, _ := l.Place(d("100"), "r1", t0)
	if _, ok := l.Place(d("50"), "r1", t0); ok {
		t.Fatal("second bet accepted while one is pending")
	}
	if !l.Balance().Equal(d("900")) {
		t.Fatalf("balance = %s want 900", l.Balance())
	}
	got, _ := l.Active()
	if got.ID != first.ID {
		t.Fatal("active bet replaced")
	}
}

func TestCashOut_CreditsExactProduct(t *testing.T) {
	l := New(DefaultStartingBalance, 0)
	l.Place(d("100"), "r1", t0)
	m := math.Pow(1.08, 10)
	b, ok := l.CashOut(m, t0.Add(7*time.Second))
	if !ok {
		t.Fatal("CashOut rejected")
	}
	if b.Status != StatusWon || !b.IsCashedOut || b.MultiplierAtCashout == nil || *b.MultiplierAtCashout != m {
		t.Fatalf("bet = %+v", b)
	}
	payout := d("100").Mul(decimal.NewFromFloat(m))
	if !b.Payout.Equal(payout) {
		t.Errorf("payout = %s want %s", b.Payout, payout)
	}
	want := d("900").Add(payout)
	if !l.Balance().Equal(want) {
		t.Errorf("balance = %s want %s", l.Balance(), want)
	}
	if got := l.Balance().Round(2); !got.Equal(d("1115.89")) {
		t.Errorf("displayed balance = %s want 1115.89", got)
	}
	if !b.Profit().Equal(payout.Sub(d("100"))) {
		t.Errorf("profit = %s", b.Profit())
	}
	if _, ok := l.CashOut(3, t0); ok {
		t.Fatal("second cash-out accepted")
	}
	if !l.Balance().Equal(want) {
		t.Fatal("second cash-out moved the balance")
	}
}

func TestCashOut_KeepsSubCentPayout(t *testing.T) {
	l := New(DefaultStartingBalance, 0)
	l.Place(d("100"), "r1", t0)
	if _, ok := l.CashOut(2.158925, t0); !ok {
		t.Fatal("CashOut rejected")
	}
	if !l.Balance().Equal(d("1115.8925")) {
		t.Fatalf("balance = %s want 1115.8925", l.Balance())
	}
}

func TestCashOut_NoBet(t *testing.T) {
	l := New(DefaultStartingBalance, 0)
	if _, ok := l.CashOut(2, t0); ok {
		t.Fatal("cash-out with no bet accepted")
	}
}

func TestLose(t *testing.T) {
	l := New(DefaultStartingBalance, 0)
	l.Place(d("100"), "r1", t0)
	b, ok := l.Lose(t0.Add(time.Second))
	if !ok || b.Status != StatusLost || b.IsCashedOut {
		t.Fatalf("Lose = %+v, %v", b, ok)
	}
	if !l.Balance().Equal(d("900")) {
		t.Fatalf("balance = %s want 900", l.Balance())
	}
	if !b.Profit().Equal(d("-100")) {
		t.Errorf("profit = %s want -100", b.Profit())
	}
	// terminal bets never flip
	if _, ok := l.CashOut(5, t0); ok {
		t.Fatal("lost bet cashed out")
	}
	if _, ok := l.Lose(t0); ok {
		t.Fatal("lost bet lost twice")
	}
	if n := len(l.Records()); n != 1 {
		t.Fatalf("records = %d want 1", n)
	}
}

func TestWonBetNeverLoses(t *testing.T) {
	l := New(DefaultStartingBalance, 0)
	l.Place(d("10"), "r1", t0)
	l.CashOut(1.5, t0)
	if _, ok := l.Lose(t0); ok {
		t.Fatal("won bet marked lost")
	}
	b, _ := l.Active()
	if b.Status != StatusWon {
		t.Fatalf("status = %s", b.Status)
	}
}

func TestClearSettledAndAttach(t *testing.T) {
	l := New(DefaultStartingBalance, 0)
	l.Place(d("10"), "", t0)
	l.ClearSettled()
	if !l.HasPending() {
		t.Fatal("ClearSettled dropped a pending bet")
	}
	l.Attach("r7")
	b, _ := l.Active()
	if b.RoundID != "r7" {
		t.Fatalf("round id = %q want r7", b.RoundID)
	}
	l.Attach("r8")
	if b, _ := l.Active(); b.RoundID != "r7" {
		t.Fatal("Attach rebound an attached bet")
	}

	l.Lose(t0)
	l.ClearSettled()
	if _, ok := l.Active(); ok {
		t.Fatal("settled bet still active after ClearSettled")
	}
}

func TestRecords_CappedNewestFirst(t *testing.T) {
	l := New(d("100000"), 0)
	var ids []string
	for i := 0; i < 55; i++ {
		b, ok := l.Place(d("1"), "r", t0)
		if !ok {
			t.Fatalf("bet %d rejected", i)
		}
		ids = append(ids, b.ID)
		l.Lose(t0)
		l.ClearSettled()
	}
	recs := l.Records()
	if len(recs) != DefaultLimit {
		t.Fatalf("records = %d want %d", len(recs), DefaultLimit)
	}
	if recs[0].ID != ids[54] || recs[len(recs)-1].ID != ids[5] {
		t.Fatal("records not newest-first with oldest evicted")
	}
}

func TestRecords_AreCopies(t *testing.T) {
	l := New(DefaultStartingBalance, 0)
	l.Place(d("10"), "r", t0)
	l.CashOut(2, t0)
	recs := l.Records()
	*recs[0].MultiplierAtCashout = 99
	if *l.Records()[0].MultiplierAtCashout != 2 {
		t.Fatal("Records exposed internal storage")
	}
}

func TestStats(t *testing.T) {
	l := New(DefaultStartingBalance, 0)
	play := func(stake string, cashout float64) {
		l.Place(d(stake), "r", t0)
		if cashout > 0 {
			l.CashOut(cashout, t0)
		} else {
			l.Lose(t0)
		}
		l.ClearSettled()
	}
	play("10", 2)
	play("10", 3)
	play("10", 0)
	play("10", 0)
	play("10", 0)
	play("20", 1.5)

	st := l.Stats()
	if st.Bets != 6 || st.Wins != 3 || st.Losses != 3 {
		t.Fatalf("counts = %+v", st)
	}
	if !st.Wagered.Equal(d("70")) {
		t.Errorf("wagered = %s", st.Wagered)
	}
	// +10 +20 -10 -10 -10 +10
	if !st.Profit.Equal(d("10")) {
		t.Errorf("profit = %s want 10", st.Profit)
	}
	if st.BestWinStreak != 2 || st.WorstLossRun != 3 || st.WinStreak != 1 || st.LossStreak != 0 {
		t.Errorf("streaks = %+v", st)
	}
	if st.BestCashout != 3 || !st.BiggestWin.Equal(d("20")) {
		t.Errorf("best = %v biggest = %s", st.BestCashout, st.BiggestWin)
	}
	if st.WinRate() != 0.5 {
		t.Errorf("win rate = %v", st.WinRate())
	}
	if !l.Balance().Equal(d("1010")) {
		t.Errorf("balance = %s want 1010", l.Balance())
	}
}
