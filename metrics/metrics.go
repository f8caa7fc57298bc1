// Package metrics exports game counters to Prometheus.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ashenafi-pixel/skyhigh-crash/game"
	"github.com/Ashenafi-pixel/skyhigh-crash/ledger"
	"github.com/Ashenafi-pixel/skyhigh-crash/round"
)

// Collectors observed from the session event stream.
type Collectors struct {
	Rounds      prometheus.Counter
	BetsPlaced  prometheus.Counter
	BetsSettled *prometheus.CounterVec
	Payouts     prometheus.Counter
	Wagered     prometheus.Counter
	CrashPoints prometheus.Histogram
	Balance     prometheus.Gauge
	Status      *prometheus.GaugeVec
	WSClients   prometheus.Gauge
}

var statuses = []round.Status{round.StatusIdle, round.StatusWaiting, round.StatusFlying, round.StatusCrashed}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Rounds:      prometheus.NewCounter(prometheus.CounterOpts{Name: "crash_rounds_total", Help: "rounds that reached their crash point"}),
		BetsPlaced:  prometheus.NewCounter(prometheus.CounterOpts{Name: "crash_bets_placed_total", Help: "accepted bets"}),
		BetsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "crash_bets_settled_total", Help: "settled bets by outcome"}, []string{"outcome"}),
		Payouts:     prometheus.NewCounter(prometheus.CounterOpts{Name: "crash_payouts_total", Help: "sum of cash-out payouts"}),
		Wagered:     prometheus.NewCounter(prometheus.CounterOpts{Name: "crash_wagered_total", Help: "sum of stakes"}),
		CrashPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crash_point",
			Help:    "distribution of crash multipliers",
			Buckets: []float64{1.5, 2, 3, 4, 5, 10, 50, 100},
		}),
		Balance:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "crash_balance", Help: "player balance"}),
		Status:    prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "crash_round_status", Help: "1 for the current round status"}, []string{"status"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{Name: "crash_ws_clients", Help: "connected websocket clients"}),
	}
	reg.MustRegister(c.Rounds, c.BetsPlaced, c.BetsSettled, c.Payouts, c.Wagered, c.CrashPoints, c.Balance, c.Status, c.WSClients)
	return c
}

// Observe updates the collectors from one session event.
func (c *Collectors) Observe(ev game.Event) {
	c.Balance.Set(ev.Balance.InexactFloat64())
	for _, st := range statuses {
		v := 0.0
		if st == ev.Round.Status {
			v = 1
		}
		c.Status.WithLabelValues(string(st)).Set(v)
	}

	switch ev.Type {
	case game.KindBetPlaced:
		c.BetsPlaced.Inc()
		if ev.Bet != nil {
			c.Wagered.Add(ev.Bet.Amount.InexactFloat64())
		}
	case game.KindCashedOut:
		c.BetsSettled.WithLabelValues(round.OutcomeWin).Inc()
		if ev.Bet != nil {
			c.Payouts.Add(ev.Bet.Payout.InexactFloat64())
		}
	case string(round.KindCrash):
		c.Rounds.Inc()
		c.CrashPoints.Observe(ev.Round.CurrentMultiplier)
		if ev.Bet != nil && ev.Bet.Status == ledger.StatusLost {
			c.BetsSettled.WithLabelValues(round.OutcomeLose).Inc()
		}
	}
}

// Run observes events until ctx is done or events is closed.
func (c *Collectors) Run(ctx context.Context, events <-chan game.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.Observe(ev)
		}
	}
}
