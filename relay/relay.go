// Package relay forwards settled-round and bet events to external brokers.
package relay

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/skyhigh-crash/game"
	"github.com/Ashenafi-pixel/skyhigh-crash/round"
)

// Publisher sends one encoded event. key groups events of the same round.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
	Close() error
}

// Relay fans events out to every publisher. Failures are logged and never
// reach the game.
type Relay struct {
	pubs    []Publisher
	log     *zap.Logger
	timeout time.Duration
}

func New(log *zap.Logger, pubs ...Publisher) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{pubs: pubs, log: log, timeout: 500 * time.Millisecond}
}

// Forwarded reports whether an event type leaves the process. Ticks and
// countdown steps stay local.
func Forwarded(kind string) bool {
	switch kind {
	case string(round.KindTick), string(round.KindCountdown):
		return false
	}
	return true
}

// Send publishes ev to every publisher.
func (r *Relay) Send(ctx context.Context, ev game.Event) {
	if !Forwarded(ev.Type) || len(r.pubs) == 0 {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		r.log.Warn("relay encode failed", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	for _, p := range r.pubs {
		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		if err := p.Publish(pctx, ev.Round.RoundID, b); err != nil {
			r.log.Warn("relay publish failed", zap.String("type", ev.Type), zap.Error(err))
		}
		cancel()
	}
}

// Run relays events until ctx is done or events is closed.
func (r *Relay) Run(ctx context.Context, events <-chan game.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Send(ctx, ev)
		}
	}
}

// Close closes every publisher.
func (r *Relay) Close() error {
	var first error
	for _, p := range r.pubs {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
