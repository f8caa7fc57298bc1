package gamemath

import (
	"fmt"
	"math"
)

// Tier shapes supported by Tier.Value.
const (
	ShapeUniform  = "uniform"
	ShapeLongTail = "long_tail"
)

// GameMath is the stored crash distribution payload (schema_version 1).
type GameMath struct {
	SchemaVersion int     `json:"schema_version"`
	ModelID       string  `json:"model_id"`
	ModelVersion  string  `json:"model_version"`
	MaxMultiplier float64 `json:"max_multiplier"`
	Tiers         []Tier  `json:"tiers"`
}

// Tier is one probability band of the crash distribution.
//
// uniform:   Base + v*Span
// long_tail: Base + Span/(1 - v*Tail)
type Tier struct {
	Tier   string  `json:"tier"`
	Weight int64   `json:"weight"`
	Shape  string  `json:"shape"`
	Base   float64 `json:"base"`
	Span   float64 `json:"span"`
	Tail   float64 `json:"tail,omitempty"`
}

// DefaultModelID names the tiered crash model shipped with the server.
const DefaultModelID = "crash_tiered"

// Default returns the 15/65/20 high/medium/low crash model.
// Tier order matters: PickTier walks the table top to bottom.
func Default() *GameMath {
	return &GameMath{
		SchemaVersion: 1,
		ModelID:       DefaultModelID,
		ModelVersion:  "1.0",
		MaxMultiplier: 1000,
		Tiers: []Tier{
			{Tier: "high", Weight: 15, Shape: ShapeLongTail, Base: 3.0, Span: 1.5, Tail: 0.98},
			{Tier: "medium", Weight: 65, Shape: ShapeUniform, Base: 2.0, Span: 1.0},
			{Tier: "low", Weight: 20, Shape: ShapeUniform, Base: 1.0, Span: 1.0},
		},
	}
}

// Validate reports whether the model can be drawn from.
func (g *GameMath) Validate() error {
	if g == nil {
		return fmt.Errorf("game math is nil")
	}
	if g.ModelID == "" {
		return fmt.Errorf("model_id required")
	}
	if g.MaxMultiplier < 1 {
		return fmt.Errorf("max_multiplier must be >= 1, got %v", g.MaxMultiplier)
	}
	var total int64
	for _, t := range g.Tiers {
		if t.Weight < 0 {
			return fmt.Errorf("tier %q: negative weight", t.Tier)
		}
		if t.Base < 1 {
			return fmt.Errorf("tier %q: base must be >= 1", t.Tier)
		}
		switch t.Shape {
		case ShapeUniform:
		case ShapeLongTail:
			if t.Tail < 0 || t.Tail >= 1 {
				return fmt.Errorf("tier %q: tail must be in [0,1)", t.Tier)
			}
		default:
			return fmt.Errorf("tier %q: unknown shape %q", t.Tier, t.Shape)
		}
		total += t.Weight
	}
	if total <= 0 {
		return fmt.Errorf("tiers have no positive weight")
	}
	return nil
}

// PickTier selects a tier by weight from a uniform draw u in [0,1).
// Returns the chosen Tier and true, or zero value and false if the table is empty/invalid.
func (g *GameMath) PickTier(u float64) (Tier, bool) {
	if g == nil || len(g.Tiers) == 0 {
		return Tier{}, false
	}
	var total int64
	for _, t := range g.Tiers {
		if t.Weight <= 0 {
			continue
		}
		total += t.Weight
	}
	if total <= 0 {
		return Tier{}, false
	}
	var cum int64
	last := -1
	for i := range g.Tiers {
		t := &g.Tiers[i]
		if t.Weight <= 0 {
			continue
		}
		cum += t.Weight
		last = i
		if u < float64(cum)/float64(total) {
			return *t, true
		}
	}
	return g.Tiers[last], true
}

// Value maps a second uniform draw v in [0,1) onto the tier's multiplier range.
func (t Tier) Value(v float64) float64 {
	switch t.Shape {
	case ShapeLongTail:
		return t.Base + (1/(1-v*t.Tail))*t.Span
	default:
		return t.Base + v*t.Span
	}
}

// Clamp bounds x to [1, MaxMultiplier].
func (g *GameMath) Clamp(x float64) float64 {
	return math.Max(1, math.Min(x, g.MaxMultiplier))
}

// Probability returns the share of rounds drawn from the named tier.
func (g *GameMath) Probability(tier string) float64 {
	var total, w int64
	for _, t := range g.Tiers {
		if t.Weight <= 0 {
			continue
		}
		total += t.Weight
		if t.Tier == tier {
			w += t.Weight
		}
	}
	if total == 0 {
		return 0
	}
	return float64(w) / float64(total)
}
