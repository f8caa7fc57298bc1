package crash

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/Ashenafi-pixel/skyhigh-crash/gamemath"
)

// Growth base and speed of the flight curve: 1.08^(seconds*5).
const (
	GrowthBase  = 1.08
	GrowthSpeed = 5.0
)

// Multiplier returns the flight multiplier after elapsed seconds.
// Pure in its input, so repeated samples of the same instant agree.
func Multiplier(elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 1.0
	}
	return math.Pow(GrowthBase, elapsedSeconds*GrowthSpeed)
}

// MultiplierAt is Multiplier for a time.Duration.
func MultiplierAt(elapsed time.Duration) float64 {
	return Multiplier(elapsed.Seconds())
}

// Source is a uniform [0,1) random source. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Generator draws one crash point per round from a tiered model.
type Generator struct {
	math *gamemath.GameMath
	src  Source
}

// NewGenerator returns a generator over model m. A nil m uses the default
// tiers; a nil src uses the process-wide PRNG.
func NewGenerator(m *gamemath.GameMath, src Source) *Generator {
	if m == nil {
		m = gamemath.Default()
	}
	if src == nil {
		src = globalSource{}
	}
	return &Generator{math: m, src: src}
}

// Draw is one generated crash point and the tier it came from.
type Draw struct {
	Tier       string
	CrashPoint float64
}

// Generate returns a fresh crash point in [1, MaxMultiplier].
func (g *Generator) Generate() float64 {
	return g.Draw().CrashPoint
}

// Draw picks a tier with one draw and a value inside it with a second.
func (g *Generator) Draw() Draw {
	tier, ok := g.math.PickTier(g.src.Float64())
	if !ok {
		return Draw{CrashPoint: 1.0}
	}
	return Draw{
		Tier:       tier.Tier,
		CrashPoint: g.math.Clamp(tier.Value(g.src.Float64())),
	}
}

// Model returns the tier model the generator draws from.
func (g *Generator) Model() *gamemath.GameMath {
	return g.math
}

// Display bands used by the history strip.
const (
	BandLow  = "low"
	BandMid  = "mid"
	BandMoon = "moon"
)

// Band classifies a crash multiplier for display: < 2x low, < 10x mid, else moon.
func Band(m float64) string {
	switch {
	case m >= 10:
		return BandMoon
	case m >= 2:
		return BandMid
	default:
		return BandLow
	}
}
