package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/Ashenafi-pixel/skyhigh-crash/gamemath"
	"github.com/Ashenafi-pixel/skyhigh-crash/games/crash"
)

func main() {
	rounds := flag.Int("rounds", 100000, "Number of crash points to draw")
	seed := flag.Uint64("seed", 1, "PRNG seed")
	modelPath := flag.String("model", "", "Optional game math JSON file; defaults to the built-in tiers")
	dataDir := flag.String("data-dir", "", "If set, register the model in this data dir's crash model store")
	flag.Parse()

	if *rounds <= 0 {
		fmt.Fprintln(os.Stderr, "-rounds must be positive")
		os.Exit(1)
	}
	if err := run(os.Stdout, *rounds, *seed, *modelPath, *dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "simulate failed: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, rounds int, seed uint64, modelPath, dataDir string) error {
	m := gamemath.Default()
	if modelPath != "" {
		loaded, err := loadModel(modelPath)
		if err != nil {
			return err
		}
		m = loaded
	}
	if dataDir != "" {
		if err := gamemath.NewStore(dataDir).Register(m); err != nil {
			return fmt.Errorf("register model: %w", err)
		}
	}

	g := crash.NewGenerator(m, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	rep := simulate(g, rounds)
	printReport(w, m, rep)
	return nil
}

func loadModel(path string) (*gamemath.GameMath, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m gamemath.GameMath
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	return &m, nil
}

type report struct {
	Rounds    int
	Tiers     map[string]int
	AtLeast2x int
	AtLeast3x int
	Moon      int
	Min, Max  float64
	Mean      float64
	Median    float64
}

func simulate(g *crash.Generator, n int) report {
	rep := report{Rounds: n, Tiers: make(map[string]int), Min: g.Model().MaxMultiplier}
	points := make([]float64, 0, n)
	var sum float64
	for i := 0; i < n; i++ {
		d := g.Draw()
		rep.Tiers[d.Tier]++
		x := d.CrashPoint
		points = append(points, x)
		sum += x
		if x >= 2 {
			rep.AtLeast2x++
		}
		if x >= 3 {
			rep.AtLeast3x++
		}
		if crash.Band(x) == crash.BandMoon {
			rep.Moon++
		}
		if x < rep.Min {
			rep.Min = x
		}
		if x > rep.Max {
			rep.Max = x
		}
	}
	if n > 0 {
		rep.Mean = sum / float64(n)
		sort.Float64s(points)
		rep.Median = points[n/2]
	}
	return rep
}

func printReport(w io.Writer, m *gamemath.GameMath, rep report) {
	n := float64(rep.Rounds)
	fmt.Fprintf(w, "model %s: %d rounds\n", m.ModelID, rep.Rounds)
	for _, t := range m.Tiers {
		fmt.Fprintf(w, "  tier %-8s %7.3f%% (expected %6.2f%%)\n", t.Tier, 100*float64(rep.Tiers[t.Tier])/n, 100*m.Probability(t.Tier))
	}
	fmt.Fprintf(w, "  >= 2x    %7.3f%%\n", 100*float64(rep.AtLeast2x)/n)
	fmt.Fprintf(w, "  >= 3x    %7.3f%%\n", 100*float64(rep.AtLeast3x)/n)
	fmt.Fprintf(w, "  >= 10x   %7.3f%%\n", 100*float64(rep.Moon)/n)
	fmt.Fprintf(w, "  min %.2fx  median %.2fx  mean %.2fx  max %.2fx\n", rep.Min, rep.Median, rep.Mean, rep.Max)
}
