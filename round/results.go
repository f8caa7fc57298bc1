package round

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Outcomes recorded for a settled round.
const (
	OutcomeWin  = "win"
	OutcomeLose = "lose"
	OutcomeNone = "none"
)

// Result records a crashed round for audit. BetID and the money fields are
// empty when no bet rode the round.
type Result struct {
	RoundID           string    `json:"roundId"`
	Round             uint64    `json:"round"`
	CrashPoint        float64   `json:"crashPoint"`
	BetID             string    `json:"betId,omitempty"`
	Outcome           string    `json:"outcome"`
	Amount            float64   `json:"amount,omitempty"`
	CashoutMultiplier float64   `json:"cashoutMultiplier,omitempty"`
	BalanceDelta      float64   `json:"balanceDelta"`
	SettledAt         time.Time `json:"settledAt"`
}

// Journal is a write-only sink for round results.
type Journal interface {
	Append(ctx context.Context, r Result) error
}

// ResultsStore appends settled round results to data/round_results.json.
type ResultsStore struct {
	mu      sync.Mutex
	dataDir string
}

func NewResultsStore(dataDir string) *ResultsStore {
	if dataDir == "" {
		dataDir = "data"
	}
	return &ResultsStore{dataDir: dataDir}
}

func (rs *ResultsStore) path() string {
	return filepath.Join(rs.dataDir, "round_results.json")
}

func (rs *ResultsStore) ensureDir() error {
	return os.MkdirAll(rs.dataDir, 0755)
}

func (rs *ResultsStore) read() ([]Result, error) {
	data, err := os.ReadFile(rs.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var list []Result
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", rs.path(), err)
	}
	return list, nil
}

// Append adds a result to the end of the JSON array on disk.
func (rs *ResultsStore) Append(_ context.Context, r Result) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if err := rs.ensureDir(); err != nil {
		return err
	}
	list, err := rs.read()
	if err != nil {
		return err
	}
	list = append(list, r)
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(rs.path(), data, 0644)
}

// GetByRoundID returns the result recorded for roundID, or nil.
func (rs *ResultsStore) GetByRoundID(roundID string) (*Result, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	list, err := rs.read()
	if err != nil {
		return nil, err
	}
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].RoundID == roundID {
			r := list[i]
			return &r, nil
		}
	}
	return nil, nil
}
