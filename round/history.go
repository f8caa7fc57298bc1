package round

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ashenafi-pixel/skyhigh-crash/games/crash"
)

// DefaultHistoryLimit is how many crash outcomes are kept.
const DefaultHistoryLimit = 30

// Entry is one recorded crash outcome.
type Entry struct {
	ID              string    `json:"id"`
	RoundID         string    `json:"roundId"`
	CrashMultiplier float64   `json:"crashMultiplier"`
	Band            string    `json:"band"`
	RecordedAt      time.Time `json:"recordedAt"`
}

// History is a bounded, newest-first log of crash outcomes.
type History struct {
	limit   int
	entries []Entry
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit, entries: make([]Entry, 0, limit)}
}

// Record prepends a crash outcome, evicting the oldest beyond the limit.
func (h *History) Record(roundID string, crashPoint float64, at time.Time) Entry {
	e := Entry{
		ID:              uuid.NewString(),
		RoundID:         roundID,
		CrashMultiplier: crashPoint,
		Band:            crash.Band(crashPoint),
		RecordedAt:      at,
	}
	h.entries = append([]Entry{e}, h.entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
	return e
}

// Entries returns a copy, newest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int { return len(h.entries) }

// HistoryStats summarises the retained crash outcomes.
type HistoryStats struct {
	Rounds     int     `json:"rounds"`
	Average    float64 `json:"average"`
	Max        float64 `json:"max"`
	AtLeast2x  float64 `json:"atLeast2x"`
	AtLeast3x  float64 `json:"atLeast3x"`
	MoonRounds int     `json:"moonRounds"`
}

func (h *History) Stats() HistoryStats {
	st := HistoryStats{Rounds: len(h.entries)}
	if st.Rounds == 0 {
		return st
	}
	var sum float64
	var two, three int
	for _, e := range h.entries {
		sum += e.CrashMultiplier
		if e.CrashMultiplier > st.Max {
			st.Max = e.CrashMultiplier
		}
		if e.CrashMultiplier >= 2 {
			two++
		}
		if e.CrashMultiplier >= 3 {
			three++
		}
		if e.Band == crash.BandMoon {
			st.MoonRounds++
		}
	}
	n := float64(st.Rounds)
	st.Average = sum / n
	st.AtLeast2x = float64(two) / n
	st.AtLeast3x = float64(three) / n
	return st
}
