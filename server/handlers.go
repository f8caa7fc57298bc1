package server

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Ashenafi-pixel/skyhigh-crash/game"
	"github.com/Ashenafi-pixel/skyhigh-crash/ledger"
	"github.com/Ashenafi-pixel/skyhigh-crash/round"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "skyhigh-crash"})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, balanceResponse{Balance: s.session.Balance()})
}

type betResponse struct {
	Bet     *ledger.Bet     `json:"bet"`
	Balance decimal.Decimal `json:"balance"`
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	resp := betResponse{Balance: s.session.Balance()}
	if b, ok := s.session.ActiveBet(); ok {
		resp.Bet = &b
	}
	writeJSON(w, http.StatusOK, resp)
}

type placeBetRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// placeBet implements POST /api/bet.
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", CodeInvalidBody)
		return
	}
	bet, ok := s.session.PlaceBet(req.Amount)
	if !ok {
		writeError(w, http.StatusConflict, "bet not accepted: check amount, balance and round phase", CodeBetRejected)
		return
	}
	writeJSON(w, http.StatusCreated, betResponse{Bet: &bet, Balance: s.session.Balance()})
}

// cashOut implements POST /api/cashout.
func (s *Server) cashOut(w http.ResponseWriter, r *http.Request) {
	bet, ok := s.session.CashOut()
	if !ok {
		writeError(w, http.StatusConflict, "cash-out not accepted: no pending bet or round not flying", CodeCashoutRejected)
		return
	}
	writeJSON(w, http.StatusOK, betResponse{Bet: &bet, Balance: s.session.Balance()})
}

type historyResponse struct {
	Entries []round.Entry      `json:"entries"`
	Stats   round.HistoryStats `json:"stats"`
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, historyResponse{Entries: s.session.History(), Stats: s.session.HistoryStats()})
}

func (s *Server) getBets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"bets": s.session.Bets()})
}

type statsResponse struct {
	Session ledger.Stats       `json:"session"`
	WinRate float64            `json:"winRate"`
	History round.HistoryStats `json:"history"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	st := s.session.Stats()
	writeJSON(w, http.StatusOK, statsResponse{Session: st, WinRate: st.WinRate(), History: s.session.HistoryStats()})
}

func (s *Server) getAutoPlay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.auto.Settings())
}

// putAutoPlay implements PUT /api/autoplay.
func (s *Server) putAutoPlay(w http.ResponseWriter, r *http.Request) {
	var req game.AutoSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", CodeInvalidBody)
		return
	}
	st, err := s.auto.Configure(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidSettings)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) getMath(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Model())
}
