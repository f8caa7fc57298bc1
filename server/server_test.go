package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/Ashenafi-pixel/skyhigh-crash/config"
	"github.com/Ashenafi-pixel/skyhigh-crash/game"
	"github.com/Ashenafi-pixel/skyhigh-crash/gamemath"
	"github.com/Ashenafi-pixel/skyhigh-crash/games/crash"
	"github.com/Ashenafi-pixel/skyhigh-crash/ledger"
	"github.com/Ashenafi-pixel/skyhigh-crash/round"
)

type fixture struct {
	clock   *round.ManualClock
	session *game.Session
	hub     *Hub
	handler http.Handler
}

func newFixture(t *testing.T, crashAt float64) *fixture {
	t.Helper()
	clock := round.NewManualClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	model := &gamemath.GameMath{
		ModelID:       "fixed",
		MaxMultiplier: 1000,
		Tiers:         []gamemath.Tier{{Tier: "fixed", Weight: 1, Shape: gamemath.ShapeUniform, Base: crashAt}},
	}
	s := game.NewSession(game.Options{Clock: clock, Generator: crash.NewGenerator(model, nil)})
	hub := NewHub(s, AllowOrigin([]string{"*"}), nil, nil)
	cfg := &config.Config{AllowedOrigins: []string{"*"}}
	srv := New(cfg, s, game.NewAutoPlay(s, nil), hub, nil)
	return &fixture{clock: clock, session: s, hub: hub, handler: srv.Router()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 2)
	rec := f.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestState(t *testing.T) {
	f := newFixture(t, 2)
	f.session.Start()
	rec := f.do(t, http.MethodGet, "/api/state", "")
	var snap round.Snapshot
	decode(t, rec, &snap)
	if snap.Status != round.StatusWaiting || snap.CountdownSeconds != 5 || snap.CurrentMultiplier != 1 {
		t.Fatalf("state = %+v", snap)
	}
	if !strings.Contains(rec.Body.String(), `"lastCrashMultiplier":null`) {
		t.Errorf("lastCrashMultiplier should be null before the first crash: %s", rec.Body.String())
	}
}

func TestBetAndCashOut(t *testing.T) {
	f := newFixture(t, 5)
	f.session.Start()

	rec := f.do(t, http.MethodPost, "/api/bet", `{"amount": 100}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("place bet = %d %s", rec.Code, rec.Body.String())
	}
	var placed betResponse
	decode(t, rec, &placed)
	if placed.Bet == nil || placed.Bet.Status != ledger.StatusPending || !placed.Balance.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("placed = %+v", placed)
	}

	rec = f.do(t, http.MethodPost, "/api/bet", `{"amount": 100}`)
	var apiErr APIError
	decode(t, rec, &apiErr)
	if rec.Code != http.StatusConflict || apiErr.Code != CodeBetRejected {
		t.Fatalf("second bet = %d %+v", rec.Code, apiErr)
	}

	rec = f.do(t, http.MethodPost, "/api/cashout", "")
	decode(t, rec, &apiErr)
	if rec.Code != http.StatusConflict || apiErr.Code != CodeCashoutRejected {
		t.Fatalf("cash-out while waiting = %d %+v", rec.Code, apiErr)
	}

	f.clock.Advance(5 * time.Second)
	f.clock.Advance(2 * time.Second)
	rec = f.do(t, http.MethodPost, "/api/cashout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cash-out = %d %s", rec.Code, rec.Body.String())
	}
	var won betResponse
	decode(t, rec, &won)
	if won.Bet.Status != ledger.StatusWon || !won.Balance.Round(2).Equal(decimal.RequireFromString("1115.89")) {
		t.Fatalf("won = %+v balance %s", won.Bet, won.Balance)
	}

	rec = f.do(t, http.MethodGet, "/api/balance", "")
	var bal balanceResponse
	decode(t, rec, &bal)
	if !bal.Balance.Equal(won.Balance) {
		t.Fatalf("balance = %s", bal.Balance)
	}

	rec = f.do(t, http.MethodGet, "/api/bet", "")
	var active betResponse
	decode(t, rec, &active)
	if active.Bet == nil || active.Bet.ID != won.Bet.ID {
		t.Fatalf("active = %+v", active.Bet)
	}

	rec = f.do(t, http.MethodGet, "/api/bets", "")
	var bets struct {
		Bets []ledger.Bet `json:"bets"`
	}
	decode(t, rec, &bets)
	if len(bets.Bets) != 1 {
		t.Fatalf("bets = %d", len(bets.Bets))
	}
}

func TestPlaceBet_InvalidBody(t *testing.T) {
	f := newFixture(t, 2)
	rec := f.do(t, http.MethodPost, "/api/bet", `{"amount":`)
	var apiErr APIError
	decode(t, rec, &apiErr)
	if rec.Code != http.StatusBadRequest || apiErr.Code != CodeInvalidBody {
		t.Fatalf("invalid body = %d %+v", rec.Code, apiErr)
	}
	rec = f.do(t, http.MethodPost, "/api/bet", `{"amount": -3}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("negative amount = %d", rec.Code)
	}
}

func TestHistoryAndStats(t *testing.T) {
	f := newFixture(t, 1.5)
	f.session.Start()
	f.session.PlaceBet(decimal.NewFromInt(10))
	f.clock.Advance(10 * time.Second)

	rec := f.do(t, http.MethodGet, "/api/history", "")
	var h historyResponse
	decode(t, rec, &h)
	if len(h.Entries) != 1 || h.Entries[0].CrashMultiplier != 1.5 || h.Entries[0].Band != crash.BandLow {
		t.Fatalf("history = %+v", h)
	}
	if h.Stats.Rounds != 1 || h.Stats.Max != 1.5 {
		t.Fatalf("history stats = %+v", h.Stats)
	}

	rec = f.do(t, http.MethodGet, "/api/stats", "")
	var st statsResponse
	decode(t, rec, &st)
	if st.Session.Losses != 1 || st.WinRate != 0 || st.History.Rounds != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestAutoPlaySettings(t *testing.T) {
	f := newFixture(t, 2)
	rec := f.do(t, http.MethodGet, "/api/autoplay", "")
	var st game.AutoSettings
	decode(t, rec, &st)
	if st.CashoutAt != game.DefaultAutoCashout || st.AutoBet {
		t.Fatalf("defaults = %+v", st)
	}

	rec = f.do(t, http.MethodPut, "/api/autoplay", `{"autoCashout":true,"cashoutAt":3,"autoBet":true,"stake":"25"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put = %d %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &st)
	if !st.AutoCashout || st.CashoutAt != 3 || !st.Stake.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("saved = %+v", st)
	}

	rec = f.do(t, http.MethodPut, "/api/autoplay", `{"autoCashout":true,"cashoutAt":1.0,"stake":"25"}`)
	var apiErr APIError
	decode(t, rec, &apiErr)
	if rec.Code != http.StatusBadRequest || apiErr.Code != CodeInvalidSettings {
		t.Fatalf("bad target = %d %+v", rec.Code, apiErr)
	}
}

func TestMath(t *testing.T) {
	f := newFixture(t, 2)
	rec := f.do(t, http.MethodGet, "/api/math", "")
	var m gamemath.GameMath
	decode(t, rec, &m)
	if m.ModelID != "fixed" || len(m.Tiers) != 1 {
		t.Fatalf("math = %+v", m)
	}
}

func TestCORS(t *testing.T) {
	f := newFixture(t, 2)
	req := httptest.NewRequest(http.MethodOptions, "/api/bet", nil)
	req.Header.Set("Origin", "http://play.test")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://play.test" {
		t.Fatalf("preflight = %d %v", rec.Code, rec.Header())
	}
}

func TestAllowOrigin(t *testing.T) {
	allow := AllowOrigin([]string{"http://a.test"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if !allow(req) {
		t.Error("request without Origin should pass")
	}
	req.Header.Set("Origin", "http://a.test")
	if !allow(req) {
		t.Error("listed origin rejected")
	}
	req.Header.Set("Origin", "http://evil.test")
	if allow(req) {
		t.Error("unlisted origin accepted")
	}
}

func TestWebsocket(t *testing.T) {
	f := newFixture(t, 2)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var h hello
	if err := conn.ReadJSON(&h); err != nil {
		t.Fatal(err)
	}
	if h.Type != "hello" || h.Round.Status != round.StatusIdle {
		t.Fatalf("hello = %+v", h)
	}

	if err := conn.WriteJSON(ClientMsg{Type: "ping"}); err != nil {
		t.Fatal(err)
	}
	var pong map[string]string
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatal(err)
	}
	if pong["type"] != "pong" {
		t.Fatalf("pong = %v", pong)
	}
	if n := f.hub.Clients(); n != 1 {
		t.Fatalf("clients = %d want 1", n)
	}

	f.hub.Broadcast(game.Event{Type: "crash", Round: round.Snapshot{RoundID: "r9", Status: round.StatusCrashed, CurrentMultiplier: 2}})
	var ev game.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "crash" || ev.Round.RoundID != "r9" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestWebsocket_RegisteredBeforeHello(t *testing.T) {
	f := newFixture(t, 2)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var h hello
	if err := conn.ReadJSON(&h); err != nil {
		t.Fatal(err)
	}
	// no round trip: the client must already be in the broadcast set
	if n := f.hub.Clients(); n != 1 {
		t.Fatalf("clients after hello = %d want 1", n)
	}
	f.hub.Broadcast(game.Event{Type: "waiting", Round: round.Snapshot{RoundID: "r1", Status: round.StatusWaiting}})
	var ev game.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "waiting" || ev.Round.RoundID != "r1" {
		t.Fatalf("event = %+v", ev)
	}
}
