package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "CRASH_PORT", "STARTING_BALANCE", "TICK_INTERVAL", "DATA_DIR", "JOURNAL_DRIVER", "SQLITE_PATH", "ENV", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.Port != 8081 || c.MetricsPort != "9095" || c.Env != "local" {
		t.Errorf("ports/env = %d %s %s", c.Port, c.MetricsPort, c.Env)
	}
	if c.StartingBalance.String() != "1000" || c.TickInterval != 50*time.Millisecond {
		t.Errorf("balance/tick = %s %v", c.StartingBalance, c.TickInterval)
	}
	if c.JournalDriver != JournalFile || c.SQLitePath != "data/rounds.db" || c.MathModelID != "crash_tiered" {
		t.Errorf("journal = %s %s %s", c.JournalDriver, c.SQLitePath, c.MathModelID)
	}
	if len(c.AllowedOrigins) != 1 || c.AllowedOrigins[0] != "*" {
		t.Errorf("origins = %v", c.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CRASH_PORT", "9000")
	t.Setenv("STARTING_BALANCE", "250.50")
	t.Setenv("TICK_INTERVAL", "16ms")
	t.Setenv("DATA_DIR", "/tmp/crash")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("JOURNAL_DRIVER", "SQLite")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	c := Load()
	if c.Port != 9000 {
		t.Errorf("port = %d", c.Port)
	}
	if c.StartingBalance.String() != "250.5" || c.TickInterval != 16*time.Millisecond {
		t.Errorf("balance/tick = %s %v", c.StartingBalance, c.TickInterval)
	}
	if c.JournalDriver != JournalSQLite || c.SQLitePath != "/tmp/crash/rounds.db" {
		t.Errorf("journal = %s %s", c.JournalDriver, c.SQLitePath)
	}
	if len(c.AllowedOrigins) != 2 || c.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("origins = %v", c.AllowedOrigins)
	}
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "nope")
	t.Setenv("STARTING_BALANCE", "-5")
	t.Setenv("TICK_INTERVAL", "fast")
	t.Setenv("JOURNAL_DRIVER", "mongo")
	c := Load()
	if c.Port != 8081 || c.StartingBalance.String() != "1000" || c.TickInterval != 50*time.Millisecond || c.JournalDriver != JournalFile {
		t.Errorf("config = %+v", c)
	}
}

func TestLoad_ZeroBalance(t *testing.T) {
	t.Setenv("STARTING_BALANCE", "0")
	if c := Load(); !c.StartingBalance.IsZero() {
		t.Errorf("balance = %s want 0", c.StartingBalance)
	}
}
