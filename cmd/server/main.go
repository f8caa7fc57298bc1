package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	skyhigh "github.com/Ashenafi-pixel/skyhigh-crash"
	"github.com/Ashenafi-pixel/skyhigh-crash/config"
	"github.com/Ashenafi-pixel/skyhigh-crash/game"
	"github.com/Ashenafi-pixel/skyhigh-crash/gamemath"
	"github.com/Ashenafi-pixel/skyhigh-crash/games/crash"
	"github.com/Ashenafi-pixel/skyhigh-crash/logger"
	"github.com/Ashenafi-pixel/skyhigh-crash/metrics"
	"github.com/Ashenafi-pixel/skyhigh-crash/relay"
	"github.com/Ashenafi-pixel/skyhigh-crash/round"
	"github.com/Ashenafi-pixel/skyhigh-crash/server"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../.env.local")
	cfg := config.Load()

	log, err := logger.New("skyhigh-crash", cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	model, err := gamemath.NewStore(cfg.DataDir).Resolve(cfg.MathModelID)
	if err != nil {
		return fmt.Errorf("game math: %w", err)
	}

	session := game.NewSession(game.Options{
		StartingBalance: &cfg.StartingBalance,
		Generator:       crash.NewGenerator(model, nil),
		TickInterval:    cfg.TickInterval,
		Logger:          log,
	})
	auto := game.NewAutoPlay(session, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	collectors := metrics.New(reg)

	journal, health, closeJournal, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	rl := openRelay(cfg, log)
	defer rl.Close()

	hub := server.NewHub(session, server.AllowOrigin(cfg.AllowedOrigins), log, func(n int) {
		collectors.WSClients.Set(float64(n))
	})

	var wg sync.WaitGroup
	observe := func(fn func(events <-chan game.Event)) {
		events, cancel := session.Subscribe(1024)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			fn(events)
		}()
	}
	observe(func(ev <-chan game.Event) { hub.Run(ctx, ev) })
	observe(func(ev <-chan game.Event) { collectors.Run(ctx, ev) })
	observe(func(ev <-chan game.Event) { rl.Run(ctx, ev) })
	if journal != nil {
		observe(func(ev <-chan game.Event) { game.RecordRounds(ctx, ev, journal, log) })
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		auto.Run(ctx)
	}()

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, health)
	defer msrv.Close()

	session.Start()
	log.Info("crash session running",
		zap.String("model", model.ModelID),
		zap.String("journal", cfg.JournalDriver),
		zap.Duration("tick", cfg.TickInterval))

	srv := server.New(cfg, session, auto, hub, log)
	err = srv.Run(ctx)
	session.Stop()
	wg.Wait()
	return err
}

// openJournal picks the round journal named by JOURNAL_DRIVER.
func openJournal(ctx context.Context, cfg *config.Config) (round.Journal, metrics.HealthFunc, func(), error) {
	noop := func() {}
	ok := func(context.Context) error { return nil }
	switch cfg.JournalDriver {
	case config.JournalNone:
		return nil, ok, noop, nil
	case config.JournalPostgres:
		db, err := skyhigh.GetDB()
		if err != nil {
			return nil, nil, noop, fmt.Errorf("connect db: %w", err)
		}
		if db == nil {
			return nil, nil, noop, fmt.Errorf("DATABASE_URL is not set; cannot use the postgres journal")
		}
		j, err := round.NewPGResults(ctx, db)
		if err != nil {
			return nil, nil, noop, err
		}
		return j, db.PingContext, func() { _ = db.Close() }, nil
	case config.JournalSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, nil, noop, err
		}
		j, err := round.OpenSQLiteResults(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, noop, err
		}
		return j, ok, func() { _ = j.Close() }, nil
	default:
		return round.NewResultsStore(cfg.DataDir), ok, noop, nil
	}
}

// openRelay builds a relay over whichever brokers are configured.
func openRelay(cfg *config.Config, log *zap.Logger) *relay.Relay {
	var pubs []relay.Publisher
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pubs = append(pubs, relay.NewRedisPublisher(rdb, cfg.RedisChannel))
		log.Info("relaying events to redis", zap.String("addr", cfg.RedisAddr), zap.String("channel", cfg.RedisChannel))
	}
	if cfg.KafkaBrokers != "" {
		pubs = append(pubs, relay.NewKafkaPublisher(relay.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)))
		log.Info("relaying events to kafka", zap.String("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	return relay.New(log, pubs...)
}
