package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/skyhigh-crash/config"
	"github.com/Ashenafi-pixel/skyhigh-crash/game"
)

type Server struct {
	cfg     *config.Config
	session *game.Session
	auto    *game.AutoPlay
	hub     *Hub
	log     *zap.Logger
}

func New(cfg *config.Config, session *game.Session, auto *game.AutoPlay, hub *Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cfg: cfg, session: session, auto: auto, hub: hub, log: log}
}

// Router builds the HTTP API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors(s.cfg.AllowedOrigins))
	r.Use(requestLogger(s.log))

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Get("/balance", s.getBalance)
		r.Get("/bet", s.getBet)
		r.Post("/bet", s.placeBet)
		r.Post("/cashout", s.cashOut)
		r.Get("/history", s.getHistory)
		r.Get("/bets", s.getBets)
		r.Get("/stats", s.getStats)
		r.Get("/autoplay", s.getAutoPlay)
		r.Put("/autoplay", s.putAutoPlay)
		r.Get("/math", s.getMath)
	})
	if s.hub != nil {
		r.Get("/ws", s.hub.HandleWS)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Port
	if port <= 0 {
		port = 8081
	}
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("crash server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// AllowOrigin reports whether a websocket origin is in origins; "*" allows
// any.
func AllowOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func cors(origins []string) func(http.Handler) http.Handler {
	allowed := AllowOrigin(origins)
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && allowed(r) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs method, path, status and latency for each request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			h.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)))
		})
	}
}
