package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"robot-arena/internal/config"
	"robot-arena/internal/logging"
	"robot-arena/internal/render"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP API plus the WebSocket hub.
type Server struct {
	engine      Engine
	cfg         config.ServerConfig
	log         *zap.Logger
	router      *chi.Mux
	hub         *WebSocketHub
	rateLimiter *IPRateLimiter
}

// NewServer wires the router and hub. Background workers do not start
// until Run, so tests can use Router() without any goroutines running.
func NewServer(engine Engine, renderer *render.Renderer, cfg config.ServerConfig, log *zap.Logger) *Server {
	log = logging.OrNop(log)
	s := &Server{
		engine:      engine,
		cfg:         cfg,
		log:         log.Named("server"),
		hub:         NewWebSocketHub(engine, HubConfigFrom(cfg), log),
		rateLimiter: NewIPRateLimiter(RateLimitConfigFrom(cfg)),
	}

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		Renderer:    renderer,
		Logger:      log,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.AllowedOrigins,
	})
	s.router.Get("/ws", s.hub.HandleWebSocket)

	return s
}

// Router returns the HTTP handler for use with httptest
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *WebSocketHub {
	return s.hub
}

func (s *Server) startWorkers() {
	go s.hub.Run()
	s.hub.StartBroadcastLoop()
}

// Run starts the workers and serves on the configured port until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.startWorkers()
	defer s.Stop()

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Stop ends background workers and closes WebSocket clients.
func (s *Server) Stop() {
	s.hub.Stop()
	s.rateLimiter.Stop()
}
