// Package api exposes an engine over HTTP and WebSocket.
package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"robot-arena/internal/arena"
	"robot-arena/internal/config"
	"robot-arena/internal/game"
	"robot-arena/internal/logging"
	"robot-arena/internal/persist"
	"robot-arena/internal/render"
)

// Engine is the part of *game.Engine the API calls. Tests substitute their
// own engine built on a small arena.
type Engine interface {
	Snapshot() *game.Snapshot
	Stats() game.Stats
	Describe() []string

	AddRobot(kind arena.Kind) (arena.RobotSnapshot, error)
	RemoveRobot(id int) error
	SetDirection(id int, token string) error
	SetWheels(id int, mode string) error
	RobotAt(x, y float64) (arena.RobotSnapshot, bool)
	AddObstacle(radius float64) (arena.Obstacle, error)
	RemoveObstacle(index int) (arena.Obstacle, error)
	Resize(width, height string) error
	ToggleMaze() bool

	Start()
	Pause()
	Resume()
	Step() *game.Snapshot

	Save(w io.Writer) error
	Load(r io.Reader) (persist.Result, error)
}

// RouterConfig contains everything NewRouter needs.
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine:   engine,
//	    Renderer: render.New(cfg.Render),
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is required
	Engine Engine

	// Renderer draws /api/frame.png. Defaults to the default render config.
	Renderer *render.Renderer

	Logger *zap.Logger

	// RateLimiter is used as is when set. Otherwise one is built from
	// RateLimitConfig, or DefaultRateLimitConfig when that is nil too.
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins defaults to localhost on any port
	CORSOrigins []string

	// DisableLogging turns off per-request logging
	DisableLogging bool

	// MaxLoadBytes caps the body of POST /api/load
	MaxLoadBytes int64
}

// DefaultCORSOrigins allows local tooling only
var DefaultCORSOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

const defaultMaxLoadBytes = 1 << 20

type routerHandlers struct {
	engine       Engine
	renderer     *render.Renderer
	log          *zap.Logger
	maxLoadBytes int64
}

// NewRouter builds the HTTP router. It starts no goroutines apart from the
// rate limiter cleanup of a limiter it creates itself, and opens no
// listeners, so it can be served with httptest directly.
func NewRouter(cfg RouterConfig) *chi.Mux {
	log := cfg.Logger
	log = logging.OrNop(log)
	log = log.Named("http")

	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(requestLogger(log))
	}
	r.Use(middleware.Recoverer)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rlc := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rlc = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rlc)
	}
	r.Use(rateLimiter.Middleware)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	h := &routerHandlers{
		engine:       cfg.Engine,
		renderer:     cfg.Renderer,
		log:          log,
		maxLoadBytes: cfg.MaxLoadBytes,
	}
	if h.renderer == nil {
		h.renderer = render.New(config.DefaultRender())
	}
	if h.maxLoadBytes <= 0 {
		h.maxLoadBytes = defaultMaxLoadBytes
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/status", h.handleGetStatus)
		r.Get("/frame.png", h.handleFrame)

		r.Post("/robots", h.handleAddRobot)
		r.Get("/robots/at", h.handleRobotAt)
		r.Delete("/robots/{id}", h.handleRemoveRobot)
		r.Post("/robots/{id}/direction", h.handleDirection)
		r.Post("/robots/{id}/wheels", h.handleWheels)

		r.Post("/obstacles", h.handleAddObstacle)
		r.Delete("/obstacles/{index}", h.handleRemoveObstacle)

		r.Post("/arena/resize", h.handleResize)
		r.Post("/arena/maze", h.handleMaze)

		r.Post("/sim/start", h.handleStart)
		r.Post("/sim/pause", h.handlePause)
		r.Post("/sim/step", h.handleStep)

		r.Get("/save", h.handleSave)
		r.Post("/load", h.handleLoad)
	})

	return r
}

// requestLogger logs each request with zap and feeds the HTTP metrics.
// The route pattern is used as the metric label to keep cardinality bounded.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			pattern := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				pattern = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			RecordRequest(r.Method, pattern, status, elapsed)

			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", elapsed),
				zap.String("ip", GetClientIP(r)))
		})
	}
}
