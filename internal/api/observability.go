package api

import (
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"robot-arena/internal/game"
	"robot-arena/internal/logging"
)

// Metrics with bounded cardinality: no per-robot labels.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent advancing the arena one tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_render_duration_seconds",
		Help:    "Time spent rendering and encoding a frame",
		Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1},
	})

	robotCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_robots",
		Help: "Robots in the arena after the last tick",
	})

	obstacleCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_obstacles",
		Help: "Obstacles in the arena after the last tick",
	})

	killsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_kills_total",
		Help: "Robots removed by killer robots",
	})

	teleportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_teleports_total",
		Help: "Teleports performed by teleporting robots",
	})

	// reason is one of rate_limit, origin, ws_total_limit, ws_ip_limit
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "WebSocket messages by direction",
	}, []string{"direction"})
)

// EngineMetrics feeds engine callbacks into Prometheus
type EngineMetrics struct{}

var _ game.Observer = EngineMetrics{}

func (EngineMetrics) TickObserved(d time.Duration, robots, obstacles int) {
	tickDuration.Observe(d.Seconds())
	robotCount.Set(float64(robots))
	obstacleCount.Set(float64(obstacles))
}

func (EngineMetrics) RobotKilled()     { killsTotal.Inc() }
func (EngineMetrics) RobotTeleported() { teleportsTotal.Inc() }

// RecordRender records render timing
func RecordRender(d time.Duration) {
	renderDuration.Observe(d.Seconds())
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics. endpoint must be a route
// pattern, not a raw path.
func RecordRequest(method, endpoint string, status int, d time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(d.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections sets the WebSocket connection gauge
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

func recordWSMessage(direction string) {
	wsMessagesTotal.WithLabelValues(direction).Inc()
}

// DebugHandler serves pprof, /metrics and /health
func DebugHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// debugAddr keeps the debug server on loopback unless ALLOW_DEBUG_EXTERNAL
// is set. pprof must never be reachable from outside.
func debugAddr(addr string) string {
	if os.Getenv("ALLOW_DEBUG_EXTERNAL") == "true" {
		return addr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "127.0.0.1:6060"
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return addr
	}
	return net.JoinHostPort("127.0.0.1", port)
}

// StartDebugServer serves DebugHandler on addr in the background. An empty
// addr disables it.
func StartDebugServer(addr string, log *zap.Logger) {
	log = logging.OrNop(log)
	log = log.Named("debug")
	if addr == "" {
		log.Info("debug server disabled")
		return
	}

	bound := debugAddr(addr)
	if bound != addr {
		log.Warn("debug server forced to localhost", zap.String("requested", addr), zap.String("addr", bound))
	}

	go func() {
		log.Info("debug server starting",
			zap.String("pprof", "http://"+bound+"/debug/pprof/"),
			zap.String("metrics", "http://"+bound+"/metrics"))
		if err := http.ListenAndServe(bound, DebugHandler()); err != nil {
			log.Error("debug server stopped", zap.Error(err))
		}
	}()
}
