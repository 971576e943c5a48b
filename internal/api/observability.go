package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-entity labels).
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aquarium_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aquarium_render_duration_seconds",
		Help:    "Time spent rendering a frame",
		Buckets: []float64{0.005, 0.01, 0.02, 0.033, 0.05, 0.1},
	})

	fishCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aquarium_fish_count",
		Help: "Current number of simulated fish entities",
	})

	visibleFishCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aquarium_fish_visible_count",
		Help: "Fish inside the culling rectangle",
	})

	bubbleCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aquarium_bubble_count",
		Help: "Current number of live bubble particles",
	})

	objectCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aquarium_object_count",
		Help: "Current number of placed decorative objects",
	})

	poolUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aquarium_pool_utilization",
		Help: "Bubble pool inUse / capacity",
	})

	reconcileEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aquarium_reconcile_events_total",
		Help: "Change events applied by the reconciler",
	}, []string{"kind"}) // Bounded: "insert", "update", "delete", "rebuild"

	syncFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aquarium_sync_flushes_total",
		Help: "Outbound position sync flushes",
	}, []string{"result"}) // Bounded: "ok", "error"

	frameDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aquarium_frames_dropped_total",
		Help: "Frames dropped by the render ring buffer",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages broadcast",
	})
)

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string // must stay on localhost in production
}

// DefaultObservabilityConfig returns safe defaults.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// StartDebugServer serves /metrics and pprof on localhost. Binding
// elsewhere requires ALLOW_DEBUG_EXTERNAL=true; pprof on a public
// address is a DoS vector.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("debug server disabled")
		return nil
	}

	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("debug server forced to localhost")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		log.Printf("debug server listening on %s", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			log.Printf("debug server error: %v", err)
		}
	}()
	return nil
}

// RecordTick records one simulation tick duration.
func RecordTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// RecordRender records one frame render duration.
func RecordRender(d time.Duration) {
	renderDuration.Observe(d.Seconds())
}

// UpdateSimulationGauges refreshes the entity gauges from a snapshot.
func UpdateSimulationGauges(fish, visible, bubbles, objects int) {
	fishCount.Set(float64(fish))
	visibleFishCount.Set(float64(visible))
	bubbleCount.Set(float64(bubbles))
	objectCount.Set(float64(objects))
}

// UpdatePoolUtilization refreshes the pool gauge.
func UpdatePoolUtilization(inUse, capacity int) {
	if capacity > 0 {
		poolUtilization.Set(float64(inUse) / float64(capacity))
	}
}

// RecordReconcileEvent counts one applied change event.
func RecordReconcileEvent(kind string) {
	reconcileEvents.WithLabelValues(kind).Inc()
}

// RecordSyncFlush counts one outbound position flush.
func RecordSyncFlush(ok bool) {
	if ok {
		syncFlushes.WithLabelValues("ok").Inc()
	} else {
		syncFlushes.WithLabelValues("error").Inc()
	}
}

// RecordFrameDrop counts a dropped frame.
func RecordFrameDrop() {
	frameDrops.Inc()
}

// RecordConnectionRejected counts a rejected connection by reason.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// UpdateWSConnections sets the active websocket gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages counts one broadcast.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
