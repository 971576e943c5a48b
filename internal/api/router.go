package api

import (
	"net/http"

	"aquarium/internal/engine"
	"aquarium/internal/placement"
	"aquarium/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineSource defines the simulation methods used by the API.
// This interface enables mocking for tests without spinning up the full
// tick loop. Keep this minimal - only methods the API layer actually calls.
type EngineSource interface {
	// Snapshot returns the latest lock-free immutable snapshot
	Snapshot() *engine.Snapshot
	// FishCount returns the live entity count
	FishCount() int
	// SetMood applies a speed multiplier to every entity
	SetMood(multiplier float64)
	// Mood returns the current speed multiplier
	Mood() float64
	// ResizeWorld changes the tile grid dimensions
	ResizeWorld(tilesH, tilesV int)
	// PoolStats reports bubble pool occupancy and counters
	PoolStats() (inUse, capacity int, forcedReuse, doubleReleases uint64)
	// TickCount returns the number of completed simulation ticks
	TickCount() uint64
}

// ObjectSource defines the decoration placement methods used by the API.
type ObjectSource interface {
	AddObjectAtPoint(spriteURL string, worldX, worldY float64, size, layer int) string
	AddObjectAtGrid(spriteURL string, gx, gy, size, layer int) string
	MoveObject(id string, gx, gy int) bool
	RemoveObject(id string) bool
	Clear()
	UpdateLayer(id string, layer int) bool
	MoveToForeground(id string) bool
	MoveToBackground(id string) bool
	Select(id string) bool
	ClearSelection()
	Selected() string
	Get(id string) (placement.ObjectSnapshot, bool)
	Objects() []placement.ObjectSnapshot
	Count() int
	// Reindex rebuilds the occupancy table after a world resize
	Reindex()
}

// FrameSource exposes rendered frames for a lagging consumer. The render
// package's FrameRing satisfies it.
type FrameSource interface {
	// TryRead returns the next unread frame, or nil when none is queued
	TryRead() []byte
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine:  mockEngine,
//	    Objects: placementIndex,
//	    Store:   memStore,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation (required)
	Engine EngineSource

	// Objects is the decoration placement index (required)
	Objects ObjectSource

	// Store is the authoritative fish record set (required). Fish
	// mutations go through the store so the reconciler applies them.
	Store store.Store

	// Hub is an optional WebSocket hub. If set, GET /ws is routed to it.
	Hub *Hub

	// Frames is an optional frame ring. If set, GET /api/frame serves the
	// next rendered frame to a lagging consumer (encoder, web preview).
	Frames FrameSource

	// FrameWidth/FrameHeight describe the raw RGBA frames Frames serves.
	FrameWidth  int
	FrameHeight int

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default local origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler dependencies for the router.
type routerHandlers struct {
	engine  EngineSource
	objects ObjectSource
	store   store.Store
	frames  FrameSource
	frameW  int
	frameH  int
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		engine:  cfg.Engine,
		objects: cfg.Objects,
		store:   cfg.Store,
		frames:  cfg.Frames,
		frameW:  cfg.FrameWidth,
		frameH:  cfg.FrameHeight,
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Aquarium state
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)

		// Fish management (mutations flow through the store)
		r.Get("/fish", h.handleListFish)
		r.Post("/fish", h.handleAddFish)
		r.Put("/fish/{id}", h.handleUpdateFish)
		r.Delete("/fish/{id}", h.handleRemoveFish)

		// Tank mood
		r.Get("/mood", h.handleGetMood)
		r.Post("/mood", h.handleSetMood)

		// World
		r.Post("/world/resize", h.handleResizeWorld)

		// Rendered frames
		if cfg.Frames != nil {
			r.Get("/frame", h.handleGetFrame)
		}

		// Decorations
		r.Get("/objects", h.handleListObjects)
		r.Post("/objects/point", h.handlePlaceAtPoint)
		r.Post("/objects/grid", h.handlePlaceAtGrid)
		r.Put("/objects/{id}/position", h.handleMoveObject)
		r.Put("/objects/{id}/layer", h.handleObjectLayer)
		r.Post("/objects/{id}/foreground", h.handleObjectForeground)
		r.Post("/objects/{id}/background", h.handleObjectBackground)
		r.Post("/objects/{id}/select", h.handleSelectObject)
		r.Post("/objects/deselect", h.handleClearSelection)
		r.Delete("/objects/{id}", h.handleRemoveObject)
		r.Delete("/objects", h.handleClearObjects)
	})

	// Viewer stream
	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWebSocket)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"service": "aquarium", "status": "ok"})
	})

	return r
}
