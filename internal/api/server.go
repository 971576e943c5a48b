package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"aquarium/internal/store"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support.
type Server struct {
	engine      EngineSource
	objects     ObjectSource
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates an API server with default production configuration.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(engine EngineSource, objects ObjectSource, st store.Store) *Server {
	return NewServerWithFrames(engine, objects, st, nil, 0, 0)
}

// NewServerWithFrames is NewServer plus a rendered-frame source; the
// frame dimensions are reported to clients via response headers.
func NewServerWithFrames(engine EngineSource, objects ObjectSource, st store.Store, frames FrameSource, frameW, frameH int) *Server {
	s := &Server{
		engine:      engine,
		objects:     objects,
		hub:         NewHub(),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		Objects:     objects,
		Store:       st,
		Hub:         s.hub,
		RateLimiter: s.rateLimiter,
		Frames:      frames,
		FrameWidth:  frameW,
		FrameHeight: frameH,
	})

	return s
}

// Start begins the HTTP server AND starts background workers.
// This is the only method that starts goroutines or opens listeners.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	s.hub.StartBroadcastLoop(s.engine, s.objects)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("aquarium API listening on %s", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub for wiring external broadcasters.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Stop gracefully shuts down the listener and background workers.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.hub.Stop()
	s.rateLimiter.Stop()
	return err
}
