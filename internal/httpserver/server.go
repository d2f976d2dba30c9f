// Package httpserver provides the fleet dashboard's HTTP and WebSocket API.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chimera-systems/chimera/internal/analytics"
	"github.com/chimera-systems/chimera/internal/config"
	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/history"
	"github.com/chimera-systems/chimera/internal/httpserver/handlers"
	httpws "github.com/chimera-systems/chimera/internal/httpserver/websocket"
	"github.com/chimera-systems/chimera/internal/registry"
	"github.com/chimera-systems/chimera/internal/rootcause"
	"github.com/chimera-systems/chimera/internal/slotracker"
)

// Server is the fleet dashboard's HTTP server.
type Server struct {
	config     config.WebConfig
	router     chi.Router
	httpServer *http.Server
	wsHub      *httpws.Hub
	metrics    http.Handler
}

// ServerDeps contains dependencies for creating a new server.
type ServerDeps struct {
	Config    config.WebConfig
	Registry  *registry.Registry
	History   *history.Store
	Analytics *analytics.Service
	RootCause *rootcause.Correlator
	SLOs      *slotracker.Tracker
	Policy    domain.Policy
	// Metrics serves the Prometheus text exposition format at /metrics.
	// Nil disables the endpoint.
	Metrics http.Handler
}

// NewServer creates a new dashboard HTTP server.
func NewServer(deps ServerDeps) *Server {
	s := &Server{
		config:  deps.Config,
		wsHub:   httpws.NewHub(),
		metrics: deps.Metrics,
	}

	handlers.SetContext(&handlers.Context{
		Registry:  deps.Registry,
		History:   deps.History,
		Analytics: deps.Analytics,
		RootCause: deps.RootCause,
		SLOs:      deps.SLOs,
		Policy:    deps.Policy,
	})

	s.router = s.setupRouter()

	addr := fmt.Sprintf("%s:%d", deps.Config.Host, deps.Config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start runs the HTTP server until ctx is cancelled or a listen error occurs.
func (s *Server) Start(ctx context.Context) error {
	go s.wsHub.Run(ctx)

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx) //nolint:contextcheck
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	s.wsHub.Close()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Address returns the server's bind address.
func (s *Server) Address() string {
	return s.httpServer.Addr
}

// Hub returns the WebSocket hub so callers can broadcast fleet events.
func (s *Server) Hub() *httpws.Hub {
	return s.wsHub
}

// EventBroadcaster returns a broadcaster that fans domain events out to
// connected WebSocket clients.
func (s *Server) EventBroadcaster() *httpws.EventBroadcaster {
	return httpws.NewEventBroadcaster(s.wsHub)
}
