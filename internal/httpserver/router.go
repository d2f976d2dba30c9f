package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/chimera-systems/chimera/internal/httpserver/handlers"
	"github.com/chimera-systems/chimera/internal/httpserver/middleware"
)

// setupRouter configures the Chi router with routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger())
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.SecurityHeaders())
	r.Use(s.corsMiddleware())

	r.Get("/health", handlers.Health)
	r.Get("/api/v1/health", handlers.Health)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth())

		r.Get("/ws", s.handleWebSocket)

		r.Route("/fleet", func(r chi.Router) {
			r.Get("/", handlers.ListNodes)
			r.Get("/risk", handlers.RiskAssessment)
			r.Get("/{id}", handlers.GetNode)
		})

		r.Route("/drift", func(r chi.Router) {
			r.Get("/{id}", handlers.DriftHistory)
			r.Get("/{id}/root-cause", handlers.RootCause)
		})

		r.Route("/slos", func(r chi.Router) {
			r.Get("/", handlers.ListSLOs)
			r.Get("/{name}", handlers.GetSLO)
		})
	})

	return r
}

// corsMiddleware allows the dashboard frontend to be served from a
// different origin than the API during development.
func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Chimera-Subject"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// handleWebSocket handles WebSocket upgrade requests.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleConnection(w, r)
}
