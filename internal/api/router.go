package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.requestMetrics)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealthCheck)
		r.Post("/import", s.handleImport)
		r.Get("/history", s.handleListHistory)
		r.Delete("/history/{id}", s.handleDeleteHistory)
		r.Get("/host", s.handleGetHost)
		r.Put("/host", s.handleSetHost)
	})

	return r
}
