package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/user/recipe-importer/internal/domain"
	"github.com/user/recipe-importer/internal/history"
	"github.com/user/recipe-importer/internal/importer"
	"go.uber.org/zap"
)

// RecipeIDHeader carries the id an imported recipe is recorded under.
const RecipeIDHeader = "X-Recipe-Id"

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req domain.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		s.respondWithError(w, http.StatusBadRequest, "url is required")
		return
	}

	recipe, err := s.recipes.Import(r.Context(), req.URL)
	if err != nil {
		var remote *importer.RemoteError
		if errors.As(err, &remote) {
			s.respondWithError(w, http.StatusUnprocessableEntity, remote.Error())
			return
		}
		s.respondWithError(w, http.StatusBadGateway, err.Error())
		return
	}

	// The body is the scraped data verbatim, so the id history refers to travels in a header.
	w.Header().Set(RecipeIDHeader, recipe.ID)
	s.respondWithJSON(w, http.StatusOK, recipe)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.recipes.History(r.Context())
	if err != nil {
		s.logger.Error("failed to list history", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not read history")
		return
	}
	s.respondWithJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.recipes.Forget(r.Context(), id); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			s.respondWithError(w, http.StatusNotFound, "History entry not found")
			return
		}
		s.logger.Error("failed to delete history entry", zap.String("id", id), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not delete history entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetHost(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, domain.HostUpdate{Host: s.host.Get()})
}

func (s *Server) handleSetHost(w http.ResponseWriter, r *http.Request) {
	var req domain.HostUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := url.ParseRequestURI(req.Host); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid host URL")
		return
	}

	s.host.Set(req.Host)
	s.logger.Info("scrape host switched", zap.String("host", req.Host))
	s.respondWithJSON(w, http.StatusOK, req)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"connectivity": "offline"}
	if s.online.IsOnline() {
		healthStatus["connectivity"] = "online"
	}

	isHealthy := true
	check := func(name string, p Pinger) {
		if p == nil {
			healthStatus[name] = "disabled"
			return
		}
		if err := p.Ping(ctx); err != nil {
			healthStatus[name] = "unhealthy"
			isHealthy = false
			s.logger.Error("health check failed", zap.String("store", name), zap.Error(err))
			return
		}
		healthStatus[name] = "healthy"
	}
	check("postgres", s.pgStore)
	check("redis", s.redisStore)

	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
