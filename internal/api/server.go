package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/user/recipe-importer/internal/config"
	"github.com/user/recipe-importer/internal/domain"
	"github.com/user/recipe-importer/internal/monitoring"
	"go.uber.org/zap"
)

// RecipeService is the application layer behind the HTTP handlers.
type RecipeService interface {
	Import(ctx context.Context, url string) (*domain.Recipe, error)
	History(ctx context.Context) ([]domain.HistoryEntry, error)
	Forget(ctx context.Context, entryID string) error
}

type OnlineChecker interface {
	IsOnline() bool
}

// Pinger is a backing store that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	recipes    RecipeService
	host       *config.Host
	online     OnlineChecker
	pgStore    Pinger // nil when embeddings are disabled
	redisStore Pinger // nil when embeddings are disabled
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, svc RecipeService, host *config.Host, online OnlineChecker, ps, rs Pinger, m *monitoring.Metrics, l *zap.Logger) *Server {
	s := &Server{
		config:     cfg,
		recipes:    svc,
		host:       host,
		online:     online,
		pgStore:    ps,
		redisStore: rs,
		metrics:    m,
		logger:     l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the port so callers know the server is reachable before Serve runs.
func (s *Server) Listen() (net.Listener, error) {
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
		// Imports wait on the scraping service, which can be slow.
		WriteTimeout: 90 * time.Second,
	}
	return net.Listen("tcp", s.httpServer.Addr)
}

func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
