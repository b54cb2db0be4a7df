package recipes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/user/recipe-importer/internal/domain"
	"github.com/user/recipe-importer/internal/importer"
	"github.com/user/recipe-importer/internal/monitoring"
	"go.uber.org/zap"
)

type Importer interface {
	ImportFromURL(ctx context.Context, url string) (*domain.Recipe, error)
}

type HistoryStore interface {
	Add(ctx context.Context, entry domain.HistoryEntry, recipe *domain.Recipe) error
	List(ctx context.Context) ([]domain.HistoryEntry, error)
	Delete(ctx context.Context, entryID string) error
}

type OnlineChecker interface {
	IsOnline() bool
}

type Resyncer interface {
	Request(ids []string)
}

// Service imports recipes and keeps the local history and embeddings in step.
type Service struct {
	importer Importer
	history  HistoryStore
	online   OnlineChecker
	resync   Resyncer
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(imp Importer, h HistoryStore, online OnlineChecker, r Resyncer, m *monitoring.Metrics, l *zap.Logger) *Service {
	return &Service{
		importer: imp,
		history:  h,
		online:   online,
		resync:   r,
		metrics:  m,
		logger:   l,
		now:      time.Now,
	}
}

// Import scrapes url through the remote service and records the result.
// Only the import itself can fail the call; bookkeeping failures are logged.
func (s *Service) Import(ctx context.Context, url string) (*domain.Recipe, error) {
	start := s.now()
	recipe, err := s.importer.ImportFromURL(ctx, url)
	s.metrics.ImportDuration.Observe(s.now().Sub(start).Seconds())
	s.metrics.IncImport(outcomeLabel(err))
	if err != nil {
		s.logger.Warn("recipe import failed", zap.String("url", url), zap.Error(err))
		return nil, err
	}

	if recipe.ID == "" {
		recipe.ID = uuid.NewString()
	}
	entry := domain.HistoryEntry{
		ID:         uuid.NewString(),
		RecipeID:   recipe.ID,
		URL:        url,
		Title:      recipe.Title,
		ImportedAt: s.now().UTC(),
	}
	if err := s.history.Add(ctx, entry, recipe); err != nil {
		s.logger.Error("failed to record import in history", zap.String("url", url), zap.String("recipe_id", recipe.ID), zap.Error(err))
		return recipe, nil
	}

	s.logger.Info("recipe imported", zap.String("url", url), zap.String("recipe_id", recipe.ID))
	if s.online.IsOnline() {
		s.resync.Request([]string{recipe.ID})
	}
	return recipe, nil
}

func (s *Service) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	return s.history.List(ctx)
}

func (s *Service) Forget(ctx context.Context, entryID string) error {
	return s.history.Delete(ctx, entryID)
}

func outcomeLabel(err error) string {
	var remote *importer.RemoteError
	var protocol *importer.ProtocolError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &remote):
		return "remote_error"
	case errors.Is(err, importer.ErrFetchFailed):
		return "transport_error"
	case errors.As(err, &protocol):
		return "protocol_error"
	case errors.Is(err, importer.ErrUnknownResponse):
		return "unknown"
	default:
		return "other"
	}
}
