package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/recipe-importer/internal/domain"
	"go.uber.org/zap"
)

// RecipeSource loads locally stored recipes.
type RecipeSource interface {
	Recipe(ctx context.Context, recipeID string) (*domain.Recipe, error)
}

type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the durable home of embeddings.
type VectorStore interface {
	Missing(ctx context.Context, ids []string) ([]string, error)
	SaveEmbeddings(ctx context.Context, records []domain.EmbeddedRecipe) error
}

// MarkerCache remembers recipes known to be embedded so the store is not queried for them.
type MarkerCache interface {
	Unmarked(ctx context.Context, ids []string) ([]string, error)
	MarkEmbedded(ctx context.Context, ids []string, ttl time.Duration) error
}

// Syncer makes sure recipes have embeddings.
type Syncer struct {
	recipes   RecipeSource
	embedder  Embedder
	store     VectorStore // nil disables embeddings
	markers   MarkerCache // optional
	batchSize int
	markerTTL time.Duration
	logger    *zap.Logger
}

func NewSyncer(recipes RecipeSource, embedder Embedder, store VectorStore, markers MarkerCache, batchSize int, markerTTL time.Duration, logger *zap.Logger) *Syncer {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Syncer{
		recipes:   recipes,
		embedder:  embedder,
		store:     store,
		markers:   markers,
		batchSize: batchSize,
		markerTTL: markerTTL,
		logger:    logger,
	}
}

// EnsureEmbeddings creates embeddings for the recipes in ids that lack one and
// reports how many were created.
func (s *Syncer) EnsureEmbeddings(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if s.store == nil {
		s.logger.Debug("no embedding store configured, skipping resync", zap.Int("recipes", len(ids)))
		return 0, nil
	}

	candidates := ids
	if s.markers != nil {
		unmarked, err := s.markers.Unmarked(ctx, ids)
		if err != nil {
			s.logger.Warn("embedding marker lookup failed, checking store", zap.Error(err))
		} else {
			candidates = unmarked
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	missing, err := s.store.Missing(ctx, candidates)
	if err != nil {
		return 0, fmt.Errorf("find missing embeddings: %w", err)
	}
	s.mark(ctx, subtract(candidates, missing))

	created := 0
	for start := 0; start < len(missing); start += s.batchSize {
		end := min(start+s.batchSize, len(missing))
		n, err := s.embedBatch(ctx, missing[start:end])
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

func (s *Syncer) embedBatch(ctx context.Context, ids []string) (int, error) {
	var records []domain.EmbeddedRecipe
	var texts []string
	for _, id := range ids {
		recipe, err := s.recipes.Recipe(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			s.logger.Warn("skipping recipe without local copy", zap.String("recipe_id", id), zap.Error(err))
			continue
		}
		text := RecipeText(recipe)
		if text == "" {
			s.logger.Debug("skipping recipe with empty text", zap.String("recipe_id", id))
			continue
		}
		records = append(records, domain.EmbeddedRecipe{RecipeID: id, Text: text})
		texts = append(texts, text)
	}
	if len(records) == 0 {
		return 0, nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %d recipes: %w", len(texts), err)
	}
	if len(vectors) != len(records) {
		return 0, errors.New("embedder returned a mismatched vector count")
	}
	for i := range records {
		records[i].Embedding = vectors[i]
	}

	if err := s.store.SaveEmbeddings(ctx, records); err != nil {
		return 0, fmt.Errorf("save embeddings: %w", err)
	}

	done := make([]string, len(records))
	for i, r := range records {
		done[i] = r.RecipeID
	}
	s.mark(ctx, done)
	s.logger.Info("stored recipe embeddings", zap.Int("count", len(records)))
	return len(records), nil
}

func (s *Syncer) mark(ctx context.Context, ids []string) {
	if s.markers == nil || len(ids) == 0 {
		return
	}
	if err := s.markers.MarkEmbedded(ctx, ids, s.markerTTL); err != nil {
		s.logger.Warn("failed to mark recipes as embedded", zap.Int("count", len(ids)), zap.Error(err))
	}
}

// subtract returns the elements of all not present in remove.
func subtract(all, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	var out []string
	for _, id := range all {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
