package worker

import (
	"context"
	"sync"
	"time"

	"github.com/user/recipe-importer/internal/domain"
	"go.uber.org/zap"
)

type OnlineChecker interface {
	IsOnline() bool
}

type HistoryReader interface {
	List(ctx context.Context) ([]domain.HistoryEntry, error)
}

type Resyncer interface {
	Request(ids []string)
}

// Backfill periodically requests embeddings for the whole history while online,
// catching anything a missed transition or failed resync left behind.
type Backfill struct {
	interval time.Duration
	online   OnlineChecker
	history  HistoryReader
	resync   Resyncer
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// DefaultBackfillInterval is used when NewBackfill is given a non-positive interval.
const DefaultBackfillInterval = time.Hour

func NewBackfill(interval time.Duration, online OnlineChecker, h HistoryReader, r Resyncer, l *zap.Logger) *Backfill {
	if interval <= 0 {
		interval = DefaultBackfillInterval
	}
	return &Backfill{interval: interval, online: online, history: h, resync: r, logger: l}
}

func (b *Backfill) Start(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				b.tick(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (b *Backfill) tick(ctx context.Context) {
	if !b.online.IsOnline() {
		b.logger.Debug("backfill: offline, skipping")
		return
	}
	entries, err := b.history.List(ctx)
	if err != nil {
		b.logger.Error("backfill: failed to read history", zap.Error(err))
		return
	}
	ids := domain.RecipeIDs(entries)
	if len(ids) == 0 {
		return
	}
	b.resync.Request(ids)
}

// Wait blocks until the worker loop has exited.
func (b *Backfill) Wait() {
	b.wg.Wait()
}
