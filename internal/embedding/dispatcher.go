package embedding

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/user/recipe-importer/internal/monitoring"
	"go.uber.org/zap"
)

// Ensurer is what the dispatcher runs in the background.
type Ensurer interface {
	EnsureEmbeddings(ctx context.Context, ids []string) (int, error)
}

// Dispatcher runs embedding resyncs as detached background tasks. Callers never
// wait on a task; each task owns its timeout and reports its own failures.
type Dispatcher struct {
	ensurer Ensurer
	timeout time.Duration
	metrics *monitoring.Metrics
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(ensurer Ensurer, timeout time.Duration, m *monitoring.Metrics, l *zap.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		ensurer: ensurer,
		timeout: timeout,
		metrics: m,
		logger:  l,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Request starts a resync for ids and returns immediately.
func (d *Dispatcher) Request(ids []string) {
	if d.ctx.Err() != nil {
		d.logger.Warn("dispatcher closed, dropping embedding resync", zap.Int("count", len(ids)))
		return
	}
	ids = append([]string(nil), ids...)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.metrics.SyncFailures.Inc()
				d.logger.Error("embedding resync panicked", zap.Any("panic", r))
			}
		}()

		ctx := d.ctx
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		n, err := d.ensurer.EnsureEmbeddings(ctx, ids)
		d.metrics.EmbeddingsSynced.Add(float64(n))
		if err != nil {
			d.metrics.SyncFailures.Inc()
			var apiErr *APIError
			temporary := errors.As(err, &apiErr) && apiErr.Temporary()
			d.logger.Error("embedding resync failed",
				zap.Int("requested", len(ids)),
				zap.Int("created", n),
				zap.Bool("temporary", temporary),
				zap.Error(err),
			)
			return
		}
		d.logger.Debug("embedding resync finished", zap.Int("requested", len(ids)), zap.Int("created", n))
	}()
}

// Wait blocks until every started task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels running tasks, waits for them and rejects new requests.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
