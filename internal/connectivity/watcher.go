package connectivity

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/user/recipe-importer/internal/domain"
	"github.com/user/recipe-importer/internal/monitoring"
	"go.uber.org/zap"
)

// Event is an environment connectivity notification.
type Event int

const (
	EventOffline Event = iota
	EventOnline
)

func (e Event) String() string {
	if e == EventOnline {
		return "online"
	}
	return "offline"
}

// HistoryReader lists locally recorded imports.
type HistoryReader interface {
	List(ctx context.Context) ([]domain.HistoryEntry, error)
}

// Resyncer requests embedding resynchronization without waiting for it.
type Resyncer interface {
	Request(ids []string)
}

// Watcher owns the process-wide online flag. On a genuine transition to
// online it requests embedding resync for every recipe in the history.
type Watcher struct {
	online  atomic.Bool
	history HistoryReader
	resync  Resyncer
	metrics *monitoring.Metrics
	logger  *zap.Logger
	wg      sync.WaitGroup

	done     chan struct{}
	doneOnce sync.Once
}

// NewWatcher creates the watcher with the connectivity sampled at startup.
func NewWatcher(initialOnline bool, h HistoryReader, r Resyncer, m *monitoring.Metrics, l *zap.Logger) *Watcher {
	w := &Watcher{history: h, resync: r, metrics: m, logger: l, done: make(chan struct{})}
	w.online.Store(initialOnline)
	m.InitOnline(initialOnline)
	return w
}

func (w *Watcher) IsOnline() bool {
	return w.online.Load()
}

// HandleOnline marks the process online. Repeated notifications without an
// offline in between are ignored. The history read and resync request run in
// the background so the caller is never delayed.
func (w *Watcher) HandleOnline() {
	if !w.online.CompareAndSwap(false, true) {
		return
	}
	w.metrics.SetOnline(true)
	w.logger.Info("[online]", zap.Bool("online", true))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		entries, err := w.history.List(context.Background())
		if err != nil {
			w.logger.Error("failed to read history for embedding resync", zap.Error(err))
			return
		}
		w.resync.Request(domain.RecipeIDs(entries))
	}()
}

// HandleOffline marks the process offline. It has no other effect.
func (w *Watcher) HandleOffline() {
	if !w.online.CompareAndSwap(true, false) {
		return
	}
	w.metrics.SetOnline(false)
	w.logger.Info("[offline]", zap.Bool("online", false))
}

// Handle dispatches a single event.
func (w *Watcher) Handle(e Event) {
	switch e {
	case EventOnline:
		w.HandleOnline()
	case EventOffline:
		w.HandleOffline()
	}
}

// Run consumes events one at a time until ctx is done or events is closed.
func (w *Watcher) Run(ctx context.Context, events <-chan Event) {
	defer w.doneOnce.Do(func() { close(w.done) })
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			w.Handle(e)
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once Run has returned. After that no new background work
// can start, so Wait is safe to call.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Wait blocks until background work started by online transitions has finished.
// Callers driving the watcher through Run must wait for Done first.
func (w *Watcher) Wait() {
	w.wg.Wait()
}
