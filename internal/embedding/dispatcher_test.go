package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/user/recipe-importer/internal/monitoring"
	"go.uber.org/zap"
)

type blockingEnsurer struct {
	mu      sync.Mutex
	calls   [][]string
	release chan struct{}
	err     error
	panic   bool
}

func (b *blockingEnsurer) EnsureEmbeddings(ctx context.Context, ids []string) (int, error) {
	b.mu.Lock()
	b.calls = append(b.calls, ids)
	b.mu.Unlock()
	if b.panic {
		panic("boom")
	}
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return len(ids), b.err
}

func TestDispatcher_RequestDoesNotBlock(t *testing.T) {
	ens := &blockingEnsurer{release: make(chan struct{})}
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(ens, time.Minute, m, zap.NewNop())

	done := make(chan struct{})
	go func() {
		d.Request([]string{"r1", "r2"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Request blocked on a running resync")
	}

	close(ens.release)
	d.Wait()

	if got := testutil.ToFloat64(m.EmbeddingsSynced); got != 2 {
		t.Errorf("want 2 synced, got %v", got)
	}
}

func TestDispatcher_CopiesIDs(t *testing.T) {
	ens := &blockingEnsurer{release: make(chan struct{})}
	d := NewDispatcher(ens, time.Minute, monitoring.NewMetrics(prometheus.NewRegistry()), zap.NewNop())

	ids := []string{"r1"}
	d.Request(ids)
	ids[0] = "changed"
	close(ens.release)
	d.Wait()

	if ens.calls[0][0] != "r1" {
		t.Errorf("caller mutation leaked into task: %v", ens.calls[0])
	}
}

func TestDispatcher_FailuresAreCountedNotPropagated(t *testing.T) {
	ens := &blockingEnsurer{err: errors.New("embedding API down")}
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(ens, time.Minute, m, zap.NewNop())

	d.Request([]string{"r1"})
	d.Wait()

	if got := testutil.ToFloat64(m.SyncFailures); got != 1 {
		t.Errorf("want 1 failure, got %v", got)
	}
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	ens := &blockingEnsurer{panic: true}
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(ens, time.Minute, m, zap.NewNop())

	d.Request([]string{"r1"})
	d.Wait()

	if got := testutil.ToFloat64(m.SyncFailures); got != 1 {
		t.Errorf("want 1 failure, got %v", got)
	}
}

func TestDispatcher_CloseCancelsAndRejects(t *testing.T) {
	ens := &blockingEnsurer{release: make(chan struct{})}
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(ens, time.Minute, m, zap.NewNop())

	d.Request([]string{"r1"})
	d.Close()

	if got := testutil.ToFloat64(m.SyncFailures); got != 1 {
		t.Errorf("canceled task should count as a failure, got %v", got)
	}

	d.Request([]string{"r2"})
	d.Wait()
	if len(ens.calls) != 1 {
		t.Errorf("request after Close should be dropped, got %d calls", len(ens.calls))
	}
}
