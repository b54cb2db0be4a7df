package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/recipe-importer/internal/domain"
	"go.uber.org/zap"
)

type countingWorker struct{ starts atomic.Int32 }

func (c *countingWorker) Start(context.Context) { c.starts.Add(1) }

func TestRegistrar_Gating(t *testing.T) {
	cases := []struct {
		name       string
		production bool
		capable    bool
		want       bool
	}{
		{"production and capable", true, true, true},
		{"development build", false, true, false},
		{"unsupported host", true, false, false},
		{"neither", false, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := &countingWorker{}
			r := NewRegistrar(tc.production, func() bool { return tc.capable }, w, zap.NewNop())

			if got := r.RegisterOnce(context.Background()); got != tc.want {
				t.Errorf("RegisterOnce = %v, want %v", got, tc.want)
			}
			wantStarts := int32(0)
			if tc.want {
				wantStarts = 1
			}
			if w.starts.Load() != wantStarts {
				t.Errorf("want %d starts, got %d", wantStarts, w.starts.Load())
			}
		})
	}
}

func TestRegistrar_OnlyOnce(t *testing.T) {
	w := &countingWorker{}
	r := NewRegistrar(true, nil, w, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RegisterOnce(context.Background())
		}()
	}
	wg.Wait()

	if w.starts.Load() != 1 {
		t.Errorf("want exactly one start, got %d", w.starts.Load())
	}
}

type staticOnline bool

func (s staticOnline) IsOnline() bool { return bool(s) }

type listHistory []domain.HistoryEntry

func (l listHistory) List(context.Context) ([]domain.HistoryEntry, error) { return l, nil }

type chanResyncer chan []string

func (c chanResyncer) Request(ids []string) {
	select {
	case c <- ids:
	default:
	}
}

func TestBackfill_RequestsHistoryWhileOnline(t *testing.T) {
	h := listHistory{{ID: "e1", RecipeID: "r1"}, {ID: "e2", RecipeID: "r2"}, {ID: "e3", RecipeID: "r1"}}
	out := make(chanResyncer, 4)
	b := NewBackfill(10*time.Millisecond, staticOnline(true), h, out, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)

	select {
	case ids := <-out:
		if len(ids) != 2 || ids[0] != "r1" || ids[1] != "r2" {
			t.Errorf("want [r1 r2], got %v", ids)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("backfill never requested a resync")
	}

	cancel()
	b.Wait()
}

func TestBackfill_SkipsWhileOffline(t *testing.T) {
	h := listHistory{{ID: "e1", RecipeID: "r1"}}
	out := make(chanResyncer, 4)
	b := NewBackfill(time.Hour, staticOnline(false), h, out, zap.NewNop())

	b.tick(context.Background())

	if len(out) != 0 {
		t.Errorf("want no resync while offline, got %d", len(out))
	}
}

func TestBackfill_NonPositiveIntervalUsesDefault(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		b := NewBackfill(d, staticOnline(false), listHistory{}, make(chanResyncer, 1), zap.NewNop())
		if b.interval != DefaultBackfillInterval {
			t.Errorf("interval %v: want default, got %v", d, b.interval)
		}

		ctx, cancel := context.WithCancel(context.Background())
		b.Start(ctx)
		cancel()
		b.Wait()
	}
}
