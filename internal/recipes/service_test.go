package recipes

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/user/recipe-importer/internal/domain"
	"github.com/user/recipe-importer/internal/importer"
	"github.com/user/recipe-importer/internal/monitoring"
	"go.uber.org/zap"
)

type fakeImporter struct {
	recipe *domain.Recipe
	err    error
}

func (f fakeImporter) ImportFromURL(context.Context, string) (*domain.Recipe, error) {
	return f.recipe, f.err
}

type fakeHistory struct {
	entries []domain.HistoryEntry
	recipes map[string]*domain.Recipe
	addErr  error
}

func (f *fakeHistory) Add(_ context.Context, e domain.HistoryEntry, r *domain.Recipe) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.entries = append(f.entries, e)
	if f.recipes == nil {
		f.recipes = map[string]*domain.Recipe{}
	}
	f.recipes[e.RecipeID] = r
	return nil
}

func (f *fakeHistory) List(context.Context) ([]domain.HistoryEntry, error) { return f.entries, nil }

func (f *fakeHistory) Delete(_ context.Context, id string) error {
	for i, e := range f.entries {
		if e.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

type staticOnline bool

func (s staticOnline) IsOnline() bool { return bool(s) }

type recordingResyncer struct{ requests [][]string }

func (r *recordingResyncer) Request(ids []string) { r.requests = append(r.requests, ids) }

func newService(imp Importer, h HistoryStore, online bool) (*Service, *recordingResyncer, *monitoring.Metrics) {
	r := &recordingResyncer{}
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	return NewService(imp, h, staticOnline(online), r, m, zap.NewNop()), r, m
}

func TestService_ImportRecordsHistoryAndResyncs(t *testing.T) {
	h := &fakeHistory{}
	svc, r, m := newService(fakeImporter{recipe: &domain.Recipe{ID: "r1", Title: "Stew"}}, h, true)

	recipe, err := svc.Import(context.Background(), "https://example.com/stew")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recipe.ID != "r1" {
		t.Errorf("want r1, got %q", recipe.ID)
	}
	if len(h.entries) != 1 {
		t.Fatalf("want 1 history entry, got %d", len(h.entries))
	}
	e := h.entries[0]
	if e.RecipeID != "r1" || e.URL != "https://example.com/stew" || e.Title != "Stew" || e.ID == "" {
		t.Errorf("bad entry: %+v", e)
	}
	if len(r.requests) != 1 || r.requests[0][0] != "r1" {
		t.Errorf("want resync of r1, got %v", r.requests)
	}
	if got := testutil.ToFloat64(m.ImportsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("want 1 success, got %v", got)
	}
}

func TestService_ImportAssignsIDWhenMissing(t *testing.T) {
	h := &fakeHistory{}
	svc, _, _ := newService(fakeImporter{recipe: &domain.Recipe{Title: "Salad"}}, h, false)

	recipe, err := svc.Import(context.Background(), "u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recipe.ID == "" || h.entries[0].RecipeID != recipe.ID {
		t.Errorf("id not assigned consistently: recipe=%q entry=%q", recipe.ID, h.entries[0].RecipeID)
	}
}

func TestService_ImportOfflineSkipsResync(t *testing.T) {
	svc, r, _ := newService(fakeImporter{recipe: &domain.Recipe{ID: "r1"}}, &fakeHistory{}, false)

	if _, err := svc.Import(context.Background(), "u"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.requests) != 0 {
		t.Errorf("offline import must not resync, got %v", r.requests)
	}
}

func TestService_ImportErrorIsReturnedUnchanged(t *testing.T) {
	remote := &importer.RemoteError{Message: "blocked by site"}
	h := &fakeHistory{}
	svc, r, m := newService(fakeImporter{err: remote}, h, true)

	_, err := svc.Import(context.Background(), "u")
	if err != remote {
		t.Fatalf("want the importer's error, got %v", err)
	}
	if len(h.entries) != 0 || len(r.requests) != 0 {
		t.Error("failed import must not touch history or embeddings")
	}
	if got := testutil.ToFloat64(m.ImportsTotal.WithLabelValues("remote_error")); got != 1 {
		t.Errorf("want 1 remote_error, got %v", got)
	}
}

func TestService_HistoryFailureStillReturnsRecipe(t *testing.T) {
	h := &fakeHistory{addErr: errors.New("disk full")}
	svc, r, _ := newService(fakeImporter{recipe: &domain.Recipe{ID: "r1"}}, h, true)

	recipe, err := svc.Import(context.Background(), "u")
	if err != nil || recipe == nil {
		t.Fatalf("want recipe despite history failure, got %v, %v", recipe, err)
	}
	if len(r.requests) != 0 {
		t.Error("unrecorded recipe cannot be embedded")
	}
}

func TestOutcomeLabel(t *testing.T) {
	cases := map[string]error{
		"success":         nil,
		"remote_error":    &importer.RemoteError{Message: "x"},
		"transport_error": &importer.TransportError{StatusCode: 500},
		"protocol_error":  &importer.ProtocolError{Err: errors.New("bad json")},
		"unknown":         importer.ErrUnknownResponse,
		"other":           errors.New("???"),
	}
	for want, err := range cases {
		if got := outcomeLabel(err); got != want {
			t.Errorf("outcomeLabel(%v) = %q, want %q", err, got, want)
		}
	}
}
