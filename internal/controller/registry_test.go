package controller

import (
	"context"
	"errors"
	"testing"
)

type fakeDirectory struct {
	controllers []Controller
	err         error
	calls       int
}

func (f *fakeDirectory) ListControllers(_ context.Context) ([]Controller, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Controller, len(f.controllers))
	for i := range f.controllers {
		out[i] = *f.controllers[i].DeepCopy()
	}
	return out, nil
}

func TestRegistry_RefreshFromDirectory(t *testing.T) {
	dir := &fakeDirectory{controllers: []Controller{testController("b", "Bravo"), testController("a", "Alpha")}}
	repo := NewSQLiteRepository(setupTestDB(t))
	reg := NewRegistry(dir, repo)
	ctx := context.Background()

	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.Stale() {
		t.Error("Stale() = true after directory refresh")
	}
	if reg.ControllerCount() != 2 {
		t.Errorf("ControllerCount() = %d, want 2", reg.ControllerCount())
	}

	list, _ := reg.ListControllers(ctx)
	if list[0].ID != "b" || list[1].ID != "a" {
		t.Errorf("ListControllers() order = %s,%s, want b,a", list[0].ID, list[1].ID)
	}
	if list[0].FetchedAt.IsZero() {
		t.Error("FetchedAt not stamped")
	}

	stored, err := repo.List(ctx)
	if err != nil || len(stored) != 2 {
		t.Errorf("snapshot = %d controllers, err %v; want 2", len(stored), err)
	}
}

func TestRegistry_FallsBackToSnapshot(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	if err := repo.ReplaceAll(ctx, []Controller{testController("a", "Alpha")}); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	reg := NewRegistry(&fakeDirectory{err: errors.New("backend down")}, repo)
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if !reg.Stale() {
		t.Error("Stale() = false, want true when serving the snapshot")
	}
	if _, err := reg.GetController(ctx, "a"); err != nil {
		t.Errorf("GetController() error = %v", err)
	}
}

func TestRegistry_NoSources(t *testing.T) {
	reg := NewRegistry(nil, nil)
	if err := reg.RefreshCache(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("RefreshCache() error = %v, want ErrNoSnapshot", err)
	}

	down := errors.New("backend down")
	reg = NewRegistry(&fakeDirectory{err: down}, nil)
	if err := reg.RefreshCache(context.Background()); !errors.Is(err, down) {
		t.Errorf("RefreshCache() error = %v, want wrapped directory error", err)
	}
}

func TestRegistry_CacheIsolation(t *testing.T) {
	dir := &fakeDirectory{controllers: []Controller{testController("a", "Alpha")}}
	reg := NewRegistry(dir, nil)
	ctx := context.Background()
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	c, _ := reg.GetController(ctx, "a")
	c.Name = "mutated"
	c.Alerts[0].Threshold = 1

	again, _ := reg.GetController(ctx, "a")
	if again.Name != "Alpha" || again.Alerts[0].Threshold != 80 {
		t.Error("GetController() returned a shared reference")
	}
	if _, err := reg.GetController(ctx, "missing"); !errors.Is(err, ErrControllerNotFound) {
		t.Errorf("GetController(missing) error = %v", err)
	}
}

func TestRegistry_ApplyAndRemoveRule(t *testing.T) {
	dir := &fakeDirectory{controllers: []Controller{testController("a", "Alpha")}}
	repo := NewSQLiteRepository(setupTestDB(t))
	reg := NewRegistry(dir, repo)
	ctx := context.Background()
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	alert := Alert{
		RuleBase:   RuleBase{ID: "a-a2", RuleGroupID: "a-rg1", IsEnabled: true},
		SensorID:   "a-s-temp",
		Comparison: Below,
		Threshold:  5,
	}
	if err := reg.ApplyRule(ctx, "a", alert); err != nil {
		t.Fatalf("ApplyRule() error = %v", err)
	}
	c, _ := reg.GetController(ctx, "a")
	if len(c.Alerts) != 2 {
		t.Errorf("len(Alerts) = %d, want 2", len(c.Alerts))
	}

	stored, err := repo.GetByID(ctx, "a")
	if err != nil || len(stored.Alerts) != 2 {
		t.Errorf("snapshot not updated: %v", err)
	}

	if err := reg.RemoveRule(ctx, "a", KindAlert, "a-a1"); err != nil {
		t.Fatalf("RemoveRule() error = %v", err)
	}
	c, _ = reg.GetController(ctx, "a")
	if len(c.Alerts) != 1 || c.Alerts[0].ID != "a-a2" {
		t.Errorf("Alerts after remove = %+v", c.Alerts)
	}

	if err := reg.ApplyRule(ctx, "missing", alert); !errors.Is(err, ErrControllerNotFound) {
		t.Errorf("ApplyRule(missing) error = %v", err)
	}
}

func TestRegistry_CancelledRefreshKeepsCache(t *testing.T) {
	dir := &fakeDirectory{controllers: []Controller{testController("a", "Alpha")}}
	repo := NewSQLiteRepository(setupTestDB(t))
	reg := NewRegistry(dir, repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir.err = context.Canceled
	if err := reg.RefreshCache(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RefreshCache() error = %v, want context.Canceled", err)
	}
	if reg.Stale() {
		t.Error("cancelled refresh switched the cache to the snapshot")
	}
}
