package controller

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSQLiteRepository_ReplaceAllAndList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	controllers := []Controller{testController("b", "Bravo"), testController("a", "Alpha")}
	if err := repo.ReplaceAll(ctx, controllers); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() len = %d, want 2", len(got))
	}
	// Directory order, not alphabetical.
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("List() order = %s,%s, want b,a", got[0].ID, got[1].ID)
	}
	if got[0].Alerts[0].MinimumDuration != 5*Minute {
		t.Errorf("round-tripped MinimumDuration = %v", got[0].Alerts[0].MinimumDuration)
	}

	// A second replace drops controllers that are gone.
	if err := repo.ReplaceAll(ctx, controllers[1:]); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	got, _ = repo.List(ctx)
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("List() after replace = %d controllers", len(got))
	}
}

func TestSQLiteRepository_SaveAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	c := testController("a", "Alpha")
	c.FetchedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Save(ctx, &c); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	c.Name = "Alpha 2"
	if err := repo.Save(ctx, &c); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}

	got, err := repo.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Alpha 2" {
		t.Errorf("Name = %q, want %q", got.Name, "Alpha 2")
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrControllerNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrControllerNotFound", err)
	}
	if err := repo.Save(ctx, &Controller{}); !errors.Is(err, ErrInvalidController) {
		t.Errorf("Save(empty) error = %v, want ErrInvalidController", err)
	}
}
