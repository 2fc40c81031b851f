package store

import (
	"context"
	"testing"
	"time"

	"github.com/epiview/epiview/internal/catalog"
	pebblestore "github.com/epiview/epiview/internal/storage/pebble"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func seed() []catalog.Episode {
	return []catalog.Episode{
		{ID: "e2", Title: "Two", Ordinal: 2, Category: 2},
		{ID: "e1", Title: "One", Ordinal: 1, Category: 1},
		{ID: "e3", Title: "Three", Ordinal: 3, Category: 1},
	}
}

func TestListOrdersByOrdinal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, seed()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	eps, err := s.List(ctx, catalog.CategoryAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(eps) != 3 {
		t.Fatalf("want 3 episodes, got %d", len(eps))
	}
	for i, want := range []string{"e1", "e2", "e3"} {
		if eps[i].ID != want {
			t.Fatalf("pos %d: want %s got %s", i, want, eps[i].ID)
		}
	}
}

func TestListFiltersByCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, seed()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	eps, err := s.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(eps) != 2 {
		t.Fatalf("want 2 episodes in category 1, got %d", len(eps))
	}
	if eps[0].ID != "e1" || eps[1].ID != "e3" {
		t.Fatalf("unexpected order: %v", eps)
	}
}

func TestUpsertReplacesById(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, seed()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, []catalog.Episode{{ID: "e1", Title: "One v2", Ordinal: 1, Category: 1}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	e, err := s.Get(ctx, "e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.Title != "One v2" {
		t.Fatalf("want replaced title, got %q", e.Title)
	}
	eps, _ := s.List(ctx, catalog.CategoryAll)
	if len(eps) != 3 {
		t.Fatalf("replace must not grow the catalog: got %d", len(eps))
	}
}

func TestUpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, seed()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	before, _ := s.List(ctx, catalog.CategoryAll)
	if err := s.Upsert(ctx, seed()); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	after, _ := s.List(ctx, catalog.CategoryAll)
	if len(before) != len(after) {
		t.Fatalf("idempotent upsert changed count: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("idempotent upsert changed content at %d: %v -> %v", i, before[i], after[i])
		}
	}
}

func TestChangedNotifiesOnUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ch := s.Changed()
	if err := s.Upsert(ctx, seed()[:1]); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected change notification after upsert")
	}
	// A fresh channel covers the next write.
	ch2 := s.Changed()
	select {
	case <-ch2:
		t.Fatal("new channel must not be closed before the next write")
	default:
	}
}
