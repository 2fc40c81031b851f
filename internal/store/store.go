package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/epiview/epiview/internal/catalog"
	pebblestore "github.com/epiview/epiview/internal/storage/pebble"
)

// Store is the local episode catalog.
type Store struct {
	db *pebblestore.DB

	mu       sync.Mutex
	notifyCh chan struct{}
}

// New returns a Store over the given database.
func New(db *pebblestore.DB) *Store {
	return &Store{db: db, notifyCh: make(chan struct{})}
}

// Upsert inserts or replaces the given episodes by id as one atomic batch and
// notifies watchers. Re-applying the same episodes leaves the stored content
// unchanged.
func (s *Store) Upsert(ctx context.Context, eps []catalog.Episode) error {
	if len(eps) == 0 {
		return nil
	}
	b := s.db.NewBatch()
	defer b.Close()
	for _, e := range eps {
		if e.ID == "" {
			return fmt.Errorf("store: episode with empty id")
		}
		val, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("store: encode episode %s: %w", e.ID, err)
		}
		if err := b.Set(KeyEpisode(e.ID), val, nil); err != nil {
			return err
		}
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return err
	}

	// notify watchers
	s.mu.Lock()
	close(s.notifyCh)
	s.notifyCh = make(chan struct{})
	s.mu.Unlock()
	return nil
}

// List returns the current episodes ordered by ordinal, filtered by category
// unless the selector is catalog.CategoryAll. Reads run against a snapshot so
// concurrent writes do not tear the result.
func (s *Store) List(ctx context.Context, category int) ([]catalog.Episode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := s.db.NewSnapshot()
	defer snap.Close()

	lo, hi := KeyEpisodeBounds()
	it, err := snap.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []catalog.Episode
	for ok := it.First(); ok; ok = it.Next() {
		var e catalog.Episode
		if err := json.Unmarshal(it.Value(), &e); err != nil {
			return nil, fmt.Errorf("store: decode %q: %w", it.Key(), err)
		}
		if e.MatchesCategory(category) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ordinal != out[j].Ordinal {
			return out[i].Ordinal < out[j].Ordinal
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get returns a single episode by id.
func (s *Store) Get(ctx context.Context, id string) (catalog.Episode, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Episode{}, err
	}
	b, err := s.db.Get(KeyEpisode(id))
	if err != nil {
		return catalog.Episode{}, err
	}
	var e catalog.Episode
	if err := json.Unmarshal(b, &e); err != nil {
		return catalog.Episode{}, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return e, nil
}

// Changed returns a channel closed after the next committed write. Grab it
// before reading so concurrent updates are not missed, then select on it to
// wake up for the following List.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifyCh
}
