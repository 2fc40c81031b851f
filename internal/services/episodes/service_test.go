package episodesvc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/epiview/epiview/internal/catalog"
	"github.com/epiview/epiview/internal/store"
	pebblestore "github.com/epiview/epiview/internal/storage/pebble"
)

type fakeSource struct {
	episodes []catalog.Episode
	order    []string
	orderErr error

	fetchCalls    atomic.Int32
	categoryCalls atomic.Int32
	orderCalls    atomic.Int32
}

func (f *fakeSource) FetchEpisodes(ctx context.Context) ([]catalog.Episode, error) {
	f.fetchCalls.Add(1)
	return append([]catalog.Episode(nil), f.episodes...), nil
}

func (f *fakeSource) FetchEpisodesByCategory(ctx context.Context, category int) ([]catalog.Episode, error) {
	f.categoryCalls.Add(1)
	var out []catalog.Episode
	for _, e := range f.episodes {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) FetchSortOrder(ctx context.Context) ([]string, error) {
	f.orderCalls.Add(1)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return append([]string(nil), f.order...), nil
}

func seedEpisodes() []catalog.Episode {
	return []catalog.Episode{
		{ID: "e1", Title: "One", Ordinal: 1, Category: 1},
		{ID: "e2", Title: "Two", Ordinal: 2, Category: 2},
		{ID: "e3", Title: "Three", Ordinal: 3, Category: 1},
	}
}

func newTestService(t *testing.T, src *fakeSource) *Service {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(store.New(db), src, nil)
}

func episodeIDs(eps []catalog.Episode) []string {
	out := make([]string, len(eps))
	for i, e := range eps {
		out[i] = e.ID
	}
	return out
}

// waitFor reads the stream until the predicate matches or the deadline hits.
func waitFor(t *testing.T, ch <-chan []catalog.Episode, match func([]catalog.Episode) bool) []catalog.Episode {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case eps, ok := <-ch:
			if !ok {
				t.Fatal("stream closed before expected emission")
			}
			if match(eps) {
				return eps
			}
		case <-deadline:
			t.Fatal("timed out waiting for emission")
		}
	}
}

func TestTryUpdateCacheAppliesSortOrder(t *testing.T) {
	src := &fakeSource{episodes: seedEpisodes(), order: []string{"e3", "e1"}}
	svc := newTestService(t, src)
	ctx := context.Background()

	require.NoError(t, svc.TryUpdateCache(ctx, catalog.CategoryAll))
	eps, err := svc.Snapshot(ctx, WatchOptions{Category: catalog.CategoryAll})
	require.NoError(t, err)
	require.Equal(t, []string{"e3", "e1", "e2"}, episodeIDs(eps))
	require.EqualValues(t, 1, src.fetchCalls.Load())
	require.EqualValues(t, 0, src.categoryCalls.Load())
}

func TestTryUpdateCacheByCategory(t *testing.T) {
	src := &fakeSource{episodes: seedEpisodes()}
	svc := newTestService(t, src)
	ctx := context.Background()

	require.NoError(t, svc.TryUpdateCache(ctx, 1))
	require.EqualValues(t, 1, src.categoryCalls.Load())
	require.EqualValues(t, 0, src.fetchCalls.Load())

	eps, err := svc.Snapshot(ctx, WatchOptions{Category: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"e1", "e3"}, episodeIDs(eps))
}

func TestTryUpdateCacheIdempotent(t *testing.T) {
	src := &fakeSource{episodes: seedEpisodes()}
	svc := newTestService(t, src)
	ctx := context.Background()

	require.NoError(t, svc.TryUpdateCache(ctx, catalog.CategoryAll))
	before, err := svc.Snapshot(ctx, WatchOptions{Category: catalog.CategoryAll})
	require.NoError(t, err)

	require.NoError(t, svc.TryUpdateCache(ctx, catalog.CategoryAll))
	after, err := svc.Snapshot(ctx, WatchOptions{Category: catalog.CategoryAll})
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestWatchEmitsOnRefresh(t *testing.T) {
	src := &fakeSource{episodes: seedEpisodes(), order: []string{"e3", "e1"}}
	svc := newTestService(t, src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Watch(ctx, WatchOptions{Category: catalog.CategoryAll})
	require.NoError(t, err)

	require.NoError(t, svc.TryUpdateCache(ctx, catalog.CategoryAll))
	eps := waitFor(t, ch, func(eps []catalog.Episode) bool { return len(eps) == 3 })
	require.Equal(t, []string{"e3", "e1", "e2"}, episodeIDs(eps))
}

func TestWatchDegradesToOrdinalOrderOnOrderFailure(t *testing.T) {
	src := &fakeSource{episodes: seedEpisodes(), orderErr: errors.New("order unavailable")}
	svc := newTestService(t, src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Watch(ctx, WatchOptions{Category: catalog.CategoryAll})
	require.NoError(t, err)

	require.NoError(t, svc.TryUpdateCache(ctx, catalog.CategoryAll))
	eps := waitFor(t, ch, func(eps []catalog.Episode) bool { return len(eps) == 3 })
	require.Equal(t, []string{"e1", "e2", "e3"}, episodeIDs(eps))
}

func TestWatchSurvivesRemoteOrderTimeout(t *testing.T) {
	// An http.Client deadline surfaces as an error wrapping DeadlineExceeded.
	// The stream must degrade to ordinal order and stay open, not close.
	src := &fakeSource{
		episodes: seedEpisodes(),
		orderErr: fmt.Errorf("remote: get /order: %w", context.DeadlineExceeded),
	}
	svc := newTestService(t, src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Watch(ctx, WatchOptions{Category: catalog.CategoryAll})
	require.NoError(t, err)

	require.NoError(t, svc.TryUpdateCache(ctx, catalog.CategoryAll))
	eps := waitFor(t, ch, func(eps []catalog.Episode) bool { return len(eps) == 3 })
	require.Equal(t, []string{"e1", "e2", "e3"}, episodeIDs(eps))

	// A later refresh still reaches the open stream.
	src.episodes = append(src.episodes, catalog.Episode{ID: "e4", Title: "Four", Ordinal: 4, Category: 1})
	require.NoError(t, svc.TryUpdateCache(ctx, catalog.CategoryAll))
	eps = waitFor(t, ch, func(eps []catalog.Episode) bool { return len(eps) == 4 })
	require.Equal(t, "e4", eps[3].ID)
}

func TestWatchConflatesToLatest(t *testing.T) {
	src := &fakeSource{episodes: seedEpisodes()}
	svc := newTestService(t, src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Watch(ctx, WatchOptions{Category: catalog.CategoryAll})
	require.NoError(t, err)

	// Publish several updates without draining the stream.
	require.NoError(t, svc.TryUpdateCache(ctx, catalog.CategoryAll))
	src.episodes = []catalog.Episode{
		{ID: "e1", Title: "One v2", Ordinal: 1, Category: 1},
		{ID: "e2", Title: "Two v2", Ordinal: 2, Category: 2},
		{ID: "e3", Title: "Three v2", Ordinal: 3, Category: 1},
	}
	require.NoError(t, svc.TryUpdateCache(ctx, catalog.CategoryAll))

	eps := waitFor(t, ch, func(eps []catalog.Episode) bool {
		return len(eps) == 3 && eps[0].Title == "One v2"
	})
	require.Equal(t, "One v2", eps[0].Title)
}

func TestWatchAppliesCELFilter(t *testing.T) {
	src := &fakeSource{episodes: seedEpisodes()}
	svc := newTestService(t, src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Watch(ctx, WatchOptions{Category: catalog.CategoryAll, Filter: `category == 1`})
	require.NoError(t, err)

	require.NoError(t, svc.TryUpdateCache(ctx, catalog.CategoryAll))
	eps := waitFor(t, ch, func(eps []catalog.Episode) bool { return len(eps) == 2 })
	require.Equal(t, []string{"e1", "e3"}, episodeIDs(eps))
}

func TestWatchRejectsBadFilter(t *testing.T) {
	src := &fakeSource{episodes: seedEpisodes()}
	svc := newTestService(t, src)
	_, err := svc.Watch(context.Background(), WatchOptions{Filter: `category ==`})
	require.Error(t, err)
}

func TestWatchClosesOnCancel(t *testing.T) {
	src := &fakeSource{episodes: seedEpisodes()}
	svc := newTestService(t, src)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := svc.Watch(ctx, WatchOptions{Category: catalog.CategoryAll})
	require.NoError(t, err)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancel")
		}
	}
}

func TestWatchersShareOneOrderFetch(t *testing.T) {
	src := &fakeSource{episodes: seedEpisodes(), order: []string{"e2"}}
	svc := newTestService(t, src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 8; i++ {
		_, err := svc.Watch(ctx, WatchOptions{Category: catalog.CategoryAll})
		require.NoError(t, err)
	}
	require.NoError(t, svc.TryUpdateCache(ctx, catalog.CategoryAll))

	require.Eventually(t, func() bool {
		eps, err := svc.Snapshot(ctx, WatchOptions{Category: catalog.CategoryAll})
		return err == nil && len(eps) == 3
	}, 2*time.Second, 10*time.Millisecond)
	require.EqualValues(t, 1, src.orderCalls.Load())
}
