package episodesvc

import (
	"context"
	"fmt"
	"time"

	"github.com/epiview/epiview/internal/catalog"
	"github.com/epiview/epiview/internal/store"
	"github.com/epiview/epiview/pkg/flight"
	idpkg "github.com/epiview/epiview/pkg/id"
	logpkg "github.com/epiview/epiview/pkg/log"
)

// Source is the remote collaborator consumed by the service.
type Source interface {
	FetchEpisodes(ctx context.Context) ([]catalog.Episode, error)
	FetchEpisodesByCategory(ctx context.Context, category int) ([]catalog.Episode, error)
	FetchSortOrder(ctx context.Context) ([]string, error)
}

// WatchOptions configures a live subscription.
type WatchOptions struct {
	// Category filters the stream; catalog.CategoryAll disables the filter.
	Category int
	// Filter is an optional CEL expression over episode fields.
	Filter string
}

// Service is the reactive merge and sort layer over the local store and the
// remote source.
type Service struct {
	store  *store.Store
	source Source
	logger logpkg.Logger
	ids    *idpkg.Generator

	// order memoizes the remote sort order. Failures degrade to the empty
	// order per caller and are never cached, so a later watch retries.
	order *flight.Cell[[]string]
}

// New constructs the service with its two collaborators.
func New(st *store.Store, source Source, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger().WithComponent("episodes")
	}
	s := &Service{
		store:  st,
		source: source,
		logger: logger,
		ids:    idpkg.NewGenerator(),
	}
	s.order = flight.NewCell(
		func(ctx context.Context) ([]string, error) {
			t0 := time.Now()
			order, err := source.FetchSortOrder(ctx)
			if err != nil {
				return nil, fmt.Errorf("fetch sort order: %w", err)
			}
			s.logger.Debug("episodes.order_fetched",
				logpkg.Int("ids", len(order)),
				logpkg.Int64("dur_ms", time.Since(t0).Milliseconds()),
			)
			return order, nil
		},
		flight.WithFallback(func(ctx context.Context) ([]string, error) {
			return []string{}, nil
		}),
	)
	return s
}

// shouldUpdate reports whether a refresh should hit the remote source.
// Always true for now; extension point for a real invalidation policy
// (age-based timer, etag comparison).
func (s *Service) shouldUpdate() bool { return true }

// TryUpdateCache fetches episodes from the remote source, filtered by the
// selector unless it is catalog.CategoryAll, and upserts them into the local
// store. Invocations are independent; rapid repeated calls may run their
// remote fetches concurrently.
func (s *Service) TryUpdateCache(ctx context.Context, category int) error {
	if !s.shouldUpdate() {
		return nil
	}
	op := s.ids.Next()
	t0 := time.Now()

	var (
		eps []catalog.Episode
		err error
	)
	if category == catalog.CategoryAll {
		eps, err = s.source.FetchEpisodes(ctx)
	} else {
		eps, err = s.source.FetchEpisodesByCategory(ctx, category)
	}
	if err != nil {
		return fmt.Errorf("fetch episodes: %w", err)
	}
	if err := s.store.Upsert(ctx, eps); err != nil {
		return fmt.Errorf("store episodes: %w", err)
	}

	s.logger.Debug("episodes.refresh",
		logpkg.Str("op", op.String()),
		logpkg.Int("category", category),
		logpkg.Int("count", len(eps)),
		logpkg.Int64("dur_ms", time.Since(t0).Milliseconds()),
	)
	return nil
}

// WarmSortOrder triggers the sort order fetch ahead of the first watcher.
func (s *Service) WarmSortOrder(ctx context.Context) error {
	_, err := s.order.Get(ctx)
	return err
}

// Snapshot returns the current sorted episode list for the given options.
func (s *Service) Snapshot(ctx context.Context, opts WatchOptions) ([]catalog.Episode, error) {
	filter, err := newCELFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	eps, err := s.store.List(ctx, opts.Category)
	if err != nil {
		return nil, err
	}
	order, err := s.order.Get(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.SortByOrder(applyFilter(eps, filter), order), nil
}

// Watch returns a live stream of sorted episode lists. Each store update is
// combined with the latest cached sort order and published downstream with
// conflate semantics: a slow consumer observes only the most recent snapshot.
// The stream closes when ctx is cancelled.
func (s *Service) Watch(ctx context.Context, opts WatchOptions) (<-chan []catalog.Episode, error) {
	filter, err := newCELFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	out := make(chan []catalog.Episode, 1)
	go func() {
		defer close(out)
		for {
			// Grab the notification channel before reading so a write racing
			// the read still wakes the next turn of the loop.
			changed := s.store.Changed()

			eps, err := s.store.List(ctx, opts.Category)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.WithError(err).Error("episodes.watch_list_failed")
				return
			}
			order, err := s.order.Get(ctx)
			if err != nil {
				// Only cancellation escapes the cell's fallback; producer
				// failures, timeouts included, degrade to the empty order.
				s.logger.WithError(err).Debug("episodes.watch_closed")
				return
			}
			conflate(out, catalog.SortByOrder(applyFilter(eps, filter), order))

			select {
			case <-ctx.Done():
				return
			case <-changed:
			}
		}
	}()
	return out, nil
}

// conflate publishes latest-value-wins: a pending unconsumed snapshot is
// dropped in favor of the new one.
func conflate(out chan []catalog.Episode, eps []catalog.Episode) {
	select {
	case out <- eps:
	default:
		select {
		case <-out:
		default:
		}
		out <- eps
	}
}

func applyFilter(eps []catalog.Episode, f celFilter) []catalog.Episode {
	if !f.enabled {
		return eps
	}
	out := make([]catalog.Episode, 0, len(eps))
	for _, e := range eps {
		if f.Eval(e) {
			out = append(out, e)
		}
	}
	return out
}
