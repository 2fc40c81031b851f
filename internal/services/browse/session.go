package browsesvc

import (
	"context"
	"sync"

	"github.com/epiview/epiview/internal/catalog"
	episodesvc "github.com/epiview/epiview/internal/services/episodes"
	idpkg "github.com/epiview/epiview/pkg/id"
	logpkg "github.com/epiview/epiview/pkg/log"
)

// Session is the presentation model for one episode browser consumer.
type Session struct {
	svc    *episodesvc.Service
	logger logpkg.Logger
	id     idpkg.ID

	mu       sync.Mutex
	category int
	loading  int // count of in-flight refreshes
	errMsg   string
	hasErr   bool
	catCh    chan struct{} // closed and replaced on selector change
}

// NewSession returns a Session starting with no category filter.
func NewSession(svc *episodesvc.Service, gen *idpkg.Generator, logger logpkg.Logger) *Session {
	if gen == nil {
		gen = idpkg.NewGenerator()
	}
	sid := gen.Next()
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &Session{
		svc:      svc,
		logger:   logger.WithComponent("browse").With(logpkg.Str("session", sid.String())),
		id:       sid,
		category: catalog.CategoryAll,
		catCh:    make(chan struct{}),
	}
}

// ID returns the session correlation id.
func (s *Session) ID() idpkg.ID { return s.id }

// Category returns the current selector.
func (s *Session) Category() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

// SetCategory switches the selector and refreshes the catalog for it.
func (s *Session) SetCategory(ctx context.Context, category int) {
	s.switchCategory(category)
	s.Refresh(ctx)
}

// ClearCategory removes the selector and refreshes the full catalog.
func (s *Session) ClearCategory(ctx context.Context) {
	s.switchCategory(catalog.CategoryAll)
	s.Refresh(ctx)
}

func (s *Session) switchCategory(category int) {
	s.mu.Lock()
	if s.category != category {
		s.category = category
		close(s.catCh)
		s.catCh = make(chan struct{})
	}
	s.mu.Unlock()
	s.logger.Debug("browse.category", logpkg.Int("category", category))
}

// Refresh updates the local catalog for the current selector. The loading
// indicator is true strictly between start and completion; a failure is
// recorded as the one-shot error message and also returned.
func (s *Session) Refresh(ctx context.Context) error {
	s.beginLoad()
	defer s.endLoad()

	err := s.svc.TryUpdateCache(ctx, s.Category())
	if err != nil {
		s.recordError(err.Error())
		s.logger.WithError(err).Warn("browse.refresh_failed")
		return err
	}
	return nil
}

// Loading reports whether any refresh is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

func (s *Session) beginLoad() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
}

func (s *Session) endLoad() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}

func (s *Session) recordError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.hasErr = true
	s.mu.Unlock()
}

// ConsumeError returns the pending error message exactly once.
func (s *Session) ConsumeError() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasErr {
		return "", false
	}
	msg := s.errMsg
	s.errMsg = ""
	s.hasErr = false
	return msg, true
}

// Watch streams sorted episode lists for the session's current selector,
// re-subscribing whenever the selector changes. The stream conflates: only
// the most recent list is retained for a slow consumer. It closes when ctx
// is cancelled or the underlying watch fails.
func (s *Session) Watch(ctx context.Context) <-chan []catalog.Episode {
	out := make(chan []catalog.Episode, 1)
	go func() {
		defer close(out)
		for {
			s.mu.Lock()
			category := s.category
			catCh := s.catCh
			s.mu.Unlock()

			if !s.watchOne(ctx, category, catCh, out) {
				return
			}
		}
	}()
	return out
}

// watchOne runs one inner subscription until the selector changes. It
// returns false when the outer stream should end.
func (s *Session) watchOne(ctx context.Context, category int, catCh <-chan struct{}, out chan []catalog.Episode) bool {
	inner, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := s.svc.Watch(inner, episodesvc.WatchOptions{Category: category})
	if err != nil {
		s.recordError(err.Error())
		return false
	}
	for {
		select {
		case <-ctx.Done():
			return false
		case <-catCh:
			return true
		case eps, ok := <-ch:
			if !ok {
				return false
			}
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
	}
}
