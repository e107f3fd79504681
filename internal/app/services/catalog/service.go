package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/corner-store/storefront/internal/app/domain/catalog"
	"github.com/corner-store/storefront/internal/app/storage"
	"github.com/corner-store/storefront/pkg/logger"
)

// Service exposes the current catalog and applies feed snapshots. Watchers
// receive every applied snapshot for live streaming.
type Service struct {
	store storage.CatalogStore
	log   *logger.Logger

	mu       sync.Mutex
	watchers map[chan []catalog.Item]struct{}
}

// New constructs a catalog service.
func New(store storage.CatalogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{
		store:    store,
		log:      log,
		watchers: make(map[chan []catalog.Item]struct{}),
	}
}

// Browse returns the derived catalog view for a filter. inCart restricts the
// view to carted ids when the filter requests it; it may be nil otherwise.
func (s *Service) Browse(ctx context.Context, filter Filter, inCart map[string]bool) ([]catalog.Item, error) {
	snap, err := s.store.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return Derive(snap.Items, filter, inCart), nil
}

// Get returns a single catalog item by id.
func (s *Service) Get(ctx context.Context, id string) (catalog.Item, error) {
	return s.store.GetCatalogItem(ctx, id)
}

// Snapshot returns the last applied snapshot, including refresh metadata.
func (s *Service) Snapshot(ctx context.Context) (catalog.Snapshot, error) {
	return s.store.ListCatalog(ctx)
}

// Apply installs a fetched item list. seq is the fetch issue number; a
// snapshot loses to any later-issued snapshot that completed first, so
// out-of-order responses never roll the catalog backwards.
func (s *Service) Apply(ctx context.Context, items []catalog.Item, seq uint64) (bool, error) {
	applied, err := s.store.ReplaceCatalog(ctx, catalog.Snapshot{
		Items:       items,
		Seq:         seq,
		RefreshedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if applied {
		s.notify(items)
	}
	return applied, nil
}

// Watch registers a subscriber receiving every applied snapshot. The returned
// cancel func must be called to release the subscription. Slow subscribers
// miss intermediate snapshots rather than blocking the refresher.
func (s *Service) Watch() (<-chan []catalog.Item, func()) {
	ch := make(chan []catalog.Item, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Service) notify(items []catalog.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.watchers {
		select {
		case ch <- items:
		default:
			// Drop the previous pending snapshot and queue the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- items:
			default:
			}
		}
	}
}
