package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/corner-store/storefront/internal/app/domain/cart"
	"github.com/corner-store/storefront/internal/app/domain/catalog"
	"github.com/corner-store/storefront/internal/app/domain/checkout"
	"github.com/corner-store/storefront/internal/app/domain/session"
	"github.com/corner-store/storefront/internal/app/storage"
)

// Store is the in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is the only backing store: the storefront keeps no
// state across restarts.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	sessions map[string]session.Session
	notices  map[string][]session.Notice
	carts    map[string][]cart.LineItem
	flows    map[string]checkout.Flow
	orders   map[string][]checkout.Order
	snapshot catalog.Snapshot
	applied  bool
}

var _ storage.SessionStore = (*Store)(nil)
var _ storage.CartStore = (*Store)(nil)
var _ storage.FlowStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.CatalogStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:   1,
		sessions: make(map[string]session.Session),
		notices:  make(map[string][]session.Notice),
		carts:    make(map[string][]cart.LineItem),
		flows:    make(map[string]checkout.Flow),
		orders:   make(map[string][]checkout.Order),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// SessionStore implementation ------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess session.Session) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = s.nextIDLocked()
	} else if _, exists := s.sessions[sess.ID]; exists {
		return session.Session{}, fmt.Errorf("session %s already exists", sess.ID)
	}

	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.LastSeenAt.IsZero() {
		sess.LastSeenAt = sess.CreatedAt
	}

	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) GetSession(_ context.Context, id string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.Session{}, fmt.Errorf("session %s not found", id)
	}
	return sess, nil
}

func (s *Store) TouchSession(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	sess.LastSeenAt = at.UTC()
	s.sessions[id] = sess
	return nil
}

func (s *Store) ListSessions(_ context.Context) ([]session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, sess)
	}
	return result, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session %s not found", id)
	}
	delete(s.sessions, id)
	delete(s.notices, id)
	delete(s.carts, id)
	delete(s.flows, id)
	delete(s.orders, id)
	return nil
}

func (s *Store) AddNotice(_ context.Context, n session.Notice) (session.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[n.SessionID]; !ok {
		return session.Notice{}, fmt.Errorf("session %s not found", n.SessionID)
	}
	if n.ID == "" {
		n.ID = s.nextIDLocked()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	s.notices[n.SessionID] = append(s.notices[n.SessionID], n)
	return n, nil
}

func (s *Store) ListNotices(_ context.Context, sessionID string, now time.Time) ([]session.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]session.Notice, 0)
	for _, n := range s.notices[sessionID] {
		if n.ExpiresAt.After(now) {
			result = append(result, n)
		}
	}
	return result, nil
}

func (s *Store) PruneNotices(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for sessionID, notices := range s.notices {
		kept := notices[:0]
		for _, n := range notices {
			if n.ExpiresAt.After(now) {
				kept = append(kept, n)
			} else {
				pruned++
			}
		}
		if len(kept) == 0 {
			delete(s.notices, sessionID)
		} else {
			s.notices[sessionID] = kept
		}
	}
	return pruned, nil
}

// CartStore implementation ---------------------------------------------------

func (s *Store) ListLineItems(_ context.Context, sessionID string) ([]cart.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]cart.LineItem(nil), s.carts[sessionID]...), nil
}

func (s *Store) UpsertLineItem(_ context.Context, sessionID string, item cart.LineItem) (cart.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return cart.LineItem{}, fmt.Errorf("session %s not found", sessionID)
	}

	items := s.carts[sessionID]
	for i := range items {
		if items[i].ID == item.ID {
			// The merge holds the write lock, so concurrent adds of the same
			// id accumulate instead of racing. The line keeps its position and
			// first-add unit price; only the quantity grows.
			merged := items[i]
			merged.Quantity = merged.Quantity.Add(item.Quantity)
			merged.Subtotal = merged.UnitPrice.Mul(merged.Quantity)
			merged.UpdatedAt = item.UpdatedAt
			items[i] = merged
			s.carts[sessionID] = items
			return merged, nil
		}
	}

	item.Subtotal = item.UnitPrice.Mul(item.Quantity)
	s.carts[sessionID] = append(items, item)
	return item, nil
}

func (s *Store) RemoveLineItem(_ context.Context, sessionID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[sessionID]
	for i := range items {
		if items[i].ID == itemID {
			s.carts[sessionID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	// Absent ids are a no-op, not an error.
	return nil
}

func (s *Store) ClearCart(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, sessionID)
	return nil
}

// FlowStore implementation ---------------------------------------------------

func (s *Store) GetFlow(_ context.Context, sessionID string) (checkout.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Sessions that never entered checkout have no flow record; the zero
	// value stands for the initial cart stage.
	return s.flows[sessionID], nil
}

func (s *Store) PutFlow(_ context.Context, flow checkout.Flow) (checkout.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[flow.SessionID]; !ok {
		return checkout.Flow{}, fmt.Errorf("session %s not found", flow.SessionID)
	}
	flow.UpdatedAt = time.Now().UTC()
	s.flows[flow.SessionID] = flow
	return flow, nil
}

// OrderStore implementation --------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, o checkout.Order) (checkout.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = s.nextIDLocked()
	}
	if o.CompletedAt.IsZero() {
		o.CompletedAt = time.Now().UTC()
	}
	o.Items = append([]cart.LineItem(nil), o.Items...)

	s.orders[o.SessionID] = append(s.orders[o.SessionID], o)
	return cloneOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context, sessionID string) ([]checkout.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]checkout.Order, 0, len(s.orders[sessionID]))
	for _, o := range s.orders[sessionID] {
		result = append(result, cloneOrder(o))
	}
	return result, nil
}

// CatalogStore implementation ------------------------------------------------

func (s *Store) ReplaceCatalog(_ context.Context, snap catalog.Snapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied && snap.Seq <= s.snapshot.Seq {
		return false, nil
	}
	snap.Items = append([]catalog.Item(nil), snap.Items...)
	if snap.RefreshedAt.IsZero() {
		snap.RefreshedAt = time.Now().UTC()
	}
	s.snapshot = snap
	s.applied = true
	return true, nil
}

func (s *Store) ListCatalog(_ context.Context) (catalog.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.applied {
		return catalog.Snapshot{}, catalog.ErrUnavailable
	}
	snap := s.snapshot
	snap.Items = append([]catalog.Item(nil), snap.Items...)
	return snap, nil
}

func (s *Store) GetCatalogItem(_ context.Context, id string) (catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.applied {
		return catalog.Item{}, catalog.ErrUnavailable
	}
	for _, item := range s.snapshot.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return catalog.Item{}, fmt.Errorf("catalog item %s not found", id)
}

// Helpers --------------------------------------------------------------------

func cloneOrder(o checkout.Order) checkout.Order {
	o.Items = append([]cart.LineItem(nil), o.Items...)
	return o
}
