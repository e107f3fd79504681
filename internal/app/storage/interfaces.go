package storage

import (
	"context"
	"time"

	"github.com/corner-store/storefront/internal/app/domain/cart"
	"github.com/corner-store/storefront/internal/app/domain/catalog"
	"github.com/corner-store/storefront/internal/app/domain/checkout"
	"github.com/corner-store/storefront/internal/app/domain/session"
)

// SessionStore persists sessions and their transient notices.
type SessionStore interface {
	CreateSession(ctx context.Context, s session.Session) (session.Session, error)
	GetSession(ctx context.Context, id string) (session.Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	ListSessions(ctx context.Context) ([]session.Session, error)
	DeleteSession(ctx context.Context, id string) error

	AddNotice(ctx context.Context, n session.Notice) (session.Notice, error)
	ListNotices(ctx context.Context, sessionID string, now time.Time) ([]session.Notice, error)
	PruneNotices(ctx context.Context, now time.Time) (int, error)
}

// CartStore persists cart line items, preserving insertion order per session.
type CartStore interface {
	ListLineItems(ctx context.Context, sessionID string) ([]cart.LineItem, error)
	// UpsertLineItem inserts a new line, or accumulates item.Quantity into an
	// existing line with the same id. The merge happens atomically inside the
	// store so concurrent adds of the same id cannot lose quantity; the merged
	// line keeps the unit price and position captured at first add, and the
	// subtotal is recomputed from the resulting quantity.
	UpsertLineItem(ctx context.Context, sessionID string, item cart.LineItem) (cart.LineItem, error)
	RemoveLineItem(ctx context.Context, sessionID, itemID string) error
	ClearCart(ctx context.Context, sessionID string) error
}

// FlowStore persists per-session checkout flow state. GetFlow returns the
// zero Flow for sessions that never entered checkout.
type FlowStore interface {
	GetFlow(ctx context.Context, sessionID string) (checkout.Flow, error)
	PutFlow(ctx context.Context, flow checkout.Flow) (checkout.Flow, error)
}

// OrderStore persists completed order receipts.
type OrderStore interface {
	CreateOrder(ctx context.Context, o checkout.Order) (checkout.Order, error)
	ListOrders(ctx context.Context, sessionID string) ([]checkout.Order, error)
}

// CatalogStore holds the latest applied market snapshot.
type CatalogStore interface {
	// ReplaceCatalog applies a snapshot unless one with a higher sequence
	// number has already been applied. It reports whether the snapshot took
	// effect.
	ReplaceCatalog(ctx context.Context, snap catalog.Snapshot) (bool, error)
	ListCatalog(ctx context.Context) (catalog.Snapshot, error)
	GetCatalogItem(ctx context.Context, id string) (catalog.Item, error)
}
