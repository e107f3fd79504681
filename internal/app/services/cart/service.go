package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corner-store/storefront/internal/app/domain/cart"
	"github.com/corner-store/storefront/internal/app/domain/session"
	"github.com/corner-store/storefront/internal/app/metrics"
	"github.com/corner-store/storefront/internal/app/storage"
	"github.com/corner-store/storefront/pkg/logger"
)

// NoticeTTL is how long a cart confirmation notice stays visible.
const NoticeTTL = 2 * time.Second

// Service manages per-session cart contents. Quantities arrive as raw user
// input and are validated here; everything downstream works with decimals.
type Service struct {
	carts    storage.CartStore
	sessions storage.SessionStore
	log      *logger.Logger
}

func New(carts storage.CartStore, sessions storage.SessionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("cart")
	}
	return &Service{carts: carts, sessions: sessions, log: log}
}

// ParseQuantity validates a raw quantity string. Anything that is not a
// positive finite number is rejected.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, cart.ErrInvalidQuantity
	}
	if qty.Sign() <= 0 {
		return decimal.Decimal{}, cart.ErrInvalidQuantity
	}
	return qty, nil
}

// Add puts quantity units of an item into the session's cart. Re-adding an id
// already in the cart accumulates the quantity against the unit price captured
// when the item was first added; the current market price is only used for new
// lines.
func (s *Service) Add(ctx context.Context, sessionID, id, name, symbol string, unitPrice decimal.Decimal, rawQuantity string) (cart.LineItem, error) {
	qty, err := ParseQuantity(rawQuantity)
	if err != nil {
		return cart.LineItem{}, err
	}

	// The store merges under its write lock; re-adds of an existing id
	// accumulate into the stored line and keep its first-add unit price.
	now := time.Now().UTC()
	stored, err := s.carts.UpsertLineItem(ctx, sessionID, cart.LineItem{
		ID:        id,
		Name:      name,
		Symbol:    symbol,
		UnitPrice: unitPrice,
		Quantity:  qty,
		AddedAt:   now,
		UpdatedAt: now,
	})
	if err != nil {
		return cart.LineItem{}, err
	}
	metrics.RecordCartOp("add")

	s.postNotice(ctx, sessionID, fmt.Sprintf("Added %s %s to cart", qty.String(), symbol), now)

	s.log.WithField("session", sessionID).WithField("item", id).Debug("cart item added")
	return stored, nil
}

// Remove deletes a line item. Removing an id that is not in the cart is a
// no-op.
func (s *Service) Remove(ctx context.Context, sessionID, itemID string) error {
	if err := s.carts.RemoveLineItem(ctx, sessionID, itemID); err != nil {
		return err
	}
	metrics.RecordCartOp("remove")
	return nil
}

// Items returns the cart contents in insertion order.
func (s *Service) Items(ctx context.Context, sessionID string) ([]cart.LineItem, error) {
	return s.carts.ListLineItems(ctx, sessionID)
}

// Total recomputes the cart total as the sum of line subtotals.
func (s *Service) Total(ctx context.Context, sessionID string) (decimal.Decimal, error) {
	items, err := s.carts.ListLineItems(ctx, sessionID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total, nil
}

// InCart reports which item ids the session currently holds. Used by the
// catalog's in-cart filter.
func (s *Service) InCart(ctx context.Context, sessionID string) (map[string]bool, error) {
	items, err := s.carts.ListLineItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(items))
	for _, item := range items {
		ids[item.ID] = true
	}
	return ids, nil
}

// Clear empties the session's cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.carts.ClearCart(ctx, sessionID); err != nil {
		return err
	}
	metrics.RecordCartOp("clear")
	return nil
}

func (s *Service) postNotice(ctx context.Context, sessionID, message string, now time.Time) {
	if s.sessions == nil {
		return
	}
	_, err := s.sessions.AddNotice(ctx, session.Notice{
		SessionID: sessionID,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(NoticeTTL),
	})
	if err != nil {
		s.log.WithError(err).Warn("post cart notice failed")
	}
}
