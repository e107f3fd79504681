package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	cartsvc "github.com/corner-store/storefront/internal/app/services/cart"

	"github.com/corner-store/storefront/internal/app/domain/checkout"
	"github.com/corner-store/storefront/internal/app/metrics"
	"github.com/corner-store/storefront/internal/app/storage"
	"github.com/corner-store/storefront/pkg/logger"
)

// Service drives the per-session checkout state machine. Every stage change
// goes through here, which is what makes the clear-on-completion guarantee
// hold: a cart can only be cleared by the single payment→cleared transition.
type Service struct {
	flows  storage.FlowStore
	orders storage.OrderStore
	carts  *cartsvc.Service
	log    *logger.Logger
}

func New(flows storage.FlowStore, orders storage.OrderStore, carts *cartsvc.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("checkout")
	}
	return &Service{flows: flows, orders: orders, carts: carts, log: log}
}

// Stage reports the session's current checkout stage. Sessions with no flow
// record yet are in the cart stage.
func (s *Service) Stage(ctx context.Context, sessionID string) (checkout.Stage, error) {
	flow, err := s.flows.GetFlow(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if flow.Stage == "" {
		return checkout.StageCart, nil
	}
	return flow.Stage, nil
}

// Begin moves the session into the checkout stage. Beginning again while
// already in checkout is idempotent; a cleared session may begin a fresh run.
// A session mid-payment must finish or never; it cannot re-enter checkout.
func (s *Service) Begin(ctx context.Context, sessionID string) (checkout.Flow, error) {
	stage, err := s.Stage(ctx, sessionID)
	if err != nil {
		return checkout.Flow{}, err
	}
	switch stage {
	case checkout.StageCart, checkout.StageCleared:
	case checkout.StageCheckout:
		return s.flows.GetFlow(ctx, sessionID)
	default:
		return checkout.Flow{}, checkout.ErrInvalidTransition
	}
	return s.flows.PutFlow(ctx, checkout.Flow{
		SessionID: sessionID,
		Stage:     checkout.StageCheckout,
		UpdatedAt: time.Now().UTC(),
	})
}

// RemoveItem drops a line item from the order under review. Only valid in the
// checkout stage; once payment has started the order contents are fixed.
func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID string) error {
	stage, err := s.Stage(ctx, sessionID)
	if err != nil {
		return err
	}
	if stage != checkout.StageCheckout {
		return checkout.ErrInvalidTransition
	}
	return s.carts.Remove(ctx, sessionID, itemID)
}

// Proceed advances checkout→payment.
func (s *Service) Proceed(ctx context.Context, sessionID string) (checkout.Flow, error) {
	stage, err := s.Stage(ctx, sessionID)
	if err != nil {
		return checkout.Flow{}, err
	}
	if stage != checkout.StageCheckout {
		return checkout.Flow{}, checkout.ErrInvalidTransition
	}
	return s.flows.PutFlow(ctx, checkout.Flow{
		SessionID: sessionID,
		Stage:     checkout.StagePayment,
		UpdatedAt: time.Now().UTC(),
	})
}

// SubmitCard completes payment by card. Fields are free text; the only check
// is that none of them is blank.
func (s *Service) SubmitCard(ctx context.Context, sessionID string, details checkout.CardDetails) (checkout.Order, error) {
	details.HolderName = strings.TrimSpace(details.HolderName)
	details.Number = strings.TrimSpace(details.Number)
	details.Expiry = strings.TrimSpace(details.Expiry)
	details.CVV = strings.TrimSpace(details.CVV)
	if details.Missing() {
		return checkout.Order{}, checkout.ErrPaymentFormIncomplete
	}
	return s.complete(ctx, sessionID, checkout.MethodCard)
}

// SubmitCrypto completes payment by the manual crypto attestation.
func (s *Service) SubmitCrypto(ctx context.Context, sessionID string) (checkout.Order, error) {
	return s.complete(ctx, sessionID, checkout.MethodCrypto)
}

// Submit dispatches on the payment method name.
func (s *Service) Submit(ctx context.Context, sessionID string, method checkout.Method, details checkout.CardDetails) (checkout.Order, error) {
	switch method {
	case checkout.MethodCard:
		return s.SubmitCard(ctx, sessionID, details)
	case checkout.MethodCrypto:
		return s.SubmitCrypto(ctx, sessionID)
	default:
		return checkout.Order{}, checkout.ErrUnknownMethod
	}
}

// Orders lists the session's completed orders, newest last.
func (s *Service) Orders(ctx context.Context, sessionID string) ([]checkout.Order, error) {
	return s.orders.ListOrders(ctx, sessionID)
}

func (s *Service) complete(ctx context.Context, sessionID string, method checkout.Method) (checkout.Order, error) {
	stage, err := s.Stage(ctx, sessionID)
	if err != nil {
		return checkout.Order{}, err
	}
	if stage != checkout.StagePayment {
		return checkout.Order{}, checkout.ErrInvalidTransition
	}

	items, err := s.carts.Items(ctx, sessionID)
	if err != nil {
		return checkout.Order{}, err
	}
	total, err := s.carts.Total(ctx, sessionID)
	if err != nil {
		return checkout.Order{}, err
	}

	now := time.Now().UTC()
	order, err := s.orders.CreateOrder(ctx, checkout.Order{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Method:      method,
		Items:       items,
		Total:       total,
		CompletedAt: now,
	})
	if err != nil {
		return checkout.Order{}, err
	}

	if _, err := s.flows.PutFlow(ctx, checkout.Flow{
		SessionID: sessionID,
		Stage:     checkout.StageCleared,
		UpdatedAt: now,
	}); err != nil {
		return checkout.Order{}, err
	}
	if err := s.carts.Clear(ctx, sessionID); err != nil {
		return checkout.Order{}, err
	}

	metrics.RecordOrderCompleted(string(method))
	s.log.WithField("session", sessionID).WithField("order", order.ID).
		WithField("method", string(method)).Info("payment completed")
	return order, nil
}
