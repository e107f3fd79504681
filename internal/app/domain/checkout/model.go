package checkout

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corner-store/storefront/internal/app/domain/cart"
)

// Stage is a position in the strictly linear checkout flow.
type Stage string

const (
	StageCart     Stage = "cart"
	StageCheckout Stage = "checkout"
	StagePayment  Stage = "payment"
	StageCleared  Stage = "cleared"
)

// Method selects one of the two mutually exclusive payment paths.
type Method string

const (
	MethodCard   Method = "card"
	MethodCrypto Method = "crypto"
)

// ReceivingAddress is the fixed address shown for crypto payments. Completion
// is a manual attestation; nothing is verified on-chain.
const ReceivingAddress = "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"

var (
	// ErrInvalidTransition rejects operations issued outside their stage.
	ErrInvalidTransition = errors.New("operation not valid in current checkout stage")

	// ErrPaymentFormIncomplete rejects card submissions with missing fields.
	ErrPaymentFormIncomplete = errors.New("all payment fields are required")

	// ErrUnknownMethod rejects payment methods other than card and crypto.
	ErrUnknownMethod = errors.New("unknown payment method")
)

// Flow is the per-session checkout state machine position.
type Flow struct {
	SessionID string    `json:"session_id"`
	Stage     Stage     `json:"stage"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CardDetails are captured as plain text; the only validation is that every
// field is non-empty.
type CardDetails struct {
	HolderName string `json:"holder_name"`
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
}

// Missing reports whether any required card field is empty.
func (d CardDetails) Missing() bool {
	return d.HolderName == "" || d.Number == "" || d.Expiry == "" || d.CVV == ""
}

// Order is the receipt of a completed simulated payment: the line items and
// grand total as they stood at completion.
type Order struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Method      Method          `json:"method"`
	Items       []cart.LineItem `json:"items"`
	Total       decimal.Decimal `json:"total"`
	CompletedAt time.Time       `json:"completed_at"`
}
