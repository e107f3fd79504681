package cart

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity rejects add requests whose quantity is not a positive
// finite number. The cart is left untouched.
var ErrInvalidQuantity = errors.New("quantity must be a positive number")

// LineItem is one cart entry. UnitPrice is snapshotted when the item is first
// added; re-adding the same id accumulates Quantity against that original
// price basis.
type LineItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	AddedAt   time.Time       `json:"added_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
