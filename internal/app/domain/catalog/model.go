package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is reported while no market snapshot has been applied yet,
// typically because every fetch so far has failed.
var ErrUnavailable = errors.New("price feed unavailable")

// Item is one tradable asset from the market-data feed. Items are replaced
// wholesale on every refresh and never mutated in place.
type Item struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Change24h decimal.Decimal `json:"change_24h"`
}

// Snapshot is the catalog state applied by a completed feed fetch. Seq is the
// refresher's monotonic issue counter; a snapshot only applies if no snapshot
// with a higher Seq has been applied before it.
type Snapshot struct {
	Items       []Item    `json:"items"`
	Seq         uint64    `json:"seq"`
	RefreshedAt time.Time `json:"refreshed_at"`
}
