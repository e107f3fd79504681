package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/corner-store/storefront/internal/app/domain/catalog"
)

// SortKey selects the ordering of the derived catalog view.
type SortKey string

const (
	SortName       SortKey = "name"
	SortPriceAsc   SortKey = "price-asc"
	SortPriceDesc  SortKey = "price-desc"
	SortChangeAsc  SortKey = "change-asc"
	SortChangeDesc SortKey = "change-desc"
)

// ParseSortKey validates a sort key string.
func ParseSortKey(raw string) (SortKey, bool) {
	switch SortKey(raw) {
	case SortName, SortPriceAsc, SortPriceDesc, SortChangeAsc, SortChangeDesc:
		return SortKey(raw), true
	}
	return "", false
}

// Filter is the user-entered view state. Zero bounds mean unbounded.
type Filter struct {
	Search     string
	Sort       SortKey
	PriceMin   *decimal.Decimal
	PriceMax   *decimal.Decimal
	OnlyInCart bool
}

// DefaultFilter is the state a reset restores in one step.
func DefaultFilter() Filter {
	return Filter{Sort: SortName}
}

// Derive computes the filtered, sorted view of items. It is pure: items is
// never mutated and ties keep their input order (stable sort).
func Derive(items []catalog.Item, f Filter, inCart map[string]bool) []catalog.Item {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	view := make([]catalog.Item, 0, len(items))
	for _, item := range items {
		if search != "" &&
			!strings.Contains(strings.ToLower(item.Name), search) &&
			!strings.Contains(strings.ToLower(item.Symbol), search) {
			continue
		}
		if f.PriceMin != nil && item.UnitPrice.LessThan(*f.PriceMin) {
			continue
		}
		if f.PriceMax != nil && item.UnitPrice.GreaterThan(*f.PriceMax) {
			continue
		}
		if f.OnlyInCart && !inCart[item.ID] {
			continue
		}
		view = append(view, item)
	}

	sortKey := f.Sort
	if sortKey == "" {
		sortKey = SortName
	}

	sort.SliceStable(view, func(i, j int) bool {
		switch sortKey {
		case SortPriceAsc:
			return view[i].UnitPrice.LessThan(view[j].UnitPrice)
		case SortPriceDesc:
			return view[i].UnitPrice.GreaterThan(view[j].UnitPrice)
		case SortChangeAsc:
			return view[i].Change24h.LessThan(view[j].Change24h)
		case SortChangeDesc:
			return view[i].Change24h.GreaterThan(view[j].Change24h)
		default:
			return strings.ToLower(view[i].Name) < strings.ToLower(view[j].Name)
		}
	})

	return view
}
