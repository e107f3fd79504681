package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	app "github.com/corner-store/storefront/internal/app"
	"github.com/corner-store/storefront/internal/app/domain/cart"
	"github.com/corner-store/storefront/internal/app/domain/catalog"
	"github.com/corner-store/storefront/internal/app/domain/checkout"
	"github.com/corner-store/storefront/internal/app/metrics"
	catalogsvc "github.com/corner-store/storefront/internal/app/services/catalog"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// money renders an amount with exactly two fractional digits. Domain code
// keeps full decimal precision; display rounding happens here at the JSON
// boundary only.
type money struct{ decimal.Decimal }

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

type lineItemView struct {
	cart.LineItem
	Subtotal money `json:"subtotal"`
}

func newLineItemView(item cart.LineItem) lineItemView {
	return lineItemView{LineItem: item, Subtotal: money{item.Subtotal}}
}

func newLineItemViews(items []cart.LineItem) []lineItemView {
	views := make([]lineItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newLineItemView(item))
	}
	return views
}

type orderView struct {
	checkout.Order
	Items []lineItemView `json:"items"`
	Total money          `json:"total"`
}

func newOrderView(o checkout.Order) orderView {
	return orderView{Order: o, Items: newLineItemViews(o.Items), Total: money{o.Total}}
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog", h.catalog)
	mux.HandleFunc("/catalog/", h.catalogResources)
	mux.HandleFunc("/sessions", h.sessions)
	mux.HandleFunc("/sessions/", h.sessionResources)
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) catalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var inCart map[string]bool
	if sessionID := strings.TrimSpace(r.URL.Query().Get("session")); sessionID != "" {
		if _, err := h.app.Sessions.Get(r.Context(), sessionID); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		inCart, err = h.app.Cart.InCart(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	} else if filter.OnlyInCart {
		writeError(w, http.StatusBadRequest, fmt.Errorf("in_cart filter requires a session"))
		return
	}

	items, err := h.app.Catalog.Browse(r.Context(), filter, inCart)
	if err != nil {
		if errors.Is(err, catalog.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	snap, err := h.app.Catalog.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Items       []catalog.Item `json:"items"`
		RefreshedAt string         `json:"refreshed_at"`
	}{
		Items:       items,
		RefreshedAt: snap.RefreshedAt.Format(time.RFC3339),
	})
}

func (h *handler) catalogResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/catalog"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[0] {
	case "refresh":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := h.app.Refresher.RefreshNow(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "stream":
		h.stream(w, r)
	default:
		if len(parts) != 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.catalogItem(w, r, parts[0])
	}
}

func (h *handler) catalogItem(w http.ResponseWriter, r *http.Request, itemID string) {
	item, err := h.app.Catalog.Get(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, catalog.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeError(w, http.StatusNotFound, err)
		return
	}

	payload := struct {
		catalog.Item
		Detail *catalog.Detail `json:"detail,omitempty"`
	}{Item: item}
	if detail, ok := catalog.DetailFor(item.ID); ok {
		payload.Detail = &detail
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *handler) sessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, err := h.app.Sessions.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *handler) sessionResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	sessionID := parts[0]

	if _, err := h.app.Sessions.Get(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	_ = h.app.Sessions.Touch(r.Context(), sessionID)

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sess, err := h.app.Sessions.Get(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
		return
	}

	switch parts[1] {
	case "cart":
		h.sessionCart(w, r, sessionID, parts[2:])
	case "notices":
		h.sessionNotices(w, r, sessionID)
	case "checkout":
		h.sessionCheckout(w, r, sessionID, parts[2:])
	case "orders":
		h.sessionOrders(w, r, sessionID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) sessionCart(w http.ResponseWriter, r *http.Request, sessionID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			items, err := h.app.Cart.Items(r.Context(), sessionID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			total, err := h.app.Cart.Total(r.Context(), sessionID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, struct {
				Items []lineItemView `json:"items"`
				Total money          `json:"total"`
			}{Items: newLineItemViews(items), Total: money{total}})

		case http.MethodPost:
			var payload struct {
				ItemID   string `json:"item_id"`
				Quantity string `json:"quantity"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			item, err := h.app.Catalog.Get(r.Context(), payload.ItemID)
			if err != nil {
				if errors.Is(err, catalog.ErrUnavailable) {
					writeError(w, http.StatusServiceUnavailable, err)
					return
				}
				writeError(w, http.StatusNotFound, err)
				return
			}
			line, err := h.app.Cart.Add(r.Context(), sessionID, item.ID, item.Name, item.Symbol, item.UnitPrice, payload.Quantity)
			if err != nil {
				if errors.Is(err, cart.ErrInvalidQuantity) {
					writeError(w, http.StatusBadRequest, err)
					return
				}
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusCreated, newLineItemView(line))

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := h.app.Cart.Remove(r.Context(), sessionID, rest[0]); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *handler) sessionNotices(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	notices, err := h.app.Sessions.Notices(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, notices)
}

func (h *handler) sessionCheckout(w http.ResponseWriter, r *http.Request, sessionID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			stage, err := h.app.Checkout.Stage(r.Context(), sessionID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"stage": string(stage)})

		case http.MethodPost:
			flow, err := h.app.Checkout.Begin(r.Context(), sessionID)
			if err != nil {
				writeCheckoutError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, flow)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch rest[0] {
	case "proceed":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		flow, err := h.app.Checkout.Proceed(r.Context(), sessionID)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			checkout.Flow
			ReceivingAddress string `json:"receiving_address"`
		}{Flow: flow, ReceivingAddress: checkout.ReceivingAddress})

	case "payment":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Method string               `json:"method"`
			Card   checkout.CardDetails `json:"card"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		order, err := h.app.Checkout.Submit(r.Context(), sessionID, checkout.Method(payload.Method), payload.Card)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newOrderView(order))

	case "items":
		if len(rest) != 2 || r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := h.app.Checkout.RemoveItem(r.Context(), sessionID, rest[1]); err != nil {
			writeCheckoutError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) sessionOrders(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	orders, err := h.app.Checkout.Orders(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}
	writeJSON(w, http.StatusOK, views)
}

func parseFilter(r *http.Request) (catalogsvc.Filter, error) {
	q := r.URL.Query()
	filter := catalogsvc.DefaultFilter()
	filter.Search = q.Get("search")

	if raw := strings.TrimSpace(q.Get("sort")); raw != "" {
		key, ok := catalogsvc.ParseSortKey(raw)
		if !ok {
			return catalogsvc.Filter{}, fmt.Errorf("unknown sort key %q", raw)
		}
		filter.Sort = key
	}
	if raw := strings.TrimSpace(q.Get("price_min")); raw != "" {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			return catalogsvc.Filter{}, fmt.Errorf("price_min must be a number")
		}
		filter.PriceMin = &min
	}
	if raw := strings.TrimSpace(q.Get("price_max")); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			return catalogsvc.Filter{}, fmt.Errorf("price_max must be a number")
		}
		filter.PriceMax = &max
	}
	filter.OnlyInCart = q.Get("in_cart") == "true"
	return filter, nil
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, checkout.ErrPaymentFormIncomplete),
		errors.Is(err, checkout.ErrUnknownMethod):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
