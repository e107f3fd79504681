package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/corner-store/storefront/pkg/logger"
)

func silentLogger() *logger.Logger {
	log := logger.NewDefault("test")
	log.SetOutput(io.Discard)
	return log
}

func TestHTTPFetcher_QueryAndAuth(t *testing.T) {
	var gotAuth string
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":65000.5,"price_change_percentage_24h":1.25},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3200,"price_change_percentage_24h":-0.8}
		]`))
	}))
	defer srv.Close()

	fetcher, err := NewHTTPFetcher(srv.Client(), srv.URL, "usd", 20, "feed-key", silentLogger())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}

	items, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "bitcoin" || !items[0].UnitPrice.Equal(decimal.NewFromFloat(65000.5)) {
		t.Fatalf("unexpected first item: %#v", items[0])
	}

	if gotAuth != "Bearer feed-key" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	want := map[string]string{
		"vs_currency": "usd",
		"order":       "market_cap_desc",
		"per_page":    "20",
		"page":        "1",
		"sparkline":   "false",
	}
	for key, value := range want {
		if gotQuery[key] != value {
			t.Fatalf("expected query %s=%s, got %q", key, value, gotQuery[key])
		}
	}
}

func TestHTTPFetcher_SkipsEntriesWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"symbol":"???","name":"Mystery","current_price":1},
			{"id":"cardano","symbol":"ada","name":"Cardano"}
		]`))
	}))
	defer srv.Close()

	fetcher, err := NewHTTPFetcher(srv.Client(), srv.URL, "", 0, "", silentLogger())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	items, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 || items[0].ID != "cardano" {
		t.Fatalf("expected only cardano, got %#v", items)
	}
	// Missing numeric fields default to zero instead of failing the refresh.
	if !items[0].UnitPrice.IsZero() {
		t.Fatalf("expected zero price, got %s", items[0].UnitPrice)
	}
}

func TestHTTPFetcher_ErrorResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("mode") {
		case "status":
			w.WriteHeader(http.StatusTooManyRequests)
		case "object":
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	for _, mode := range []string{"status", "object", "garbage"} {
		fetcher, err := NewHTTPFetcher(srv.Client(), srv.URL+"?mode="+mode, "", 0, "", silentLogger())
		if err != nil {
			t.Fatalf("new fetcher: %v", err)
		}
		if _, err := fetcher.Fetch(context.Background()); err == nil {
			t.Fatalf("mode %s: expected fetch error", mode)
		}
	}
}

func TestNewHTTPFetcher_RejectsRelativeEndpoint(t *testing.T) {
	if _, err := NewHTTPFetcher(nil, "/coins/markets", "usd", 20, "", silentLogger()); err == nil {
		t.Fatalf("expected error for relative endpoint")
	}
}
