package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/corner-store/storefront/internal/app/domain/catalog"
)

func TestStream_PushesAppliedSnapshots(t *testing.T) {
	application := testApplication(t, marketFetcher())
	handler := NewHandler(application)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	if err := application.Refresher.RefreshNow(context.Background()); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/catalog/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected upgrade, got %d", resp.StatusCode)
	}

	// The current catalog arrives first.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var items []catalog.Item
	if err := conn.ReadJSON(&items); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %#v", items)
	}

	// A new applied snapshot is pushed.
	if _, err := application.Catalog.Apply(context.Background(), []catalog.Item{
		{ID: "cardano", Name: "Cardano", Symbol: "ada", UnitPrice: decimal.NewFromFloat(0.45)},
	}, 100); err != nil {
		t.Fatalf("apply: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&items); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(items) != 1 || items[0].ID != "cardano" {
		t.Fatalf("expected cardano update, got %#v", items)
	}
}
