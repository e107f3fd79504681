package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	cartDomain "github.com/corner-store/storefront/internal/app/domain/cart"
	"github.com/corner-store/storefront/internal/app/domain/session"
	"github.com/corner-store/storefront/internal/app/storage/memory"
	"github.com/corner-store/storefront/pkg/logger"
)

func sessionSeed() session.Session {
	return session.Session{}
}

func setup(t *testing.T) (*Service, string) {
	t.Helper()
	store := memory.New()
	sess, err := store.CreateSession(context.Background(), sessionSeed())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	log := logger.NewDefault("test")
	log.SetOutput(io.Discard)
	return New(store, store, log), sess.ID
}

func TestParseQuantity(t *testing.T) {
	valid := map[string]string{
		"1":     "1",
		"0.5":   "0.5",
		"  2  ": "2",
	}
	for raw, want := range valid {
		qty, err := ParseQuantity(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if qty.String() != want {
			t.Fatalf("parse %q: expected %s, got %s", raw, want, qty)
		}
	}

	for _, raw := range []string{"", "abc", "-1", "0", "1.2.3"} {
		if _, err := ParseQuantity(raw); !errors.Is(err, cartDomain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity for %q, got %v", raw, err)
		}
	}
}

func TestService_AddMergeKeepsOriginalPrice(t *testing.T) {
	svc, sessionID := setup(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, sessionID, "bitcoin", "Bitcoin", "btc", decimal.NewFromInt(65000), "0.5")
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if first.Subtotal.String() != "32500" {
		t.Fatalf("expected subtotal 32500, got %s", first.Subtotal)
	}

	// The live price has moved, but the merged line keeps its original basis.
	merged, err := svc.Add(ctx, sessionID, "bitcoin", "Bitcoin", "btc", decimal.NewFromInt(70000), "0.5")
	if err != nil {
		t.Fatalf("merge add: %v", err)
	}
	if !merged.UnitPrice.Equal(decimal.NewFromInt(65000)) {
		t.Fatalf("expected original unit price retained, got %s", merged.UnitPrice)
	}
	if !merged.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected quantity 1, got %s", merged.Quantity)
	}
	if merged.Subtotal.String() != "65000" {
		t.Fatalf("expected subtotal 65000, got %s", merged.Subtotal)
	}

	items, err := svc.Items(ctx, sessionID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected merged single line, got %d", len(items))
	}
}

func TestService_AddConcurrentSameItemAccumulates(t *testing.T) {
	svc, sessionID := setup(t)
	ctx := context.Background()

	const adds = 16
	start := make(chan struct{})
	errs := make(chan error, adds)
	var wg sync.WaitGroup
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Add(ctx, sessionID, "bitcoin", "Bitcoin", "btc", decimal.NewFromInt(65000), "1")
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent add: %v", err)
		}
	}

	items, err := svc.Items(ctx, sessionID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected single merged line, got %d", len(items))
	}
	if !items[0].Quantity.Equal(decimal.NewFromInt(adds)) {
		t.Fatalf("expected quantity %d, got %s", adds, items[0].Quantity)
	}
	if items[0].Subtotal.String() != "1040000" {
		t.Fatalf("expected subtotal 1040000, got %s", items[0].Subtotal)
	}
}

func TestService_AddRejectsInvalidQuantityUntouched(t *testing.T) {
	svc, sessionID := setup(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, sessionID, "bitcoin", "Bitcoin", "btc", decimal.NewFromInt(65000), "nope"); !errors.Is(err, cartDomain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	items, err := svc.Items(ctx, sessionID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected cart untouched, got %d items", len(items))
	}
}

func TestService_TotalRecomputed(t *testing.T) {
	svc, sessionID := setup(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, sessionID, "bitcoin", "Bitcoin", "btc", decimal.NewFromInt(65000), "0.5"); err != nil {
		t.Fatalf("add bitcoin: %v", err)
	}
	if _, err := svc.Add(ctx, sessionID, "ethereum", "Ethereum", "eth", decimal.NewFromInt(3200), "2"); err != nil {
		t.Fatalf("add ethereum: %v", err)
	}

	total, err := svc.Total(ctx, sessionID)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total.String() != "38900" {
		t.Fatalf("expected total 38900, got %s", total)
	}

	if err := svc.Remove(ctx, sessionID, "ethereum"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	total, _ = svc.Total(ctx, sessionID)
	if total.String() != "32500" {
		t.Fatalf("expected total 32500 after removal, got %s", total)
	}

	// Removing an absent id changes nothing.
	if err := svc.Remove(ctx, sessionID, "dogecoin"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	total, _ = svc.Total(ctx, sessionID)
	if total.String() != "32500" {
		t.Fatalf("expected total unchanged, got %s", total)
	}
}

func TestService_AddPostsExpiringNotice(t *testing.T) {
	store := memory.New()
	sess, err := store.CreateSession(context.Background(), sessionSeed())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	log := logger.NewDefault("test")
	log.SetOutput(io.Discard)
	svc := New(store, store, log)

	if _, err := svc.Add(context.Background(), sess.ID, "bitcoin", "Bitcoin", "btc", decimal.NewFromInt(65000), "0.5"); err != nil {
		t.Fatalf("add: %v", err)
	}

	now := time.Now().UTC()
	notices, err := store.ListNotices(context.Background(), sess.ID, now)
	if err != nil {
		t.Fatalf("list notices: %v", err)
	}
	if len(notices) != 1 {
		t.Fatalf("expected 1 notice, got %d", len(notices))
	}
	if notices[0].Message != "Added 0.5 btc to cart" {
		t.Fatalf("unexpected notice message: %q", notices[0].Message)
	}

	notices, _ = store.ListNotices(context.Background(), sess.ID, now.Add(NoticeTTL+time.Second))
	if len(notices) != 0 {
		t.Fatalf("expected notice expired, got %d", len(notices))
	}
}

func TestService_InCartAndClear(t *testing.T) {
	svc, sessionID := setup(t)
	ctx := context.Background()

	for i, id := range []string{"bitcoin", "ethereum"} {
		if _, err := svc.Add(ctx, sessionID, id, id, id, decimal.NewFromInt(int64(100*(i+1))), "1"); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	ids, err := svc.InCart(ctx, sessionID)
	if err != nil {
		t.Fatalf("in cart: %v", err)
	}
	if !ids["bitcoin"] || !ids["ethereum"] || len(ids) != 2 {
		t.Fatalf("unexpected in-cart set: %#v", ids)
	}

	if err := svc.Clear(ctx, sessionID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ids, _ = svc.InCart(ctx, sessionID)
	if len(ids) != 0 {
		t.Fatalf("expected empty in-cart set, got %#v", ids)
	}
}

func ExampleService_Total() {
	store := memory.New()
	sess, _ := store.CreateSession(context.Background(), sessionSeed())
	log := logger.NewDefault("example")
	log.SetOutput(io.Discard)
	svc := New(store, store, log)

	_, _ = svc.Add(context.Background(), sess.ID, "bitcoin", "Bitcoin", "btc", decimal.NewFromInt(65000), "0.5")
	total, _ := svc.Total(context.Background(), sess.ID)
	fmt.Println(total.StringFixed(2))
	// Output: 32500.00
}
