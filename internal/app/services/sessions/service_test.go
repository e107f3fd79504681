package sessions

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/corner-store/storefront/internal/app/domain/session"
	"github.com/corner-store/storefront/internal/app/storage/memory"
	"github.com/corner-store/storefront/pkg/logger"
)

func silentLogger() *logger.Logger {
	log := logger.NewDefault("test")
	log.SetOutput(io.Discard)
	return log
}

func TestService_CreateAndTouch(t *testing.T) {
	store := memory.New()
	svc := New(store, silentLogger())
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.ID == "" {
		t.Fatalf("expected generated session id")
	}

	before := sess.LastSeenAt
	time.Sleep(5 * time.Millisecond)
	if err := svc.Touch(ctx, sess.ID); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.LastSeenAt.After(before) {
		t.Fatalf("expected last seen advanced, got %v", got.LastSeenAt)
	}

	if _, err := svc.Get(ctx, "missing"); err == nil {
		t.Fatalf("expected unknown session lookup to fail")
	}
}

func TestService_NoticesFiltersExpired(t *testing.T) {
	store := memory.New()
	svc := New(store, silentLogger())
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC()
	if _, err := store.AddNotice(ctx, session.Notice{
		SessionID: sess.ID,
		Message:   "live",
		ExpiresAt: now.Add(time.Minute),
	}); err != nil {
		t.Fatalf("add live notice: %v", err)
	}
	if _, err := store.AddNotice(ctx, session.Notice{
		SessionID: sess.ID,
		Message:   "stale",
		ExpiresAt: now.Add(-time.Second),
	}); err != nil {
		t.Fatalf("add stale notice: %v", err)
	}

	notices, err := svc.Notices(ctx, sess.ID)
	if err != nil {
		t.Fatalf("notices: %v", err)
	}
	if len(notices) != 1 || notices[0].Message != "live" {
		t.Fatalf("expected only the live notice, got %#v", notices)
	}
}

func TestJanitor_SweepsNoticesAndIdleSessions(t *testing.T) {
	store := memory.New()
	svc := New(store, silentLogger())
	ctx := context.Background()

	idle, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create idle: %v", err)
	}
	active, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create active: %v", err)
	}

	if err := store.TouchSession(ctx, idle.ID, time.Now().UTC().Add(-2*time.Hour)); err != nil {
		t.Fatalf("backdate idle session: %v", err)
	}
	if _, err := store.AddNotice(ctx, session.Notice{
		SessionID: active.ID,
		Message:   "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Second),
	}); err != nil {
		t.Fatalf("add stale notice: %v", err)
	}

	janitor := NewJanitor(store, silentLogger())
	janitor.WithInterval(10 * time.Millisecond)
	janitor.WithMaxIdle(time.Hour)

	if err := janitor.Start(ctx); err != nil {
		t.Fatalf("start janitor: %v", err)
	}
	defer janitor.Stop(context.Background())

	deadline := time.After(2 * time.Second)
	for {
		if _, err := store.GetSession(ctx, idle.ID); err != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("idle session never swept")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if _, err := store.GetSession(ctx, active.ID); err != nil {
		t.Fatalf("active session must survive: %v", err)
	}
	notices, err := store.ListNotices(ctx, active.ID, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list notices: %v", err)
	}
	if len(notices) != 0 {
		t.Fatalf("expected stale notice pruned, got %#v", notices)
	}
}
