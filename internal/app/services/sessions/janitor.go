package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/corner-store/storefront/internal/app/storage"
	"github.com/corner-store/storefront/internal/app/system"
	"github.com/corner-store/storefront/pkg/logger"
)

var _ system.Service = (*Janitor)(nil)

// Janitor sweeps expired notices and abandoned sessions in the background.
type Janitor struct {
	store    storage.SessionStore
	log      *logger.Logger
	interval time.Duration
	maxIdle  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewJanitor creates a janitor sweeping every five seconds and dropping
// sessions idle for over an hour.
func NewJanitor(store storage.SessionStore, log *logger.Logger) *Janitor {
	if log == nil {
		log = logger.NewDefault("session-janitor")
	}
	return &Janitor{
		store:    store,
		log:      log,
		interval: 5 * time.Second,
		maxIdle:  time.Hour,
	}
}

// WithInterval overrides the sweep cadence.
func (j *Janitor) WithInterval(d time.Duration) {
	if d > 0 {
		j.interval = d
	}
}

// WithMaxIdle overrides how long a session may sit untouched before removal.
func (j *Janitor) WithMaxIdle(d time.Duration) {
	if d > 0 {
		j.maxIdle = d
	}
}

func (j *Janitor) Name() string { return "session-janitor" }

func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.running = true
	j.mu.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				j.sweep(runCtx)
			}
		}
	}()
	return nil
}

func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	cancel := j.cancel
	j.running = false
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		j.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	now := time.Now().UTC()
	if n, err := j.store.PruneNotices(ctx, now); err != nil {
		j.log.WithError(err).Warn("prune notices failed")
	} else if n > 0 {
		j.log.WithField("pruned", n).Debug("expired notices pruned")
	}

	all, err := j.store.ListSessions(ctx)
	if err != nil {
		j.log.WithError(err).Warn("list sessions failed")
		return
	}
	for _, sess := range all {
		if now.Sub(sess.LastSeenAt) <= j.maxIdle {
			continue
		}
		if err := j.store.DeleteSession(ctx, sess.ID); err != nil {
			j.log.WithError(err).WithField("session", sess.ID).Warn("delete idle session failed")
		}
	}
}
