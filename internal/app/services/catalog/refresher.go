package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/corner-store/storefront/internal/app/metrics"
	"github.com/corner-store/storefront/internal/app/system"
	"github.com/corner-store/storefront/pkg/logger"
)

var _ system.Service = (*Refresher)(nil)

// Refresher periodically fetches the market listing and applies it to the
// catalog. Ticks run in their own goroutines, so a slow fetch never delays the
// next cycle; the sequence counter ensures only the newest issued fetch that
// completes wins.
type Refresher struct {
	service  *Service
	log      *logger.Logger
	schedule cron.Schedule
	timeout  time.Duration
	seq      atomic.Uint64

	mu      sync.Mutex
	fetcher Fetcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRefresher creates a lifecycle-managed catalog refresher polling every 30
// seconds until rescheduled.
func NewRefresher(service *Service, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("catalog-refresher")
	}
	schedule, _ := cron.ParseStandard("@every 30s")
	return &Refresher{
		service:  service,
		log:      log,
		schedule: schedule,
		timeout:  10 * time.Second,
	}
}

// WithFetcher assigns the fetcher used to retrieve the market listing.
func (r *Refresher) WithFetcher(fetcher Fetcher) {
	r.mu.Lock()
	r.fetcher = fetcher
	r.mu.Unlock()
}

// WithSchedule replaces the polling schedule, e.g. "@every 30s".
func (r *Refresher) WithSchedule(spec string) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parse feed schedule %q: %w", spec, err)
	}
	r.mu.Lock()
	r.schedule = schedule
	r.mu.Unlock()
	return nil
}

func (r *Refresher) Name() string { return "catalog-refresher" }

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			r.mu.Lock()
			schedule := r.schedule
			r.mu.Unlock()

			timer := time.NewTimer(time.Until(schedule.Next(time.Now())))
			select {
			case <-runCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
				seq := r.seq.Add(1)
				r.wg.Add(1)
				go func() {
					defer r.wg.Done()
					r.tick(runCtx, seq)
				}()
			}
		}
	}()

	r.log.Info("catalog refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("catalog refresher stopped")
	return nil
}

// RefreshNow fetches and applies a snapshot synchronously. It backs the
// catalog's manual retry affordance.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	return r.tick(ctx, r.seq.Add(1))
}

func (r *Refresher) tick(ctx context.Context, seq uint64) error {
	r.mu.Lock()
	fetcher := r.fetcher
	r.mu.Unlock()

	if fetcher == nil || r.service == nil {
		return fmt.Errorf("no feed fetcher configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	items, err := fetcher.Fetch(ctx)
	if err != nil {
		metrics.RecordFeedRefresh("error", time.Since(start))
		r.log.WithError(err).Warn("catalog refresh failed")
		return err
	}

	applied, err := r.service.Apply(ctx, items, seq)
	if err != nil {
		metrics.RecordFeedRefresh("error", time.Since(start))
		r.log.WithError(err).Warn("apply catalog snapshot failed")
		return err
	}
	if !applied {
		metrics.RecordFeedRefresh("stale", time.Since(start))
		r.log.WithField("seq", seq).Debug("stale catalog snapshot discarded")
		return nil
	}

	metrics.RecordFeedRefresh("ok", time.Since(start))
	r.log.WithField("items", len(items)).Debug("catalog refreshed")
	return nil
}
