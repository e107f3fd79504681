package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	cartsvc "github.com/corner-store/storefront/internal/app/services/cart"
	catalogsvc "github.com/corner-store/storefront/internal/app/services/catalog"
	checkoutsvc "github.com/corner-store/storefront/internal/app/services/checkout"
	sessionssvc "github.com/corner-store/storefront/internal/app/services/sessions"
	"github.com/corner-store/storefront/internal/app/storage"
	"github.com/corner-store/storefront/internal/app/storage/memory"
	"github.com/corner-store/storefront/internal/app/system"
	"github.com/corner-store/storefront/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Sessions storage.SessionStore
	Carts    storage.CartStore
	Flows    storage.FlowStore
	Orders   storage.OrderStore
	Catalog  storage.CatalogStore
}

// Options tune the market feed and background services.
type Options struct {
	// FeedURL is the market listing endpoint. Empty disables background
	// refreshes; the catalog stays unavailable until one is applied manually.
	FeedURL string
	// FeedCurrency is the quote currency for listed prices. Defaults to usd.
	FeedCurrency string
	// FeedPerPage caps how many assets one refresh retrieves. Defaults to 20.
	FeedPerPage int
	// FeedAPIKey, when set, is sent as a bearer token.
	FeedAPIKey string
	// FeedSchedule is a cron spec for the refresh cadence, e.g. "@every 30s".
	FeedSchedule string
	// Fetcher overrides the HTTP fetcher entirely. Used by tests.
	Fetcher catalogsvc.Fetcher
	// HTTPTimeout bounds outbound feed requests. Defaults to 10s.
	HTTPTimeout time.Duration
	// SessionMaxIdle is how long an untouched session survives.
	SessionMaxIdle time.Duration
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Sessions  *sessionssvc.Service
	Cart      *cartsvc.Service
	Checkout  *checkoutsvc.Service
	Catalog   *catalogsvc.Service
	Refresher *catalogsvc.Refresher
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Sessions == nil {
		stores.Sessions = mem
	}
	if stores.Carts == nil {
		stores.Carts = mem
	}
	if stores.Flows == nil {
		stores.Flows = mem
	}
	if stores.Orders == nil {
		stores.Orders = mem
	}
	if stores.Catalog == nil {
		stores.Catalog = mem
	}

	manager := system.NewManager()

	sessionService := sessionssvc.New(stores.Sessions, log)
	cartService := cartsvc.New(stores.Carts, stores.Sessions, log)
	checkoutService := checkoutsvc.New(stores.Flows, stores.Orders, cartService, log)
	catalogService := catalogsvc.New(stores.Catalog, log)

	refresher := catalogsvc.NewRefresher(catalogService, log)
	if opts.FeedSchedule != "" {
		if err := refresher.WithSchedule(opts.FeedSchedule); err != nil {
			return nil, err
		}
	}

	switch {
	case opts.Fetcher != nil:
		refresher.WithFetcher(opts.Fetcher)
	case strings.TrimSpace(opts.FeedURL) != "":
		timeout := opts.HTTPTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient := &http.Client{Timeout: timeout}
		fetcher, err := catalogsvc.NewHTTPFetcher(httpClient, opts.FeedURL, opts.FeedCurrency, opts.FeedPerPage, opts.FeedAPIKey, log)
		if err != nil {
			return nil, fmt.Errorf("configure market feed fetcher: %w", err)
		}
		refresher.WithFetcher(fetcher)
	default:
		log.Warn("no market feed endpoint configured; catalog refreshes disabled")
	}

	janitor := sessionssvc.NewJanitor(stores.Sessions, log)
	if opts.SessionMaxIdle > 0 {
		janitor.WithMaxIdle(opts.SessionMaxIdle)
	}

	for _, svc := range []system.Service{refresher, janitor} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:   manager,
		log:       log,
		Sessions:  sessionService,
		Cart:      cartService,
		Checkout:  checkoutService,
		Catalog:   catalogService,
		Refresher: refresher,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
