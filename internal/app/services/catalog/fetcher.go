package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/corner-store/storefront/internal/app/domain/catalog"
	"github.com/corner-store/storefront/pkg/logger"
)

const maxFeedBody = 8 << 20

// Fetcher retrieves the current tradable item list from a market-data source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]catalog.Item, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]catalog.Item, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]catalog.Item, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx)
}

// HTTPFetcher pulls a market listing from a CoinGecko-style endpoint. Entries
// missing an id are skipped; missing numeric fields default to zero, so a
// partially malformed response still yields the usable remainder.
type HTTPFetcher struct {
	client   *http.Client
	endpoint string
	apiKey   string
	log      *logger.Logger
}

// NewHTTPFetcher builds a fetcher for a market listing endpoint. currency and
// perPage fill the standard listing query parameters.
func NewHTTPFetcher(client *http.Client, endpoint, currency string, perPage int, apiKey string, log *logger.Logger) (*HTTPFetcher, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.NewDefault("catalog-fetcher")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse feed endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("feed endpoint %q must be absolute", endpoint)
	}

	if currency == "" {
		currency = "usd"
	}
	if perPage <= 0 {
		perPage = 20
	}
	query := parsed.Query()
	query.Set("vs_currency", currency)
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("page", "1")
	query.Set("sparkline", "false")
	parsed.RawQuery = query.Encode()

	return &HTTPFetcher{
		client:   client,
		endpoint: parsed.String(),
		apiKey:   apiKey,
		log:      log,
	}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]catalog.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch market listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market listing returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return nil, fmt.Errorf("read market listing: %w", err)
	}

	return parseListing(body, f.log)
}

func parseListing(body []byte, log *logger.Logger) ([]catalog.Item, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("market listing is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("market listing is not an array")
	}

	entries := root.Array()
	items := make([]catalog.Item, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		id := entry.Get("id").String()
		if id == "" {
			skipped++
			continue
		}
		items = append(items, catalog.Item{
			ID:        id,
			Name:      entry.Get("name").String(),
			Symbol:    entry.Get("symbol").String(),
			UnitPrice: decimal.NewFromFloat(entry.Get("current_price").Float()),
			Change24h: decimal.NewFromFloat(entry.Get("price_change_percentage_24h").Float()),
		})
	}
	if skipped > 0 && log != nil {
		log.WithField("skipped", skipped).Warn("market listing contained entries without an id")
	}
	return items, nil
}
