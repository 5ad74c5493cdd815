package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"snakepill/internal/config"
	"snakepill/internal/pkg/retry"
)

// coinResponse is the subset of the market-data coin payload we use.
type coinResponse struct {
	USDMarketCap *float64 `json:"usd_market_cap"`
	TotalSupply  *float64 `json:"total_supply"`
}

// PriceClient fetches the token's USD price from the market-data API.
type PriceClient struct {
	baseURL  string
	http     *http.Client
	retryCfg retry.Config
	clock    clockwork.Clock
	ttl      time.Duration

	mu       sync.Mutex
	cached   map[string]decimal.Decimal
	cachedAt map[string]time.Time
}

// NewPriceClient creates a price client from config. A nil clock uses the real clock.
func NewPriceClient(cfg *config.PriceConfig, clock clockwork.Clock) *PriceClient {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retryCfg := retry.DefaultConfig()
	retryCfg.Clock = clock
	return &PriceClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		retryCfg: retryCfg,
		clock:    clock,
		ttl:      cfg.CacheTTL,
		cached:   make(map[string]decimal.Decimal),
		cachedAt: make(map[string]time.Time),
	}
}

// TokenPriceUSD returns market cap divided by total supply for mint.
// It returns 0 when either figure is missing or the request fails.
func (c *PriceClient) TokenPriceUSD(ctx context.Context, mint string) decimal.Decimal {
	if price, ok := c.fromCache(mint); ok {
		return price
	}

	price, err := c.fetch(ctx, mint)
	if err != nil {
		log.Warn().Err(err).Str("mint", mint).Msg("Failed to get token price")
		return decimal.Zero
	}

	c.store(mint, price)
	return price
}

func (c *PriceClient) fetch(ctx context.Context, mint string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/coins/%s", c.baseURL, mint)

	var coin coinResponse
	err := retry.Do(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &retry.StatusError{Code: resp.StatusCode, URL: url}
		}

		coin = coinResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&coin); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	if coin.USDMarketCap == nil || coin.TotalSupply == nil || *coin.USDMarketCap <= 0 || *coin.TotalSupply <= 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(*coin.USDMarketCap).Div(decimal.NewFromFloat(*coin.TotalSupply)), nil
}

func (c *PriceClient) fromCache(mint string) (decimal.Decimal, bool) {
	if c.ttl <= 0 {
		return decimal.Zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.cachedAt[mint]
	if !ok || c.clock.Since(at) >= c.ttl {
		return decimal.Zero, false
	}
	return c.cached[mint], true
}

// store caches non-zero prices only, so a missing figure is retried next call.
func (c *PriceClient) store(mint string, price decimal.Decimal) {
	if c.ttl <= 0 || price.IsZero() {
		return
	}
	c.mu.Lock()
	c.cached[mint] = price
	c.cachedAt[mint] = c.clock.Now()
	c.mu.Unlock()
}
