package chain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snakepill/internal/config"
	"snakepill/internal/pkg/retry"
)

func newPriceServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/coins/"+testMint, r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestPriceClient(baseURL string, ttl time.Duration, clock clockwork.Clock) *PriceClient {
	c := NewPriceClient(&config.PriceConfig{BaseURL: baseURL, Timeout: time.Second, CacheTTL: ttl}, clock)
	c.retryCfg = retry.Config{MaxAttempts: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	return c
}

func TestPriceClient_MarketCapOverSupply(t *testing.T) {
	srv, _ := newPriceServer(t, http.StatusOK, `{"usd_market_cap": 50000, "total_supply": 1000000000}`)
	c := newTestPriceClient(srv.URL, 0, nil)

	got := c.TokenPriceUSD(context.Background(), testMint)
	assert.True(t, got.Equal(decimal.RequireFromString("0.00005")), "got %s", got)
}

func TestPriceClient_MissingFieldsIsZero(t *testing.T) {
	srv, _ := newPriceServer(t, http.StatusOK, `{"usd_market_cap": 50000}`)
	c := newTestPriceClient(srv.URL, 0, nil)

	assert.True(t, c.TokenPriceUSD(context.Background(), testMint).IsZero())
}

func TestPriceClient_ServerErrorRetriedThenZero(t *testing.T) {
	srv, hits := newPriceServer(t, http.StatusBadGateway, `oops`)
	c := newTestPriceClient(srv.URL, 0, nil)

	assert.True(t, c.TokenPriceUSD(context.Background(), testMint).IsZero())
	assert.Equal(t, int32(2), hits.Load())
}

func TestPriceClient_NotFoundNotRetried(t *testing.T) {
	srv, hits := newPriceServer(t, http.StatusNotFound, `{}`)
	c := newTestPriceClient(srv.URL, 0, nil)

	assert.True(t, c.TokenPriceUSD(context.Background(), testMint).IsZero())
	assert.Equal(t, int32(1), hits.Load())
}

func TestPriceClient_CachesUntilTTL(t *testing.T) {
	srv, hits := newPriceServer(t, http.StatusOK, `{"usd_market_cap": 100, "total_supply": 10}`)
	clock := clockwork.NewFakeClock()
	c := newTestPriceClient(srv.URL, 30*time.Second, clock)

	ctx := context.Background()
	require.True(t, c.TokenPriceUSD(ctx, testMint).Equal(decimal.NewFromInt(10)))
	require.True(t, c.TokenPriceUSD(ctx, testMint).Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int32(1), hits.Load())

	clock.Advance(31 * time.Second)
	require.True(t, c.TokenPriceUSD(ctx, testMint).Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int32(2), hits.Load())
}
