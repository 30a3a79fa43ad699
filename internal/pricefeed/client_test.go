package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gro-garden-sync/internal/retry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type feedServer struct {
	priceHits atomic.Int32
	apyHits   atomic.Int32
	failing   atomic.Bool
	priceBody string
	apyBody   string
}

func (f *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.failing.Load() {
		http.Error(w, "down", http.StatusInternalServerError)
		return
	}
	switch r.URL.Path {
	case "/price":
		f.priceHits.Add(1)
		_, _ = w.Write([]byte(f.priceBody))
	case "/apy":
		f.apyHits.Add(1)
		_, _ = w.Write([]byte(f.apyBody))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, f *feedServer) (*Client, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	policy := retry.DefaultPolicy("test")
	policy.Sleep = func(context.Context, time.Duration) error { return nil }

	return NewClient(Config{
		PriceUrl: srv.URL + "/price",
		ApyUrl:   srv.URL + "/apy",
		Retry:    policy,
		Clock:    clock,
	}), clock
}

func TestTokenPricesParsesStringAndNumber(t *testing.T) {
	f := &feedServer{priceBody: `{"data":{
		"MintA":{"id":"MintA","type":"derivedPrice","price":"142.55"},
		"MintB":{"id":"MintB","price":0.9998},
		"MintC":null
	},"timeTaken":0.01}`}
	c, _ := newTestClient(t, f)

	prices := c.TokenPrices(context.Background(), []string{"MintA", "MintB", "MintC"})
	require.Len(t, prices, 2)
	assert.True(t, prices["MintA"].Equal(decimal.RequireFromString("142.55")))
	assert.True(t, prices["MintB"].Equal(decimal.RequireFromString("0.9998")))
}

func TestTokenPricesCachedWithinTtl(t *testing.T) {
	f := &feedServer{priceBody: `{"data":{"MintA":{"price":"1"}}}`}
	c, clock := newTestClient(t, f)
	ctx := context.Background()

	c.TokenPrices(ctx, []string{"MintA"})
	clock.Advance(30 * time.Second)
	c.TokenPrices(ctx, []string{"MintA"})
	assert.Equal(t, int32(1), f.priceHits.Load())

	clock.Advance(31 * time.Second)
	c.TokenPrices(ctx, []string{"MintA"})
	assert.Equal(t, int32(2), f.priceHits.Load())
}

func TestTokenPricesFailureReturnsLastOrEmpty(t *testing.T) {
	f := &feedServer{priceBody: `{"data":{"MintA":{"price":"2.5"}}}`}
	c, clock := newTestClient(t, f)
	ctx := context.Background()

	f.failing.Store(true)
	assert.Empty(t, c.TokenPrices(ctx, []string{"MintA"}))

	f.failing.Store(false)
	c.TokenPrices(ctx, []string{"MintA"})

	clock.Advance(2 * time.Minute)
	f.failing.Store(true)
	prices := c.TokenPrices(ctx, []string{"MintA"})
	assert.True(t, prices["MintA"].Equal(decimal.RequireFromString("2.5")))
}

func TestStakingApy(t *testing.T) {
	f := &feedServer{apyBody: `{"value":0.07,"avg_staking_apy":0.0712}`}
	c, clock := newTestClient(t, f)
	ctx := context.Background()

	assert.True(t, c.StakingApy(ctx).Equal(decimal.RequireFromString("0.0712")))
	c.StakingApy(ctx)
	assert.Equal(t, int32(1), f.apyHits.Load())

	clock.Advance(301 * time.Second)
	f.failing.Store(true)
	assert.True(t, c.StakingApy(ctx).Equal(FallbackApy))
}

func TestStakingApyMissingField(t *testing.T) {
	f := &feedServer{apyBody: `{}`}
	c, _ := newTestClient(t, f)

	assert.True(t, c.StakingApy(context.Background()).Equal(FallbackApy))
}
