package dexscreener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"omni-trending/internal/infra/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenPairsBody = `{
  "schemaVersion": "1.0.0",
  "pairs": [
    {
      "chainId": "solana",
      "dexId": "raydium",
      "url": "https://dexscreener.com/solana/pair1",
      "pairAddress": "pair1",
      "baseToken": {"address": "Mint111", "name": "Dog Wif Hat", "symbol": "WIF"},
      "quoteToken": {"address": "So111", "name": "Wrapped SOL", "symbol": "SOL"},
      "priceNative": "0.01",
      "priceUsd": "1.2345",
      "volume": {"h24": 150000.5, "h1": 2000},
      "priceChange": {"h1": -3.2, "h24": 12.5},
      "liquidity": {"usd": 50000, "base": 100, "quote": 200},
      "fdv": 1000000,
      "pairCreatedAt": 1700000000000,
      "info": {"imageUrl": "https://cdn.example/wif.png", "websites": [{"label": "web", "url": "https://wif.example"}]}
    },
    {
      "chainId": "solana",
      "dexId": "orca",
      "pairAddress": "pair2",
      "baseToken": {"address": "Mint111", "name": "Dog Wif Hat", "symbol": "WIF"},
      "priceUsd": "1.2",
      "liquidity": null
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Options{BaseURL: srv.URL, Timeout: 2 * time.Second, MaxRetries: 2, RequestsPerMinute: 6000})
	c.retry.BaseDelay = time.Millisecond
	c.retry.MaxDelay = 2 * time.Millisecond
	return c
}

func TestTokenPairs_DecodesPairs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/tokens/Mint111", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tokenPairsBody))
	})

	pairs, err := c.TokenPairs(context.Background(), "Mint111")
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	p := pairs[0]
	assert.Equal(t, "solana", p.ChainID)
	assert.Equal(t, "WIF", p.BaseToken.Symbol)
	assert.Equal(t, "1.2345", p.PriceUsd)
	require.NotNil(t, p.Volume.H24)
	assert.InDelta(t, 150000.5, *p.Volume.H24, 1e-9)
	assert.Nil(t, p.Volume.H6)
	require.NotNil(t, p.PriceChange.H1)
	assert.InDelta(t, -3.2, *p.PriceChange.H1, 1e-9)
	assert.InDelta(t, 50000, p.LiquidityUSD(), 1e-9)
	assert.Nil(t, p.MarketCap)
	require.NotNil(t, p.Info)
	assert.Equal(t, "https://cdn.example/wif.png", p.Info.ImageURL)

	assert.Equal(t, float64(0), pairs[1].LiquidityUSD())
}

func TestSearch_EscapesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/search", r.URL.Path)
		assert.Equal(t, "0xabc def", r.URL.Query().Get("q"))
		w.Write([]byte(`{"pairs": []}`))
	})

	pairs, err := c.Search(context.Background(), " 0xabc def ")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestSearch_RetriesOnServerError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"pairs": [{"chainId": "base", "pairAddress": "p"}]}`))
	})

	pairs, err := c.Search(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSearch_DoesNotRetryClientError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Search(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var he *retry.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.StatusCode)
}

func TestSearch_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>blocked</html>`))
	})

	_, err := c.Search(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
