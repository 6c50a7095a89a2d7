package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpha-sniper/internal/errors"
)

const (
	wsolMint = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func newTestScanner(t *testing.T, handler http.HandlerFunc) (*DexScreenerScanner, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	s := NewDexScreenerScanner(DexScreenerConfig{BaseURL: server.URL}, zerolog.Nop())
	return s, server
}

func TestScanConvertsSolanaPairs(t *testing.T) {
	s, _ := newTestScanner(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/search", r.URL.Path)
		assert.Equal(t, "solana", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pairs": [
			{
				"chainId": "solana",
				"baseToken": {"address": "` + wsolMint + `", "symbol": "WSOL"},
				"priceUsd": "150.25",
				"marketCap": 70000000000,
				"priceChange": {"h1": 1.2, "h24": -3.4},
				"volume": {"h24": 500000},
				"liquidity": {"usd": 2000000},
				"labels": ["v3"]
			},
			{
				"chainId": "ethereum",
				"baseToken": {"address": "0xdead", "symbol": "WETH"},
				"priceUsd": "3000"
			}
		]}`))
	})

	signals, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, wsolMint, sig.Mint)
	assert.Equal(t, "WSOL", sig.Symbol)
	assert.Equal(t, 150.25, sig.Price)
	assert.Equal(t, 500000.0, sig.Volume24h)
	assert.Equal(t, 2000000.0, sig.Liquidity)
	assert.Equal(t, 1.2, sig.PriceChange1h)
	assert.Equal(t, -3.4, sig.PriceChange24h)
	assert.Equal(t, "dexscreener", sig.Source)
	assert.False(t, sig.Timestamp.IsZero())
}

func TestScanSkipsInvalidPairs(t *testing.T) {
	s, _ := newTestScanner(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs": [
			{
				"chainId": "solana",
				"baseToken": {"address": "not-a-mint", "symbol": "BAD"},
				"priceUsd": "1"
			},
			{
				"chainId": "solana",
				"baseToken": {"address": "` + usdcMint + `", "symbol": "USDC"},
				"priceUsd": "1.0"
			}
		]}`))
	})

	signals, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, usdcMint, signals[0].Mint)
}

func TestScanRateLimitedResponse(t *testing.T) {
	s, _ := newTestScanner(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := s.Scan(context.Background())
	require.Error(t, err)

	var ep *errors.EndpointError
	require.ErrorAs(t, err, &ep)
	assert.True(t, ep.RateLimited)
	assert.Equal(t, "dexscreener", ep.Venue)
}

func TestScanServerError(t *testing.T) {
	s, _ := newTestScanner(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := s.Scan(context.Background())
	require.Error(t, err)

	var ep *errors.EndpointError
	require.ErrorAs(t, err, &ep)
	assert.False(t, ep.RateLimited)
}

func TestScanEmptyResponse(t *testing.T) {
	s, _ := newTestScanner(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs": null}`))
	})

	signals, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, signals)
}
