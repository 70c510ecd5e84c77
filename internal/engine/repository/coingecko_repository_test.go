package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"apexpulse/internal/engine/config"
	"apexpulse/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinGeckoRepository_BulkQueryAndCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		assert.Equal(t, "hedera-hashgraph,solana", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"hedera-hashgraph":{"usd":0.12,"usd_24h_change":-2.5},"solana":{"usd":140.2}}`))
	}))
	defer srv.Close()

	cfg := &config.Config{PriceOracle: config.PriceOracle{BaseURL: srv.URL, CacheTTL: time.Minute, RequestTimeout: time.Second}}
	repo := NewCoinGeckoRepository(cfg, logger.NewNop())

	prices, err := repo.GetUSDPrices(context.Background(), []string{"hedera-hashgraph", "solana"})
	require.NoError(t, err)
	assert.Equal(t, 0.12, prices["hedera-hashgraph"].USD)
	assert.Equal(t, -2.5, prices["hedera-hashgraph"].Change24h)
	assert.Equal(t, 140.2, prices["solana"].USD)

	prices, err = repo.GetUSDPrices(context.Background(), []string{"solana"})
	require.NoError(t, err)
	assert.Equal(t, 140.2, prices["solana"].USD)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCoinGeckoRepository_NonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := &config.Config{PriceOracle: config.PriceOracle{BaseURL: srv.URL, RequestTimeout: time.Second}}
	repo := NewCoinGeckoRepository(cfg, logger.NewNop())

	_, err := repo.GetUSDPrices(context.Background(), []string{"bitcoin"})
	assert.Error(t, err)
}
