package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/logger"

	"github.com/patrickmn/go-cache"
)

// PriceOracleRepository looks up USD prices by oracle coin id.
type PriceOracleRepository interface {
	GetUSDPrices(ctx context.Context, ids []string) (map[string]dto.OraclePrice, error)
}

type coinGeckoRepository struct {
	cfg        config.PriceOracle
	log        *logger.Logger
	httpClient *http.Client
	cache      *cache.Cache
}

// NewCoinGeckoRepository creates a PriceOracleRepository backed by the CoinGecko simple price API.
// Responses are cached for the configured TTL.
func NewCoinGeckoRepository(cfg *config.Config, log *logger.Logger) PriceOracleRepository {
	oracle := cfg.PriceOracle
	if oracle.RequestTimeout <= 0 {
		oracle.RequestTimeout = 10 * time.Second
	}
	return &coinGeckoRepository{
		cfg: oracle,
		log: log,
		httpClient: &http.Client{
			Timeout: oracle.RequestTimeout,
		},
		cache: cache.New(oracle.CacheTTL, 2*oracle.CacheTTL+time.Minute),
	}
}

// GetUSDPrices issues one bulk request for the ids not already cached.
func (r *coinGeckoRepository) GetUSDPrices(ctx context.Context, ids []string) (map[string]dto.OraclePrice, error) {
	prices := make(map[string]dto.OraclePrice, len(ids))
	var missing []string
	for _, id := range ids {
		if cached, ok := r.cache.Get(id); ok && r.cfg.CacheTTL > 0 {
			prices[id] = cached.(dto.OraclePrice)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return prices, nil
	}

	query := url.Values{}
	query.Set("ids", strings.Join(missing, ","))
	query.Set("vs_currencies", "usd")
	query.Set("include_24hr_change", "true")
	query.Set("include_24hr_vol", "true")
	endpoint := strings.TrimRight(r.cfg.BaseURL, "/") + "/api/v3/simple/price?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", r.cfg.APIKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to price oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.log.DebugContext(ctx, "Received non-OK response from price oracle", logger.IntField("status_code", resp.StatusCode))
		return nil, fmt.Errorf("received non-OK response from price oracle: %d - %s", resp.StatusCode, string(body))
	}

	var payload map[string]dto.OraclePrice
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode price oracle response: %w", err)
	}

	for id, price := range payload {
		prices[id] = price
		if r.cfg.CacheTTL > 0 {
			r.cache.SetDefault(id, price)
		}
	}
	return prices, nil
}
