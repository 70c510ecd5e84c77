package repository

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/common"
	"apexpulse/pkg/logger"
	"apexpulse/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ExchangeRepository reads balances, fills and market data from a spot exchange.
type ExchangeRepository interface {
	Name() string
	GetBalances(ctx context.Context, creds dto.ExchangeCredentials) ([]dto.Balance, error)
	GetTrades(ctx context.Context, creds dto.ExchangeCredentials, param dto.FetchTradesParam) ([]dto.Trade, error)
	Get24hrTickers(ctx context.Context, pairs []string) ([]dto.Ticker24hr, error)
	GetTickerPrice(ctx context.Context, pair string) (float64, error)
	GetAvgPrice(ctx context.Context, pair string) (float64, error)
}

// maxTradePages bounds the fromId pages fetched per symbol in one sync.
const maxTradePages = 20

type binanceRepository struct {
	cfg            config.Exchange
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	now            func() time.Time
}

// NewBinanceRepository creates an ExchangeRepository for the Binance spot REST API.
func NewBinanceRepository(cfg *config.Config, log *logger.Logger) ExchangeRepository {
	ex := cfg.Exchange
	if ex.MaxRequestPerMinute <= 0 {
		ex.MaxRequestPerMinute = 600
	}
	if ex.RequestTimeout <= 0 {
		ex.RequestTimeout = 10 * time.Second
	}
	if ex.QuoteAsset == "" {
		ex.QuoteAsset = common.DefaultQuoteAsset
	}
	if ex.MaxConcurrentRequests <= 0 {
		ex.MaxConcurrentRequests = 8
	}

	secondsPerRequest := time.Minute / time.Duration(ex.MaxRequestPerMinute)
	return &binanceRepository{
		cfg: ex,
		log: log,
		httpClient: &http.Client{
			Timeout: ex.RequestTimeout,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), ex.MaxConcurrentRequests),
		now:            utils.TimeNowUTC,
	}
}

func (r *binanceRepository) Name() string {
	return r.cfg.Name
}

func (r *binanceRepository) GetBalances(ctx context.Context, creds dto.ExchangeCredentials) ([]dto.Balance, error) {
	if !creds.Configured() {
		return []dto.Balance{}, nil
	}

	body, err := r.sendRequest(ctx, http.MethodGet, "/api/v3/account", url.Values{}, &creds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account balances: %w", err)
	}

	var account dto.AccountResponse
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}

	balances := make([]dto.Balance, 0, len(account.Balances))
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			r.log.WarnContext(ctx, "Skipping balance with invalid free amount", logger.StringField("asset", b.Asset), logger.ErrorField(err))
			continue
		}
		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			r.log.WarnContext(ctx, "Skipping balance with invalid locked amount", logger.StringField("asset", b.Asset), logger.ErrorField(err))
			continue
		}
		balance := dto.Balance{Asset: common.NormalizeSymbol(b.Asset), Free: free, Locked: locked}
		if balance.Amount().IsPositive() {
			balances = append(balances, balance)
		}
	}

	return balances, nil
}

// GetTrades fetches fills per symbol against the quote asset. A failing symbol is logged and omitted.
func (r *binanceRepository) GetTrades(ctx context.Context, creds dto.ExchangeCredentials, param dto.FetchTradesParam) ([]dto.Trade, error) {
	if !creds.Configured() {
		return []dto.Trade{}, nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		trades = make([]dto.Trade, 0)
		sem    = make(chan struct{}, r.cfg.MaxConcurrentRequests)
	)

	for _, symbol := range common.NormalizeSymbols(param.Symbols) {
		if symbol == r.cfg.QuoteAsset || common.IsStableCoin(symbol) {
			continue
		}
		symbol := symbol
		lastID := param.LastExternalIDs[symbol]

		wg.Add(1)
		sem <- struct{}{}
		utils.GoSafe(func() {
			defer wg.Done()
			defer func() { <-sem }()

			fills, err := r.getSymbolTrades(ctx, creds, symbol, lastID)
			if err != nil {
				r.log.WarnContext(ctx, "Failed to fetch trades for symbol", logger.StringField("symbol", symbol), logger.ErrorField(err))
				return
			}

			mu.Lock()
			trades = append(trades, fills...)
			mu.Unlock()
		})
	}
	wg.Wait()

	sort.Slice(trades, func(i, j int) bool {
		if trades[i].ExecutedAt.Equal(trades[j].ExecutedAt) {
			return trades[i].ExternalID < trades[j].ExternalID
		}
		return trades[i].ExecutedAt.Before(trades[j].ExecutedAt)
	})

	return trades, nil
}

// getSymbolTrades pages forward from the fill after lastExternalID. Without a usable last id
// only the most recent page is fetched.
func (r *binanceRepository) getSymbolTrades(ctx context.Context, creds dto.ExchangeCredentials, symbol, lastExternalID string) ([]dto.Trade, error) {
	pair := symbol + r.cfg.QuoteAsset
	limit := r.cfg.TradePageSize
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	fromID, paging := TradeIDFromExternalID(pair, lastExternalID)
	if lastExternalID != "" && !paging {
		r.log.DebugContext(ctx, "Last fill id does not match pair, fetching latest page",
			logger.StringField("pair", pair), logger.StringField("external_id", lastExternalID))
	}

	trades := make([]dto.Trade, 0)
	for page := 0; page < maxTradePages; page++ {
		query := url.Values{}
		query.Set("symbol", pair)
		query.Set("limit", strconv.Itoa(limit))
		if paging {
			query.Set("fromId", strconv.FormatInt(fromID+1, 10))
		}

		raw, err := r.fetchTradePage(ctx, creds, query)
		if err != nil {
			return nil, err
		}
		trades = append(trades, r.toTrades(ctx, symbol, pair, raw)...)

		if !paging || len(raw) < limit {
			return trades, nil
		}
		fromID = raw[len(raw)-1].ID
	}

	r.log.WarnContext(ctx, "Trade page cap reached, remaining fills follow on the next sync",
		logger.StringField("pair", pair), logger.IntField("pages", maxTradePages))
	return trades, nil
}

func (r *binanceRepository) fetchTradePage(ctx context.Context, creds dto.ExchangeCredentials, query url.Values) ([]dto.MyTrade, error) {
	body, err := r.sendRequest(ctx, http.MethodGet, "/api/v3/myTrades", query, &creds)
	if err != nil {
		return nil, err
	}

	var raw []dto.MyTrade
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode trades response: %w", err)
	}
	return raw, nil
}

func (r *binanceRepository) toTrades(ctx context.Context, symbol, pair string, raw []dto.MyTrade) []dto.Trade {
	trades := make([]dto.Trade, 0, len(raw))
	for _, t := range raw {
		qty, errQty := decimal.NewFromString(t.Qty)
		price, errPrice := decimal.NewFromString(t.Price)
		if errQty != nil || errPrice != nil {
			r.log.WarnContext(ctx, "Skipping fill with invalid numbers", logger.StringField("pair", pair), logger.Field("trade_id", t.ID))
			continue
		}
		commission, err := decimal.NewFromString(t.Commission)
		if err != nil {
			commission = decimal.Zero
		}
		trades = append(trades, dto.Trade{
			ExternalID:      ExternalTradeID(pair, t.ID),
			Symbol:          symbol,
			Pair:            pair,
			Quantity:        qty,
			Price:           price,
			Commission:      commission,
			CommissionAsset: t.CommissionAsset,
			IsBuyer:         t.IsBuyer,
			ExecutedAt:      utils.FromUnixMilli(t.Time),
		})
	}
	return trades
}

// ExternalTradeID is the stored external id of an exchange fill, e.g. "HBARUSDT-1".
func ExternalTradeID(pair string, tradeID int64) string {
	return fmt.Sprintf("%s-%d", pair, tradeID)
}

// TradeIDFromExternalID parses the exchange trade id out of an external id of pair.
func TradeIDFromExternalID(pair, externalID string) (int64, bool) {
	raw, ok := strings.CutPrefix(externalID, pair+"-")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

func (r *binanceRepository) Get24hrTickers(ctx context.Context, pairs []string) ([]dto.Ticker24hr, error) {
	if len(pairs) == 0 {
		return []dto.Ticker24hr{}, nil
	}

	encoded, err := json.Marshal(pairs)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("symbols", string(encoded))

	body, err := r.sendRequest(ctx, http.MethodGet, "/api/v3/ticker/24hr", query, nil)
	if err != nil {
		return nil, err
	}

	var tickers []dto.Ticker24hr
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, fmt.Errorf("failed to decode 24hr ticker response: %w", err)
	}
	return tickers, nil
}

func (r *binanceRepository) GetTickerPrice(ctx context.Context, pair string) (float64, error) {
	query := url.Values{}
	query.Set("symbol", pair)

	body, err := r.sendRequest(ctx, http.MethodGet, "/api/v3/ticker/price", query, nil)
	if err != nil {
		return 0, err
	}

	var ticker dto.TickerPrice
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("failed to decode ticker price response: %w", err)
	}
	return strconv.ParseFloat(ticker.Price, 64)
}

func (r *binanceRepository) GetAvgPrice(ctx context.Context, pair string) (float64, error) {
	query := url.Values{}
	query.Set("symbol", pair)

	body, err := r.sendRequest(ctx, http.MethodGet, "/api/v3/avgPrice", query, nil)
	if err != nil {
		return 0, err
	}

	var avg dto.AvgPrice
	if err := json.Unmarshal(body, &avg); err != nil {
		return 0, fmt.Errorf("failed to decode avg price response: %w", err)
	}
	return strconv.ParseFloat(avg.Price, 64)
}

// sendRequest calls the REST API. Signed requests carry timestamp, recvWindow and an
// HMAC-SHA256 signature of the query string.
func (r *binanceRepository) sendRequest(ctx context.Context, method, path string, query url.Values, creds *dto.ExchangeCredentials) ([]byte, error) {
	fields := []zap.Field{
		zap.String("path", path),
		zap.Int("max_request_per_minute", r.cfg.MaxRequestPerMinute),
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to wait for request limit", fields...)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	rawQuery := query.Encode()
	if creds != nil {
		query.Set("timestamp", strconv.FormatInt(r.now().UnixMilli(), 10))
		if r.cfg.RecvWindow > 0 {
			query.Set("recvWindow", strconv.Itoa(r.cfg.RecvWindow))
		}
		rawQuery = query.Encode()
		rawQuery += "&signature=" + sign(rawQuery, creds.APISecret)
	}

	endpoint := strings.TrimRight(r.cfg.BaseURL, "/") + path
	if rawQuery != "" {
		endpoint += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		fields = append(fields, zap.Error(err))
		r.log.ErrorContext(ctx, "Failed to create new http request", fields...)
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if creds != nil {
		req.Header.Set("X-MBX-APIKEY", creds.APIKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		fields = append(fields, zap.Error(err))
		r.log.DebugContext(ctx, "Failed to send request to exchange API", fields...)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		fields = append(fields, zap.Int("status_code", resp.StatusCode))
		r.log.DebugContext(ctx, "Received non-OK response from exchange API", fields...)
		return nil, fmt.Errorf("exchange API %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
