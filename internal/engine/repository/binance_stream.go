package repository

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"
)

// TickerBoard exposes the latest streamed prices.
type TickerBoard interface {
	Snapshot() ([]dto.PriceQuote, *time.Time)
}

const (
	streamPongWait   = time.Minute
	streamMinBackoff = time.Second
	streamMaxBackoff = time.Minute
)

// MiniTickerStream keeps a board of the latest all-market mini tickers for the quote asset.
type MiniTickerStream struct {
	url        string
	quoteAsset string
	log        *logger.Logger
	dialer     *websocket.Dialer
	board      *cache.Cache

	// pongWait is how long the connection may stay silent before it is dropped.
	pongWait   time.Duration
	pingPeriod time.Duration

	mu        sync.RWMutex
	updatedAt *time.Time
}

// NewMiniTickerStream creates the stream. Call Run to connect.
func NewMiniTickerStream(cfg *config.Config, log *logger.Logger) *MiniTickerStream {
	return &MiniTickerStream{
		url:        cfg.Exchange.StreamURL,
		quoteAsset: cfg.Exchange.QuoteAsset,
		log:        log,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		board:      cache.New(5*time.Minute, 10*time.Minute),
		pongWait:   streamPongWait,
		pingPeriod: streamPongWait * 9 / 10,
	}
}

// Run connects and reconnects until ctx is cancelled.
func (s *MiniTickerStream) Run(ctx context.Context) {
	backoff := streamMinBackoff
	for {
		connected, err := s.consume(ctx)
		if ctx.Err() != nil {
			s.log.Info("Mini ticker stream stopping")
			return
		}
		backoff = nextBackoff(backoff, connected)
		s.log.Warn("Mini ticker stream disconnected", logger.ErrorField(err), logger.DurationField("retry_in", backoff))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// nextBackoff restarts from the minimum after a connection that succeeded and doubles otherwise.
func nextBackoff(current time.Duration, connected bool) time.Duration {
	if connected {
		return streamMinBackoff
	}
	if current *= 2; current > streamMaxBackoff {
		return streamMaxBackoff
	}
	return current
}

// consume reads frames until the connection fails. It reports whether the dial succeeded.
func (s *MiniTickerStream) consume(ctx context.Context) (bool, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	extend := func() error { return conn.SetReadDeadline(time.Now().Add(s.pongWait)) }
	if err := extend(); err != nil {
		return true, err
	}
	conn.SetPongHandler(func(string) error { return extend() })

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(s.pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					s.log.Debug("Mini ticker ping failed", logger.ErrorField(err))
				}
			case <-done:
				return
			}
		}
	}()

	s.log.Info("Mini ticker stream connected", logger.StringField("url", s.url))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		if err := extend(); err != nil {
			return true, err
		}
		var tickers []dto.MiniTicker
		if err := json.Unmarshal(msg, &tickers); err != nil {
			s.log.Debug("Ignoring malformed mini ticker frame", logger.ErrorField(err))
			continue
		}
		s.Apply(tickers)
	}
}

// Apply stores the tickers quoted in the quote asset.
func (s *MiniTickerStream) Apply(tickers []dto.MiniTicker) {
	applied := 0
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, s.quoteAsset) || len(t.Symbol) == len(s.quoteAsset) {
			continue
		}
		closePrice, err := strconv.ParseFloat(t.Close, 64)
		if err != nil || closePrice <= 0 {
			continue
		}
		openPrice, _ := strconv.ParseFloat(t.Open, 64)
		high, _ := strconv.ParseFloat(t.High, 64)
		low, _ := strconv.ParseFloat(t.Low, 64)
		volume, _ := strconv.ParseFloat(t.Volume, 64)

		change := 0.0
		if openPrice > 0 {
			change = (closePrice - openPrice) / openPrice * 100
		}

		symbol := strings.TrimSuffix(t.Symbol, s.quoteAsset)
		s.board.SetDefault(symbol, dto.PriceQuote{
			Symbol:    symbol,
			Price:     closePrice,
			Change24h: change,
			Volume:    volume,
			High:      high,
			Low:       low,
			Tier:      dto.TierLive,
		})
		applied++
	}

	if applied > 0 {
		now := time.Now().UTC()
		s.mu.Lock()
		s.updatedAt = &now
		s.mu.Unlock()
	}
}

// Snapshot returns the board sorted by symbol and the time of the last update.
func (s *MiniTickerStream) Snapshot() ([]dto.PriceQuote, *time.Time) {
	items := s.board.Items()
	quotes := make([]dto.PriceQuote, 0, len(items))
	for _, item := range items {
		if q, ok := item.Object.(dto.PriceQuote); ok {
			quotes = append(quotes, q)
		}
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })

	s.mu.RLock()
	defer s.mu.RUnlock()
	return quotes, s.updatedAt
}
