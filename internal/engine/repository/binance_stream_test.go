package repository

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"apexpulse/internal/engine/config"
	"apexpulse/internal/engine/dto"
	"apexpulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiniTickerStream_Apply(t *testing.T) {
	cfg := &config.Config{Exchange: config.Exchange{QuoteAsset: "USDT"}}
	stream := NewMiniTickerStream(cfg, logger.NewNop())

	quotes, updatedAt := stream.Snapshot()
	assert.Empty(t, quotes)
	assert.Nil(t, updatedAt)

	stream.Apply([]dto.MiniTicker{
		{Symbol: "SOLUSDT", Close: "110", Open: "100", High: "112", Low: "99", Volume: "1000"},
		{Symbol: "ETHBTC", Close: "0.05", Open: "0.05"},
		{Symbol: "BTCUSDT", Close: "0", Open: "1"},
		{Symbol: "USDT", Close: "1"},
	})

	quotes, updatedAt = stream.Snapshot()
	require.Len(t, quotes, 1)
	assert.NotNil(t, updatedAt)
	assert.Equal(t, "SOL", quotes[0].Symbol)
	assert.Equal(t, 110.0, quotes[0].Price)
	assert.InDelta(t, 10.0, quotes[0].Change24h, 1e-9)
	assert.Equal(t, dto.TierLive, quotes[0].Tier)
}

func TestMiniTickerStream_DropsSilentConnection(t *testing.T) {
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`[{"s":"HBARUSDT","c":"0.15","o":"0.14"}]`))
		// Half-open peer: never reads, so pings are never answered.
		<-release
	}))
	defer srv.Close()
	defer close(release)

	cfg := &config.Config{Exchange: config.Exchange{QuoteAsset: "USDT", StreamURL: "ws" + strings.TrimPrefix(srv.URL, "http")}}
	stream := NewMiniTickerStream(cfg, logger.NewNop())
	stream.pongWait = 200 * time.Millisecond
	stream.pingPeriod = 50 * time.Millisecond

	started := time.Now()
	connected, err := stream.consume(context.Background())
	assert.True(t, connected)
	require.Error(t, err)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
	assert.Less(t, time.Since(started), 5*time.Second)

	quotes, _ := stream.Snapshot()
	require.Len(t, quotes, 1)
	assert.Equal(t, "HBAR", quotes[0].Symbol)
}

func TestMiniTickerStream_DialFailureIsNotConnected(t *testing.T) {
	cfg := &config.Config{Exchange: config.Exchange{QuoteAsset: "USDT", StreamURL: "ws://127.0.0.1:1/ws"}}
	stream := NewMiniTickerStream(cfg, logger.NewNop())

	connected, err := stream.consume(context.Background())
	assert.False(t, connected)
	assert.Error(t, err)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, false))
	assert.Equal(t, streamMaxBackoff, nextBackoff(45*time.Second, false))
	assert.Equal(t, streamMaxBackoff, nextBackoff(streamMaxBackoff, false))
	assert.Equal(t, streamMinBackoff, nextBackoff(streamMaxBackoff, true))
}
