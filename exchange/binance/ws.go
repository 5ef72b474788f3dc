package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kestrelquant/execengine/protocolrunner"
	"github.com/rs/zerolog/log"
)

// PriceFeed streams last-trade price ticks off the futures trade stream,
// reconnecting on drop. Grounded on internal/binance/client.go's
// connectWebSocket/readMessages/handleTradeMessage trio.
type PriceFeed struct {
	wsURL string
}

func NewPriceFeed(wsURL string) *PriceFeed {
	return &PriceFeed{wsURL: wsURL}
}

var _ protocolrunner.PriceFeed = (*PriceFeed)(nil)

// Subscribe dials the trade stream for asset (against USDT) and returns a
// channel of ticks. The channel closes when ctx is cancelled.
func (f *PriceFeed) Subscribe(ctx context.Context, asset string) (<-chan protocolrunner.PriceTick, error) {
	out := make(chan protocolrunner.PriceTick, 32)
	stream := strings.ToLower(asset) + "usdt@trade"
	go f.run(ctx, stream, out)
	return out, nil
}

func (f *PriceFeed) run(ctx context.Context, stream string, out chan<- protocolrunner.PriceTick) {
	defer close(out)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := f.runOnce(ctx, stream, out); err != nil {
			log.Warn().Err(err).Str("stream", stream).Msg("⚠️ price feed disconnected, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (f *PriceFeed) runOnce(ctx context.Context, stream string, out chan<- protocolrunner.PriceTick) error {
	url := fmt.Sprintf("%s/%s", f.wsURL, stream)
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("binance: price feed dial: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
		close(done)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		tick, ok := parseTradeMessage(msg)
		if !ok {
			continue
		}
		select {
		case out <- tick:
		case <-ctx.Done():
			return nil
		default:
			// drop if the consumer is behind; protocols only need the latest
		}
	}
}

func parseTradeMessage(data []byte) (protocolrunner.PriceTick, bool) {
	var msg struct {
		EventType string `json:"e"`
		Price     string `json:"p"`
		TradeTime int64  `json:"T"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.EventType != "trade" {
		return protocolrunner.PriceTick{}, false
	}
	price := parseFloatField(msg.Price)
	if price == 0 {
		return protocolrunner.PriceTick{}, false
	}
	return protocolrunner.PriceTick{Price: price, Time: time.UnixMilli(msg.TradeTime)}, true
}
