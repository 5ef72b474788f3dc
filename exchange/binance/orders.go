package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kestrelquant/execengine/exchange"
	"github.com/kestrelquant/execengine/model"
)

func sideParam(s model.Side) string {
	if s == model.Buy {
		return "BUY"
	}
	return "SELL"
}

// Place submits a Binance futures order and returns the venue order id.
// Grounded on original_source's post_futures_order: MARKET orders carry no
// price, STOP_MARKET carries stopPrice, LIMIT carries price+timeInForce.
func (c *Client) Place(ctx context.Context, order model.Order[model.PositionOrderId]) (string, error) {
	params := url.Values{
		"symbol":   {order.Symbol.VenueTicker()},
		"side":     {sideParam(order.Side)},
		"quantity": {strconv.FormatFloat(order.QtyNotional, 'f', -1, 64)},
	}
	if order.OrderType.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	switch order.OrderType.Kind {
	case model.Market:
		params.Set("type", "MARKET")
	case model.StopMarket:
		params.Set("type", "STOP_MARKET")
		params.Set("stopPrice", strconv.FormatFloat(order.OrderType.Price, 'f', -1, 64))
	case model.Limit:
		params.Set("type", "LIMIT")
		params.Set("price", strconv.FormatFloat(order.OrderType.Price, 'f', -1, 64))
		params.Set("timeInForce", "GTC")
	default:
		return "", fmt.Errorf("binance: unsupported order kind %s", order.OrderType.Kind)
	}

	if c.cfg.DryRun {
		return "dry-run-order", nil
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return "", err
	}
	var raw struct {
		OrderID int64 `json:"orderId"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("binance: parsing place response: %w", err)
	}
	return strconv.FormatInt(raw.OrderID, 10), nil
}

// Cancel cancels an order by venue id. Returns exchange.ErrUnknownOrder
// when Binance reports -2011 (order already gone), which Runtime treats
// as a bounded re-sync retry rather than a hard failure (spec.md §7).
func (c *Client) Cancel(ctx context.Context, symbol model.Symbol, venueOrderID string) error {
	if c.cfg.DryRun {
		return nil
	}
	params := url.Values{
		"symbol":  {symbol.VenueTicker()},
		"orderId": {venueOrderID},
	}
	_, err := c.doSigned(ctx, http.MethodDelete, "/fapi/v1/order", params)
	if err == exchange.ErrUnknownOrder {
		return exchange.ErrUnknownOrder
	}
	return err
}

// Poll fetches the current state of a single order. Grounded on
// original_source's poll_futures_order.
func (c *Client) Poll(ctx context.Context, symbol model.Symbol, venueOrderID string) (exchange.PollResult, error) {
	if c.cfg.DryRun {
		return exchange.PollResult{Status: exchange.StatusFilled}, nil
	}
	params := url.Values{
		"symbol":  {symbol.VenueTicker()},
		"orderId": {venueOrderID},
	}
	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v1/order", params)
	if err == exchange.ErrUnknownOrder {
		return exchange.PollResult{Status: exchange.StatusUnknown}, nil
	}
	if err != nil {
		return exchange.PollResult{}, err
	}
	var raw struct {
		Status           string `json:"status"`
		ExecutedQty      string `json:"executedQty"`
		AvgPrice         string `json:"avgPrice"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return exchange.PollResult{}, fmt.Errorf("binance: parsing poll response: %w", err)
	}
	return exchange.PollResult{
		Status:      parseStatus(raw.Status),
		ExecutedQty: parseFloatField(raw.ExecutedQty),
		AvgPrice:    parseFloatField(raw.AvgPrice),
	}, nil
}

func parseStatus(s string) exchange.OrderStatus {
	switch s {
	case "NEW":
		return exchange.StatusNew
	case "PARTIALLY_FILLED":
		return exchange.StatusPartiallyFilled
	case "FILLED":
		return exchange.StatusFilled
	case "CANCELED", "EXPIRED":
		return exchange.StatusCancelled
	case "REJECTED":
		return exchange.StatusRejected
	default:
		return exchange.StatusUnknown
	}
}
