package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kestrelquant/execengine/exchange"
	"github.com/kestrelquant/execengine/model"
	"github.com/shopspring/decimal"
)

// doSigned performs a signed request, retrying CloudFront-HTML and 5xx
// responses with linear backoff up to maxRetries (spec.md §7).
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	return c.do(ctx, method, path, c.signedParams(params), c.cfg.FullKey)
}

func (c *Client) doUnsigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	return c.do(ctx, method, path, params, "")
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, apiKey string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		body, status, err := c.doOnce(ctx, method, path, params, apiKey)
		if err != nil {
			lastErr = err
			c.logRetry(attempt, err.Error())
			time.Sleep(time.Duration(attempt) * retryBackoff)
			continue
		}
		if isCloudfrontHTML(body) || status >= 500 {
			lastErr = fmt.Errorf("binance: transient error, status=%d", status)
			c.logRetry(attempt, lastErr.Error())
			time.Sleep(time.Duration(attempt) * retryBackoff)
			continue
		}
		if status == http.StatusNotFound || status >= 400 {
			var apiErr struct {
				Code int    `json:"code"`
				Msg  string `json:"msg"`
			}
			_ = json.Unmarshal(body, &apiErr)
			if apiErr.Code == -2011 {
				return nil, exchange.ErrUnknownOrder
			}
			return nil, fmt.Errorf("binance: api error %d: %s", apiErr.Code, apiErr.Msg)
		}
		return body, nil
	}
	return nil, fmt.Errorf("binance: exhausted %d retries: %w", maxRetries, lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, path string, params url.Values, apiKey string) ([]byte, int, error) {
	reqURL := c.restURL + path
	var req *http.Request
	var err error
	if method == http.MethodGet || method == http.MethodDelete {
		req, err = http.NewRequestWithContext(ctx, method, reqURL+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, reqURL, nil)
		req.URL.RawQuery = params.Encode()
	}
	if err != nil {
		return nil, 0, err
	}
	if apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func (c *Client) Balances(ctx context.Context, instrument string, asset string) (exchange.Balances, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v2/balance", url.Values{})
	if err != nil {
		return exchange.Balances{}, err
	}
	var raw []struct {
		Asset   string `json:"asset"`
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return exchange.Balances{}, fmt.Errorf("binance: parsing balances: %w", err)
	}
	out := exchange.Balances{PerAsset: make(map[string]float64, len(raw))}
	for _, b := range raw {
		v, err := decimal.NewFromString(b.Balance)
		if err != nil {
			continue
		}
		f, _ := v.Float64()
		out.PerAsset[b.Asset] = f
		if asset == "" || b.Asset == asset {
			out.TotalUSD += f
		}
	}
	return out, nil
}

func (c *Client) Price(ctx context.Context, symbol model.Symbol) (float64, error) {
	params := url.Values{"symbol": {symbol.VenueTicker()}}
	body, err := c.doUnsigned(ctx, http.MethodGet, "/fapi/v1/ticker/price", params)
	if err != nil {
		return 0, err
	}
	var raw struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return 0, fmt.Errorf("binance: parsing price: %w", err)
	}
	v, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return 0, err
	}
	f, _ := v.Float64()
	return f, nil
}

func (c *Client) Klines(ctx context.Context, symbol model.Symbol, timeframe string, limit int) ([]exchange.Ohlc, error) {
	params := url.Values{
		"symbol":   {symbol.VenueTicker()},
		"interval": {timeframe},
		"limit":    {strconv.Itoa(limit)},
	}
	body, err := c.doUnsigned(ctx, http.MethodGet, "/fapi/v1/klines", params)
	if err != nil {
		return nil, err
	}
	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance: parsing klines: %w", err)
	}
	out := make([]exchange.Ohlc, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		openTimeMs, _ := k[0].(float64)
		o := exchange.Ohlc{
			OpenTime: time.UnixMilli(int64(openTimeMs)),
			Open:     parseFloatField(k[1]),
			High:     parseFloatField(k[2]),
			Low:      parseFloatField(k[3]),
			Close:    parseFloatField(k[4]),
			Volume:   parseFloatField(k[5]),
		}
		out = append(out, o)
	}
	return out, nil
}

func parseFloatField(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

func (c *Client) ExchangeInfo(ctx context.Context) (map[model.Symbol]model.SymbolInfo, error) {
	body, err := c.doUnsigned(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", url.Values{})
	if err != nil {
		return nil, err
	}
	var raw struct {
		Symbols []struct {
			Symbol         string `json:"symbol"`
			BaseAsset      string `json:"baseAsset"`
			QuoteAsset     string `json:"quoteAsset"`
			PricePrecision int    `json:"pricePrecision"`
			QtyPrecision   int    `json:"quantityPrecision"`
			Filters        []struct {
				FilterType  string `json:"filterType"`
				MinQty      string `json:"minQty"`
				StepSize    string `json:"stepSize"`
				TickSize    string `json:"tickSize"`
				Notional    string `json:"notional"`
				MultiplierUp   string `json:"multiplierUp"`
				MultiplierDown string `json:"multiplierDown"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance: parsing exchange info: %w", err)
	}

	out := make(map[model.Symbol]model.SymbolInfo, len(raw.Symbols))
	for _, s := range raw.Symbols {
		sym := model.Symbol{Base: s.BaseAsset, Quote: s.QuoteAsset, Venue: model.VenueBinanceFutures}
		info := model.SymbolInfo{PricePrecision: s.PricePrecision, QtyPrecision: s.QtyPrecision}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "LOT_SIZE":
				info.Filters.MinQty = parseFloatField(f.MinQty)
				info.Filters.StepSize = parseFloatField(f.StepSize)
			case "MIN_NOTIONAL":
				info.Filters.MinNotional = parseFloatField(f.Notional)
			case "PRICE_FILTER":
				info.Filters.TickSize = parseFloatField(f.TickSize)
			case "PERCENT_PRICE":
				info.Filters.PercentPriceBoundLo = parseFloatField(f.MultiplierDown)
				info.Filters.PercentPriceBoundHi = parseFloatField(f.MultiplierUp)
			}
		}
		out[sym] = info
	}
	return out, nil
}
