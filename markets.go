package kalshi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// MarketsParams filters market listings. Zero-valued fields are omitted
// from the query.
type MarketsParams struct {
	SeriesTicker string
	EventTicker  string
	Tickers      []string
	Status       MarketStatus
	Limit        int
	Cursor       string
}

func (p MarketsParams) values() url.Values {
	v := url.Values{}
	v.Set("series_ticker", normalizeTicker(p.SeriesTicker))
	v.Set("event_ticker", normalizeTicker(p.EventTicker))
	if len(p.Tickers) > 0 {
		v.Set("tickers", strings.Join(normalizeTickers(p.Tickers), ","))
	}
	v.Set("status", string(p.Status))
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("cursor", p.Cursor)
	return v
}

// GetMarket fetches a single market by ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (*Market, error) {
	var resp struct {
		Market Market `json:"market"`
	}
	if err := c.Get(ctx, "/markets/"+normalizeTicker(ticker), &resp); err != nil {
		return nil, err
	}
	return &resp.Market, nil
}

// GetMarkets lists markets matching the filter. With fetchAll true it
// follows pagination cursors to exhaustion.
func (c *Client) GetMarkets(ctx context.Context, params MarketsParams, fetchAll bool) ([]Market, error) {
	return listAll[Market](ctx, c, "/markets", "markets", params.values(), fetchAll)
}

// GetMarketsPage fetches one page of markets along with the next cursor.
func (c *Client) GetMarketsPage(ctx context.Context, params MarketsParams) (Page[Market], error) {
	return listPage[Market](ctx, c, "/markets", "markets", params.values())
}

// GetMarketOrderbook fetches the current REST-side order book for a
// market, optionally truncated to the given depth per side.
func (c *Client) GetMarketOrderbook(ctx context.Context, ticker string, depth int) (*OrderbookSnapshot, error) {
	v := url.Values{}
	if depth > 0 {
		v.Set("depth", strconv.Itoa(depth))
	}
	var resp struct {
		Orderbook OrderbookSnapshot `json:"orderbook"`
	}
	endpoint := buildEndpoint("/markets/"+normalizeTicker(ticker)+"/orderbook", v)
	if err := c.Get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp.Orderbook, nil
}

// TradesParams filters the public trade tape.
type TradesParams struct {
	Ticker string
	MinTs  int64
	MaxTs  int64
	Limit  int
	Cursor string
}

func (p TradesParams) values() url.Values {
	v := url.Values{}
	v.Set("ticker", normalizeTicker(p.Ticker))
	if p.MinTs > 0 {
		v.Set("min_ts", strconv.FormatInt(p.MinTs, 10))
	}
	if p.MaxTs > 0 {
		v.Set("max_ts", strconv.FormatInt(p.MaxTs, 10))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("cursor", p.Cursor)
	return v
}

// GetTrades lists public trades.
func (c *Client) GetTrades(ctx context.Context, params TradesParams, fetchAll bool) ([]Trade, error) {
	return listAll[Trade](ctx, c, "/markets/trades", "trades", params.values(), fetchAll)
}

// GetCandlesticksBatch fetches candlestick history for several markets
// in one call, keyed by market ticker.
func (c *Client) GetCandlesticksBatch(ctx context.Context, tickers []string, startTs, endTs int64, period CandlestickPeriod) (map[string]CandlestickResponse, error) {
	v := url.Values{}
	v.Set("market_tickers", strings.Join(normalizeTickers(tickers), ","))
	v.Set("start_ts", strconv.FormatInt(startTs, 10))
	v.Set("end_ts", strconv.FormatInt(endTs, 10))
	v.Set("period_interval", strconv.Itoa(int(period)))

	var resp struct {
		Markets []struct {
			MarketTicker string `json:"market_ticker"`
			CandlestickResponse
		} `json:"markets"`
	}
	if err := c.Get(ctx, buildEndpoint("/markets/candlesticks", v), &resp); err != nil {
		return nil, err
	}
	out := make(map[string]CandlestickResponse, len(resp.Markets))
	for _, m := range resp.Markets {
		out[m.MarketTicker] = m.CandlestickResponse
	}
	return out, nil
}

// normalizeTicker uppercases a ticker; the exchange is case-sensitive
// and expects uppercase everywhere.
func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

func normalizeTickers(ts []string) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		if n := normalizeTicker(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}
