package feed

import (
	json "github.com/goccy/go-json"
)

// WSPath is the streaming endpoint path, appended to the API host.
const WSPath = "/trade-api/ws/v2"

// Channel names accepted by subscribe commands.
const (
	ChannelOrderbook = "orderbook_delta"
	ChannelTicker    = "ticker"
	ChannelTrade     = "trade"
	ChannelFill      = "fill"
	ChannelPositions = "market_positions"
	ChannelLifecycle = "market_lifecycle_v2"
	ChannelMultivar  = "multivariate_lookup"
)

// Message type strings on inbound frames.
const (
	typeSnapshot     = "orderbook_snapshot"
	typeDelta        = "orderbook_delta"
	typeTicker       = "ticker"
	typeTrade        = "trade"
	typeFill         = "fill"
	typePosition     = "market_position"
	typeLifecycle    = "market_lifecycle_v2"
	typeSubscribed   = "subscribed"
	typeUnsubscribed = "unsubscribed"
	typeError        = "error"
)

// command is the outbound command envelope.
type command struct {
	ID     int           `json:"id"`
	Cmd    string        `json:"cmd"`
	Params commandParams `json:"params"`
}

type commandParams struct {
	Channels      []string `json:"channels,omitempty"`
	MarketTicker  string   `json:"market_ticker,omitempty"`
	MarketTickers []string `json:"market_tickers,omitempty"`
	Sids          []int    `json:"sids,omitempty"`
}

// envelope is the inbound frame header. Msg stays raw until the type is
// known.
type envelope struct {
	Type string          `json:"type"`
	ID   int             `json:"id,omitempty"`
	SID  int             `json:"sid,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
	Msg  json.RawMessage `json:"msg,omitempty"`
}

// snapshotMsg carries the full book for one market. Levels are
// [price, quantity] pairs in cents.
type snapshotMsg struct {
	MarketTicker string   `json:"market_ticker"`
	MarketID     string   `json:"market_id,omitempty"`
	Yes          [][2]int `json:"yes"`
	No           [][2]int `json:"no"`
}

// deltaMsg sets the absolute resting quantity at one price level.
type deltaMsg struct {
	MarketTicker string `json:"market_ticker"`
	MarketID     string `json:"market_id,omitempty"`
	Price        int    `json:"price"`
	Quantity     int    `json:"quantity"`
	Side         string `json:"side"`
	Ts           string `json:"ts,omitempty"`
}

// Ticker is a top-of-book and stats update for one market.
type Ticker struct {
	MarketTicker string `json:"market_ticker"`
	Price        int    `json:"price"`
	YesBid       int    `json:"yes_bid"`
	YesAsk       int    `json:"yes_ask"`
	Volume       int64  `json:"volume"`
	OpenInterest int64  `json:"open_interest"`
	DollarVolume int64  `json:"dollar_volume"`
	Ts           int64  `json:"ts"`
}

// Trade is a public trade print.
type Trade struct {
	TradeID      string `json:"trade_id"`
	MarketTicker string `json:"market_ticker"`
	YesPrice     int    `json:"yes_price"`
	NoPrice      int    `json:"no_price"`
	Count        int    `json:"count"`
	TakerSide    string `json:"taker_side"`
	Ts           int64  `json:"ts"`
}

// Fill is an execution against one of the account's own orders.
type Fill struct {
	TradeID      string `json:"trade_id"`
	OrderID      string `json:"order_id"`
	MarketTicker string `json:"market_ticker"`
	IsTaker      bool   `json:"is_taker"`
	Side         string `json:"side"`
	YesPrice     int    `json:"yes_price"`
	NoPrice      int    `json:"no_price"`
	Count        int    `json:"count"`
	Action       string `json:"action"`
	Ts           int64  `json:"ts"`
}

// Lifecycle announces a market state transition (open, close,
// determination, settlement).
type Lifecycle struct {
	MarketTicker string `json:"market_ticker"`
	EventType    string `json:"event_type"`
	OpenTs       int64  `json:"open_ts,omitempty"`
	CloseTs      int64  `json:"close_ts,omitempty"`
	Result       string `json:"result,omitempty"`
}

// subscribedMsg acknowledges one channel of a subscribe command.
type subscribedMsg struct {
	Channel string `json:"channel"`
	SID     int    `json:"sid"`
}

// errorMsg reports a rejected command.
type errorMsg struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
