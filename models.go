package kalshi

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market is a single binary-outcome market. Prices are integer cents
// (1-99); dollar-denominated fields use fixed-point decimals.
type Market struct {
	Ticker       string `json:"ticker"`
	SeriesTicker string `json:"series_ticker,omitempty"`
	EventTicker  string `json:"event_ticker,omitempty"`
	Title        string `json:"title,omitempty"`

	OpenTime       time.Time `json:"open_time,omitempty"`
	CloseTime      time.Time `json:"close_time,omitempty"`
	ExpirationTime time.Time `json:"expiration_time,omitempty"`
	CreatedTime    time.Time `json:"created_time,omitempty"`

	Status          string `json:"status,omitempty"`
	Result          string `json:"result,omitempty"`
	SettlementValue int    `json:"settlement_value,omitempty"`

	YesBid    int `json:"yes_bid,omitempty"`
	YesAsk    int `json:"yes_ask,omitempty"`
	NoBid     int `json:"no_bid,omitempty"`
	NoAsk     int `json:"no_ask,omitempty"`
	LastPrice int `json:"last_price,omitempty"`

	Volume       int64 `json:"volume,omitempty"`
	Volume24H    int64 `json:"volume_24h,omitempty"`
	OpenInterest int64 `json:"open_interest,omitempty"`
	Liquidity    int64 `json:"liquidity,omitempty"`
}

// Event groups related markets under one real-world occurrence.
type Event struct {
	EventTicker          string `json:"event_ticker"`
	SeriesTicker         string `json:"series_ticker"`
	Title                string `json:"title,omitempty"`
	SubTitle             string `json:"sub_title,omitempty"`
	Category             string `json:"category,omitempty"`
	MutuallyExclusive    bool   `json:"mutually_exclusive,omitempty"`
	CollateralReturnType string `json:"collateral_return_type,omitempty"`
	StrikeDate           string `json:"strike_date,omitempty"`
	StrikePeriod         string `json:"strike_period,omitempty"`
	AvailableOnBrokers   bool   `json:"available_on_brokers,omitempty"`

	// Populated only when the event was fetched with nested markets.
	Markets []Market `json:"markets,omitempty"`
}

// Series is a recurring family of events.
type Series struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title,omitempty"`
	Category  string `json:"category,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Volume    int64  `json:"volume,omitempty"`
}

// Order is an exchange-reported order record.
type Order struct {
	OrderID        string      `json:"order_id"`
	ClientOrderID  string      `json:"client_order_id,omitempty"`
	Ticker         string      `json:"ticker"`
	Status         OrderStatus `json:"status"`
	Action         Action      `json:"action,omitempty"`
	Side           Side        `json:"side,omitempty"`
	Count          int         `json:"count,omitempty"`
	RemainingCount int         `json:"remaining_count,omitempty"`
	YesPrice       int         `json:"yes_price,omitempty"`
	NoPrice        int         `json:"no_price,omitempty"`
	Type           OrderType   `json:"type,omitempty"`
	CreatedTime    time.Time   `json:"created_time,omitempty"`
}

// Balance reports available funds and portfolio value in cents.
type Balance struct {
	Balance        int64 `json:"balance"`
	PortfolioValue int64 `json:"portfolio_value"`
}

// Dollars converts the cent balance to a decimal dollar amount.
func (b Balance) Dollars() decimal.Decimal {
	return decimal.New(b.Balance, -2)
}

// Position is a net market position. Positive counts are yes contracts,
// negative counts are no contracts.
type Position struct {
	Ticker             string `json:"ticker"`
	EventTicker        string `json:"event_ticker,omitempty"`
	EventExposure      int64  `json:"event_exposure,omitempty"`
	Position           int    `json:"position"`
	TotalTraded        int64  `json:"total_traded,omitempty"`
	RestingOrdersCount int    `json:"resting_orders_count,omitempty"`
	FeesPaid           int64  `json:"fees_paid,omitempty"`
	RealizedPnl        int64  `json:"realized_pnl,omitempty"`
}

// Fill is a single execution against one of the caller's orders.
type Fill struct {
	TradeID     string    `json:"trade_id"`
	Ticker      string    `json:"ticker"`
	OrderID     string    `json:"order_id"`
	Side        Side      `json:"side"`
	Action      Action    `json:"action"`
	Count       int       `json:"count"`
	YesPrice    int       `json:"yes_price"`
	NoPrice     int       `json:"no_price"`
	CreatedTime time.Time `json:"created_time,omitempty"`
	IsTaker     bool      `json:"is_taker,omitempty"`
}

// Settlement records the outcome of a settled position.
type Settlement struct {
	Ticker       string    `json:"ticker"`
	MarketResult string    `json:"market_result,omitempty"`
	YesCount     int       `json:"yes_count,omitempty"`
	NoCount      int       `json:"no_count,omitempty"`
	Revenue      int64     `json:"revenue,omitempty"`
	SettledTime  time.Time `json:"settled_time,omitempty"`
}

// Trade is a public market trade (not necessarily the caller's).
type Trade struct {
	TradeID     string    `json:"trade_id"`
	Ticker      string    `json:"ticker"`
	Count       int       `json:"count"`
	YesPrice    int       `json:"yes_price"`
	NoPrice     int       `json:"no_price"`
	TakerSide   Side      `json:"taker_side,omitempty"`
	CreatedTime time.Time `json:"created_time,omitempty"`
}

// PriceData aggregates cent prices over a candlestick period.
type PriceData struct {
	Open     int `json:"open,omitempty"`
	High     int `json:"high,omitempty"`
	Low      int `json:"low,omitempty"`
	Close    int `json:"close,omitempty"`
	Mean     int `json:"mean,omitempty"`
	Previous int `json:"previous,omitempty"`
}

// Candlestick is one aggregation bucket of market price history.
type Candlestick struct {
	EndPeriodTs  int64     `json:"end_period_ts"`
	Volume       int64     `json:"volume"`
	OpenInterest int64     `json:"open_interest"`
	Price        PriceData `json:"price"`
}

// CandlestickResponse holds a market's candlestick history.
type CandlestickResponse struct {
	Ticker       string        `json:"ticker"`
	Candlesticks []Candlestick `json:"candlesticks"`
}

// OrderbookSnapshot is the REST-side view of a market book. Levels are
// [price, quantity] pairs in cents.
type OrderbookSnapshot struct {
	Yes [][2]int `json:"yes"`
	No  [][2]int `json:"no"`
}

// ExchangeStatus reports whether trading is currently available.
type ExchangeStatus struct {
	ExchangeActive bool `json:"exchange_active"`
	TradingActive  bool `json:"trading_active"`
}

// Announcement is an operational notice published by the exchange.
type Announcement struct {
	Type         string    `json:"type,omitempty"`
	Message      string    `json:"message,omitempty"`
	Status       string    `json:"status,omitempty"`
	DeliveryTime time.Time `json:"delivery_time,omitempty"`
}

// MveCollection defines which events may be combined into combo markets.
type MveCollection struct {
	CollectionTicker string            `json:"collection_ticker"`
	Title            string            `json:"title,omitempty"`
	SeriesTicker     string            `json:"series_ticker,omitempty"`
	AssociatedEvents []AssociatedEvent `json:"associated_event_tickers,omitempty"`
}

// AssociatedEvent names an event eligible for combination in a collection.
type AssociatedEvent struct {
	EventTicker string `json:"event_ticker"`
}

// SelectedLeg is one leg of a combo market.
type SelectedLeg struct {
	MarketTicker string `json:"market_ticker"`
	EventTicker  string `json:"event_ticker,omitempty"`
	Side         Side   `json:"side,omitempty"`
}

// Rfq is a broadcast intent to trade a combo market.
type Rfq struct {
	RfqID             string          `json:"rfq_id"`
	MarketTicker      string          `json:"market_ticker"`
	Status            string          `json:"status,omitempty"`
	Contracts         int             `json:"contracts,omitempty"`
	TargetCostDollars decimal.Decimal `json:"target_cost_dollars,omitempty"`
	RestRemainder     bool            `json:"rest_remainder,omitempty"`
	CreatorUserID     string          `json:"creator_user_id,omitempty"`
	CreatedTime       time.Time       `json:"created_ts,omitempty"`
}

// Quote is a market maker's two-sided answer to an RFQ. Prices are
// fixed-point dollar strings (e.g. "0.45").
type Quote struct {
	QuoteID       string          `json:"quote_id"`
	RfqID         string          `json:"rfq_id"`
	MarketTicker  string          `json:"market_ticker,omitempty"`
	Status        string          `json:"status,omitempty"`
	YesBid        decimal.Decimal `json:"yes_bid,omitempty"`
	NoBid         decimal.Decimal `json:"no_bid,omitempty"`
	RestRemainder bool            `json:"rest_remainder,omitempty"`
	CreatorUserID string          `json:"creator_user_id,omitempty"`
	CreatedTime   time.Time       `json:"created_ts,omitempty"`
}
