package kalshi

// Side is a binary-contract position side.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Action is an order direction.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// OrderType selects limit or market execution.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderStatus is the exchange-reported lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusResting  OrderStatus = "resting"
	OrderStatusCanceled OrderStatus = "canceled"
	OrderStatusExecuted OrderStatus = "executed"
	OrderStatusPending  OrderStatus = "pending"
)

// MarketStatus filters market listings.
type MarketStatus string

const (
	MarketStatusUnopened MarketStatus = "unopened"
	MarketStatusOpen     MarketStatus = "open"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusSettled  MarketStatus = "settled"
)

// TimeInForce controls order expiration behavior.
type TimeInForce string

const (
	TimeInForceFillOrKill        TimeInForce = "fill_or_kill"
	TimeInForceImmediateOrCancel TimeInForce = "immediate_or_cancel"
)

// CandlestickPeriod is the aggregation interval in minutes.
type CandlestickPeriod int

const (
	PeriodOneMinute CandlestickPeriod = 1
	PeriodOneHour   CandlestickPeriod = 60
	PeriodOneDay    CandlestickPeriod = 1440
)
