package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// PortfolioService exposes the authenticated account's balance, orders,
// positions, fills and settlements.
type PortfolioService struct {
	client *Client
}

// GetBalance fetches the account balance.
func (s *PortfolioService) GetBalance(ctx context.Context) (*Balance, error) {
	var resp Balance
	if err := s.client.Get(ctx, "/portfolio/balance", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PositionsParams filters position listings.
type PositionsParams struct {
	Ticker      string
	EventTicker string
	Limit       int
	Cursor      string
}

func (p PositionsParams) values() url.Values {
	v := url.Values{}
	v.Set("ticker", normalizeTicker(p.Ticker))
	v.Set("event_ticker", normalizeTicker(p.EventTicker))
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("cursor", p.Cursor)
	return v
}

// GetPositions lists market positions.
func (s *PortfolioService) GetPositions(ctx context.Context, params PositionsParams, fetchAll bool) ([]Position, error) {
	return listAll[Position](ctx, s.client, "/portfolio/positions", "market_positions", params.values(), fetchAll)
}

// OrdersParams filters order listings.
type OrdersParams struct {
	Ticker string
	Status OrderStatus
	Limit  int
	Cursor string
}

func (p OrdersParams) values() url.Values {
	v := url.Values{}
	v.Set("ticker", normalizeTicker(p.Ticker))
	v.Set("status", string(p.Status))
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("cursor", p.Cursor)
	return v
}

// GetOrders lists the account's orders.
func (s *PortfolioService) GetOrders(ctx context.Context, params OrdersParams, fetchAll bool) ([]Order, error) {
	return listAll[Order](ctx, s.client, "/portfolio/orders", "orders", params.values(), fetchAll)
}

// GetOrder fetches a single order by ID.
func (s *PortfolioService) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var resp struct {
		Order Order `json:"order"`
	}
	if err := s.client.Get(ctx, "/portfolio/orders/"+orderID, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// FillsParams filters fill listings.
type FillsParams struct {
	Ticker  string
	OrderID string
	Limit   int
	Cursor  string
}

func (p FillsParams) values() url.Values {
	v := url.Values{}
	v.Set("ticker", normalizeTicker(p.Ticker))
	v.Set("order_id", p.OrderID)
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("cursor", p.Cursor)
	return v
}

// GetFills lists the account's fills.
func (s *PortfolioService) GetFills(ctx context.Context, params FillsParams, fetchAll bool) ([]Fill, error) {
	return listAll[Fill](ctx, s.client, "/portfolio/fills", "fills", params.values(), fetchAll)
}

// GetSettlements lists settled positions.
func (s *PortfolioService) GetSettlements(ctx context.Context, fetchAll bool) ([]Settlement, error) {
	return listAll[Settlement](ctx, s.client, "/portfolio/settlements", "settlements", url.Values{}, fetchAll)
}

// OrderRequest describes a new order. Exactly one of YesPrice/NoPrice is
// set for limit orders; ClientOrderID is generated when empty.
type OrderRequest struct {
	Ticker        string      `json:"ticker"`
	Action        Action      `json:"action"`
	Side          Side        `json:"side"`
	Count         int         `json:"count"`
	Type          OrderType   `json:"type"`
	YesPrice      int         `json:"yes_price,omitempty"`
	NoPrice       int         `json:"no_price,omitempty"`
	ClientOrderID string      `json:"client_order_id"`
	TimeInForce   TimeInForce `json:"time_in_force,omitempty"`
	ExpirationTs  int64       `json:"expiration_ts,omitempty"`
}

// validate rejects malformed orders locally, before the wire.
func (r *OrderRequest) validate() error {
	if normalizeTicker(r.Ticker) == "" {
		return fmt.Errorf("kalshi: order: ticker is required")
	}
	if r.Count <= 0 {
		return fmt.Errorf("kalshi: order: count must be positive, got %d", r.Count)
	}
	if r.Side != SideYes && r.Side != SideNo {
		return fmt.Errorf("kalshi: order: side must be yes or no, got %q", r.Side)
	}
	if r.Action != ActionBuy && r.Action != ActionSell {
		return fmt.Errorf("kalshi: order: action must be buy or sell, got %q", r.Action)
	}
	if r.Type == OrderTypeLimit {
		price := r.YesPrice
		if r.Side == SideNo {
			price = r.NoPrice
		}
		if price < 1 || price > 99 {
			return fmt.Errorf("kalshi: order: limit price must be 1-99 cents, got %d", price)
		}
	}
	return nil
}

// CreateOrder places an order. The request is validated locally first;
// a missing ClientOrderID is filled with a fresh UUID so retries on the
// exchange side stay idempotent.
func (s *PortfolioService) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	req.Ticker = normalizeTicker(req.Ticker)
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	var resp struct {
		Order Order `json:"order"`
	}
	if err := s.client.Post(ctx, "/portfolio/orders", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// CancelOrder cancels a resting order and returns its final state.
func (s *PortfolioService) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	var resp struct {
		Order Order `json:"order"`
	}
	if err := s.client.Delete(ctx, "/portfolio/orders/"+orderID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// AmendOrder changes the price and/or remaining count of a resting order.
func (s *PortfolioService) AmendOrder(ctx context.Context, orderID string, yesPrice, noPrice, count int) (*Order, error) {
	body := map[string]any{}
	if yesPrice > 0 {
		body["yes_price"] = yesPrice
	}
	if noPrice > 0 {
		body["no_price"] = noPrice
	}
	if count > 0 {
		body["count"] = count
	}
	body["updated_client_order_id"] = uuid.NewString()

	var resp struct {
		Order Order `json:"order"`
	}
	if err := s.client.Post(ctx, "/portfolio/orders/"+orderID+"/amend", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// DecreaseOrder reduces a resting order's remaining count.
func (s *PortfolioService) DecreaseOrder(ctx context.Context, orderID string, reduceBy int) (*Order, error) {
	if reduceBy <= 0 {
		return nil, fmt.Errorf("kalshi: decrease: reduce_by must be positive, got %d", reduceBy)
	}
	body := map[string]any{"reduce_by": reduceBy}
	var resp struct {
		Order Order `json:"order"`
	}
	if err := s.client.Post(ctx, "/portfolio/orders/"+orderID+"/decrease", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}
