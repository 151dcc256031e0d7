package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// CommunicationsService drives the RFQ system through which combo
// markets trade: broadcast an RFQ, collect market-maker quotes, accept
// one to execute.
type CommunicationsService struct {
	client *Client
}

// RfqRequest describes a new RFQ. Set exactly one of Contracts or
// TargetCostDollars.
type RfqRequest struct {
	MarketTicker      string
	Contracts         int
	TargetCostDollars decimal.Decimal
	RestRemainder     bool
}

// CreateRfq broadcasts intent to trade a combo market.
func (s *CommunicationsService) CreateRfq(ctx context.Context, req RfqRequest) (*Rfq, error) {
	if req.MarketTicker == "" {
		return nil, fmt.Errorf("kalshi: rfq: market ticker is required")
	}
	if req.Contracts > 0 && !req.TargetCostDollars.IsZero() {
		return nil, fmt.Errorf("kalshi: rfq: set contracts or target cost, not both")
	}

	body := map[string]any{
		"market_ticker":  normalizeTicker(req.MarketTicker),
		"rest_remainder": req.RestRemainder,
	}
	if req.Contracts > 0 {
		body["contracts"] = req.Contracts
	}
	if !req.TargetCostDollars.IsZero() {
		body["target_cost_dollars"] = req.TargetCostDollars.StringFixed(2)
	}

	var resp struct {
		Rfq Rfq `json:"rfq"`
	}
	if err := s.client.Post(ctx, "/communications/rfqs", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Rfq, nil
}

// GetRfq fetches a single RFQ by ID.
func (s *CommunicationsService) GetRfq(ctx context.Context, rfqID string) (*Rfq, error) {
	var resp struct {
		Rfq Rfq `json:"rfq"`
	}
	if err := s.client.Get(ctx, "/communications/rfqs/"+rfqID, &resp); err != nil {
		return nil, err
	}
	return &resp.Rfq, nil
}

// DeleteRfq withdraws an active RFQ.
func (s *CommunicationsService) DeleteRfq(ctx context.Context, rfqID string) error {
	return s.client.Delete(ctx, "/communications/rfqs/"+rfqID, nil, nil)
}

// RfqsParams filters RFQ listings.
type RfqsParams struct {
	MarketTicker        string
	Status              string
	MveCollectionTicker string
	Limit               int
	Cursor              string
}

func (p RfqsParams) values() url.Values {
	v := url.Values{}
	v.Set("market_ticker", normalizeTicker(p.MarketTicker))
	v.Set("status", p.Status)
	v.Set("mve_collection_ticker", p.MveCollectionTicker)
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("cursor", p.Cursor)
	return v
}

// GetRfqs lists RFQs.
func (s *CommunicationsService) GetRfqs(ctx context.Context, params RfqsParams, fetchAll bool) ([]Rfq, error) {
	return listAll[Rfq](ctx, s.client, "/communications/rfqs", "rfqs", params.values(), fetchAll)
}

// QuoteRequest is a market maker's two-sided answer to an RFQ. Prices
// are fixed-point dollars.
type QuoteRequest struct {
	RfqID         string
	YesBid        decimal.Decimal
	NoBid         decimal.Decimal
	RestRemainder bool
}

// CreateQuote responds to an RFQ with a two-sided quote.
func (s *CommunicationsService) CreateQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if req.RfqID == "" {
		return nil, fmt.Errorf("kalshi: quote: rfq_id is required")
	}
	body := map[string]any{
		"rfq_id":         req.RfqID,
		"yes_bid":        req.YesBid.StringFixed(2),
		"no_bid":         req.NoBid.StringFixed(2),
		"rest_remainder": req.RestRemainder,
	}
	var resp struct {
		Quote Quote `json:"quote"`
	}
	if err := s.client.Post(ctx, "/communications/quotes", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Quote, nil
}

// GetQuote fetches a single quote by ID.
func (s *CommunicationsService) GetQuote(ctx context.Context, quoteID string) (*Quote, error) {
	var resp struct {
		Quote Quote `json:"quote"`
	}
	if err := s.client.Get(ctx, "/communications/quotes/"+quoteID, &resp); err != nil {
		return nil, err
	}
	return &resp.Quote, nil
}

// AcceptQuote executes the trade offered by a quote for the given side.
func (s *CommunicationsService) AcceptQuote(ctx context.Context, quoteID string, side Side) error {
	body := map[string]any{"accepted_side": side}
	return s.client.Put(ctx, "/communications/quotes/"+quoteID+"/accept", body, nil)
}

// DeleteQuote withdraws a quote.
func (s *CommunicationsService) DeleteQuote(ctx context.Context, quoteID string) error {
	return s.client.Delete(ctx, "/communications/quotes/"+quoteID, nil, nil)
}

// QuotesParams filters quote listings. The exchange requires at least
// one of CreatorUserID or RfqCreatorUserID.
type QuotesParams struct {
	CreatorUserID    string
	RfqCreatorUserID string
	RfqID            string
	MarketTicker     string
	Status           string
	Limit            int
	Cursor           string
}

func (p QuotesParams) values() url.Values {
	v := url.Values{}
	v.Set("creator_user_id", p.CreatorUserID)
	v.Set("rfq_creator_user_id", p.RfqCreatorUserID)
	v.Set("rfq_id", p.RfqID)
	v.Set("market_ticker", normalizeTicker(p.MarketTicker))
	v.Set("status", p.Status)
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("cursor", p.Cursor)
	return v
}

// GetQuotes lists quotes.
func (s *CommunicationsService) GetQuotes(ctx context.Context, params QuotesParams, fetchAll bool) ([]Quote, error) {
	return listAll[Quote](ctx, s.client, "/communications/quotes", "quotes", params.values(), fetchAll)
}
