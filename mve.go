package kalshi

import (
	"context"
	"net/url"
	"strconv"
)

// Collection is a multivariate event collection bound to the client that
// fetched it, so combo navigation (create, lookup, events) hangs off the
// value directly.
type Collection struct {
	MveCollection
	client *Client
}

// MveCollectionsParams filters collection listings.
type MveCollectionsParams struct {
	Status                string
	AssociatedEventTicker string
	SeriesTicker          string
	Limit                 int
	Cursor                string
}

func (p MveCollectionsParams) values() url.Values {
	v := url.Values{}
	v.Set("status", p.Status)
	v.Set("associated_event_ticker", normalizeTicker(p.AssociatedEventTicker))
	v.Set("series_ticker", normalizeTicker(p.SeriesTicker))
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("cursor", p.Cursor)
	return v
}

// GetMveCollection fetches a single collection by ticker.
func (c *Client) GetMveCollection(ctx context.Context, collectionTicker string) (*Collection, error) {
	var resp struct {
		Contract MveCollection `json:"multivariate_contract"`
	}
	if err := c.Get(ctx, "/multivariate_event_collections/"+collectionTicker, &resp); err != nil {
		return nil, err
	}
	return &Collection{MveCollection: resp.Contract, client: c}, nil
}

// GetMveCollections lists collections.
func (c *Client) GetMveCollections(ctx context.Context, params MveCollectionsParams, fetchAll bool) ([]Collection, error) {
	models, err := listAll[MveCollection](ctx, c, "/multivariate_event_collections", "multivariate_contracts", params.values(), fetchAll)
	if err != nil {
		return nil, err
	}
	out := make([]Collection, len(models))
	for i, m := range models {
		out[i] = Collection{MveCollection: m, client: c}
	}
	return out, nil
}

// CreateMarket creates a tradeable combo market in this collection from
// the given legs. A combo must be created before it can be looked up or
// traded via the RFQ system.
func (col *Collection) CreateMarket(ctx context.Context, legs []SelectedLeg) (*Market, error) {
	body := map[string]any{
		"selected_markets":    legs,
		"with_market_payload": true,
	}
	var resp struct {
		Market Market `json:"market"`
	}
	endpoint := "/multivariate_event_collections/" + col.CollectionTicker
	if err := col.client.Post(ctx, endpoint, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Market, nil
}

// ComboTickers identifies a previously created combo market.
type ComboTickers struct {
	MarketTicker string `json:"market_ticker"`
	EventTicker  string `json:"event_ticker"`
}

// LookupTicker resolves the market/event tickers for a leg combination.
// The exchange returns 404 (mapped to *NotFoundError) if the combination
// has not been created via CreateMarket.
func (col *Collection) LookupTicker(ctx context.Context, legs []SelectedLeg) (*ComboTickers, error) {
	body := map[string]any{"selected_markets": legs}
	var resp ComboTickers
	endpoint := "/multivariate_event_collections/" + col.CollectionTicker + "/lookup"
	if err := col.client.Put(ctx, endpoint, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetEvents lists the multivariate events in this collection.
func (col *Collection) GetEvents(ctx context.Context, nested bool) ([]Event, error) {
	return col.client.GetMultivariateEvents(ctx, MultivariateEventsParams{
		CollectionTicker:  col.CollectionTicker,
		WithNestedMarkets: nested,
	}, true)
}
