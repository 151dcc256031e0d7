package kalshi

import (
	"context"
	"net/url"
	"strconv"
)

// EventsParams filters event listings.
type EventsParams struct {
	SeriesTicker      string
	Status            MarketStatus
	WithNestedMarkets bool
	Limit             int
	Cursor            string
}

func (p EventsParams) values() url.Values {
	v := url.Values{}
	v.Set("series_ticker", normalizeTicker(p.SeriesTicker))
	v.Set("status", string(p.Status))
	if p.WithNestedMarkets {
		v.Set("with_nested_markets", "true")
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("cursor", p.Cursor)
	return v
}

// GetEvent fetches a single event. With nested true the event's markets
// are included.
func (c *Client) GetEvent(ctx context.Context, eventTicker string, nested bool) (*Event, error) {
	v := url.Values{}
	if nested {
		v.Set("with_nested_markets", "true")
	}
	var resp struct {
		Event Event `json:"event"`
	}
	endpoint := buildEndpoint("/events/"+normalizeTicker(eventTicker), v)
	if err := c.Get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp.Event, nil
}

// GetEvents lists events matching the filter.
func (c *Client) GetEvents(ctx context.Context, params EventsParams, fetchAll bool) ([]Event, error) {
	return listAll[Event](ctx, c, "/events", "events", params.values(), fetchAll)
}

// GetEventsPage fetches one page of events with the next cursor.
func (c *Client) GetEventsPage(ctx context.Context, params EventsParams) (Page[Event], error) {
	return listPage[Event](ctx, c, "/events", "events", params.values())
}

// GetEventMarkets fetches the markets belonging to an event.
func (c *Client) GetEventMarkets(ctx context.Context, eventTicker string) ([]Market, error) {
	return c.GetMarkets(ctx, MarketsParams{EventTicker: eventTicker}, true)
}

// MultivariateEventsParams filters multivariate (combo) event listings.
type MultivariateEventsParams struct {
	SeriesTicker      string
	CollectionTicker  string
	WithNestedMarkets bool
	Limit             int
	Cursor            string
}

func (p MultivariateEventsParams) values() url.Values {
	v := url.Values{}
	v.Set("series_ticker", normalizeTicker(p.SeriesTicker))
	v.Set("collection_ticker", p.CollectionTicker)
	if p.WithNestedMarkets {
		v.Set("with_nested_markets", "true")
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("cursor", p.Cursor)
	return v
}

// GetMultivariateEvents lists combo events.
func (c *Client) GetMultivariateEvents(ctx context.Context, params MultivariateEventsParams, fetchAll bool) ([]Event, error) {
	return listAll[Event](ctx, c, "/events/multivariate", "events", params.values(), fetchAll)
}
