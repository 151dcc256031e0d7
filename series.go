package kalshi

import (
	"context"
	"net/url"
	"strconv"
)

// GetSeries fetches a single series by ticker. With includeVolume true
// the exchange adds lifetime volume to the response.
func (c *Client) GetSeries(ctx context.Context, seriesTicker string, includeVolume bool) (*Series, error) {
	v := url.Values{}
	if includeVolume {
		v.Set("include_volume", "true")
	}
	var resp struct {
		Series Series `json:"series"`
	}
	endpoint := buildEndpoint("/series/"+normalizeTicker(seriesTicker), v)
	if err := c.Get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp.Series, nil
}

// SeriesParams filters series listings.
type SeriesParams struct {
	Category string
	Limit    int
	Cursor   string
}

func (p SeriesParams) values() url.Values {
	v := url.Values{}
	v.Set("category", p.Category)
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	v.Set("cursor", p.Cursor)
	return v
}

// GetAllSeries lists series, optionally filtered by category.
func (c *Client) GetAllSeries(ctx context.Context, params SeriesParams, fetchAll bool) ([]Series, error) {
	return listAll[Series](ctx, c, "/series", "series", params.values(), fetchAll)
}
