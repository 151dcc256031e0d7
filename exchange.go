package kalshi

import (
	"context"
	"net/url"
)

// ExchangeService reports exchange-wide operational state.
type ExchangeService struct {
	client *Client
}

// GetStatus reports whether the exchange and trading are active.
func (s *ExchangeService) GetStatus(ctx context.Context) (*ExchangeStatus, error) {
	var resp ExchangeStatus
	if err := s.client.Get(ctx, "/exchange/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAnnouncements lists current exchange announcements.
func (s *ExchangeService) GetAnnouncements(ctx context.Context) ([]Announcement, error) {
	return listAll[Announcement](ctx, s.client, "/exchange/announcements", "announcements", url.Values{}, true)
}

// Schedule describes standard and maintenance trading hours as reported
// by the exchange.
type Schedule struct {
	StandardHours    []map[string]any `json:"standard_hours,omitempty"`
	MaintenanceHours []map[string]any `json:"maintenance_windows,omitempty"`
}

// GetSchedule fetches the trading schedule.
func (s *ExchangeService) GetSchedule(ctx context.Context) (*Schedule, error) {
	var resp struct {
		Schedule Schedule `json:"schedule"`
	}
	if err := s.client.Get(ctx, "/exchange/schedule", &resp); err != nil {
		return nil, err
	}
	return &resp.Schedule, nil
}
