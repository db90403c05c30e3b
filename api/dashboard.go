package api

import (
	"context"

	"github.com/pkg/errors"
)

// DashboardSummary feeds the console's status view.
type DashboardSummary struct {
	Clients       int      `json:"clients"`
	Projects      int      `json:"projects"`
	Minutes       int      `json:"minutes"`
	Teams         int      `json:"teams"`
	RecentMinutes []Minute `json:"recent_minutes"`
}

func (c *Client) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	var out DashboardSummary
	if err := c.get(ctx, "/v1/dashboard/summary", nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.DashboardSummary]")
	}
	return &out, nil
}
