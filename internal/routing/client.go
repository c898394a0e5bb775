// Package routing queries a third-party routing service for typical vs live
// travel time between two coordinates.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// API is the travel-time estimate surface this core consumes.
type API interface {
	Estimate(ctx context.Context, fromLat, fromLng, toLat, toLng float64) (Estimate, error)
}

// Estimate holds the service's answer, both in whole seconds.
type Estimate struct {
	TypicalSeconds int `json:"typical_travel_time"`
	LiveSeconds    int `json:"live_travel_time"`
}

const defaultTimeout = 5 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
}

var _ API = (*Client)(nil)

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// Estimate fetches typical and live travel seconds for one origin/destination pair.
func (c *Client) Estimate(ctx context.Context, fromLat, fromLng, toLat, toLng float64) (Estimate, error) {
	u := fmt.Sprintf("%s/route?from_lat=%f&from_lng=%f&to_lat=%f&to_lng=%f",
		c.baseURL, fromLat, fromLng, toLat, toLng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Estimate{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Estimate{}, fmt.Errorf("route estimate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Estimate{}, fmt.Errorf("route estimate: unexpected status %d", resp.StatusCode)
	}

	var est Estimate
	if err := json.NewDecoder(resp.Body).Decode(&est); err != nil {
		return Estimate{}, fmt.Errorf("decode route estimate: %w", err)
	}
	return est, nil
}
