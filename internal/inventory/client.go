// Package inventory talks to the backend-tracked traffic light inventory API.
// The API is a plain REST collaborator; writes from here are best-effort
// secondary updates and must never block the primary state store write.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// API is the subset of the inventory service this core consumes.
type API interface {
	ListByIntersection(ctx context.Context, intersectionID string) ([]Light, error)
	UpdateLight(ctx context.Context, lightID string, p UpdateParams) error
}

// Light is one tracked physical light record.
type Light struct {
	ID           string `json:"id"`
	Intersection string `json:"intersection_id"`
	RoadID       string `json:"road_id"`
	CurrentColor string `json:"current_color"`
	AutoMode     bool   `json:"auto_mode"`
	Status       string `json:"status"`
}

// UpdateParams is the PUT /traffic-lights/{id} body.
type UpdateParams struct {
	CurrentColor string `json:"current_color"`
	AutoMode     bool   `json:"auto_mode"`
	Status       string `json:"status"`
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

// listEnvelope covers the two response shapes the backend has been seen to
// return: a bare array or an object wrapping it in "data". The shape is
// resolved once here, at the boundary.
type listEnvelope struct {
	Data []Light `json:"data"`
}

// ListByIntersection resolves the tracked light records of one intersection.
func (c *Client) ListByIntersection(ctx context.Context, intersectionID string) ([]Light, error) {
	u := fmt.Sprintf("%s/traffic-lights?intersection_id=%s", c.baseURL, url.QueryEscape(intersectionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list traffic lights for %q: %w", intersectionID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list traffic lights for %q: unexpected status %d", intersectionID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read traffic lights response: %w", err)
	}
	return decodeLightList(body)
}

func decodeLightList(body []byte) ([]Light, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var lights []Light
		if err := json.Unmarshal(trimmed, &lights); err != nil {
			return nil, fmt.Errorf("decode traffic light array: %w", err)
		}
		return lights, nil
	}
	var env listEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode traffic light envelope: %w", err)
	}
	return env.Data, nil
}

// UpdateLight pushes color/mode/status for one tracked record.
func (c *Client) UpdateLight(ctx context.Context, lightID string, p UpdateParams) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/traffic-lights/%s", c.baseURL, url.PathEscape(lightID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("update traffic light %q: %w", lightID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("update traffic light %q: unexpected status %d", lightID, resp.StatusCode)
	}
	return nil
}
