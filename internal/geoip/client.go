package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client looks up the country for an IP from a best-effort external service.
// Callers treat failures as non-events: log and move on.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a Client against an ip-api style JSON endpoint
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type lookupResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
}

// Country resolves the country name for ip, or an error when the service is
// unreachable or declines the lookup.
func (c *Client) Country(ctx context.Context, ip string) (string, error) {
	if ip == "" {
		return "", fmt.Errorf("empty ip")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+ip, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geoip lookup returned %d", resp.StatusCode)
	}
	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Status != "" && body.Status != "success" {
		return "", fmt.Errorf("geoip lookup status %q", body.Status)
	}
	return body.Country, nil
}
