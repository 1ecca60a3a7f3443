package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
)

// Client queries a daemon's status API through a custom dialer, normally
// ipc.Dial.
type Client struct {
	hc *http.Client
}

// NewClient returns a Client that reaches the daemon via dial.
func NewClient(dial func(ctx context.Context) (net.Conn, error)) *Client {
	return &Client{hc: &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return dial(ctx)
			},
			DisableKeepAlives: true,
		},
	}}
}

// Status fetches the current report.
func (c *Client) Status(ctx context.Context) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://clipsync/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query daemon: unexpected status %s", resp.Status)
	}

	var r Report
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &r, nil
}
