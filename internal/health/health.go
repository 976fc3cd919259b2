// Package health implements the HealthChecker port (spec §6): a plain
// GET against each model server's /health endpoint, treated as healthy
// only on a 2xx response within a short deadline.
package health

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const checkTimeout = 5 * time.Second

// Checker performs HTTP health checks.
type Checker struct {
	client *http.Client
}

// New constructs a Checker.
func New() *Checker {
	return &Checker{client: &http.Client{Timeout: checkTimeout}}
}

// Healthy reports whether baseURL's /health endpoint responds 2xx.
func (c *Checker) Healthy(ctx context.Context, baseURL string) bool {
	url := strings.TrimRight(baseURL, "/") + "/health"
	reqCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
