// Package hereapi holds the HTTP plumbing shared by the geocoding and routing clients.
package hereapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
)

// maxErrorBody bounds how much of a failed response body is kept for diagnostics.
const maxErrorBody = 512

// Client issues authenticated GET requests against one HERE service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a client. An empty API key is rejected with route.ErrMissingCredential.
func NewClient(baseURL, apiKey string, httpClient *http.Client, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, route.ErrMissingCredential
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		timeout:    timeout,
	}, nil
}

// GetJSON performs GET {baseURL}{path}?{params}&apiKey=... and decodes the JSON body into out.
// Failures are wrapped with transportErr, except deadline expiry which maps to route.ErrTimeout.
// Error messages never contain the request URL, since it carries the credential.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, out interface{}, transportErr error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	query := cloneValues(params)
	query.Set("apiKey", c.apiKey)
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request for %s", transportErr, path)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(ctx, err, transportErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: HTTP %d: %s", transportErr, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", route.ErrTimeout, ctxErr)
		}
		return fmt.Errorf("%w: decode response: %v", transportErr, err)
	}
	return nil
}

// classify strips the URL from transport errors and maps timeouts.
func classify(ctx context.Context, err error, transportErr error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", route.ErrTimeout, context.DeadlineExceeded)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", route.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", transportErr, err)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
