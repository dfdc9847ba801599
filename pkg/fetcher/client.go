package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	errs "jmdict/pkg/errors"
	"jmdict/pkg/logger"
)

// Client is a small HTTP client with fixed headers and status classification
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a new HTTP client. A zero timeout disables the deadline.
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept":        "application/gzip, application/octet-stream;q=0.9, */*;q=0.8",
			"Cache-Control": "no-cache",
		},
		logger: logger.OrDefault(log),
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Get performs a GET request. On success the caller owns the response body;
// a non-2xx status is returned as an http_status error with the body closed.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, "fetch", fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, "fetch", err)
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// checkResponseStatus maps anything outside 2xx to an http_status error
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var reason string
	switch resp.StatusCode {
	case http.StatusNotFound:
		reason = "resource not found"
	case http.StatusUnauthorized, http.StatusForbidden:
		reason = "access denied"
	case http.StatusTooManyRequests:
		reason = "rate limit exceeded"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		reason = "server error"
	default:
		reason = fmt.Sprintf("unexpected status %q", resp.Status)
	}

	return &errs.Error{
		Type: errs.ErrorTypeHTTPStatus,
		Op:   "fetch",
		Code: resp.StatusCode,
		Err:  fmt.Errorf("%s", reason),
	}
}
