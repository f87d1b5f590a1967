// Package fetch provides the bounded-timeout, retrying HTTP GET wrapper
// used by every upstream adapter.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	requestTimeout = 9 * time.Second
	maxAttempts    = 2 // one retry
	retryBackoff   = 350 * time.Millisecond

	// Upstream payloads are small feeds; cap reads so a misbehaving
	// source cannot exhaust memory.
	maxBodyBytes = 20 << 20
)

// StatusError indicates a non-2xx response from an upstream source.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.URL)
}

// isClientError reports whether err is a 4xx upstream response, which a
// retry will not fix.
func isClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status >= 400 && se.Status < 500
}

// Client fetches upstream payloads with a request timeout and a single
// fixed-backoff retry. A Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a fetch client.
func New(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// Get fetches rawURL and returns the response body. Extra headers may be
// nil. Transient failures (network errors, 5xx statuses) are retried
// once; 4xx responses fail immediately. The final error is returned
// unchanged for the caller to classify.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			for k, vs := range header {
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}

			startTime := time.Now()
			resp, err := c.httpClient.Do(req)
			duration := time.Since(startTime)

			if err != nil {
				c.logger.Warn("HTTP request failed, will retry",
					"url", rawURL,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					c.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			c.logger.Info("HTTP request completed",
				"url", rawURL,
				"status_code", resp.StatusCode,
				"duration_ms", duration.Milliseconds())

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return &StatusError{URL: rawURL, Status: resp.StatusCode}
			}

			body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			return nil
		},
		retry.Attempts(maxAttempts),
		retry.Delay(retryBackoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("Retrying fetch after error", "url", rawURL, "attempt", n, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			return !isClientError(err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("after retries: %w", err)
	}

	return body, nil
}

// JSON fetches rawURL and decodes the response body into v.
func (c *Client) JSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}

	body, err := c.Get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}
