package x

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-social/internal/metrics"
)

const (
	// maxAttempts bounds every provider call, first try included.
	maxAttempts = 2

	// baseBackoff is the first exponential backoff delay; it doubles per attempt.
	baseBackoff = 500 * time.Millisecond

	// maxRetryAfter is the longest Retry-After we wait out. A longer one
	// ends the call with the 429 so a worker run never stalls on it.
	maxRetryAfter = 5 * time.Second
)

// response is a fully read HTTP response.
type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// requestBuilder creates a fresh request for each attempt so bodies can be re-sent.
type requestBuilder func(ctx context.Context) (*http.Request, error)

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// do sends the request with the retry policy:
//   - 429 waits Retry-After seconds when it is an integer, otherwise backs off;
//     a Retry-After above maxRetryAfter returns the 429 at once
//   - 5xx and transport errors back off exponentially from 500ms
//   - any other status returns at once
//
// After the last attempt the last received response is returned; the last
// transport error is returned only if no response ever arrived.
func (c *Client) do(ctx context.Context, operation string, build requestBuilder) (*response, error) {
	var lastResp *response
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		var wait time.Duration
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.ProviderRequestsTotal.WithLabelValues(operation, "error").Inc()
			lastErr = err
			wait = backoff(attempt)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				metrics.ProviderRequestsTotal.WithLabelValues(operation, "error").Inc()
				lastErr = fmt.Errorf("read response: %w", readErr)
				wait = backoff(attempt)
			} else {
				lastResp = &response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
				metrics.ProviderRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

				switch {
				case resp.StatusCode == http.StatusTooManyRequests:
					if secs, ok := retryAfterSeconds(resp.Header); ok {
						wait = time.Duration(secs) * time.Second
						if wait > maxRetryAfter {
							return lastResp, nil
						}
					} else {
						wait = backoff(attempt)
					}
				case resp.StatusCode >= 500:
					wait = backoff(attempt)
				default:
					return lastResp, nil
				}
			}
		}

		if attempt == maxAttempts {
			break
		}

		c.logger.Warn("retrying provider request",
			"operation", operation,
			"attempt", attempt,
			"wait", wait,
			"status", statusOf(lastResp),
			"error", lastErr,
		)
		metrics.ProviderRetriesTotal.WithLabelValues(operation).Inc()

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, fmt.Errorf("%s: %w", operation, lastErr)
}

// backoff returns the delay after the given 1-based attempt.
func backoff(attempt int) time.Duration {
	return baseBackoff << (attempt - 1)
}

// retryAfterSeconds parses an integer Retry-After header.
func retryAfterSeconds(h http.Header) (int, bool) {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return secs, true
}

func statusOf(r *response) int {
	if r == nil {
		return 0
	}
	return r.StatusCode
}
