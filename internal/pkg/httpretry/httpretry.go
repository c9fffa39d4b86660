// Package httpretry provides an HTTP client wrapper that transparently
// retries rate-limited calls to the SparkPost API.
package httpretry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tuck1s/sparkySuppress/internal/pkg/logger"
)

// maxErrorBody bounds how much of an error response we buffer for inspection.
const maxErrorBody = 64 * 1024

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer and retries HTTP 429 responses whose error
// payload indicates rate limiting. The retry is unbounded: the client keeps
// pausing for the fixed backoff interval until the remote stops throttling.
// Eventual completion is preferred over a bounded run time.
type RetryClient struct {
	client  HTTPDoer
	backoff time.Duration
}

// NewRetryClient creates a RetryClient that wraps the given HTTPDoer,
// sleeping backoff between rate-limited attempts. If client is nil, a
// default http.Client with a 60s timeout is used.
func NewRetryClient(client HTTPDoer, backoff time.Duration) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if backoff <= 0 {
		backoff = 120 * time.Second
	}
	return &RetryClient{client: client, backoff: backoff}
}

// Do executes the HTTP request. Transport-level errors are returned to the
// caller unretried; the calling layer treats them as fatal. A 429 response
// carrying a rate-limit message is drained, slept on, and reissued. Any
// other response is returned as-is so the caller can inspect status and body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	for {
		if err := req.Context().Err(); err != nil {
			return nil, err
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading rate-limit response: %w", readErr)
		}

		if !IsRateLimited(body) {
			// A 429 without the throttling message is handed back to the
			// caller like any other error status.
			resp.Body = io.NopCloser(bytes.NewReader(body))
			return resp, nil
		}

		logger.Info("pausing for rate-limiting",
			"seconds", int(rc.backoff.Seconds()),
			"method", req.Method,
			"path", req.URL.Path)

		timer := time.NewTimer(rc.backoff)
		select {
		case <-timer.C:
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		}

		// Reset request body for the retry if applicable
		if req.GetBody != nil {
			b, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("httpretry: failed to reset request body: %w", err)
			}
			req.Body = b
		}
	}
}

type apiErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// IsRateLimited reports whether a 429 error payload carries the SparkPost
// "Too many requests" throttling message. Non-JSON bodies are tolerated and
// treated as not rate-limited.
func IsRateLimited(body []byte) bool {
	var e apiErrorBody
	if err := json.Unmarshal(body, &e); err != nil {
		return false
	}
	return len(e.Errors) > 0 && strings.EqualFold(e.Errors[0].Message, "Too many requests")
}
