// Package sparkpost is a client for the SparkPost suppression-list API.
// Documentation at
// https://developers.sparkpost.com/api/suppression-list.html
package sparkpost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tuck1s/sparkySuppress/internal/config"
	"github.com/tuck1s/sparkySuppress/internal/pkg/httpretry"
)

const suppressionPath = "/api/v1/suppression-list"

// Rate-limit backoff intervals per call type. Search pages are large and
// throttled hardest; deletes are one call per recipient across a worker pool.
const (
	SearchBackoff = 120 * time.Second
	UpsertBackoff = 30 * time.Second
	DeleteBackoff = 10 * time.Second
)

// Client is a SparkPost suppression-list API client. Each Client owns its
// own underlying HTTP connection state, so a pool of Clients gives a pool of
// independent sessions.
type Client struct {
	baseURL    string
	apiKey     string
	subaccount int
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new suppression-list API client whose rate-limited
// calls pause backoff between retries.
func NewClient(cfg config.SparkPostConfig, backoff time.Duration) *Client {
	return &Client{
		baseURL:    cfg.BaseURL(),
		apiKey:     cfg.APIKey,
		subaccount: cfg.Subaccount,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, backoff),
	}
}

// doRequest makes an HTTP request to the SparkPost API and returns the
// response body and status. A transport-level error is returned as-is; the
// callers treat it as fatal for the whole run.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, payload interface{}) ([]byte, int, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.subaccount != 0 {
		req.Header.Set("X-MSYS-SUBACCOUNT", strconv.Itoa(c.subaccount))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}

	return body, resp.StatusCode, nil
}

// SearchSuppressions fetches one page of suppression-list entries
func (c *Client) SearchSuppressions(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("cursor", p.Cursor)
	params.Set("per_page", strconv.Itoa(p.PerPage))
	if p.From != "" && p.To != "" {
		params.Set("from", p.From)
		params.Set("to", p.To)
	}

	body, status, err := c.doRequest(ctx, http.MethodGet, suppressionPath, params, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{Status: status, Body: string(body)}
	}

	var response SearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("parsing suppression-list page: %w", err)
	}

	return &response, nil
}

// UpsertSuppressions inserts or updates a batch of entries with one PUT call
func (c *Client) UpsertSuppressions(ctx context.Context, entries []SuppressionEntry) error {
	payload := struct {
		Recipients []SuppressionEntry `json:"recipients"`
	}{Recipients: entries}

	body, status, err := c.doRequest(ctx, http.MethodPut, suppressionPath, nil, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Status: status, Body: string(body)}
	}
	return nil
}

// DeleteSuppression removes a single recipient from the suppression list.
// There is no bulk-delete endpoint.
func (c *Client) DeleteSuppression(ctx context.Context, recipient string) error {
	path := suppressionPath + "/" + url.PathEscape(recipient)

	body, status, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return &APIError{Status: status, Body: string(body)}
	}
	return nil
}
