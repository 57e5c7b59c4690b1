// Package remote talks to the study server that owns the session records.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrStatus is returned when the server answers with a non-2xx status.
var ErrStatus = errors.New("unexpected status from study server")

// Client sends study time and completion updates for sessions.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient returns a client for baseURL. token is sent as a bearer token
// when non-empty.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

type timeRequest struct {
	Seconds   int64  `json:"seconds"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type completeRequest struct {
	Status             string `json:"status"`
	TimeStudiedSeconds int64  `json:"time_studied_seconds"`
}

// ReportTime registers a stretch of study time for the session.
func (c *Client) ReportTime(ctx context.Context, sessionID string, start, end time.Time) error {
	seconds := int64(end.Sub(start) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	body := timeRequest{
		Seconds:   seconds,
		StartTime: start.UTC().Format(time.RFC3339),
		EndTime:   end.UTC().Format(time.RFC3339),
	}
	return c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/time", body)
}

// Complete marks the session with status and its total study time.
func (c *Client) Complete(ctx context.Context, sessionID, status string, seconds int64) error {
	body := completeRequest{
		Status:             status,
		TimeStudiedSeconds: seconds,
	}
	return c.do(ctx, http.MethodPatch, "/api/sessions/"+url.PathEscape(sessionID), body)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrStatus, method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
