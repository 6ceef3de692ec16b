package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// Client talks to a running kotae server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx server response.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Ingest processes url into sessionID, or into the default session when sessionID is empty.
func (c *Client) Ingest(ctx context.Context, sessionID, locator string) (*models.IngestResponse, error) {
	path := "/process_url"
	if sessionID != "" {
		path = "/api/v1/sessions/" + url.PathEscape(sessionID) + "/ingest"
	}
	var out models.IngestResponse
	if err := c.do(ctx, http.MethodPost, path, &models.IngestRequest{URL: locator}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query asks question against sessionID, or the default session when sessionID is empty.
func (c *Client) Query(ctx context.Context, sessionID, question string, topK int) (*models.QueryResponse, error) {
	path := "/query"
	if sessionID != "" {
		path = "/api/v1/sessions/" + url.PathEscape(sessionID) + "/query"
	}
	var out models.QueryResponse
	if err := c.do(ctx, http.MethodPost, path, &models.QueryRequest{Query: question, TopK: topK}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSession creates a new session and returns its id.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// Status returns the server status document.
func (c *Client) Status(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error  string `json:"error"`
			Kind   string `json:"kind"`
			Detail string `json:"detail"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		if json.Unmarshal(data, &e) == nil {
			apiErr.Kind = e.Kind
			if e.Detail != "" {
				apiErr.Message = e.Detail
			} else if e.Error != "" {
				apiErr.Message = e.Error
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
