package llmhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type echoReq struct {
	Text string `json:"text"`
}

type echoResp struct {
	Echo string `json:"echo"`
}

func noSleep(c *Client) *Client {
	c.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return c
}

func TestPostJSON_success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/echo" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		var in echoReq
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(echoResp{Echo: in.Text})
	}))
	defer srv.Close()

	c := New(srv.URL+"/v1/", time.Second, WithAPIKey("secret"))
	var out echoResp
	if err := c.PostJSON(context.Background(), "/echo", echoReq{Text: "hi"}, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if out.Echo != "hi" {
		t.Errorf("Echo = %q", out.Echo)
	}
}

func TestPostJSON_retriesThrottling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(echoResp{Echo: "ok"})
	}))
	defer srv.Close()

	var delays []time.Duration
	c := New(srv.URL, time.Second, WithMaxRetries(3))
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	var out echoResp
	if err := c.PostJSON(context.Background(), "echo", echoReq{}, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(delays) != 2 || delays[0] != time.Second {
		t.Errorf("delays = %v, want Retry-After honoured", delays)
	}
}

func TestPostJSON_givesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := noSleep(New(srv.URL, time.Second, WithMaxRetries(2)))
	err := c.PostJSON(context.Background(), "echo", echoReq{}, &echoResp{})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 StatusError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPostJSON_clientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := noSleep(New(srv.URL, time.Second)).PostJSON(context.Background(), "echo", echoReq{}, &echoResp{})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if se.Retryable() {
		t.Error("401 should not be retryable")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPostJSON_contextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(srv.URL, time.Second)
	c.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}
	err := c.PostJSON(ctx, "echo", echoReq{}, &echoResp{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetryDelay(t *testing.T) {
	if retryDelay(0) != 200*time.Millisecond {
		t.Errorf("retryDelay(0) = %v", retryDelay(0))
	}
	if retryDelay(2) != 800*time.Millisecond {
		t.Errorf("retryDelay(2) = %v", retryDelay(2))
	}
	if retryDelay(20) != 5*time.Second {
		t.Errorf("retryDelay(20) = %v", retryDelay(20))
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Errorf("parseRetryAfter(3) = %v, %v", d, ok)
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Error("empty header should not parse")
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Error("garbage header should not parse")
	}
}
