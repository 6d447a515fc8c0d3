package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Do_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/test" {
			t.Errorf("path = %s, want /test", r.URL.Path)
		}
		if got := r.Header.Get("X-Test-Header"); got != "test-value" {
			t.Errorf("X-Test-Header = %q, want test-value", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"success"}`))
	}))
	defer srv.Close()

	client := NewClient(
		WithTimeout(5*time.Second),
		WithHeader("User-Agent", "vustorm-test"),
		WithBaseURL(srv.URL),
	)

	req := NewRequest("GET", "/test").WithHeader("X-Test-Header", "test-value")

	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got := resp.GetHeader("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type header = %q, want application/json", got)
	}

	body, err := resp.GetBodyAsString()
	if err != nil {
		t.Fatalf("GetBodyAsString: %v", err)
	}
	if want := `{"message":"success"}`; body != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}

func TestClient_Do_RecordsTiming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	resp, err := client.Do(context.Background(), NewRequest("GET", "/"))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.Timing.TotalTime <= 0 {
		t.Errorf("Timing.TotalTime = %v, want > 0", resp.Timing.TotalTime)
	}
	if resp.GetTotalTimeMillis() != resp.GetResponseTimeMillis() {
		t.Errorf("GetTotalTimeMillis() = %d, GetResponseTimeMillis() = %d, want equal",
			resp.GetTotalTimeMillis(), resp.GetResponseTimeMillis())
	}
}

func TestNewClient_AppliesOptions(t *testing.T) {
	timeout := 10 * time.Second
	baseURL := "https://example.com"

	client := NewClient(
		WithTimeout(timeout),
		WithBaseURL(baseURL),
		WithHeader("X-Test", "test-value"),
	)

	if client.httpClient.Timeout != timeout {
		t.Errorf("timeout = %v, want %v", client.httpClient.Timeout, timeout)
	}
	if client.baseURL != baseURL {
		t.Errorf("baseURL = %s, want %s", client.baseURL, baseURL)
	}
	if client.headers["X-Test"] != "test-value" {
		t.Errorf("headers[X-Test] = %s, want test-value", client.headers["X-Test"])
	}
}
