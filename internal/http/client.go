// Package http is the REST step executor's transport: a small wrapper
// over net/http that builds requests from *Request, applies client-wide
// headers/timeout, and captures per-phase timing (DNS, connect, TLS,
// time-to-first-byte) via httptrace so pkg/handler can report it
// alongside each step's Result.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// Client issues requests against a fixed base URL, with shared headers
// and a timeout applied to every call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// NewClient builds a Client with a 30s default timeout, overridable via
// WithTimeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		headers:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithBaseURL sets the URL every Request's path is resolved against.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithTimeout overrides the client's default 30s request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithHeader adds a header sent with every request this client makes.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.headers[key] = value }
}

// Do builds req against the client's base URL, sends it, and returns a
// Response with the body pre-read and cached plus phase timing.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := req.Build(c.baseURL)
	if err != nil {
		return nil, err
	}
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}

	trace := newTraceCollector()
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(ctx, trace.clientTrace()))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	trace.timing.TotalTime = time.Since(trace.timing.StartTime)

	transferStart := time.Now()
	body, _ := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	trace.timing.ContentTransferTime = time.Since(transferStart)

	return &Response{
		StatusCode:   httpResp.StatusCode,
		Status:       httpResp.Status,
		Headers:      httpResp.Header,
		Body:         io.NopCloser(bytes.NewReader(body)),
		ResponseTime: trace.timing.TotalTime,
		Timing:       trace.timing,
		rawBody:      body,
		parsed:       true,
	}, nil
}

// traceCollector turns httptrace callbacks into a TimingInfo. Each phase
// is measured against the end of whichever prior phase completed last
// (so TimeToFirstByte excludes DNS/connect/TLS, not just request start),
// and start timestamps are only armed once their prerequisite phase has
// actually finished, since httptrace still fires ConnectStart/
// TLSHandshakeStart on reused or plaintext connections.
type traceCollector struct {
	timing TimingInfo

	dnsStart, connectStart, tlsStart time.Time
	lastPhaseEnd                     time.Time
	dnsDone, connectDone             bool
}

func newTraceCollector() *traceCollector {
	now := time.Now()
	return &traceCollector{
		timing:       TimingInfo{StartTime: now},
		lastPhaseEnd: now,
	}
}

func (t *traceCollector) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			t.dnsStart = time.Now()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			now := time.Now()
			t.timing.DNSLookupTime = now.Sub(t.dnsStart)
			t.lastPhaseEnd = now
			t.dnsDone = true
		},
		ConnectStart: func(network, addr string) {
			if t.dnsDone || t.dnsStart.IsZero() {
				t.connectStart = time.Now()
			}
		},
		ConnectDone: func(network, addr string, err error) {
			if err != nil {
				return
			}
			now := time.Now()
			t.timing.TCPConnectTime = now.Sub(t.connectStart)
			t.lastPhaseEnd = now
			t.connectDone = true
		},
		TLSHandshakeStart: func() {
			if t.connectDone {
				t.tlsStart = time.Now()
			}
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err != nil {
				return
			}
			now := time.Now()
			t.timing.TLSHandshakeTime = now.Sub(t.tlsStart)
			t.lastPhaseEnd = now
		},
		GotFirstResponseByte: func() {
			t.timing.TimeToFirstByte = time.Since(t.lastPhaseEnd)
		},
	}
}
