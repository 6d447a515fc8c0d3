package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// TimingInfo breaks a round trip down by phase, as captured by the
// httptrace hooks installed in Client.Do.
type TimingInfo struct {
	StartTime           time.Time
	DNSLookupTime       time.Duration
	TCPConnectTime      time.Duration
	TLSHandshakeTime    time.Duration
	TimeToFirstByte     time.Duration
	ContentTransferTime time.Duration
	TotalTime           time.Duration
}

// Response is an HTTP response with its body read once and cached, so
// GetBody/GetBodyAsString/GetBodyAsJSON can all be called without
// double-reading the underlying stream.
type Response struct {
	StatusCode   int
	Status       string
	Headers      http.Header
	Body         io.ReadCloser
	ResponseTime time.Duration
	Timing       TimingInfo

	rawBody []byte
	parsed  bool
}

// GetBody returns the raw response body, reading and caching it on the
// first call.
func (r *Response) GetBody() ([]byte, error) {
	if r.parsed {
		return r.rawBody, nil
	}
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.rawBody = body
	r.parsed = true
	return body, nil
}

// GetBodyAsString returns the response body decoded as a string.
func (r *Response) GetBodyAsString() (string, error) {
	body, err := r.GetBody()
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetBodyAsJSON unmarshals the response body into v.
func (r *Response) GetBodyAsJSON(v interface{}) error {
	body, err := r.GetBody()
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// GetHeader returns the first value of the named response header, or
// "" if absent.
func (r *Response) GetHeader(key string) string {
	return r.Headers.Get(key)
}

func (r *Response) IsSuccess() bool     { return r.StatusCode >= 200 && r.StatusCode < 300 }
func (r *Response) IsRedirect() bool    { return r.StatusCode >= 300 && r.StatusCode < 400 }
func (r *Response) IsClientError() bool { return r.StatusCode >= 400 && r.StatusCode < 500 }
func (r *Response) IsServerError() bool { return r.StatusCode >= 500 && r.StatusCode < 600 }

// GetResponseTimeMillis returns the whole round trip's duration in
// milliseconds.
func (r *Response) GetResponseTimeMillis() int64 { return r.ResponseTime.Milliseconds() }

// GetDNSLookupTimeMillis returns the DNS resolution phase's duration in
// milliseconds, or 0 if no resolution occurred (e.g. connection reuse).
func (r *Response) GetDNSLookupTimeMillis() int64 { return r.Timing.DNSLookupTime.Milliseconds() }

// GetTCPConnectTimeMillis returns the TCP handshake phase's duration in
// milliseconds.
func (r *Response) GetTCPConnectTimeMillis() int64 { return r.Timing.TCPConnectTime.Milliseconds() }

// GetTLSHandshakeTimeMillis returns the TLS handshake phase's duration
// in milliseconds, or 0 for plaintext requests.
func (r *Response) GetTLSHandshakeTimeMillis() int64 {
	return r.Timing.TLSHandshakeTime.Milliseconds()
}

// GetTimeToFirstByteMillis returns the wait between the last connection
// phase and the first response byte, in milliseconds.
func (r *Response) GetTimeToFirstByteMillis() int64 {
	return r.Timing.TimeToFirstByte.Milliseconds()
}

// GetContentTransferTimeMillis returns how long reading the response
// body took, in milliseconds.
func (r *Response) GetContentTransferTimeMillis() int64 {
	return r.Timing.ContentTransferTime.Milliseconds()
}

// GetTotalTimeMillis returns the whole round trip's duration in
// milliseconds, measured from the same clock as the other phases
// (equivalent to GetResponseTimeMillis).
func (r *Response) GetTotalTimeMillis() int64 { return r.Timing.TotalTime.Milliseconds() }
