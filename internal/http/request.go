package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is a transport-agnostic description of an HTTP call, built up
// with the With* setters and turned into an *http.Request by Build.
type Request struct {
	Method      string
	Path        string
	QueryParams url.Values
	Headers     map[string]string
	Body        interface{}
}

// NewRequest starts a Request for method against path, which is
// resolved against a Client's base URL at Build time.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:      method,
		Path:        path,
		QueryParams: make(url.Values),
		Headers:     make(map[string]string),
	}
}

// WithHeader sets a single request header, overwriting any prior value.
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// WithQueryParam appends a query parameter, preserving any existing
// values for the same key.
func (r *Request) WithQueryParam(key, value string) *Request {
	r.QueryParams.Add(key, value)
	return r
}

// WithQueryParams appends a batch of single-valued query parameters.
func (r *Request) WithQueryParams(params map[string]string) *Request {
	for key, value := range params {
		r.QueryParams.Add(key, value)
	}
	return r
}

// WithBody sets the request body. string and []byte are sent as-is;
// io.Reader is streamed directly; anything else is marshaled as JSON
// and given a Content-Type header, unless one was already set.
func (r *Request) WithBody(body interface{}) *Request {
	r.Body = body
	return r
}

// Build resolves the request's path against baseURL and produces an
// *http.Request ready to send.
func (r *Request) Build(baseURL string) (*http.Request, error) {
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	target.Path = joinPath(target.Path, r.Path)

	query := target.Query()
	for key, values := range r.QueryParams {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	target.RawQuery = query.Encode()

	bodyReader, err := r.bodyReader()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(r.Method, target.String(), bodyReader)
	if err != nil {
		return nil, err
	}
	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

func joinPath(base, path string) string {
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func (r *Request) bodyReader() (io.Reader, error) {
	switch body := r.Body.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.NewReader(body), nil
	case []byte:
		return bytes.NewReader(body), nil
	case io.Reader:
		return body, nil
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		if _, ok := r.Headers["Content-Type"]; !ok {
			r.Headers["Content-Type"] = "application/json"
		}
		return bytes.NewReader(encoded), nil
	}
}
