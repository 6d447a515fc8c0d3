package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	vhttp "github.com/vustorm/vustorm/internal/http"
)

// RestHandler is the reference StepHandler implementation for
// `type: rest` steps. It wraps internal/http.Client rather than
// reimplementing request dispatch, so the teacher's httptrace-based
// timing capture keeps doing its job under the new step contract.
type RestHandler struct {
	client *vhttp.Client
}

// NewRestHandler builds a RestHandler against baseURL with the given
// default headers and timeout (spec.md §6 "global.base_url, headers,
// timeout... passed opaquely to handlers").
func NewRestHandler(baseURL string, headers map[string]string, timeout time.Duration) *RestHandler {
	opts := []vhttp.ClientOption{vhttp.WithBaseURL(baseURL)}
	if timeout > 0 {
		opts = append(opts, vhttp.WithTimeout(timeout))
	}
	for k, v := range headers {
		opts = append(opts, vhttp.WithHeader(k, v))
	}
	return &RestHandler{client: vhttp.NewClient(opts...)}
}

// Execute translates a rendered Step's payload into an HTTP request.
// Expected payload keys: method (default GET), path, headers, query,
// body.
func (h *RestHandler) Execute(ctx context.Context, step Step) (Response, error) {
	method, _ := step.Payload["method"].(string)
	if method == "" {
		method = "GET"
	}
	path, _ := step.Payload["path"].(string)

	req := vhttp.NewRequest(method, path)
	if headers, ok := step.Payload["headers"].(map[string]interface{}); ok {
		for k, v := range headers {
			req.WithHeader(k, fmt.Sprintf("%v", v))
		}
	}
	if query, ok := step.Payload["query"].(map[string]interface{}); ok {
		params := make(map[string]string, len(query))
		for k, v := range query {
			params[k] = fmt.Sprintf("%v", v)
		}
		req.WithQueryParams(params)
	}
	if body, ok := step.Payload["body"]; ok {
		req.WithBody(body)
	}

	if step.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(step.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	start := time.Now()
	resp, err := h.client.Do(ctx, req)
	elapsedMS := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		return Response{Success: false, DurationMS: elapsedMS, Error: err}, nil
	}

	rawBody, _ := resp.GetBody()
	status := resp.StatusCode
	bytesReceived := int64(len(rawBody))
	latencyMS := float64(resp.Timing.TimeToFirstByte.Microseconds()) / 1000.0
	connectMS := float64(resp.Timing.TCPConnectTime.Microseconds()) / 1000.0

	var parsed map[string]interface{}
	_ = json.Unmarshal(rawBody, &parsed)

	return Response{
		Success:       resp.IsSuccess(),
		Status:        &status,
		DurationMS:    elapsedMS,
		BytesReceived: &bytesReceived,
		LatencyMS:     &latencyMS,
		ConnectTimeMS: &connectMS,
		Data:          parsed,
		RawBody:       rawBody,
		RawHeaders:    map[string][]string(resp.Headers),
	}, nil
}
