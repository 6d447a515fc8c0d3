package http

import "testing"

func TestRequest_Build(t *testing.T) {
	cases := []struct {
		name        string
		method      string
		path        string
		baseURL     string
		headers     map[string]string
		queryParams map[string]string
		body        interface{}
		wantURL     string
	}{
		{
			name:    "simple get",
			method:  "GET",
			path:    "/users",
			baseURL: "https://api.example.com",
			headers: map[string]string{"Accept": "application/json"},
			wantURL: "https://api.example.com/users",
		},
		{
			name:        "query params sorted",
			method:      "GET",
			path:        "/users",
			baseURL:     "https://api.example.com",
			queryParams: map[string]string{"page": "1", "limit": "10"},
			wantURL:     "https://api.example.com/users?limit=10&page=1",
		},
		{
			name:    "trailing slash on base url",
			method:  "GET",
			path:    "/users",
			baseURL: "https://api.example.com/",
			wantURL: "https://api.example.com/users",
		},
		{
			name:    "leading slash on path",
			method:  "GET",
			path:    "/users",
			baseURL: "https://api.example.com",
			wantURL: "https://api.example.com/users",
		},
		{
			name:    "post with json body",
			method:  "POST",
			path:    "/users",
			baseURL: "https://api.example.com",
			body:    map[string]string{"name": "John", "email": "john@example.com"},
			wantURL: "https://api.example.com/users",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := NewRequest(tc.method, tc.path)
			for k, v := range tc.headers {
				req.WithHeader(k, v)
			}
			for k, v := range tc.queryParams {
				req.WithQueryParam(k, v)
			}
			if tc.body != nil {
				req.WithBody(tc.body)
			}

			built, err := req.Build(tc.baseURL)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if built.Method != tc.method {
				t.Errorf("Method = %s, want %s", built.Method, tc.method)
			}
			if built.URL.String() != tc.wantURL {
				t.Errorf("URL = %s, want %s", built.URL.String(), tc.wantURL)
			}
			for k, v := range tc.headers {
				if got := built.Header.Get(k); got != v {
					t.Errorf("header %s = %s, want %s", k, got, v)
				}
			}
			if tc.body != nil && tc.method == "POST" {
				if got := built.Header.Get("Content-Type"); got != "application/json" {
					t.Errorf("Content-Type = %s, want application/json", got)
				}
				if built.Body == nil {
					t.Error("Body = nil, want non-nil")
				}
			}
		})
	}
}

func TestRequest_Setters(t *testing.T) {
	req := NewRequest("GET", "/test").WithHeader("X-Test", "test-value")
	if req.Headers["X-Test"] != "test-value" {
		t.Errorf("Headers[X-Test] = %s, want test-value", req.Headers["X-Test"])
	}

	req = NewRequest("GET", "/test").WithQueryParam("param", "value")
	if req.QueryParams.Get("param") != "value" {
		t.Errorf("QueryParams.Get(param) = %s, want value", req.QueryParams.Get("param"))
	}

	req = NewRequest("GET", "/test").WithQueryParams(map[string]string{
		"param1": "value1",
		"param2": "value2",
	})
	if req.QueryParams.Get("param1") != "value1" || req.QueryParams.Get("param2") != "value2" {
		t.Errorf("QueryParams = %s, want param1=value1&param2=value2", req.QueryParams.Encode())
	}

	req = NewRequest("POST", "/test").WithBody(map[string]string{"name": "John"})
	bodyMap, ok := req.Body.(map[string]string)
	if !ok {
		t.Fatalf("Body type = %T, want map[string]string", req.Body)
	}
	if bodyMap["name"] != "John" {
		t.Errorf(`Body["name"] = %s, want John`, bodyMap["name"])
	}
}
