package restcat

import (
	"context"
	"io"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuild(t *testing.T) {
	params := url.Values{
		"search":  {"index=main error"},
		"field":   {"host", "source"},
		"enabled": {"1"},
	}
	tests := []struct {
		method    string
		wantQuery bool
	}{
		{"GET", true},
		{"delete", true},
		{"HEAD", true},
		{"POST", false},
		{"PUT", false},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			r := Build(tt.method, "saved/searches", params)
			encoded := r.Query.Encode()
			if !tt.wantQuery {
				encoded = r.EncodedBody()
				if r.Query != nil {
					t.Error("body method should not carry a query")
				}
				if r.ContentType() != "application/x-www-form-urlencoded" {
					t.Errorf("unexpected content type %q", r.ContentType())
				}
			} else if r.HasBody() {
				t.Error("query method should not carry a body")
			}

			decoded, err := url.ParseQuery(encoded)
			if err != nil {
				t.Fatalf("ParseQuery: %v", err)
			}
			if diff := cmp.Diff(params, decoded); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildRepeatedValues(t *testing.T) {
	r := Build("POST", "x", url.Values{"field": {"a", "b"}})
	if got, want := r.EncodedBody(), "field=a&field=b"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestBuildCopiesParams(t *testing.T) {
	params := url.Values{"a": {"1"}}
	r := Build("GET", "x", params)
	params["a"][0] = "2"
	if r.Query.Get("a") != "1" {
		t.Error("Build must not alias the caller's values")
	}
}

func TestRequestURL(t *testing.T) {
	tests := []struct {
		base  string
		path  string
		query url.Values
		want  string
	}{
		{
			base:  "https://localhost:8089/services",
			path:  "data/inputs/monitor/a%20b",
			query: url.Values{"count": {"1"}},
			want:  "https://localhost:8089/services/data/inputs/monitor/a%20b?count=1",
		},
		{
			base: "https://localhost:8089/",
			path: "data/inputs/monitor/%2Fvar%2Flog",
			want: "https://localhost:8089/data/inputs/monitor/%2Fvar%2Flog",
		},
		{
			base: "https://h:8089/services",
			path: "data/inputs/monitor/%2E%2E",
			want: "https://h:8089/services/data/inputs/monitor/%2E%2E",
		},
		{
			base: "http://splunk",
			path: "alerts/fired_alerts/-",
			want: "http://splunk/alerts/fired_alerts/-",
		},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r := &Request{Method: "GET", Path: tt.path, Query: tt.query}
			u, err := r.URL(tt.base)
			if err != nil {
				t.Fatalf("URL: %v", err)
			}
			if u.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, u.String())
			}
		})
	}
}

func TestRequestHTTPRequest(t *testing.T) {
	r := Build("POST", "auth/login", url.Values{"username": {"admin"}, "password": {"p&ss"}})
	req, err := r.HTTPRequest(context.Background(), "https://localhost:8089/services")
	if err != nil {
		t.Fatalf("HTTPRequest: %v", err)
	}
	if req.Method != "POST" {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if req.URL.String() != "https://localhost:8089/services/auth/login" {
		t.Errorf("unexpected URL %s", req.URL)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
		t.Errorf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != "password=p%26ss&username=admin" {
		t.Errorf("unexpected body %q", body)
	}

	get, err := Build("GET", "apps/local", nil).HTTPRequest(context.Background(), "http://h")
	if err != nil {
		t.Fatalf("HTTPRequest: %v", err)
	}
	if get.Body != nil || get.Header.Get("Content-Type") != "" {
		t.Error("GET request should have no body")
	}
}
