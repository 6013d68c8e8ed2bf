// Package testutil provides helpers for testing code built on restcat: a
// fluent request builder for the explorer API, assertions on its JSON
// envelope and catalog fixture loaders.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/broady/restcat"
)

// RequestBuilder helps construct test HTTP requests with fluent API.
type RequestBuilder struct {
	method  string
	path    string
	body    []byte
	headers map[string]string
	query   url.Values
}

// NewRequest creates a new request builder for GET /.
func NewRequest() *RequestBuilder {
	return &RequestBuilder{
		method:  "GET",
		path:    "/",
		headers: make(map[string]string),
		query:   make(url.Values),
	}
}

// GET sets the HTTP method to GET.
func (b *RequestBuilder) GET(path string) *RequestBuilder {
	b.method = "GET"
	b.path = path
	return b
}

// POST sets the HTTP method to POST.
func (b *RequestBuilder) POST(path string) *RequestBuilder {
	b.method = "POST"
	b.path = path
	return b
}

// Method sets an arbitrary HTTP method.
func (b *RequestBuilder) Method(method, path string) *RequestBuilder {
	b.method = method
	b.path = path
	return b
}

// WithJSON sets the request body as JSON.
func (b *RequestBuilder) WithJSON(v any) *RequestBuilder {
	data, _ := json.Marshal(v)
	b.body = data
	b.headers["Content-Type"] = "application/json"
	return b
}

// WithBody sets the raw request body.
func (b *RequestBuilder) WithBody(body string) *RequestBuilder {
	b.body = []byte(body)
	return b
}

// WithHeader adds a header to the request.
func (b *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	b.headers[key] = value
	return b
}

// WithQuery adds a query parameter. Repeated keys are kept.
func (b *RequestBuilder) WithQuery(key, value string) *RequestBuilder {
	b.query.Add(key, value)
	return b
}

// Build creates the HTTP request and ResponseRecorder.
func (b *RequestBuilder) Build() (*http.Request, *httptest.ResponseRecorder) {
	target := b.path
	if len(b.query) > 0 {
		target += "?" + b.query.Encode()
	}

	req := httptest.NewRequest(b.method, target, bytes.NewReader(b.body))
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	return req, httptest.NewRecorder()
}

// Do builds the request and serves it with h.
func (b *RequestBuilder) Do(h http.Handler) *httptest.ResponseRecorder {
	req, w := b.Build()
	h.ServeHTTP(w, req)
	return w
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if w.Code != expectedStatus {
		t.Errorf("expected status %d, got %d\nBody: %s", expectedStatus, w.Code, w.Body.String())
	}
}

// DecodeResult decodes the "result" member of a success envelope into v.
func DecodeResult(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response: %v\nBody: %s", err, w.Body.String())
	}
	if env.Result == nil {
		t.Fatalf("response has no result\nBody: %s", w.Body.String())
	}
	if err := json.Unmarshal(env.Result, v); err != nil {
		t.Fatalf("failed to decode result: %v\nResult: %s", err, env.Result)
	}
}

// AssertResult checks that the envelope's result equals expected once both
// are rendered as JSON.
func AssertResult(t *testing.T, w *httptest.ResponseRecorder, expected any) {
	t.Helper()

	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("expected Content-Type to contain application/json, got %s", ct)
	}
	var actual any
	DecodeResult(t, w, &actual)

	var want any
	data, _ := json.Marshal(expected)
	json.Unmarshal(data, &want)

	if diff := cmp.Diff(want, actual); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

// ErrorResponse is the "error" member of a failure envelope.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// AssertError checks that the response is an error envelope with the
// expected code and returns it.
func AssertError(t *testing.T, w *httptest.ResponseRecorder, expectedCode restcat.ErrorCode) *ErrorResponse {
	t.Helper()

	var env struct {
		Error *ErrorResponse `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode error response: %v\nBody: %s", err, w.Body.String())
	}
	if env.Error == nil {
		t.Fatalf("expected an error envelope\nBody: %s", w.Body.String())
	}
	if env.Error.Code != string(expectedCode) {
		t.Errorf("expected error code %s, got %s (message: %s)", expectedCode, env.Error.Code, env.Error.Message)
	}
	return env.Error
}

// Violations returns the violations carried in an invalid_argument error.
func (e *ErrorResponse) Violations() []restcat.Violation {
	raw, ok := e.Details["violations"]
	if !ok {
		return nil
	}
	data, _ := json.Marshal(raw)
	var out []restcat.Violation
	json.Unmarshal(data, &out)
	return out
}

// AssertViolation checks that err reports code for param.
func AssertViolation(t *testing.T, err *ErrorResponse, param string, code restcat.ViolationCode) {
	t.Helper()
	for _, v := range err.Violations() {
		if v.Param == param && v.Code == code {
			return
		}
	}
	t.Errorf("expected violation %s on %q, got %+v", code, param, err.Violations())
}

// AssertHeader checks that a response header has the expected value.
func AssertHeader(t *testing.T, w *httptest.ResponseRecorder, key, expectedValue string) {
	t.Helper()
	actual := w.Header().Get(key)
	if actual != expectedValue {
		t.Errorf("expected header %s=%s, got %s", key, expectedValue, actual)
	}
}

// LoadCatalog loads a catalog fixture or fails the test.
func LoadCatalog(t testing.TB, path string) *restcat.Catalog {
	t.Helper()
	cat, err := restcat.LoadFile(path)
	if err != nil {
		t.Fatalf("loading catalog %s: %v", path, err)
	}
	return cat
}

// ParseCatalog parses an inline catalog document or fails the test.
func ParseCatalog(t testing.TB, doc string) *restcat.Catalog {
	t.Helper()
	cat, err := restcat.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parsing catalog: %v", err)
	}
	return cat
}
