package restcat

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const formContentType = "application/x-www-form-urlencoded"

// Request is a validated, fully resolved request ready for transport.
// Exactly one of Query and Body carries the parameters.
type Request struct {
	Method string     `json:"method"`
	Path   string     `json:"path"`
	Query  url.Values `json:"query,omitempty"`
	Body   url.Values `json:"body,omitempty"`
}

// Build assembles a request. GET, DELETE and HEAD carry params in the query
// string; every other method sends them as a form-encoded body. Repeated
// values stay repeated.
func Build(method, path string, params url.Values) *Request {
	r := &Request{
		Method: strings.ToUpper(method),
		Path:   path,
	}
	vals := make(url.Values, len(params))
	for k, vs := range params {
		vals[k] = append([]string(nil), vs...)
	}
	if SendsBody(r.Method) {
		r.Body = vals
	} else {
		r.Query = vals
	}
	return r
}

// SendsBody reports whether parameters for method travel in a form body.
func SendsBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
		return false
	default:
		return true
	}
}

// HasBody reports whether the request sends a form body.
func (r *Request) HasBody() bool {
	return r.Body != nil
}

// ContentType returns the body content type, or "" for query-only requests.
func (r *Request) ContentType() string {
	if r.HasBody() {
		return formContentType
	}
	return ""
}

// EncodedBody returns the form-encoded body.
func (r *Request) EncodedBody() string {
	return r.Body.Encode()
}

// URL joins the request path and query onto base. base may carry its own
// path prefix, such as https://host:8089/services.
func (r *Request) URL(base string) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	p, err := url.PathUnescape(r.Path)
	if err != nil {
		return nil, err
	}

	out := *u
	out.Path = strings.TrimSuffix(u.Path, "/") + "/" + p
	out.RawPath = strings.TrimSuffix(u.EscapedPath(), "/") + "/" + r.Path
	out.RawQuery = r.Query.Encode()
	return &out, nil
}

// HTTPRequest builds an *http.Request against base.
func (r *Request) HTTPRequest(ctx context.Context, base string) (*http.Request, error) {
	u, err := r.URL(base)
	if err != nil {
		return nil, err
	}
	var body io.Reader
	if r.HasBody() {
		body = strings.NewReader(r.EncodedBody())
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if ct := r.ContentType(); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	return req, nil
}
