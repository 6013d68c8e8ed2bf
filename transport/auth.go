package transport

import (
	"encoding/base64"
	"net/http"
)

// AuthStrategy applies authentication to an HTTP request.
type AuthStrategy interface {
	Apply(req *http.Request)
}

// BasicAuth uses HTTP basic authentication.
type BasicAuth struct {
	Username string
	Password string
}

func (a *BasicAuth) Apply(req *http.Request) {
	creds := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
	req.Header.Set("Authorization", "Basic "+creds)
}

// TokenAuth sends a session key or authentication token using the
// management API's own scheme: Authorization: Splunk <token>.
type TokenAuth struct {
	Token string
}

func (a *TokenAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Splunk "+a.Token)
}

// BearerAuth sends a bearer token.
type BearerAuth struct {
	Token string
}

func (a *BearerAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// NoAuth leaves the request unauthenticated.
type NoAuth struct{}

func (NoAuth) Apply(*http.Request) {}
