// Package middleware holds the HTTP middleware used by the explorer server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// CORSConfig holds the configuration for CORS middleware.
type CORSConfig struct {
	// AllowedOrigins lists the origins a cross-domain request can come from.
	// "*" allows every origin. Default: ["*"]
	AllowedOrigins []string

	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string

	// Default: ["Content-Type", "Authorization"]
	AllowedHeaders []string

	ExposedHeaders []string

	AllowCredentials bool

	// MaxAge is how long, in seconds, a preflight result may be cached.
	// Zero leaves the header unset.
	MaxAge int
}

// DefaultCORSConfig allows every origin with the explorer's methods and
// headers.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}
}

// CORS returns an HTTP middleware that answers preflight requests and sets
// CORS headers. A nil cfg uses DefaultCORSConfig.
func CORS(cfg *CORSConfig) func(http.Handler) http.Handler {
	def := DefaultCORSConfig()
	if cfg == nil {
		cfg = def
	}
	origins := lo.Ternary(len(cfg.AllowedOrigins) > 0, cfg.AllowedOrigins, def.AllowedOrigins)
	methods := strings.Join(lo.Ternary(len(cfg.AllowedMethods) > 0, cfg.AllowedMethods, def.AllowedMethods), ", ")
	headers := strings.Join(lo.Ternary(len(cfg.AllowedHeaders) > 0, cfg.AllowedHeaders, def.AllowedHeaders), ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	wildcard := lo.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			if wildcard || (origin != "" && lo.Contains(origins, origin)) {
				// A credentialed response may not use "*", so the origin is
				// echoed whenever one was sent and either credentials are on
				// or the list is explicit.
				if origin != "" && (!wildcard || cfg.AllowCredentials) {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				} else {
					h.Set("Access-Control-Allow-Origin", "*")
				}
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
