package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig contains configuration for the CORS middleware.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	Enabled bool

	// AllowedOrigins lists allowed origins. ["*"] allows all.
	AllowedOrigins []string

	// AllowedMethods lists allowed HTTP methods for preflight responses.
	AllowedMethods []string

	// AllowedHeaders lists allowed request headers for preflight responses.
	AllowedHeaders []string

	// ExposedHeaders lists headers exposed to browser clients.
	ExposedHeaders []string

	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

// DefaultCORSConfig returns a permissive default configuration.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID", "ai-provider"},
		ExposedHeaders: []string{"X-Request-ID", "X-Conversation-Id"},
		MaxAge:         3600,
	}
}

// CORS adds cross-origin headers and answers preflight OPTIONS requests.
func CORS(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, config.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				if len(config.ExposedHeaders) > 0 {
					w.Header().Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
				}
			} else if originAllowed("*", config.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			if r.Method == http.MethodOptions {
				if len(config.AllowedMethods) > 0 {
					w.Header().Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
				}
				if len(config.AllowedHeaders) > 0 {
					w.Header().Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
				}
				if config.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
