package middleware

import (
	"context"
	"net/http"
	"time"

	"hungrycoders/chatrelay/pkg/server/types"
)

// Timeout enforces a per-request deadline. When the deadline passes before
// the handler finishes, the request context is cancelled and a 504 payload
// is returned.
//
// Paths listed in skipPaths are exempt; streaming endpoints must outlive any
// fixed request deadline.
func Timeout(timeout time.Duration, skipPaths ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 || skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(w, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					types.WriteError(w, r, http.StatusGatewayTimeout,
						types.CodeRequestTimeout,
						"Request timeout: the request took too long to complete")
				}
			}
		})
	}
}
