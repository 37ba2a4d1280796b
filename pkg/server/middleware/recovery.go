package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"hungrycoders/chatrelay/pkg/server/types"
)

// Recovery recovers from panics in downstream handlers, logs the panic with
// its stack trace, and returns a 500 error payload without exposing internal
// details to the client.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"request_id", GetRequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				types.WriteError(w, r, http.StatusInternalServerError,
					types.CodeInternalError,
					"An internal error occurred. Please try again later.")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
