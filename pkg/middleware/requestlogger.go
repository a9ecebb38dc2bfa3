package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/babo/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// username, trace_id and span_id and stores it with logger.NewContext.
//
// Mount it after RequestLogging, Identity and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if logger.UsernameFromContext(ctx) == "" {
				if username := r.Header.Get(UsernameHeader); username != "" {
					ctx = logger.WithUsername(ctx, username)
				}
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
