package logging

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/google/uuid"
)

func NewRequestLoggerMiddleware(rootLogger *slog.Logger) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userAgent := r.UserAgent()
			if userAgent == "" {
				userAgent = "<missing>"
			}

			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				ip = host
			}

			requestLogger := rootLogger.With(
				"requestID", uuid.New().String(),
				"ip", ip,
				"userAgent", userAgent,
				"method", r.Method,
				"path", r.URL.Path,
			)

			next(w, r.WithContext(AddToContext(ctx, requestLogger)))
		}
	}
}
