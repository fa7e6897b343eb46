package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

func requestIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(requestIDHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}

// RequestID echoes the caller's request id or mints one, and binds it to the
// request-scoped logger.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := requestIDFrom(r)
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
