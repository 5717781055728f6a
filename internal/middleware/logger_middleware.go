package middleware

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// requestUser carries the authenticated user id back out to the request log.
// The logger runs outside the auth middleware, which attaches claims to a
// derived request the outer layers never see, so the auth middleware reports
// the id through this holder instead.
type requestUser struct {
	id string
}

const requestUserKey contextKey = "requestUser"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack keeps the websocket upgrade working behind the logger.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			user := &requestUser{}
			r = r.WithContext(context.WithValue(r.Context(), requestUserKey, user))

			next.ServeHTTP(rw, r)

			userID := user.id
			if userID == "" {
				userID = "anonymous"
			}

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("user", userID),
			)
		})
	}
}
