package middleware

import (
	"net/http"
	"strings"
)

// CORSMiddleware answers preflights and stamps CORS headers for the portal
// frontends. allowedOrigins is a comma-separated list; "*" admits any origin.
func CORSMiddleware(allowedOrigins, allowedMethods, allowedHeaders string) func(http.Handler) http.Handler {
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			for _, o := range origins {
				if o != "*" && o != origin {
					continue
				}
				if origin != "" {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				} else if o == "*" {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
				break
			}

			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
