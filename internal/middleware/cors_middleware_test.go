package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    string
		origin     string
		wantOrigin string
	}{
		{
			name:       "listed origin is echoed",
			allowed:    "http://portal.local, http://admin.local",
			origin:     "http://portal.local",
			wantOrigin: "http://portal.local",
		},
		{
			name:       "unlisted origin gets no header",
			allowed:    "http://portal.local",
			origin:     "http://evil.local",
			wantOrigin: "",
		},
		{
			name:       "wildcard echoes any origin",
			allowed:    "*",
			origin:     "http://anywhere.local",
			wantOrigin: "http://anywhere.local",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORSMiddleware(tt.allowed, "GET,POST", "Content-Type")(okHandler)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}

	t.Run("preflight short-circuits", func(t *testing.T) {
		reached := false
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
		})
		handler := CORSMiddleware("*", "GET,POST", "Content-Type")(inner)

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/patients", nil)
		req.Header.Set("Origin", "http://portal.local")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if reached {
			t.Error("preflight request reached the inner handler")
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET,POST" {
			t.Errorf("Allow-Methods = %q, want GET,POST", got)
		}
	})
}
