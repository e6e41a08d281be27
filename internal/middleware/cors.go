package middleware

import (
	"net/http"
	"strings"
)

// CORS adds Access-Control headers for allowed origins and short-circuits OPTIONS requests.
// Credentials are allowed so the browser session cookie reaches the CSRF guard.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	normalized := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
		normalized = append(normalized, strings.ToLower(strings.TrimRight(origin, "/")))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || containsOrigin(normalized, origin)) {
				// A wildcard cannot be combined with credentials, so echo the origin.
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-XSRF-TOKEN")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func containsOrigin(allowed []string, origin string) bool {
	origin = strings.ToLower(origin)
	for _, candidate := range allowed {
		if candidate == origin {
			return true
		}
	}
	return false
}
