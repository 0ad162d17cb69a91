package middleware

import "net/http"

// CORS allows cross-origin calls from the configured origins and
// short-circuits OPTIONS preflight requests with 204 before they reach the
// pipeline. An allowed-origins list of ["*"] permits any origin, which
// matches how the dispatch endpoint is invoked by database triggers and
// first-party clients alike.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	any := false
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			any = true
		}
		origins[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, ok := origins[origin]
			if any || ok {
				allowed := origin
				if any {
					allowed = "*"
				}
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowed)
				h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Correlation-ID")
				h.Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
