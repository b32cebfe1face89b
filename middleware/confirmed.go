package middleware

import "net/http"

// RequireConfirmed answers 403 when the account placed in the context by Guard
// has no confirmed email, and 401 when Guard did not run.
func RequireConfirmed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, ok := AccountFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !acc.IsConfirmed() {
			http.Error(w, "email not confirmed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
