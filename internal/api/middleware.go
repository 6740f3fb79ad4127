// Package api implements the Inkwell admin REST API using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/starford/inkwell/internal/auth"
)

// AuthMiddleware resolves the bearer credential into a principal and stores
// it in the request context. In disabled mode every request passes through
// as the system principal.
func AuthMiddleware(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if v.Mode() != auth.ModeDisabled && !strings.HasPrefix(header, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			p, err := v.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}
