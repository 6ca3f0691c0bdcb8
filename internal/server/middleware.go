package server

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// adminKeyMiddleware requires a bearer key matching the bcrypt hash. An
// empty hash leaves admin routes open; session auth then happens upstream.
func adminKeyMiddleware(logger *slog.Logger, hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || key == "" {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
				logger.Warn("admin key rejected", "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
