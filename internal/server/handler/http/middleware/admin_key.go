package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/shayra-ai/license-server/internal/server/handler/http/response"
)

const adminKeyHeader = "X-Admin-Key"

// AdminKeyCheck guards the admin routes with a shared key carried in
// the X-Admin-Key header.
func AdminKeyCheck(adminKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(adminKeyHeader)

			if subtle.ConstantTimeCompare([]byte(header), []byte(adminKey)) != 1 {
				response.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
