package middleware

import (
	"net/http"
	"strings"
)

func AcceptedContentTypeJSON() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
				w.WriteHeader(http.StatusNotAcceptable)
				return
			}

			w.Header().Set("Content-Type", "application/json")

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}
