package middleware

import (
	"net/http"
	"strings"
)

// HTTPSRedirect sends plain HTTP requests to the same URL over https with a
// 307, so the method and body are preserved. Requests terminated by a TLS
// proxy are recognised through X-Forwarded-Proto.
func HTTPSRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			next.ServeHTTP(w, r)
			return
		}

		target := *r.URL
		target.Scheme = "https"
		target.Host = r.Host
		http.Redirect(w, r, target.String(), http.StatusTemporaryRedirect)
	})
}
