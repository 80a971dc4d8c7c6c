package webhook

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/coldroute/coldroute/internal/pkg/httputil"
)

// hmacSecretMiddleware builds the HMAC-verification middleware for one
// configured secret. An empty secret disables verification entirely
// (unsigned pass-through, per §6/§9's explicit resolution of that Open
// Question). The raw body is read once and restored on the request so
// downstream handlers still see it.
func hmacSecretMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				httputil.BadRequest(w, "unreadable request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sig := r.Header.Get("X-Webhook-Signature")
			if sig == "" || !validateHMAC([]byte(secret), body, sig) {
				httputil.Error(w, http.StatusUnauthorized, "invalid webhook signature")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sourceIPAllowlistMiddleware rejects requests whose resolved client IP
// isn't in allowed. An empty allowed list disables the check.
func sourceIPAllowlistMiddleware(allowed []string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		if len(set) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)
			if _, ok := set[client]; !ok {
				httputil.Error(w, http.StatusForbidden, "source ip not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
