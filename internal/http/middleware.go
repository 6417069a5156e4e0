// Package http holds middleware shared by the API handlers.
package http

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const clientIPContextKey contextKey = "client_ip"

// clientIP resolves the originating client address. The service runs behind
// a fronting proxy, so X-Forwarded-For is consulted first, then X-Real-IP,
// then the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// the leftmost entry is the original client
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIPFromContext returns the client IP stored by ClientIPMiddleware,
// or an empty string outside a request.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

// ClientIPMiddleware stores the client IP in the request context so the
// access request review operations can record it in their audit logs.
func ClientIPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPContextKey, clientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
