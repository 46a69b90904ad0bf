// Package clientip resolves the address of the client behind a request and
// makes it available to loggers through the request context.
//
// Forwarding headers are only honoured when the service runs behind a proxy
// that overwrites them; the order is X-Forwarded-For (first valid entry),
// X-Real-IP, then the connection's RemoteAddr.
package clientip

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/lzztt/session-minimal/pkg/logger"
)

type contextKey struct{}

// FromRequest returns the normalized client address, or an empty string if
// none of the sources holds a valid IP.
func FromRequest(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for part := range strings.SplitSeq(fwd, ",") {
			if ip := normalize(part); ip != "" {
				return ip
			}
		}
	}
	if ip := normalize(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

func normalize(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}

func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// FromContext returns the address stored by Middleware.
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// Extractor adds the client address to log records written with a request context.
func Extractor(ctx context.Context) (slog.Attr, bool) {
	if ip := FromContext(ctx); ip != "" {
		return logger.ClientIP(ip), true
	}
	return slog.Attr{}, false
}

var _ logger.ContextExtractor = Extractor

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), FromRequest(r))))
	})
}
