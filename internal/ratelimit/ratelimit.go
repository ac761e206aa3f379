// Package ratelimit applies a fixed-window request limit to the
// public lookup endpoint. The limiter fails open: a broken store
// degrades throttling, never availability.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"sdnscreen/internal/platform/metrics"
	dErrors "sdnscreen/pkg/domain-errors"
	"sdnscreen/pkg/platform/httputil"
)

// Store counts requests per key within a fixed window.
type Store interface {
	// Allow records one request for key and reports whether it stays
	// within limit for the current window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Limiter throttles requests by client IP.
type Limiter struct {
	store   Store
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option customizes a Limiter.
type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// New creates a Limiter allowing limit requests per window per client.
func New(store Store, limit int, window time.Duration, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "rate limit store is required")
	}
	if limit <= 0 || window <= 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "rate limit and window must be positive")
	}

	l := &Limiter{store: store, limit: limit, window: window}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Middleware enforces the limit on the wrapped handler.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		allowed, err := l.store.Allow(r.Context(), "ip:"+ip, l.limit, l.window)
		if err != nil {
			if l.logger != nil {
				l.logger.WarnContext(r.Context(), "rate limit store unavailable, allowing request",
					"error", err.Error(),
				)
			}
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			l.metrics.IncrementRateLimited()
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop so limits survive a
// load balancer, falling back to the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
