// Package middleware provides HTTP middleware for the issue-reporting API.
package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/civicpulse/issue-server/internal/auth"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StructuredLogger returns a middleware that logs HTTP requests with zap
func StructuredLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			logger.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.statusCode),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", r.Header.Get("X-Request-ID")),
			)
		})
	}
}

// RequireAuth verifies the bearer access token and attaches the resulting
// typed principal to the request context. Missing token is 401, a token
// that fails verification is 403.
func RequireAuth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, `{"error": "Authorization required"}`, http.StatusUnauthorized)
				return
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")
			if tokenStr == header || tokenStr == "" {
				http.Error(w, `{"error": "Authorization required"}`, http.StatusUnauthorized)
				return
			}

			principal, err := tokens.VerifyAccess(tokenStr)
			if err != nil {
				http.Error(w, `{"error": "Invalid or expired token"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole gates a route to the given roles. Must run after RequireAuth.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				http.Error(w, `{"error": "Authorization required"}`, http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, `{"error": "Forbidden"}`, http.StatusForbidden)
		})
	}
}

// RateLimit implements a fixed-window per-IP rate limiter backed by Redis.
// If Redis is unreachable the request is allowed through (fail open).
func RateLimit(rdb *redis.Client, requestsPerMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rdb == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			key := fmt.Sprintf("ratelimit:%s", ip)

			// INCR and EXPIRE travel in one pipeline. ExpireNX runs on every
			// request, so a counter whose EXPIRE was lost (crash, error
			// between the two commands) picks up a TTL on the next hit
			// instead of counting forever.
			pipe := rdb.Pipeline()
			incr := pipe.Incr(r.Context(), key)
			pipe.ExpireNX(r.Context(), key, time.Minute)
			if _, err := pipe.Exec(r.Context()); err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if incr.Val() > int64(requestsPerMinute) {
				http.Error(w, `{"error": "Rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
