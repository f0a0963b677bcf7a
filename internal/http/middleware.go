package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type contextKey string

// requestIDKey carries the per-request trace id through the context.
const requestIDKey contextKey = "request_id"

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func extractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	// Forwarded headers are only honored for loopback and private peers.
	ip := net.ParseIP(host)
	if ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
	}
	return host
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.InfoContext(ctx, "HTTP request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", extractClientIP(r))
	})
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a fixed-window per-IP limiter applied to mutating requests.
type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientWindow
	perMinute int
}

type clientWindow struct {
	windowStart time.Time
	requests    int
}

func newRateLimiter(perMinute int) *rateLimiter {
	return &rateLimiter{
		clients:   make(map[string]*clientWindow),
		perMinute: perMinute,
	}
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if len(rl.clients) > 1024 {
		rl.cleanupStaleLocked(now)
	}

	client, ok := rl.clients[clientIP]
	if !ok || now.Sub(client.windowStart) > time.Minute {
		rl.clients[clientIP] = &clientWindow{windowStart: now, requests: 1}
		return true
	}

	client.requests++
	return client.requests <= rl.perMinute
}

// cleanupStaleLocked drops windows untouched for ten minutes.
func (rl *rateLimiter) cleanupStaleLocked(now time.Time) {
	cutoff := now.Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.windowStart.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if !s.limiter.allow(extractClientIP(r)) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
