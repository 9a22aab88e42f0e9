package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/fastprodman/loyalty/internal/auth"
	"github.com/fastprodman/loyalty/internal/infra/metrics"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 64
)

// requestID keeps a well-formed incoming X-Request-Id or assigns a UUID. The
// id is stored under chi's key so middleware.GetReqID finds it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validRequestID accepts up to maxRequestIDLen of [A-Za-z0-9._:-].
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}

	for i := 0; i < len(id); i++ {
		c := id[i]

		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}

	return true
}

type callerKey struct{}

// caller is filled in by tagCaller once authentication ran further down
// the chain, so observe can log who made the request.
type caller struct {
	subject string
	role    auth.Role
}

func tagCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := r.Context().Value(callerKey{}).(*caller)
		if ok {
			if p, found := auth.FromContext(r.Context()); found {
				c.subject = p.Subject
				c.role = p.Role
			}
		}

		next.ServeHTTP(w, r)
	})
}

// observe logs every request and records it in the HTTP metrics under its
// route pattern.
func observe(m *metrics.Collectors) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			c := &caller{}
			r = r.WithContext(context.WithValue(r.Context(), callerKey{}, c))

			next.ServeHTTP(ww, r)

			took := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}

			m.ObserveHTTP(r.Method, route, status, took)

			attrs := []any{
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", took,
				"request_id", middleware.GetReqID(r.Context()),
			}
			if c.subject != "" {
				attrs = append(attrs, "subject", c.subject, "role", string(c.role))
			}

			slog.InfoContext(r.Context(), "http request", attrs...)
		})
	}
}

// RateLimiter hands out one token bucket per authenticated subject. It runs
// behind auth.Middleware; requests without a principal never reach it.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	maxKeys  int
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		maxKeys:  10_000,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		// crude bound on memory; buckets refill quickly anyway
		if len(rl.limiters) >= rl.maxKeys {
			rl.limiters = make(map[string]*rate.Limiter)
		}

		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}

	return l
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			writeDomainError(w, r, auth.ErrUnauthorized)
			return
		}

		key := "sub:" + p.Subject

		if !rl.limiter(key).Allow() {
			slog.WarnContext(r.Context(), "rate limit exceeded", "key", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		next.ServeHTTP(w, r)
	})
}
