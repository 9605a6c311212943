package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"taskManager/internal/auth"
	"taskManager/internal/logger"
	"taskManager/internal/models/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const RequestIdKey contextKey = "request_id"

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get("X-Request-ID")
		if requestId == "" {
			requestId = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestId)

		ctx := context.WithValue(r.Context(), RequestIdKey, requestId)
		r = r.WithContext(ctx)

		next.ServeHTTP(w, r)
	})
}

type loggingWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (lw *loggingWriter) WriteHeader(code int) {
	if !lw.wroteHeader {
		lw.status = code
		lw.wroteHeader = true
		lw.ResponseWriter.WriteHeader(code)
	}
}

func (lw *loggingWriter) Write(b []byte) (int, error) {
	if !lw.wroteHeader {
		lw.WriteHeader(http.StatusOK)
	}

	n, err := lw.ResponseWriter.Write(b)
	lw.size += n
	return n, err
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestId := GetRequestID(r.Context())

		logger.Info(
			"HTTP_IN: request started",
			zap.String("request_id", requestId),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.String("client_ip", r.RemoteAddr),
		)

		lw := &loggingWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}
		next.ServeHTTP(lw, r)

		logLevel := zap.InfoLevel
		if lw.status >= 400 && lw.status < 500 {
			logLevel = zap.WarnLevel
		} else if lw.status >= 500 {
			logLevel = zap.ErrorLevel
		}
		logger.Log(
			logLevel,
			"HTTP_OUT: request finished",
			zap.String("request_id", requestId),
			zap.Int("status", lw.status),
			zap.Int("bytes_written", lw.size),
			zap.Duration("ms", time.Since(start)),
		)
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIdKey).(string); ok {
		return id
	}
	return ""
}

// Recover turns a handler panic into a generic 500.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("HTTP: panic recovered", fmt.Errorf("%v", rec),
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]any{
					"error":   "INTERNAL",
					"message": "Internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type CallerResolver interface {
	ResolveCaller(authorization string) (*user.Caller, error)
}

// Authenticate stores the caller named by the bearer token in the request
// context. Requests without a valid token continue with no caller; the
// service layer answers them with 401.
func Authenticate(resolver CallerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := resolver.ResolveCaller(r.Header.Get("Authorization"))
			if err != nil {
				logger.Warn("HTTP: rejected bearer token",
					zap.Error(err),
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("client_ip", r.RemoteAddr))
				caller = nil
			}
			if caller != nil {
				r = r.WithContext(auth.WithCaller(r.Context(), caller))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type clientInfo struct {
	count   int
	resetAt time.Time
}

type rateLimiter struct {
	mtx       sync.Mutex
	clients   map[string]*clientInfo
	rpm       int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(rpm int, window time.Duration, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		clients:   make(map[string]*clientInfo),
		rpm:       rpm,
		window:    window,
		lastSweep: now(),
		now:       now,
	}
}

// take counts one request for ip and reports whether it fits the budget.
func (l *rateLimiter) take(ip string) (allowed bool, remaining int, resetAt time.Time) {
	now := l.now()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.sweep(now)

	info, exists := l.clients[ip]
	switch {
	case !exists:
		info = &clientInfo{count: 1, resetAt: now.Add(l.window)}
		l.clients[ip] = info
	case now.After(info.resetAt):
		info.count = 1
		info.resetAt = now.Add(l.window)
	case info.count >= l.rpm:
		return false, 0, info.resetAt
	default:
		info.count++
	}

	return true, max(l.rpm-info.count, 0), info.resetAt
}

// sweep drops clients whose window has expired, at most once per window.
func (l *rateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for ip, info := range l.clients {
		if now.After(info.resetAt) {
			delete(l.clients, ip)
		}
	}
	l.lastSweep = now
}

func (l *rateLimiter) size() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.clients)
}

// RateLimit allows rpm requests per client IP per minute; rpm <= 0 disables it.
func RateLimit(rpm int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := newRateLimiter(rpm, time.Minute, time.Now)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, resetAt := limiter.take(getIp(r))

			if !allowed {
				retryAfter := int(time.Until(resetAt).Seconds())

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)

				json.NewEncoder(w).Encode(map[string]any{
					"error":       "RATE_LIMIT_EXCEEDED",
					"message":     "Too many requests, try again later",
					"retry_after": retryAfter,
					"request_id":  GetRequestID(r.Context()),
				})
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rpm))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			next.ServeHTTP(w, r)
		})
	}
}

func getIp(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
