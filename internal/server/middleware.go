package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"moonjin/internal/apperr"
	"moonjin/internal/auth"
	"moonjin/internal/metrics"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

type ctxKey int

const requestIDKey ctxKey = iota

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		rec := metrics.NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.requestLog(r).WithFields(logrus.Fields{
			"method":   r.Method,
			"route":    metrics.RouteName(r),
			"status":   rec.Status,
			"duration": time.Since(start),
		}).Info("request")
	})
}

func (s *Server) requestLog(r *http.Request) logrus.FieldLogger {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return s.Log.WithField("request_id", id)
	}
	return s.Log
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(accessCookie); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, *auth.Claims)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.Tokens.Parse(tokenFromRequest(r), auth.KindAccess)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r, claims)
	}
}

func (s *Server) requireWriter(next func(http.ResponseWriter, *http.Request, *auth.Claims)) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
		if !claims.IsWriter() {
			s.writeError(w, r, apperr.UserNotWriter)
			return
		}
		next(w, r, claims)
	})
}

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	log      logrus.FieldLogger
}

func NewRateLimiter(rps float64, burst int, log logrus.FieldLogger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.limiter(key).Allow() {
			rl.log.WithFields(logrus.Fields{"key": key, "path": r.URL.Path}).Warn("rate limit exceeded")
			e := apperr.TooManyRequests
			writeJSON(w, e.Status, map[string]errorBody{"error": {Code: e.Code, Message: e.Message}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Reset drops every bucket once more than max clients are tracked.
func (rl *RateLimiter) Reset(max int) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := len(rl.limiters)
	if n > max {
		rl.limiters = make(map[string]*rate.Limiter)
		return n
	}
	return 0
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
