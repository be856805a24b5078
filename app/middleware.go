package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/threadline/internal/common"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requestID reuses a well formed X-Request-ID from the client and generates one otherwise.
func (app *application) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, app.withRequestID(r, id))
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			ip     = r.RemoteAddr
			method = r.Method
			proto  = r.Proto
			uri    = r.URL.RequestURI()
			start  = time.Now()
		)

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		app.logger.Info("request completed",
			slog.String("method", method),
			slog.String("uri", uri),
			slog.String("remote_addr", ip),
			slog.String("proto", proto),
			slog.Int("status", rw.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", requestIDFromContext(r.Context())),
		)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// limiterFor returns the limiter stored under key, creating it on first use. Idle limiters expire with the cache.
func (app *application) limiterFor(key string) *rate.Limiter {
	if l, ok := app.cache.Get(key); ok {
		return l.(*rate.Limiter)
	}

	l := rate.NewLimiter(rate.Limit(app.config.RateLimitRPS), app.config.RateLimitBurst)
	if app.cache.Add(key, l) {
		return l
	}

	// another request stored one first
	if existing, ok := app.cache.Get(key); ok {
		return existing.(*rate.Limiter)
	}

	return l
}

// rateLimit applies a token bucket per client IP and scope.
func (app *application) rateLimit(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !app.limiterFor(common.CacheKeyLimiter(scope, clientIP(r))).Allow() {
			app.metrics.rateLimited.WithLabelValues(scope).Inc()
			app.rateLimitExceededResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	}
}
