package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tjfontaine/bare-gateway/internal/auth"
)

// KeyFunc derives the rate limit key for a request.
type KeyFunc func(r *http.Request) string

// ByCaller keys on the hashed bearer token when present, else the client IP.
func ByCaller(r *http.Request) string {
	if key, err := auth.ExtractAPIKey(r); err == nil && key != nil {
		return "key:" + auth.HashAPIKey(*key)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + strings.TrimSpace(host)
}

// Middleware rejects requests over the limit with 429 and a JSON error body.
// A nil limiter disables limiting. now may be nil.
func Middleware(l *Limiter, keyFn KeyFunc, now func() time.Time) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = ByCaller
	}
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("x-ratelimit-limit-requests", strconv.Itoa(l.Burst()))
			if !l.Allow(keyFn(r), now()) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{
						"type":    "rate_limit",
						"message": "rate limit exceeded",
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
