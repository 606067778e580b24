package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/lifesignal/lifesignal/internal/server/auth"
)

type contextKey string

const principalContextKey = contextKey("principal_id")

// authMiddleware validates the bearer token and stores the principal id in
// the request context.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.respondWithError(w, http.StatusUnauthorized, "authorization token missing")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			h.respondWithError(w, http.StatusUnauthorized, "invalid token format")
			return
		}

		principalID, err := auth.GetPrincipalIDFromToken(parts[1], []byte(h.config.SecretKey))
		if err != nil {
			h.respondWithError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principalID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalID(r *http.Request) string {
	id, _ := r.Context().Value(principalContextKey).(string)
	return id
}

// lockInterceptor rejects every request from a locked principal. The 403
// body carries the recovery key so the locked owner can read it to a
// trustee; that is the only channel the key is ever shown on.
func (h *Handler) lockInterceptor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.principals.Get(r.Context(), principalID(r))
		if err != nil {
			h.respondWithServiceError(w, err)
			return
		}
		if p.Locked() {
			h.respondWithJSON(w, http.StatusForbidden, map[string]any{
				"error": map[string]any{
					"code":    http.StatusForbidden,
					"message": "account locked: ask a trustee to unlock it with your recovery key",
				},
				"recovery_key": p.RecoveryKey,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit throttles per client IP.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		limiters = map[string]*rate.Limiter{}
	)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[ip]
		if !ok {
			l = rate.NewLimiter(rate.Limit(h.config.RateLimitPerSecond), h.config.RateLimitBurst)
			limiters[ip] = l
		}
		return l
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !limiterFor(ip).Allow() {
			h.respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
