package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter ограничивает число запросов с одного IP в фиксированном
// окне, счетчики живут в Redis. При недоступном Redis лимитер
// пропускает запросы (fail open), чтобы не ронять сервис целиком.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	name   string
	log    *zap.Logger
}

// NewRateLimiter создает лимитер с заданным лимитом на окно.
// name разделяет счетчики разных endpoint-ов.
func NewRateLimiter(client *redis.Client, name string, limit int, window time.Duration, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  client,
		limit:  limit,
		window: window,
		name:   name,
		log:    log,
	}
}

// Limit оборачивает обработчик проверкой лимита
func (rl *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	// nil-клиент означает, что лимитирование выключено конфигурацией
	if rl == nil || rl.redis == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt, err := rl.check(r.Context(), clientIP(r))
		if err != nil {
			rl.log.Warn("rate limiter unavailable, failing open",
				zap.String("limiter", rl.name),
				zap.Error(err))
			next(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

		if !allowed {
			retryAfter := resetAt - time.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		next(w, r)
	}
}

// check инкрементирует счетчик фиксированного окна для IP
func (rl *RateLimiter) check(ctx context.Context, ip string) (bool, int, int64, error) {
	windowStart := time.Now().Truncate(rl.window).Unix()
	key := fmt.Sprintf("rate_limit:%s:%s:%d", rl.name, ip, windowStart)

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	// TTL с запасом, чтобы ключи не копились
	pipe.Expire(ctx, key, rl.window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, 0, err
	}

	count := int(incrCmd.Val())
	resetAt := windowStart + int64(rl.window.Seconds())

	remaining := rl.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= rl.limit, remaining, resetAt, nil
}

// clientIP извлекает IP клиента с учетом прокси
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
