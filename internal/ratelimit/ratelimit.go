package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/techtonic-plates-blog/posts-service/internal/shared/httpx"
	"github.com/techtonic-plates-blog/posts-service/internal/shared/redisx"
)

type Limiter struct {
	R *redisx.Client
}

func New(r *redisx.Client) *Limiter { return &Limiter{R: r} }

func (l *Limiter) AllowSliding(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	k := "rl:" + key
	pipe := l.R.R.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	n := incr.Val()
	return n <= limit, n, nil
}

// LimitHTTP throttles per key. A limiter backend failure lets the request
// through rather than taking writes down with Redis.
func (l *Limiter) LimitHTTP(limit int64, window time.Duration, keyFn func(*http.Request) (string, error), next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := keyFn(r)
		if err != nil || key == "" {
			httpx.WriteJSON(w, map[string]any{"error": "unauthorized"}, http.StatusUnauthorized)
			return
		}
		ok, n, e := l.AllowSliding(r.Context(), key, limit, window)
		if e == nil && !ok {
			httpx.WriteJSON(w, map[string]any{
				"error": "rate limit exceeded",
				"count": n,
				"limit": limit,
			}, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
