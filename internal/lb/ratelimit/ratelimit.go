// Package ratelimit implements the Rate Limiter component (spec.md §4.13):
// a per-remote-address token bucket on the LB's ingress, adapted from the
// teacher's internal/v1/ratelimit package (which wires ulule/limiter/v3
// against a Redis-or-memory store) down to the LB's single ingress bucket.
package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/sindrigils/chatroom/internal/lb/apierrors"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Limiter gates inbound requests by remote address.
type Limiter struct {
	limiter *limiter.Limiter
}

// New builds an in-memory token bucket limiter: perSecond tokens/sec
// replenishment with the given burst capacity. A background goroutine in the
// underlying store evicts idle buckets every 60s.
func New(perSecond, burst int) *Limiter {
	if perSecond < 1 {
		perSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	// ulule/limiter's rate is "Limit requests per Period", counted in a fixed
	// window per key; scale Period so the average rate is perSecond while Limit
	// gives the burst.
	rate := limiter.Rate{
		Period: time.Duration(burst) * time.Second / time.Duration(perSecond),
		Limit:  int64(burst),
	}
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          limiter.DefaultPrefix,
		CleanUpInterval: time.Minute,
	})
	return &Limiter{limiter: limiter.New(store, rate)}
}

// Allow reports whether the request from r's remote address may proceed.
func (l *Limiter) Allow(ctx context.Context, r *http.Request) error {
	key := clientIP(r)
	ctxRes, err := l.limiter.Get(ctx, key)
	if err != nil {
		return apierrors.New(apierrors.KindInternalServer, err)
	}
	if ctxRes.Reached {
		return apierrors.New(apierrors.KindTooManyRequests, nil)
	}
	return nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
