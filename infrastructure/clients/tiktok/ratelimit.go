package tiktok

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRatePerSecond is the proactive throttle applied to every
	// outbound call, independent of provider feedback.
	DefaultRatePerSecond = 2

	// DefaultBurst allows a short run of back-to-back requests.
	DefaultBurst = 4

	// HeaderRetryAfter is the standard retry hint on 429 responses.
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter paces outbound provider calls with a token bucket and tracks
// the most recent server-imposed cooldown so retries wait it out.
type RateLimiter struct {
	mu      sync.Mutex
	bucket  *rate.Limiter
	pauseTo time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRatePerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{bucket: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until it is safe to make a request: first the proactive token
// bucket, then any pending server cooldown.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	pauseTo := r.pauseTo
	r.mu.Unlock()

	if time.Now().Before(pauseTo) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(pauseTo)):
		}
	}
	return nil
}

// ObserveResponse records a cooldown when the provider answers 429. Returns
// the wait interval the caller should honor before retrying, zero otherwise.
func (r *RateLimiter) ObserveResponse(resp *http.Response) time.Duration {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return 0
	}
	wait := 5 * time.Second
	if retryAfter := resp.Header.Get(HeaderRetryAfter); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
			wait = time.Duration(seconds) * time.Second
		}
	}
	r.mu.Lock()
	if until := time.Now().Add(wait); until.After(r.pauseTo) {
		r.pauseTo = until
	}
	r.mu.Unlock()
	return wait
}
