package tiktok

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterObserveResponseHonorsRetryAfter(t *testing.T) {
	limiter := NewRateLimiter(1000, 1000)

	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set(HeaderRetryAfter, "3")
	wait := limiter.ObserveResponse(resp)
	require.Equal(t, 3*time.Second, wait)

	// non-429 responses never pause the limiter
	ok := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
	require.Zero(t, limiter.ObserveResponse(ok))
}

func TestRateLimiterWaitRespectsContext(t *testing.T) {
	limiter := NewRateLimiter(1000, 1000)
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set(HeaderRetryAfter, "30")
	limiter.ObserveResponse(resp)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := limiter.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 6; attempt++ {
		d := backoffDelay(attempt)
		require.GreaterOrEqual(t, d, prev/2, "delay should trend upward")
		require.LessOrEqual(t, d, backoffCap+backoffCap/2)
		prev = d
	}
}
