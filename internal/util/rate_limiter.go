package util

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/drallgood/notion-book-sync/internal/logger"
)

var (
	// DefaultRate is the default minimum time between requests
	DefaultRate = 200 * time.Millisecond
	// DefaultBurst is the default burst size
	DefaultBurst = 5
	// maxRate caps how far OnRateLimit slows the limiter down
	maxRate = 5 * time.Second
	// recoverAfter is the number of consecutive successes after which
	// OnSuccess speeds the limiter up by one step
	recoverAfter = 10
)

// RateLimiter is a token bucket that slows itself down when the server
// reports rate limiting
type RateLimiter struct {
	mu           sync.Mutex
	last         time.Time
	rate         time.Duration
	minRate      time.Duration
	tokens       int
	maxTokens    int
	lastRateDrop time.Time
	successes    int
	log          *logger.Logger
}

// NewRateLimiter creates a limiter allowing one request per rate with the given burst.
// Non-positive values fall back to DefaultRate and DefaultBurst.
func NewRateLimiter(rate time.Duration, burst int, log *logger.Logger) *RateLimiter {
	if rate <= 0 {
		rate = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	now := time.Now()
	return &RateLimiter{
		last:         now,
		rate:         rate,
		minRate:      rate,
		tokens:       burst,
		maxTokens:    burst,
		lastRateDrop: now,
		log:          log,
	}
}

// PerSecond converts a requests-per-second figure into the interval NewRateLimiter expects
func PerSecond(n float64) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / n)
}

// Wait blocks until a token is available or the context is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()

	now := time.Now()
	if added := int(now.Sub(r.last) / r.rate); added > 0 {
		r.tokens += added
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.last = now
	}

	if r.tokens > 0 {
		r.tokens--
		r.mu.Unlock()
		return nil
	}

	// up to 20% jitter
	next := r.last.Add(r.rate + time.Duration(rand.Float64()*0.2*float64(r.rate)))
	r.mu.Unlock()

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		r.mu.Lock()
		r.last = next
		r.tokens = 0
		r.mu.Unlock()
		return nil
	}
}

// OnRateLimit widens the interval between requests and returns how long the
// caller should back off: the server's Retry-After or the new interval,
// whichever is longer.
func (r *RateLimiter) OnRateLimit(retryAfter time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.lastRateDrop) < 5*time.Minute {
		r.rate = time.Duration(1.5 * float64(r.rate))
	} else {
		r.rate = time.Duration(1.2 * float64(r.rate))
	}
	if r.rate > maxRate {
		r.rate = maxRate
	}
	r.lastRateDrop = now
	r.successes = 0

	r.log.Warn("Rate limited, increasing delay between requests", map[string]interface{}{
		"new_rate":    r.rate.String(),
		"retry_after": retryAfter.String(),
	})

	if retryAfter > r.rate {
		return retryAfter
	}
	return r.rate
}

// OnSuccess records a successful request. After recoverAfter successes in a
// row the interval shrinks by the factor OnRateLimit grew it, never below the
// initial interval.
func (r *RateLimiter) OnSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rate <= r.minRate {
		r.successes = 0
		return
	}
	r.successes++
	if r.successes < recoverAfter {
		return
	}
	r.successes = 0
	r.rate = time.Duration(float64(r.rate) / 1.5)
	if r.rate < r.minRate {
		r.rate = r.minRate
	}
	r.log.Debug("Rate limit recovering, decreasing delay between requests", map[string]interface{}{
		"new_rate": r.rate.String(),
	})
}

// ResetRate restores the initial interval
func (r *RateLimiter) ResetRate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rate = r.minRate
	r.successes = 0
	r.lastRateDrop = time.Now()
}

// GetRate returns the current interval between requests
func (r *RateLimiter) GetRate() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

// ParseRetryAfter reads a Retry-After header given either in seconds or as an
// HTTP date. It returns 0 when the header is missing or unreadable.
func ParseRetryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
