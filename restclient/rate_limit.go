package restclient

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures client-level rate limiting. The limiter is
// shared by every builder created from the same Client, and each hop
// (redirect included) takes one token.
type RateLimitConfig struct {
	// RequestsPerSecond is the maximum sustained request rate.
	// Zero or negative disables rate limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the maximum number of requests allowed in a burst.
	Burst int `yaml:"burst"`

	// WaitOnLimit makes requests wait for a token (respecting the context
	// deadline) instead of failing with ErrRateLimited.
	WaitOnLimit bool `yaml:"wait_on_limit"`
}

// DefaultRateLimitConfig returns 10 requests per second with a burst of 5,
// waiting for tokens.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             5,
		WaitOnLimit:       true,
	}
}

// ErrRateLimited is returned, wrapped in a *TransportError, when a request is
// rejected by the client-level limiter.
var ErrRateLimited = errors.New("rate limit exceeded")

// rateLimitTransport implements http.RoundTripper with rate limiting.
type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
	wait    bool
}

// newRateLimitTransport creates a rate-limited transport wrapper.
func newRateLimitTransport(next http.RoundTripper, cfg RateLimitConfig) http.RoundTripper {
	if cfg.RequestsPerSecond <= 0 {
		return next
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &rateLimitTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		wait:    cfg.WaitOnLimit,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.wait {
		if err := t.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, ErrRateLimited
		}
	} else if !t.limiter.Allow() {
		return nil, ErrRateLimited
	}

	return t.next.RoundTrip(req)
}
