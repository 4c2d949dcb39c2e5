// internal/router/retry.go
package router

import (
	"context"
	"errors"
	"math"
	"net"
	"time"

	"github.com/vihaan69-420/school-agent-simple/internal/types"
	"github.com/vihaan69-420/school-agent-simple/pkg/llm"
)

// RetryPolicy controls how transient upstream failures are retried
// with exponential backoff. Only failures classified as network errors
// are retried; timeouts, rate limits, and malformed responses are not.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryPolicy returns the policy used for provider calls:
// one retry after 500ms.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
	}
}

// NextDelay returns the backoff delay for the given attempt number (1-indexed).
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Execute runs fn up to MaxAttempts times, sleeping between retries.
// Non-transient errors are returned immediately.
func (p *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if ClassifyUpstream(err).Kind != types.UpstreamNetwork {
			return err
		}
		if attempt < p.MaxAttempts {
			select {
			case <-time.After(p.NextDelay(attempt)):
			case <-ctx.Done():
				return lastErr
			}
		}
	}
	return lastErr
}

// ClassifyUpstream maps a raw collaborator error into the upstream
// failure taxonomy.
func ClassifyUpstream(err error) *types.UpstreamError {
	var upstream *types.UpstreamError
	if errors.As(err, &upstream) {
		return upstream
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &types.UpstreamError{Kind: types.UpstreamTimeout, Err: err}
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 {
			return &types.UpstreamError{Kind: types.UpstreamRateLimited, Err: err}
		}
		return &types.UpstreamError{Kind: types.UpstreamBadResponse, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &types.UpstreamError{Kind: types.UpstreamTimeout, Err: err}
		}
		return &types.UpstreamError{Kind: types.UpstreamNetwork, Err: err}
	}

	return &types.UpstreamError{Kind: types.UpstreamBadResponse, Err: err}
}
