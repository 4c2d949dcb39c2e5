// internal/router/retry_test.go
package router

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/vihaan69-420/school-agent-simple/internal/types"
	"github.com/vihaan69-420/school-agent-simple/pkg/llm"
)

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "dial tcp: connection refused" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return true }

var _ net.Error = (*fakeNetError)(nil)

func TestClassifyUpstream(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.UpstreamKind
	}{
		{"deadline", context.DeadlineExceeded, types.UpstreamTimeout},
		{"net timeout", &fakeNetError{timeout: true}, types.UpstreamTimeout},
		{"net refused", &fakeNetError{}, types.UpstreamNetwork},
		{"rate limited", &llm.APIError{StatusCode: 429}, types.UpstreamRateLimited},
		{"server error", &llm.APIError{StatusCode: 500}, types.UpstreamBadResponse},
		{"garbage", errors.New("parsing response: unexpected end"), types.UpstreamBadResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyUpstream(tt.err); got.Kind != tt.want {
				t.Errorf("kind = %s, want %s", got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyUpstreamPassthrough(t *testing.T) {
	orig := &types.UpstreamError{Kind: types.UpstreamTimeout, Err: errors.New("x")}
	if got := ClassifyUpstream(orig); got != orig {
		t.Error("existing upstream error must pass through unchanged")
	}
}

func TestRetryTransientNetworkOnce(t *testing.T) {
	p := &RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: time.Second}
	attempts := 0
	err := p.Execute(context.Background(), func() error {
		attempts++
		if attempts == 1 {
			return &fakeNetError{}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryDoesNotRetryTimeout(t *testing.T) {
	p := DefaultRetryPolicy()
	attempts := 0
	err := p.Execute(context.Background(), func() error {
		attempts++
		return context.DeadlineExceeded
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestNextDelayCapped(t *testing.T) {
	p := &RetryPolicy{InitialDelay: time.Second, Multiplier: 10, MaxDelay: 5 * time.Second}
	if d := p.NextDelay(1); d != time.Second {
		t.Errorf("first delay = %v", d)
	}
	if d := p.NextDelay(4); d != 5*time.Second {
		t.Errorf("capped delay = %v", d)
	}
}
