package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicyStatusCodes(t *testing.T) {
	t.Parallel()

	policy := NewExponentialRetryPolicy(2, 10*time.Millisecond, 100*time.Millisecond)

	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"server error", 500, true},
		{"bad gateway", 502, true},
		{"rate limited", 429, true},
		{"not found", 404, false},
		{"forbidden", 403, false},
		{"gone", 410, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := &FetchError{URL: "https://example.com/x", StatusCode: tt.status}
			require.Equal(t, tt.want, policy.ShouldRetry(err, 0))
		})
	}
}

func TestRetryPolicyAttemptBudget(t *testing.T) {
	t.Parallel()

	policy := NewExponentialRetryPolicy(2, 10*time.Millisecond, 100*time.Millisecond)
	err := &FetchError{URL: "https://example.com/x", StatusCode: 503}

	require.True(t, policy.ShouldRetry(err, 0))
	require.True(t, policy.ShouldRetry(err, 1))
	require.False(t, policy.ShouldRetry(err, 2))
	require.False(t, policy.ShouldRetry(err, 7))
}

func TestRetryPolicyNeverRetriesCancellation(t *testing.T) {
	t.Parallel()

	policy := NewExponentialRetryPolicy(5, 10*time.Millisecond, 100*time.Millisecond)

	require.False(t, policy.ShouldRetry(context.Canceled, 0))
	require.False(t, policy.ShouldRetry(context.DeadlineExceeded, 0))
	require.False(t, policy.ShouldRetry(nil, 0))
}

func TestRetryPolicyTreatsUnknownErrorsAsTransient(t *testing.T) {
	t.Parallel()

	policy := NewExponentialRetryPolicy(2, 10*time.Millisecond, 100*time.Millisecond)
	require.True(t, policy.ShouldRetry(errors.New("connection reset by peer"), 0))
}

func TestRetryPolicyBackoffGrowsAndStaysBounded(t *testing.T) {
	t.Parallel()

	base := 100 * time.Millisecond
	cap := time.Second
	policy := NewExponentialRetryPolicy(5, base, cap)

	// Jitter makes exact values nondeterministic; only the envelope is
	// checked. Attempt n has nominal delay base*2^n, returned as half that
	// plus jitter in [0, half).
	for attempt := 0; attempt < 6; attempt++ {
		nominal := base << attempt
		if nominal > cap {
			nominal = cap
		}
		for i := 0; i < 20; i++ {
			d := policy.Backoff(attempt)
			require.GreaterOrEqual(t, d, nominal/2, "attempt %d", attempt)
			require.Less(t, d, nominal, "attempt %d", attempt)
		}
	}
}
