package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func instantPolicy(slept *[]time.Duration) Policy {
	p := Default()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return p
}

func TestPolicy_RetriesTransientWithBackoff(t *testing.T) {
	var slept []time.Duration
	p := instantPolicy(&slept)

	calls := 0
	err := p.Do(context.Background(), zap.NewNop(), "stream", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &StatusError{StatusCode: 503, Body: "overloaded"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
}

func TestPolicy_StopsOnNonTransient(t *testing.T) {
	var slept []time.Duration
	p := instantPolicy(&slept)

	calls := 0
	err := p.Do(context.Background(), zap.NewNop(), "stream", func(ctx context.Context) error {
		calls++
		return &StatusError{StatusCode: 401, Body: "bad key"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, slept)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 401, statusErr.StatusCode)
}

func TestPolicy_GivesUpAfterMaxRetries(t *testing.T) {
	var slept []time.Duration
	p := instantPolicy(&slept)

	calls := 0
	err := p.Do(context.Background(), zap.NewNop(), "stream", func(ctx context.Context) error {
		calls++
		return errors.New("network is unreachable")
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Len(t, slept, 3)
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestPolicy_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Default()
	calls := 0
	err := p.Do(ctx, zap.NewNop(), "stream", func(ctx context.Context) error {
		calls++
		return errors.New("network error")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_WaitHonorsContext(t *testing.T) {
	p := Policy{MaxRetries: 1, BaseDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Wait(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"service unavailable", &StatusError{StatusCode: 503}, true},
		{"rate limited", &StatusError{StatusCode: 429}, true},
		{"unauthorized", &StatusError{StatusCode: 401}, false},
		{"bad request", &StatusError{StatusCode: 400}, false},
		{"wrapped status", fmt.Errorf("stream: %w", &StatusError{StatusCode: 502}), true},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"fetch failure", errors.New("fetch failed"), true},
		{"canceled", context.Canceled, false},
		{"model error", errors.New("model not found"), false},
		{"invalid api key", errors.New("invalid API key"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestPolicy_CustomClassifier(t *testing.T) {
	var slept []time.Duration
	p := instantPolicy(&slept)
	p.Retryable = func(err error) bool { return err.Error() == "again" }

	calls := 0
	_ = p.Do(context.Background(), zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("again")
		}
		return errors.New("stop")
	})

	assert.Equal(t, 2, calls)
}
