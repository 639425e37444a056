package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Policy retries transient failures with exponential backoff
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Retryable classifies an error; nil means IsTransient
	Retryable func(error) bool
	// Sleep waits between attempts; nil means a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default returns the policy used by the remote clients: three retries,
// starting at one second and doubling
func Default() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

// Delay returns the wait before retry n (1-based)
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(1<<uint(n-1))
}

// ShouldRetry reports whether err after retry n (0 for the first attempt)
// warrants another attempt
func (p Policy) ShouldRetry(ctx context.Context, err error, n int) bool {
	if err == nil || n >= p.MaxRetries || ctx.Err() != nil {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsTransient(err)
}

// Wait blocks for the backoff before retry n
func (p Policy) Wait(ctx context.Context, n int) error {
	d := p.Delay(n)
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// retries run out
func (p Policy) Do(ctx context.Context, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	startTime := time.Now()

	for n := 0; ; n++ {
		if n > 0 {
			logger.Info("retrying request",
				zap.String("operation", op),
				zap.Int("attempt", n+1),
				zap.Duration("delay", p.Delay(n)),
			)
			if err := p.Wait(ctx, n); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if err == nil {
			logger.Debug("request completed",
				zap.String("operation", op),
				zap.Int("attempts", n+1),
				zap.Duration("processing_time", time.Since(startTime)),
			)
			return nil
		}

		if !p.ShouldRetry(ctx, err, n) {
			logger.Error("request failed",
				zap.String("operation", op),
				zap.Error(err),
				zap.Int("attempts", n+1),
				zap.Duration("total_time", time.Since(startTime)),
			)
			if n > 0 {
				return fmt.Errorf("%s failed after %d attempts: %w", op, n+1, err)
			}
			return err
		}

		logger.Warn("request failed, will retry",
			zap.String("operation", op),
			zap.Error(err),
			zap.Int("attempt", n+1),
		)
	}
}

// StatusError carries an HTTP status from a remote service
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// TransientStatus reports whether an HTTP status is worth retrying
func TransientStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// IsTransient classifies network failures and service-unavailable
// responses as retryable. Authorization and invalid-request errors are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return TransientStatus(statusErr.StatusCode)
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"unauthorized", "authentication", "permission", "invalid", "bad request", "not found"} {
		if strings.Contains(msg, s) {
			return false
		}
	}
	for _, s := range []string{"network", "fetch", "unavailable", "503", "timeout", "connection reset", "connection refused", "eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
