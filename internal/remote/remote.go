// Package remote holds the retry policy shared by the segmentation and
// openpose clients.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"
)

var (
	// ErrUnavailable means the service could not be reached or answered
	// with a server error.
	ErrUnavailable = errors.New("remote service unavailable")
	// ErrTimeout means the per-request timeout elapsed.
	ErrTimeout = errors.New("remote request timed out")
)

// DefaultAttempts bounds the retry loop.
const DefaultAttempts = 3

// Classify maps transport errors onto the two recoverable kinds.
// Anything else passes through untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// Retryable reports whether the error is one of the recoverable kinds.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}

// Do runs op with bounded exponential backoff. Only recoverable errors
// are retried; on exhaustion the last error is returned and becomes
// fatal for the job.
func Do(ctx context.Context, name string, attempts int, op func(context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var err error
	backoff := 500 * time.Millisecond
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil || !Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		slog.Warn("remote call failed (retrying...)", "call", name, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%s: %w (after %d attempts)", name, err, attempts)
}
