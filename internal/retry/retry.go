// Package retry provides exponential backoff with jitter and failure classification
// for calls to the completion service.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

const (
	// DefaultMaxRetries is the default number of retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the base delay for exponential backoff.
	DefaultBaseDelay = 2 * time.Second
	// DefaultMaxDelay caps a single backoff delay.
	DefaultMaxDelay = 60 * time.Second
	// DefaultMaxJitterPercent is the maximum jitter percentage (0-25%).
	DefaultMaxJitterPercent = 25
)

// Policy holds retry configuration.
type Policy struct {
	MaxRetries       int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	MaxJitterPercent int
}

// DefaultPolicy returns a Policy with default values.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:       DefaultMaxRetries,
		BaseDelay:        DefaultBaseDelay,
		MaxDelay:         DefaultMaxDelay,
		MaxJitterPercent: DefaultMaxJitterPercent,
	}
}

// Normalize replaces out-of-range fields with defaults. A zero BaseDelay is kept so tests can run without sleeping.
func (p Policy) Normalize() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxJitterPercent < 0 || p.MaxJitterPercent > 100 {
		p.MaxJitterPercent = DefaultMaxJitterPercent
	}
	return p
}

// Delay returns the backoff before retry number attempt (0-based), capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	d := CalculateDelay(p.BaseDelay, attempt, p.MaxJitterPercent)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// CalculateDelay returns the delay for a given attempt using exponential backoff with jitter.
// Formula: base * 2^attempt + jitter (0-maxJitterPercent% of calculated delay)
func CalculateDelay(base time.Duration, attempt int, maxJitterPercent int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	delay := base * time.Duration(1<<attempt)

	if maxJitterPercent > 0 && delay > 0 {
		jitterRange := float64(delay) * float64(maxJitterPercent) / 100.0
		delay += time.Duration(rand.Float64() * jitterRange)
	}

	return delay
}

// Wait blocks for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

// permanentPatterns contains error message patterns that no amount of retrying will fix.
var permanentPatterns = []string{
	"api key",
	"unauthorized",
	"forbidden",
	"authentication",
	"permission denied",
	"401",
	"403",
	"404",
	"model not found",
}

// transientPatterns contains error message patterns of known transient failures.
var transientPatterns = []string{
	"rate limit",
	"rate_limit",
	"timeout",
	"timed out",
	"deadline exceeded",
	"network",
	"connection refused",
	"connection reset",
	"temporary failure",
	"service unavailable",
	"503",
	"502",
	"500",
	"429",
	"overloaded",
	"too many requests",
	"resource exhausted",
	"eof",
}

// IsPermanent reports whether err can never succeed on retry.
func IsPermanent(err error) bool {
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var p interface{ Permanent() bool }
	if errors.As(err, &p) {
		return p.Permanent()
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range permanentPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is a known transient failure such as a timeout or rate limit.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if IsPermanent(err) {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
