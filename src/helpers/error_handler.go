package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oi-signal-engine/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

// ErrorKind drives how the engine loop reacts to a failed cycle.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindDataGap
	KindPersistence
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindDataGap:
		return "data_gap"
	case KindPersistence:
		return "persistence"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

type EngineError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches another *EngineError of the same kind, so sentinels work with errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrTransient     = &EngineError{Kind: KindTransient}
	ErrDataGap       = &EngineError{Kind: KindDataGap}
	ErrPersistence   = &EngineError{Kind: KindPersistence}
	ErrConfiguration = &EngineError{Kind: KindConfiguration}
)

func NewTransientError(msg string, cause error) error {
	return &EngineError{Kind: KindTransient, Message: msg, Cause: cause}
}

func NewDataGapError(msg string, cause error) error {
	return &EngineError{Kind: KindDataGap, Message: msg, Cause: cause}
}

func NewPersistenceError(msg string, cause error) error {
	return &EngineError{Kind: KindPersistence, Message: msg, Cause: cause}
}

func NewConfigurationError(msg string, cause error) error {
	return &EngineError{Kind: KindConfiguration, Message: msg, Cause: cause}
}

// WrapDependency annotates a collaborator failure. A cause that already
// carries a kind keeps it; anything else counts as transient.
func WrapDependency(msg string, cause error) error {
	return &EngineError{Kind: Classify(cause), Message: msg, Cause: cause}
}

// -----------------------------------------------------------------------------

// Classify returns the kind of err. Unknown errors count as transient.
func Classify(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindTransient
}

// -----------------------------------------------------------------------------
// Backoff policy
// -----------------------------------------------------------------------------

type BackoffPolicy struct {
	Transient     time.Duration
	Configuration time.Duration
}

// For returns how long the loop should idle after a cycle failed with kind.
func (p BackoffPolicy) For(kind ErrorKind) time.Duration {
	if kind == KindConfiguration && p.Configuration > 0 {
		return p.Configuration
	}
	return p.Transient
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts fn up to maxRetries times, doubling baseDelay between attempts.
func RetryWithBackoff(ctx context.Context, log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// -----------------------------------------------------------------------------

// WithTimeout bounds a dependency call. A non-positive d leaves ctx as is.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
