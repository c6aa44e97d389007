// Package retry provides a small retry combinator for operations against
// eventually-consistent remote APIs.
package retry

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultDelays is the standard backoff schedule: six retries followed by
// one final attempt, seven invocations in total.
var DefaultDelays = []time.Duration{
	0,
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
}

// Policy controls how Do schedules attempts. The zero value makes a single
// attempt per delay in Delays plus one final attempt, retries everything,
// and reports nowhere.
type Policy struct {
	// Delays is the backoff schedule. An empty schedule means one attempt
	// with no retries.
	Delays []time.Duration

	// Retryable classifies a failure. When it returns false the failure is
	// returned immediately with no further attempts. Nil retries everything.
	Retryable func(error) bool

	// Report receives progress on every failed attempt and on final
	// exhaustion. Nil discards reports.
	Report func(msg string, fields ...zap.Field)

	// Sleep is the blocking wait between attempts. Nil means time.Sleep.
	Sleep func(time.Duration)
}

// ExhaustedError is returned when every attempt failed. Failures holds each
// attempt's error in order; the last one is the terminal failure.
type ExhaustedError struct {
	Failures []error
}

func (e *ExhaustedError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("all %d attempts failed: [%s]", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap exposes every attempt's error, so errors.Is and errors.As can
// match any of them, including the last.
func (e *ExhaustedError) Unwrap() []error {
	return e.Failures
}

// Last returns the terminal failure.
func (e *ExhaustedError) Last() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1]
}

// Do runs op until it succeeds, a non-retryable failure occurs, or the
// schedule is exhausted. Each delay in p.Delays is slept before the next
// attempt; after the last delay one final attempt is made with no wait.
func Do[T any](op func() (T, error), p Policy) (T, error) {
	var zero T

	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	report := p.Report
	if report == nil {
		report = func(string, ...zap.Field) {}
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = func(error) bool { return true }
	}

	var failures []error
	for attempt := 0; ; attempt++ {
		value, err := op()
		if err == nil {
			return value, nil
		}
		if !retryable(err) {
			return zero, err
		}
		failures = append(failures, err)
		if attempt >= len(p.Delays) {
			terminal := &ExhaustedError{Failures: failures}
			report("retry failed definitely",
				zap.Int("attempts", len(failures)),
				zap.Errors("failures", failures),
			)
			return zero, terminal
		}
		delay := p.Delays[attempt]
		report("retry failed, delaying before next attempt",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		sleep(delay)
	}
}
