package scheduler

import (
	"time"

	"github.com/hibiken/asynq"
)

// DelayStrategy computes the delay before the next attempt. attempt is the
// number of attempts already made (1 after the first failure).
type DelayStrategy interface {
	Delay(attempt int) time.Duration
}

// RetryPolicy bounds an operation's attempts and spaces them out. The
// scheduler never issues more than MaxAttempts executions per operation
// instance, attempts never overlap, and exhaustion is reported exactly once.
type RetryPolicy struct {
	MaxAttempts int
	Strategy    DelayStrategy
}

// Delay returns the wait before attempt+1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.Strategy.Delay(attempt)
}

// MaxRetry converts MaxAttempts into the asynq retry budget (initial run
// plus MaxAttempts-1 retries).
func (p RetryPolicy) MaxRetry() int {
	if p.MaxAttempts < 1 {
		return 0
	}
	return p.MaxAttempts - 1
}

type fixedInterval struct {
	interval time.Duration
}

func (f fixedInterval) Delay(int) time.Duration { return f.interval }

type exponential struct {
	base   time.Duration
	factor int
}

func (e exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := e.base
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(e.factor)
	}
	return delay
}

// FixedInterval creates a policy with a constant delay between attempts.
func FixedInterval(interval time.Duration, maxAttempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: maxAttempts, Strategy: fixedInterval{interval: interval}}
}

// Exponential creates a policy whose delay doubles (or multiplies by factor)
// after each failed attempt.
func Exponential(base time.Duration, factor, maxAttempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: maxAttempts, Strategy: exponential{base: base, factor: factor}}
}

// RoutingPolicy is the retry policy for work-order creation. Department
// outages are not transient-network-scale, so attempts are spaced by a fixed
// five minutes rather than backed off exponentially.
func RoutingPolicy() RetryPolicy {
	return FixedInterval(5*time.Minute, 3)
}

// TransientPolicy is the retry policy for transient network operations such
// as notification delivery and persistence writes.
func TransientPolicy() RetryPolicy {
	return Exponential(1*time.Second, 2, 3)
}

// retryDelayFunc maps each task type to its policy's delay curve.
// n is the number of times the task has been retried so far.
func retryDelayFunc(n int, _ error, task *asynq.Task) time.Duration {
	switch task.Type() {
	case TaskRoutingAttempt:
		return RoutingPolicy().Delay(n + 1)
	case TaskNotificationOutboxDue:
		return TransientPolicy().Delay(n + 1)
	default:
		return asynq.DefaultRetryDelayFunc(n, nil, task)
	}
}
