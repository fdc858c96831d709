package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
)

func TestFixedIntervalDelayIsConstant(t *testing.T) {
	p := FixedInterval(5*time.Minute, 3)
	for attempt := 1; attempt <= 3; attempt++ {
		if got := p.Delay(attempt); got != 5*time.Minute {
			t.Fatalf("attempt %d: expected 5m delay, got %v", attempt, got)
		}
	}
}

func TestExponentialDelayDoubles(t *testing.T) {
	p := Exponential(1*time.Second, 2, 3)
	cases := map[int]time.Duration{
		1: 1 * time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
	}
	for attempt, want := range cases {
		if got := p.Delay(attempt); got != want {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
}

func TestMaxRetryConvertsAttemptBudget(t *testing.T) {
	if got := RoutingPolicy().MaxRetry(); got != 2 {
		t.Fatalf("expected routing MaxRetry 2 (3 attempts), got %d", got)
	}
	if got := (RetryPolicy{MaxAttempts: 0}).MaxRetry(); got != 0 {
		t.Fatalf("expected MaxRetry 0 for empty budget, got %d", got)
	}
}

func TestRetryDelayFuncSelectsPolicyByTaskType(t *testing.T) {
	routingTask := asynq.NewTask(TaskRoutingAttempt, nil)
	if got := retryDelayFunc(0, errors.New("boom"), routingTask); got != 5*time.Minute {
		t.Fatalf("expected 5m delay for routing task, got %v", got)
	}

	outboxTask := asynq.NewTask(TaskNotificationOutboxDue, nil)
	if got := retryDelayFunc(0, errors.New("boom"), outboxTask); got != 1*time.Second {
		t.Fatalf("expected 1s delay for first outbox retry, got %v", got)
	}
	if got := retryDelayFunc(1, errors.New("boom"), outboxTask); got != 2*time.Second {
		t.Fatalf("expected 2s delay for second outbox retry, got %v", got)
	}
}
