package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func newTestClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()

	srv := miniredis.RunT(t)
	cfg := testSchedulerConfig{redisURL: "redis://" + srv.Addr(), queue: "complaints"}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("expected client to initialize, got %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	t.Cleanup(func() { _ = inspector.Close() })

	return client, inspector
}

func TestScheduleRoutingAttempt_EnqueuesWithRemainingBudget(t *testing.T) {
	client, inspector := newTestClient(t)

	complaintID := uuid.New()
	if err := client.ScheduleRoutingAttempt(context.Background(), complaintID, 5*time.Minute); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}

	tasks, err := inspector.ListScheduledTasks("complaints")
	if err != nil {
		t.Fatalf("expected scheduled task listing, got %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskRoutingAttempt {
		t.Fatalf("expected task type %q, got %q", TaskRoutingAttempt, tasks[0].Type)
	}
	// The inline attempt consumed one of the three routing attempts.
	if tasks[0].MaxRetry != RoutingPolicy().MaxRetry()-1 {
		t.Fatalf("expected MaxRetry %d, got %d", RoutingPolicy().MaxRetry()-1, tasks[0].MaxRetry)
	}

	payload, err := ParseRoutingAttemptPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("expected payload to parse, got %v", err)
	}
	if payload.ComplaintID != complaintID.String() {
		t.Fatalf("expected complaint id %s, got %s", complaintID, payload.ComplaintID)
	}
}

func TestScheduleOutboxDelivery_EnqueuesTransientBudget(t *testing.T) {
	client, inspector := newTestClient(t)

	outboxID := uuid.New()
	if err := client.ScheduleOutboxDelivery(context.Background(), outboxID, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}

	tasks, err := inspector.ListScheduledTasks("complaints")
	if err != nil {
		t.Fatalf("expected scheduled task listing, got %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskNotificationOutboxDue {
		t.Fatalf("expected task type %q, got %q", TaskNotificationOutboxDue, tasks[0].Type)
	}
	if tasks[0].MaxRetry != TransientPolicy().MaxRetry() {
		t.Fatalf("expected MaxRetry %d, got %d", TransientPolicy().MaxRetry(), tasks[0].MaxRetry)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var client *Client
	if err := client.ScheduleRoutingAttempt(context.Background(), uuid.New(), time.Minute); err == nil {
		t.Fatal("expected nil client to report not configured")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("expected nil client Close to be a no-op, got %v", err)
	}
}
