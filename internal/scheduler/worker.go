package scheduler

import (
	"context"
	"fmt"

	"complaints_portal_backend/platform/config"
	"complaints_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// RoutingProcessor executes one scheduled routing attempt. final marks the
// last attempt of the policy budget; the processor escalates instead of
// erroring so exhaustion is observed exactly once.
type RoutingProcessor interface {
	RunScheduledAttempt(ctx context.Context, complaintID uuid.UUID, attempt int, final bool) error
}

// OutboxProcessor delivers one due notification outbox record.
type OutboxProcessor interface {
	DeliverOutbox(ctx context.Context, outboxID uuid.UUID, final bool) error
}

// Worker runs the asynq server handling delayed routing attempts and outbox
// deliveries. Attempts for a single task instance never overlap; asynq
// observes each outcome before scheduling the next per retryDelayFunc.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	routing RoutingProcessor
	outbox  OutboxProcessor
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, log *logger.Logger) (*Worker, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		RetryDelayFunc: retryDelayFunc,
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		log:    log,
	}

	mux.HandleFunc(TaskRoutingAttempt, w.handleRoutingAttempt)
	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)

	return w, nil
}

// SetRoutingProcessor wires the routing engine. Must be called before Run.
func (w *Worker) SetRoutingProcessor(p RoutingProcessor) {
	w.routing = p
}

// SetOutboxProcessor wires the notification delivery service.
func (w *Worker) SetOutboxProcessor(p OutboxProcessor) {
	w.outbox = p
}

func (w *Worker) handleRoutingAttempt(ctx context.Context, task *asynq.Task) error {
	if w.routing == nil {
		return fmt.Errorf("routing processor not configured")
	}

	payload, err := ParseRoutingAttemptPayload(task)
	if err != nil {
		return err
	}

	complaintID, err := uuid.Parse(payload.ComplaintID)
	if err != nil {
		return err
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	// The inline attempt consumed attempt 1; the first queued run is 2.
	attempt := retried + 2
	final := retried >= maxRetry

	return w.routing.RunScheduledAttempt(ctx, complaintID, attempt, final)
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.outbox == nil {
		return fmt.Errorf("outbox processor not configured")
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	return w.outbox.DeliverOutbox(ctx, outboxID, retried >= maxRetry)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
