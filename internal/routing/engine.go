package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/internal/complaints/lifecycle"
	"complaints_portal_backend/internal/complaints/repository"
	"complaints_portal_backend/internal/departments"
	"complaints_portal_backend/internal/events"
	"complaints_portal_backend/internal/scheduler"
	"complaints_portal_backend/platform/logger"
	"complaints_portal_backend/platform/metrics"
)

const (
	attemptOutcomeSuccess = "success"
	attemptOutcomeFailure = "failure"
)

// Engine drives a complaint through department resolution and work-order
// creation. The first attempt runs inline; failures hand the remaining
// attempt budget to the retry scheduler. A complaint is never dropped: every
// path ends in Assigned or PendingManualRouting with full history.
type Engine struct {
	registry   *departments.Registry
	repo       repository.ComplaintsRepository
	machine    *lifecycle.Machine
	workOrders WorkOrderCreator
	retries    RetryScheduler
	bus        events.Bus
	log        *logger.Logger

	policy         scheduler.RetryPolicy
	attemptTimeout time.Duration
}

// NewEngine creates the routing engine with the fixed-interval routing policy.
func NewEngine(
	registry *departments.Registry,
	repo repository.ComplaintsRepository,
	machine *lifecycle.Machine,
	workOrders WorkOrderCreator,
	retries RetryScheduler,
	bus events.Bus,
	attemptTimeout time.Duration,
	log *logger.Logger,
) *Engine {
	return &Engine{
		registry:       registry,
		repo:           repo,
		machine:        machine,
		workOrders:     workOrders,
		retries:        retries,
		bus:            bus,
		log:            log,
		policy:         scheduler.RoutingPolicy(),
		attemptTimeout: attemptTimeout,
	}
}

// Route resolves and attempts work-order creation for the complaint.
// No mapping fails immediately; a failed inline attempt schedules the retry
// chain and reports queued. Status transitions happen through the lifecycle
// machine only.
func (e *Engine) Route(ctx context.Context, complaintID uuid.UUID) (Result, error) {
	c, err := e.repo.GetByID(ctx, complaintID)
	if err != nil {
		return Result{}, err
	}

	depts := e.registry.Resolve(c.Type)
	if len(depts) == 0 {
		if err := e.escalate(ctx, c, ReasonNoMapping, fmt.Sprintf("no department configured for type %s", c.Type)); err != nil {
			return Result{}, err
		}
		return Result{Status: ResultFailed, Reason: ReasonNoMapping}, nil
	}

	primary := depts[0]
	workOrderID, attemptErr := e.attempt(ctx, c, primary, 1)
	if attemptErr == nil {
		if err := e.assign(ctx, c, primary, workOrderID); err != nil {
			return Result{}, err
		}
		return Result{Status: ResultRouted, Department: &primary, WorkOrderID: workOrderID}, nil
	}

	if err := e.retries.ScheduleRoutingAttempt(ctx, c.ID, e.policy.Delay(1)); err != nil {
		// The retry chain could not be enqueued. Escalating immediately is
		// the only way to keep the complaint observable.
		e.log.Error("failed to schedule routing retry", "complaintId", c.ID, "error", err)
		if escErr := e.escalate(ctx, c, ReasonRoutingExhausted, "retry scheduling unavailable"); escErr != nil {
			return Result{}, escErr
		}
		return Result{Status: ResultFailed, Reason: ReasonRoutingExhausted}, nil
	}

	return Result{Status: ResultQueued, Department: &primary}, nil
}

// RunScheduledAttempt executes one delayed attempt from the retry chain.
// attempt is the overall attempt number (the inline attempt was 1). When
// final is set and the attempt fails, the engine escalates instead of
// returning an error, so exhaustion is reported exactly once.
func (e *Engine) RunScheduledAttempt(ctx context.Context, complaintID uuid.UUID, attempt int, final bool) error {
	c, err := e.repo.GetByID(ctx, complaintID)
	if err != nil {
		return err
	}

	// A transition may have raced the retry chain: manual assignment,
	// administrative rejection. Only complaints still waiting for a route
	// are attempted.
	if c.Status != domain.StatusSubmitted && c.Status != domain.StatusPendingManualRouting {
		e.log.Info("skipping scheduled routing attempt, complaint no longer routable",
			"complaintId", c.ID, "status", string(c.Status))
		return nil
	}

	depts := e.registry.Resolve(c.Type)
	if len(depts) == 0 {
		return e.escalate(ctx, c, ReasonNoMapping, fmt.Sprintf("no department configured for type %s", c.Type))
	}

	primary := depts[0]
	workOrderID, attemptErr := e.attempt(ctx, c, primary, attempt)
	if attemptErr == nil {
		return e.assign(ctx, c, primary, workOrderID)
	}

	if final {
		metrics.RoutingExhausted()
		return e.escalate(ctx, c, ReasonRoutingExhausted,
			fmt.Sprintf("work-order creation failed after %d attempts", e.policy.MaxAttempts))
	}

	return attemptErr
}

// attempt performs one work-order creation call with the per-attempt timeout
// and records the audit row. A timed-out attempt consumes budget like any
// other failure.
func (e *Engine) attempt(ctx context.Context, c domain.Complaint, dept departments.Department, attempt int) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()

	scheduledAt := time.Now().UTC()
	workOrderID, err := e.workOrders.CreateWorkOrder(attemptCtx, dept, c)

	outcome := attemptOutcomeSuccess
	detail := ""
	if err != nil {
		outcome = attemptOutcomeFailure
		detail = err.Error()
	}

	e.log.RoutingAttempt(c.ID.String(), dept.ID.String(), attempt, outcome)
	metrics.RoutingAttempt(outcome)

	if recErr := e.repo.RecordRoutingAttempt(ctx, repository.RoutingAttemptRecord{
		ComplaintID:  c.ID,
		DepartmentID: dept.ID,
		Attempt:      attempt,
		ScheduledAt:  scheduledAt,
		Outcome:      outcome,
		Detail:       detail,
	}); recErr != nil {
		e.log.Error("failed to record routing attempt", "complaintId", c.ID, "error", recErr)
	}

	return workOrderID, err
}

// assign populates routing and transitions the complaint to Assigned.
func (e *Engine) assign(ctx context.Context, c domain.Complaint, dept departments.Department, workOrderID string) error {
	if err := e.repo.SetRouting(ctx, c.ID, domain.Routing{
		DepartmentID: dept.ID,
		WorkOrderID:  workOrderID,
		RoutedAt:     time.Now().UTC(),
	}); err != nil {
		return err
	}

	updated, err := e.machine.Transition(ctx, c.ID, domain.StatusAssigned, map[string]string{
		domain.MetaDepartmentID: dept.ID.String(),
	})
	if err != nil {
		return err
	}

	e.bus.Publish(ctx, events.ComplaintAssigned{
		BaseEvent:    events.NewBaseEvent(),
		ComplaintID:  updated.ID,
		DepartmentID: dept.ID,
		WorkOrderID:  workOrderID,
		Contact:      updated.Contact,
	})
	return nil
}

// escalate moves the complaint into the manual routing queue and raises the
// administrator alert. A complaint already pending manual routing (the
// reclassification path parks it there first) only gets the alert.
func (e *Engine) escalate(ctx context.Context, c domain.Complaint, reason, detail string) error {
	// The alert carries the audited attempt count so the administrator sees
	// how much of the retry budget was spent before escalation.
	if n, err := e.repo.CountRoutingAttempts(ctx, c.ID); err == nil && n > 0 {
		detail = fmt.Sprintf("%s; %d recorded attempts", detail, n)
	}

	if c.Status != domain.StatusPendingManualRouting {
		if _, err := e.machine.Transition(ctx, c.ID, domain.StatusPendingManualRouting, map[string]string{
			domain.MetaReason: reason,
		}); err != nil {
			return err
		}
	}

	e.bus.Publish(ctx, events.ComplaintPendingManualRouting{
		BaseEvent:   events.NewBaseEvent(),
		ComplaintID: c.ID,
		Reason:      reason,
		Contact:     c.Contact,
	})
	e.bus.Publish(ctx, events.AdminRoutingAlert{
		BaseEvent:   events.NewBaseEvent(),
		ComplaintID: c.ID,
		Reason:      reason,
		Detail:      detail,
	})
	return nil
}
