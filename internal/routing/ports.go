// Package routing resolves a department for a complaint, creates a work
// order against its endpoint, and escalates to the manual routing queue when
// the mapping is missing or the retry budget is exhausted.
package routing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/internal/departments"
)

// WorkOrderCreator is the department endpoint collaborator contract. The
// engine owns all retry behavior around it.
type WorkOrderCreator interface {
	CreateWorkOrder(ctx context.Context, dept departments.Department, c domain.Complaint) (string, error)
}

// RetryScheduler enqueues the delayed retry chain after a failed inline
// attempt. Implemented by the asynq scheduler client.
type RetryScheduler interface {
	ScheduleRoutingAttempt(ctx context.Context, complaintID uuid.UUID, delay time.Duration) error
}

// ResultStatus is the outcome class of a Route call.
type ResultStatus string

const (
	ResultRouted ResultStatus = "routed"
	ResultQueued ResultStatus = "queued"
	ResultFailed ResultStatus = "failed"
)

// Failure reasons carried on failed results and escalation events.
const (
	ReasonNoMapping        = "NoMapping"
	ReasonRoutingExhausted = "RoutingExhausted"
)

// Result describes what routing did with a complaint.
type Result struct {
	Status      ResultStatus
	Reason      string
	Department  *departments.Department
	WorkOrderID string
}
