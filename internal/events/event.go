// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"complaints_portal_backend/platform/events"
	"complaints_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Complaint Lifecycle Events
// =============================================================================

// ComplaintSubmitted is published when a complaint is accepted at intake.
type ComplaintSubmitted struct {
	BaseEvent
	ComplaintID  uuid.UUID `json:"complaintId"`
	Type         string    `json:"type"`
	Confidence   float64   `json:"confidence"`
	ManualReview bool      `json:"manualReview"`
	Contact      string    `json:"contact,omitempty"`
}

func (e ComplaintSubmitted) EventName() string { return "complaints.submitted" }

// ComplaintAssigned is published when routing succeeds and a work order exists.
type ComplaintAssigned struct {
	BaseEvent
	ComplaintID  uuid.UUID `json:"complaintId"`
	DepartmentID uuid.UUID `json:"departmentId"`
	WorkOrderID  string    `json:"workOrderId"`
	Contact      string    `json:"contact,omitempty"`
}

func (e ComplaintAssigned) EventName() string { return "complaints.assigned" }

// ComplaintPendingManualRouting is published when a complaint escalates to the
// manual routing queue (no mapping or retry exhaustion).
type ComplaintPendingManualRouting struct {
	BaseEvent
	ComplaintID uuid.UUID `json:"complaintId"`
	Reason      string    `json:"reason"` // NoMapping | RoutingExhausted
	Contact     string    `json:"contact,omitempty"`
}

func (e ComplaintPendingManualRouting) EventName() string {
	return "complaints.pending_manual_routing"
}

// ComplaintStatusChanged is published for every accepted status transition.
type ComplaintStatusChanged struct {
	BaseEvent
	ComplaintID uuid.UUID `json:"complaintId"`
	OldStatus   string    `json:"oldStatus"`
	NewStatus   string    `json:"newStatus"`
	Contact     string    `json:"contact,omitempty"`
}

func (e ComplaintStatusChanged) EventName() string { return "complaints.status_changed" }

// ComplaintResolved is published when a complaint reaches the Resolved state.
type ComplaintResolved struct {
	BaseEvent
	ComplaintID uuid.UUID `json:"complaintId"`
	Contact     string    `json:"contact,omitempty"`
}

func (e ComplaintResolved) EventName() string { return "complaints.resolved" }

// ComplaintReclassified is published when an administrator changes the
// complaint type and routing is re-run.
type ComplaintReclassified struct {
	BaseEvent
	ComplaintID         uuid.UUID `json:"complaintId"`
	OldType             string    `json:"oldType"`
	NewType             string    `json:"newType"`
	SupersededWorkOrder string    `json:"supersededWorkOrder,omitempty"`
}

func (e ComplaintReclassified) EventName() string { return "complaints.reclassified" }

// AdminRoutingAlert is published exactly once per escalation so operators can
// pick the complaint up from the manual routing queue.
type AdminRoutingAlert struct {
	BaseEvent
	ComplaintID uuid.UUID `json:"complaintId"`
	Reason      string    `json:"reason"`
	Detail      string    `json:"detail,omitempty"`
}

func (e AdminRoutingAlert) EventName() string { return "complaints.admin_routing_alert" }

// NotificationOutboxDue is published by the scheduler when an outbox row is
// due for delivery.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
