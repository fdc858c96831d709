// Package notification turns complaint lifecycle events into citizen and
// administrator emails. Delivery goes through the persistent outbox: the
// event handler only inserts a row and enqueues it, so a slow or failing
// SMTP server never blocks the lifecycle itself.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/departments"
	"complaints_portal_backend/internal/email"
	"complaints_portal_backend/internal/events"
	"complaints_portal_backend/internal/notification/outbox"
	"complaints_portal_backend/platform/config"
	"complaints_portal_backend/platform/logger"
	"complaints_portal_backend/platform/metrics"
)

const (
	templateComplaintReceived  = "complaint_received"
	templateComplaintAssigned  = "complaint_assigned"
	templateComplaintResolved  = "complaint_resolved"
	templateComplaintRejected  = "complaint_rejected"
	templateComplaintInReview  = "complaint_in_review"
	templateManualRoutingAlert = "manual_routing_alert"

	kindEmail = "email"
)

// OutboxScheduler enqueues delayed delivery of an outbox row. Implemented by
// the asynq scheduler client.
type OutboxScheduler interface {
	ScheduleOutboxDelivery(ctx context.Context, outboxID uuid.UUID, runAt time.Time) error
}

// DepartmentReader resolves department names for assignment emails.
type DepartmentReader interface {
	Get(id uuid.UUID) (departments.Department, bool)
}

type emailOutboxPayload struct {
	ToEmail        string `json:"toEmail"`
	ComplaintRef   string `json:"complaintRef"`
	ComplaintType  string `json:"complaintType,omitempty"`
	DepartmentName string `json:"departmentName,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Detail         string `json:"detail,omitempty"`
}

// Module subscribes to lifecycle events and owns outbox delivery.
type Module struct {
	sender      email.Sender
	outbox      *outbox.Repository
	scheduler   OutboxScheduler
	departments DepartmentReader
	cfg         config.EmailConfig
	log         *logger.Logger
}

func New(sender email.Sender, repo *outbox.Repository, cfg config.EmailConfig, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		outbox: repo,
		cfg:    cfg,
		log:    log,
	}
}

func (m *Module) Name() string { return "notification" }

// SetScheduler injects the delayed delivery scheduler.
func (m *Module) SetScheduler(s OutboxScheduler) { m.scheduler = s }

// SetDepartmentReader injects the department registry lookup.
func (m *Module) SetDepartmentReader(r DepartmentReader) { m.departments = r }

// RegisterHandlers subscribes to all lifecycle events that produce email.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.ComplaintSubmitted{}.EventName(), m)
	bus.Subscribe(events.ComplaintAssigned{}.EventName(), m)
	bus.Subscribe(events.ComplaintResolved{}.EventName(), m)
	bus.Subscribe(events.ComplaintPendingManualRouting{}.EventName(), m)
	bus.Subscribe(events.ComplaintStatusChanged{}.EventName(), m)
	bus.Subscribe(events.AdminRoutingAlert{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ComplaintSubmitted:
		return m.handleComplaintSubmitted(ctx, e)
	case events.ComplaintAssigned:
		return m.handleComplaintAssigned(ctx, e)
	case events.ComplaintResolved:
		return m.handleComplaintResolved(ctx, e)
	case events.ComplaintPendingManualRouting:
		return m.handleComplaintPendingManualRouting(ctx, e)
	case events.ComplaintStatusChanged:
		return m.handleStatusChanged(ctx, e)
	case events.AdminRoutingAlert:
		return m.handleAdminRoutingAlert(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleComplaintSubmitted(ctx context.Context, e events.ComplaintSubmitted) error {
	if strings.TrimSpace(e.Contact) == "" {
		return nil
	}
	return m.enqueue(ctx, templateComplaintReceived, emailOutboxPayload{
		ToEmail:       e.Contact,
		ComplaintRef:  e.ComplaintID.String(),
		ComplaintType: e.Type,
	})
}

func (m *Module) handleComplaintAssigned(ctx context.Context, e events.ComplaintAssigned) error {
	if strings.TrimSpace(e.Contact) == "" {
		return nil
	}

	deptName := ""
	if m.departments != nil {
		if d, ok := m.departments.Get(e.DepartmentID); ok {
			deptName = d.Name
		}
	}

	return m.enqueue(ctx, templateComplaintAssigned, emailOutboxPayload{
		ToEmail:        e.Contact,
		ComplaintRef:   e.ComplaintID.String(),
		DepartmentName: deptName,
	})
}

func (m *Module) handleComplaintResolved(ctx context.Context, e events.ComplaintResolved) error {
	if strings.TrimSpace(e.Contact) == "" {
		return nil
	}
	return m.enqueue(ctx, templateComplaintResolved, emailOutboxPayload{
		ToEmail:      e.Contact,
		ComplaintRef: e.ComplaintID.String(),
	})
}

// handleComplaintPendingManualRouting tells the citizen their complaint is
// queued for manual review. The administrator alert travels separately.
func (m *Module) handleComplaintPendingManualRouting(ctx context.Context, e events.ComplaintPendingManualRouting) error {
	if strings.TrimSpace(e.Contact) == "" {
		return nil
	}
	return m.enqueue(ctx, templateComplaintInReview, emailOutboxPayload{
		ToEmail:      e.Contact,
		ComplaintRef: e.ComplaintID.String(),
	})
}

// handleStatusChanged only cares about administrative rejection. Resolution
// and assignment have their own events.
func (m *Module) handleStatusChanged(ctx context.Context, e events.ComplaintStatusChanged) error {
	if e.NewStatus != "Rejected" || strings.TrimSpace(e.Contact) == "" {
		return nil
	}
	return m.enqueue(ctx, templateComplaintRejected, emailOutboxPayload{
		ToEmail:      e.Contact,
		ComplaintRef: e.ComplaintID.String(),
	})
}

func (m *Module) handleAdminRoutingAlert(ctx context.Context, e events.AdminRoutingAlert) error {
	adminEmail := strings.TrimSpace(m.cfg.GetAdminAlertEmail())
	if adminEmail == "" {
		m.log.Warn("admin alert email not configured, routing alert not mailed",
			"complaintId", e.ComplaintID, "reason", e.Reason)
		return nil
	}
	return m.enqueue(ctx, templateManualRoutingAlert, emailOutboxPayload{
		ToEmail:      adminEmail,
		ComplaintRef: e.ComplaintID.String(),
		Reason:       e.Reason,
		Detail:       e.Detail,
	})
}

// enqueue persists the outbox row and hands it to the scheduler. A failed
// enqueue leaves the row pending for the dispatcher sweep.
func (m *Module) enqueue(ctx context.Context, template string, payload emailOutboxPayload) error {
	runAt := time.Now().UTC()
	id, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Kind:     kindEmail,
		Template: template,
		Payload:  payload,
		RunAt:    runAt,
	})
	if err != nil {
		return err
	}

	if m.scheduler == nil {
		return nil
	}

	if err := m.scheduler.ScheduleOutboxDelivery(ctx, id, runAt); err != nil {
		m.log.Error("failed to schedule outbox delivery, row stays pending",
			"outboxId", id, "template", template, "error", err)
		return nil
	}

	if err := m.outbox.MarkEnqueued(ctx, id); err != nil {
		m.log.Error("failed to mark outbox row enqueued", "outboxId", id, "error", err)
	}
	m.log.Info("outbox message enqueued", "outboxId", id, "template", template)
	return nil
}

// DeliverOutbox renders and sends one due outbox row. Called by the
// scheduler worker; final marks the last transient retry, after which the
// row is failed permanently.
func (m *Module) DeliverOutbox(ctx context.Context, outboxID uuid.UUID, final bool) error {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return err
	}

	if rec.Status == outbox.StatusSucceeded {
		return nil
	}

	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	sendErr := m.deliver(ctx, rec)
	if sendErr == nil {
		metrics.OutboxDelivery(rec.Kind, "success")
		return m.outbox.MarkSucceeded(ctx, rec.ID)
	}

	metrics.OutboxDelivery(rec.Kind, "failure")
	if final {
		m.log.Error("outbox delivery failed permanently",
			"outboxId", rec.ID, "template", rec.Template, "error", sendErr)
		if markErr := m.outbox.MarkFailed(ctx, rec.ID, sendErr.Error()); markErr != nil {
			return markErr
		}
		return nil
	}

	return sendErr
}

func (m *Module) deliver(ctx context.Context, rec outbox.Record) error {
	var p emailOutboxPayload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	switch rec.Template {
	case templateComplaintReceived:
		return m.sender.SendComplaintReceivedEmail(ctx, p.ToEmail, p.ComplaintRef, p.ComplaintType)
	case templateComplaintAssigned:
		return m.sender.SendComplaintAssignedEmail(ctx, p.ToEmail, p.ComplaintRef, p.DepartmentName)
	case templateComplaintResolved:
		return m.sender.SendComplaintResolvedEmail(ctx, p.ToEmail, p.ComplaintRef)
	case templateComplaintRejected:
		return m.sender.SendComplaintRejectedEmail(ctx, p.ToEmail, p.ComplaintRef, p.Reason)
	case templateComplaintInReview:
		return m.sender.SendComplaintInReviewEmail(ctx, p.ToEmail, p.ComplaintRef)
	case templateManualRoutingAlert:
		return m.sender.SendManualRoutingAlertEmail(ctx, p.ToEmail, p.ComplaintRef, p.Reason, p.Detail)
	default:
		return fmt.Errorf("unknown outbox template %q", rec.Template)
	}
}

// Dispatcher sweeps pending rows whose direct enqueue failed and re-hands
// them to the scheduler. Runs in the worker process.
type Dispatcher struct {
	outbox    *outbox.Repository
	scheduler OutboxScheduler
	interval  time.Duration
	log       *logger.Logger
}

func NewDispatcher(repo *outbox.Repository, scheduler OutboxScheduler, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		outbox:    repo,
		scheduler: scheduler,
		interval:  time.Minute,
		log:       log,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

func (d *Dispatcher) sweep(ctx context.Context) {
	records, err := d.outbox.ClaimPending(ctx, 50)
	if err != nil {
		d.log.Error("outbox sweep failed", "error", err)
		return
	}

	for _, rec := range records {
		if err := d.scheduler.ScheduleOutboxDelivery(ctx, rec.ID, rec.RunAt); err != nil {
			d.log.Error("failed to re-enqueue outbox row", "outboxId", rec.ID, "error", err)
			reason := err.Error()
			_ = d.outbox.MarkPending(ctx, rec.ID, &reason)
		}
	}

	if len(records) > 0 {
		d.log.Info("outbox sweep re-enqueued rows", "count", len(records))
	}
}
