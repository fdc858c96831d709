// Package service is the top-level complaint orchestrator: intake with
// boundary and confidence gating, deduplicated offline replays, routing, and
// administrative lifecycle actions.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/internal/complaints/lifecycle"
	"complaints_portal_backend/internal/complaints/repository"
	"complaints_portal_backend/internal/events"
	"complaints_portal_backend/internal/routing"
	"complaints_portal_backend/platform/apperr"
	"complaints_portal_backend/platform/logger"
	"complaints_portal_backend/platform/metrics"
)

// Router drives department resolution and work-order creation for one
// complaint. Implemented by the routing engine.
type Router interface {
	Route(ctx context.Context, complaintID uuid.UUID) (routing.Result, error)
}

// SubmitParams is the intake contract: a classified, geolocated complaint.
type SubmitParams struct {
	LocalID      string // offline idempotency key, "" for online submissions
	Type         domain.Type
	Confidence   float64
	Alternatives []domain.Alternative
	Latitude     float64
	Longitude    float64
	Address      string
	WithinBounds bool
	PhotoRef     string
	Contact      string
}

// SubmitResult carries the persisted complaint plus what happened to it.
// Duplicate marks an idempotent replay that returned the original complaint.
type SubmitResult struct {
	Complaint domain.Complaint
	Routing   routing.Result
	Duplicate bool
}

// Service orchestrates the complaint lifecycle.
type Service struct {
	repo    repository.ComplaintsRepository
	machine *lifecycle.Machine
	router  Router
	bus     events.Bus
	log     *logger.Logger
}

func NewService(
	repo repository.ComplaintsRepository,
	machine *lifecycle.Machine,
	router Router,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:    repo,
		machine: machine,
		router:  router,
		bus:     bus,
		log:     log,
	}
}

// Submit drives a classified, geolocated complaint through intake and
// routing. Out-of-boundary submissions are rejected before anything is
// persisted. A repeated LocalID inside the dedup window returns the original
// complaint instead of creating a second one.
func (s *Service) Submit(ctx context.Context, p SubmitParams) (SubmitResult, error) {
	if !domain.IsKnownType(p.Type) {
		return SubmitResult{}, apperr.Validation(fmt.Sprintf("unknown complaint type %q", p.Type))
	}

	if !p.WithinBounds {
		metrics.ComplaintRejected("out_of_boundary")
		return SubmitResult{}, apperr.OutOfBoundary("complaint location is outside municipal boundaries")
	}

	classification := domain.Classification{
		Type:                 p.Type,
		Confidence:           p.Confidence,
		Alternatives:         p.Alternatives,
		RequiresManualReview: domain.DeriveManualReview(p.Confidence),
	}

	c, created, err := s.repo.Create(ctx, repository.CreateParams{
		ClientRef:      p.LocalID,
		Type:           p.Type,
		Classification: classification,
		Location: domain.Location{
			Latitude:         p.Latitude,
			Longitude:        p.Longitude,
			Address:          p.Address,
			WithinBoundaries: p.WithinBounds,
		},
		PhotoRef: p.PhotoRef,
		Contact:  p.Contact,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	if !created {
		s.log.Info("duplicate submission resolved to original complaint",
			"complaintId", c.ID, "localId", p.LocalID)
		return SubmitResult{Complaint: c, Duplicate: true}, nil
	}

	metrics.ComplaintSubmitted(string(p.Type))
	s.bus.Publish(ctx, events.ComplaintSubmitted{
		BaseEvent:    events.NewBaseEvent(),
		ComplaintID:  c.ID,
		Type:         string(c.Type),
		Confidence:   classification.Confidence,
		ManualReview: classification.RequiresManualReview,
		Contact:      c.Contact,
	})

	result, err := s.router.Route(ctx, c.ID)
	if err != nil {
		// The complaint is persisted and queryable in Submitted; routing can
		// be re-driven manually. Submission itself did not fail.
		s.log.Error("routing failed after intake", "complaintId", c.ID, "error", err)
	}

	current, err := s.repo.GetByID(ctx, c.ID)
	if err != nil {
		return SubmitResult{}, err
	}

	return SubmitResult{Complaint: current, Routing: result}, nil
}

// Reclassify replaces the complaint type and re-runs routing against the new
// type. The review flag is about classifier confidence, not type
// correctness, so it is carried over unchanged. Any existing work order is
// recorded as superseded in history metadata, never deleted.
func (s *Service) Reclassify(ctx context.Context, id uuid.UUID, newType domain.Type) (domain.Complaint, error) {
	if !domain.IsKnownType(newType) {
		return domain.Complaint{}, apperr.Validation(fmt.Sprintf("unknown complaint type %q", newType))
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Complaint{}, err
	}

	if domain.IsTerminal(c.Status) {
		return domain.Complaint{}, apperr.InvalidTransition(
			fmt.Sprintf("complaint %s is %s and cannot be reclassified", id, c.Status))
	}

	oldType := c.Type

	// Park the complaint in the manual routing queue before touching the
	// classification, recording the superseded work order on the transition.
	if c.Status != domain.StatusPendingManualRouting {
		metadata := map[string]string{
			domain.MetaPreviousType: string(oldType),
		}
		if c.HasRoute() {
			metadata[domain.MetaSupersededWorkOrder] = c.Routing.WorkOrderID
		}
		if _, err := s.machine.Transition(ctx, id, domain.StatusPendingManualRouting, metadata); err != nil {
			return domain.Complaint{}, err
		}
	}

	newClassification := c.Classification
	newClassification.Type = newType
	if err := s.repo.ReplaceClassification(ctx, id, newClassification); err != nil {
		return domain.Complaint{}, err
	}

	superseded := ""
	if c.HasRoute() {
		superseded = c.Routing.WorkOrderID
	}
	s.bus.Publish(ctx, events.ComplaintReclassified{
		BaseEvent:           events.NewBaseEvent(),
		ComplaintID:         id,
		OldType:             string(oldType),
		NewType:             string(newType),
		SupersededWorkOrder: superseded,
	})

	if _, err := s.router.Route(ctx, id); err != nil {
		s.log.Error("re-routing failed after reclassification", "complaintId", id, "error", err)
	}

	return s.repo.GetByID(ctx, id)
}

// UpdateStatus applies an administrative transition (InProgress, Resolved,
// Rejected) through the lifecycle machine.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target domain.Status, reason string) (domain.Complaint, error) {
	if !domain.IsKnownStatus(target) {
		return domain.Complaint{}, apperr.Validation(fmt.Sprintf("unknown status %q", target))
	}

	var metadata map[string]string
	if reason != "" {
		metadata = map[string]string{domain.MetaReason: reason}
	}

	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Complaint{}, err
	}

	updated, err := s.machine.Transition(ctx, id, target, metadata)
	if err != nil {
		return domain.Complaint{}, err
	}

	s.bus.Publish(ctx, events.ComplaintStatusChanged{
		BaseEvent:   events.NewBaseEvent(),
		ComplaintID: id,
		OldStatus:   string(before.Status),
		NewStatus:   string(target),
		Contact:     updated.Contact,
	})

	if target == domain.StatusResolved {
		s.bus.Publish(ctx, events.ComplaintResolved{
			BaseEvent:   events.NewBaseEvent(),
			ComplaintID: id,
			Contact:     updated.Contact,
		})
	}

	return updated, nil
}

// Get returns one complaint with its full history.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Complaint, error) {
	return s.repo.GetByID(ctx, id)
}

// List runs the conjunctive dashboard query.
func (s *Service) List(ctx context.Context, f repository.Filter) ([]domain.Complaint, error) {
	return s.repo.List(ctx, f)
}
