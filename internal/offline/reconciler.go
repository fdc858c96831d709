// Package offline replays locally queued draft complaints against the
// submission pipeline in strict creation order. The client owns draft
// storage; this side only reports per-draft outcomes.
package offline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/internal/complaints/service"
	"complaints_portal_backend/platform/apperr"
	"complaints_portal_backend/platform/logger"
)

// SyncState is the terminal per-draft outcome of a reconciliation pass.
type SyncState string

const (
	SyncStateSynced SyncState = "synced"
	SyncStateFailed SyncState = "failed"
)

// DraftPayload mirrors a not-yet-submitted complaint.
type DraftPayload struct {
	Type         domain.Type          `json:"type"`
	Confidence   float64              `json:"confidence"`
	Alternatives []domain.Alternative `json:"alternatives,omitempty"`
	Latitude     float64              `json:"latitude"`
	Longitude    float64              `json:"longitude"`
	Address      string               `json:"address"`
	WithinBounds bool                 `json:"withinBoundaries"`
	PhotoRef     string               `json:"photoRef,omitempty"`
	Contact      string               `json:"contact,omitempty"`
}

// Draft is one locally queued complaint. LocalID is the client-stable
// idempotency key; it never enters the server id space.
type Draft struct {
	LocalID        string       `json:"localId"`
	CreatedAtLocal time.Time    `json:"createdAtLocal"`
	Payload        DraftPayload `json:"payload"`
}

// Outcome reports what happened to one draft. Failed drafts stay on the
// client unchanged and are replayed on the next pass.
type Outcome struct {
	LocalID     string    `json:"localId"`
	SyncState   SyncState `json:"syncState"`
	ComplaintID uuid.UUID `json:"complaintId,omitempty"`
	Duplicate   bool      `json:"duplicate,omitempty"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Submitter is the ingestion entry point the reconciler replays into.
type Submitter interface {
	Submit(ctx context.Context, p service.SubmitParams) (service.SubmitResult, error)
}

// Reconciler replays draft queues one draft at a time.
type Reconciler struct {
	submitter Submitter
	log       *logger.Logger
}

func NewReconciler(submitter Submitter, log *logger.Logger) *Reconciler {
	return &Reconciler{submitter: submitter, log: log}
}

// Reconcile replays the drafts strictly by ascending createdAtLocal. Draft
// N+1 is not submitted until draft N has a terminal outcome, so server ids
// are assigned in local creation order regardless of per-draft latency. A
// failed draft does not stop the pass; later drafts still run in order.
func (r *Reconciler) Reconcile(ctx context.Context, drafts []Draft) ([]Outcome, error) {
	ordered := append([]Draft(nil), drafts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAtLocal.Before(ordered[j].CreatedAtLocal)
	})

	outcomes := make([]Outcome, 0, len(ordered))
	for _, draft := range ordered {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, r.replay(ctx, draft))
	}

	r.log.Info("reconciliation pass complete",
		"drafts", len(ordered), "outcomes", len(outcomes))
	return outcomes, nil
}

func (r *Reconciler) replay(ctx context.Context, draft Draft) Outcome {
	if draft.LocalID == "" {
		return Outcome{
			SyncState: SyncStateFailed,
			ErrorCode: "Validation",
			Error:     "draft has no localId",
		}
	}

	result, err := r.submitter.Submit(ctx, service.SubmitParams{
		LocalID:      draft.LocalID,
		Type:         draft.Payload.Type,
		Confidence:   draft.Payload.Confidence,
		Alternatives: draft.Payload.Alternatives,
		Latitude:     draft.Payload.Latitude,
		Longitude:    draft.Payload.Longitude,
		Address:      draft.Payload.Address,
		WithinBounds: draft.Payload.WithinBounds,
		PhotoRef:     draft.Payload.PhotoRef,
		Contact:      draft.Payload.Contact,
	})
	if err != nil {
		r.log.Warn("draft replay failed",
			"localId", draft.LocalID, "error", err)
		return Outcome{
			LocalID:   draft.LocalID,
			SyncState: SyncStateFailed,
			ErrorCode: apperr.GetCode(err),
			Error:     err.Error(),
		}
	}

	return Outcome{
		LocalID:     draft.LocalID,
		SyncState:   SyncStateSynced,
		ComplaintID: result.Complaint.ID,
		Duplicate:   result.Duplicate,
	}
}
