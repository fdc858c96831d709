package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
)

// CreateParams carries everything needed to persist a new complaint in the
// Submitted state. The initial history entry is written in the same
// transaction so history length >= 1 always holds.
type CreateParams struct {
	ClientRef      string // offline localId, "" for online submissions
	Type           domain.Type
	Classification domain.Classification
	Location       domain.Location
	PhotoRef       string
	Contact        string
}

// TransitionParams describes a guarded status update. The update applies only
// while the stored status still equals From; otherwise ErrStatusConflict is
// returned so the caller can re-read and decide.
type TransitionParams struct {
	ComplaintID uuid.UUID
	From        domain.Status
	To          domain.Status
	At          time.Time
	Metadata    map[string]string
}

// Filter is the conjunctive dashboard query contract. Zero values mean
// "no constraint"; no implicit limit is applied.
type Filter struct {
	Type         domain.Type
	Status       domain.Status
	From         time.Time
	To           time.Time
	DepartmentID uuid.UUID
}

// RoutingAttemptRecord is the audit row for one work-order creation attempt.
type RoutingAttemptRecord struct {
	ComplaintID  uuid.UUID
	DepartmentID uuid.UUID
	Attempt      int
	ScheduledAt  time.Time
	Outcome      string
	Detail       string
}

// ComplaintsRepository is the persistence contract for the complaints module.
type ComplaintsRepository interface {
	// Create inserts the complaint with its initial Submitted history entry.
	// When the client_ref already exists, the stored complaint is returned
	// with created=false and its full status history instead of creating a
	// duplicate.
	Create(ctx context.Context, p CreateParams) (domain.Complaint, bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (domain.Complaint, error)

	List(ctx context.Context, f Filter) ([]domain.Complaint, error)

	// ApplyTransition performs the guarded status update and appends exactly
	// one history entry in the same transaction. Resolved transitions also
	// stamp resolved_at.
	ApplyTransition(ctx context.Context, p TransitionParams) error

	// SetRouting populates (or re-populates) the routing block.
	SetRouting(ctx context.Context, id uuid.UUID, r domain.Routing) error

	// ReplaceClassification swaps the classification wholesale and updates
	// the denormalized type column. Used only by reclassification.
	ReplaceClassification(ctx context.Context, id uuid.UUID, c domain.Classification) error

	RecordRoutingAttempt(ctx context.Context, rec RoutingAttemptRecord) error
	CountRoutingAttempts(ctx context.Context, complaintID uuid.UUID) (int, error)

	// ClearExpiredClientRefs releases idempotency keys older than the dedup
	// retention window. Returns the number of rows cleared.
	ClearExpiredClientRefs(ctx context.Context, before time.Time) (int64, error)
}

// ErrStatusConflict is returned by ApplyTransition when the stored status no
// longer matches the expected source status.
var ErrStatusConflict = errStatusConflict{}

type errStatusConflict struct{}

func (errStatusConflict) Error() string { return "complaint status changed concurrently" }
