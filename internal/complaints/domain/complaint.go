// Package domain provides core business rules for the complaints bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Type is the closed set of complaint categories. A complaint's type changes
// only through explicit reclassification.
type Type string

const (
	TypePothole           Type = "pothole"
	TypeGarbage           Type = "garbage"
	TypeGraffiti          Type = "graffiti"
	TypeBrokenStreetlight Type = "broken_streetlight"
	TypeDamagedSignage    Type = "damaged_signage"
	TypeIllegalDumping    Type = "illegal_dumping"
)

var knownTypes = map[Type]struct{}{
	TypePothole:           {},
	TypeGarbage:           {},
	TypeGraffiti:          {},
	TypeBrokenStreetlight: {},
	TypeDamagedSignage:    {},
	TypeIllegalDumping:    {},
}

// IsKnownType reports whether t is a member of the closed type set.
func IsKnownType(t Type) bool {
	_, ok := knownTypes[t]
	return ok
}

// AllTypes returns every member of the closed type set.
func AllTypes() []Type {
	return []Type{
		TypePothole,
		TypeGarbage,
		TypeGraffiti,
		TypeBrokenStreetlight,
		TypeDamagedSignage,
		TypeIllegalDumping,
	}
}

// ManualReviewThreshold is the confidence below which a classification is
// flagged for administrative review. Review never blocks routing.
const ManualReviewThreshold = 0.70

// DeriveManualReview applies the confidence gate.
func DeriveManualReview(confidence float64) bool {
	return confidence < ManualReviewThreshold
}

// Alternative is a lower-ranked classification candidate.
type Alternative struct {
	Type       Type    `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Classification is the stored classifier output. It is immutable once
// persisted except through reclassification, which replaces it wholesale.
type Classification struct {
	Type                 Type          `json:"type"`
	Confidence           float64       `json:"confidence"`
	Alternatives         []Alternative `json:"alternatives,omitempty"`
	RequiresManualReview bool          `json:"requiresManualReview"`
}

// Location is the geocoded submission site. Immutable after acceptance;
// complaints outside municipal boundaries are rejected before persistence.
type Location struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Address          string  `json:"address"`
	WithinBoundaries bool    `json:"withinBoundaries"`
}

// Routing records the department assignment once a work order exists. It is
// re-populated (not appended) when reclassification re-routes the complaint;
// the superseded work order is preserved in status history metadata.
type Routing struct {
	DepartmentID uuid.UUID `json:"departmentId"`
	WorkOrderID  string    `json:"workOrderId"`
	RoutedAt     time.Time `json:"routedAt"`
}

// HistoryEntry is one append-only status history record.
type HistoryEntry struct {
	Status   Status            `json:"status"`
	At       time.Time         `json:"at"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// History metadata keys written by the lifecycle machine and routing engine.
const (
	MetaSupersededWorkOrder = "superseded_work_order"
	MetaReason              = "reason"
	MetaDepartmentID        = "department_id"
	MetaPreviousType        = "previous_type"
)

// Complaint is the aggregate root. Status and StatusHistory are owned by the
// lifecycle machine; no other component writes them.
type Complaint struct {
	ID             uuid.UUID      `json:"id"`
	ClientRef      string         `json:"clientRef,omitempty"` // offline localId used as idempotency key
	Type           Type           `json:"type"`
	Classification Classification `json:"classification"`
	Location       Location       `json:"location"`
	Status         Status         `json:"status"`
	StatusHistory  []HistoryEntry `json:"statusHistory"`
	Routing        *Routing       `json:"routing,omitempty"`
	PhotoRef       string         `json:"photoRef,omitempty"`
	Contact        string         `json:"contact,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	ResolvedAt     *time.Time     `json:"resolvedAt,omitempty"`
}

// HasRoute reports whether a work order is currently associated.
func (c *Complaint) HasRoute() bool {
	return c.Routing != nil && c.Routing.WorkOrderID != ""
}
