// Package transport defines the wire DTOs of the complaints module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/internal/offline"
)

type AlternativeDTO struct {
	Type       string  `json:"type" validate:"required"`
	Confidence float64 `json:"confidence" validate:"min=0,max=1"`
}

type SubmitComplaintRequest struct {
	LocalID          string           `json:"localId,omitempty" validate:"omitempty,max=128"`
	Type             string           `json:"type" validate:"required,oneof=pothole garbage graffiti broken_streetlight damaged_signage illegal_dumping"`
	Confidence       float64          `json:"confidence" validate:"min=0,max=1"`
	Alternatives     []AlternativeDTO `json:"alternatives,omitempty" validate:"omitempty,dive"`
	Latitude         float64          `json:"latitude" validate:"min=-90,max=90"`
	Longitude        float64          `json:"longitude" validate:"min=-180,max=180"`
	Address          string           `json:"address" validate:"max=300"`
	WithinBoundaries bool             `json:"withinBoundaries"`
	PhotoRef         string           `json:"photoRef,omitempty" validate:"omitempty,max=300"`
	Contact          string           `json:"contact,omitempty" validate:"omitempty,max=200"`
}

type ReclassifyRequest struct {
	NewType string `json:"newType" validate:"required,oneof=pothole garbage graffiti broken_streetlight damaged_signage illegal_dumping"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=InProgress Resolved Rejected Assigned"`
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type ListComplaintsRequest struct {
	Type         string `form:"type" validate:"omitempty,oneof=pothole garbage graffiti broken_streetlight damaged_signage illegal_dumping"`
	Status       string `form:"status" validate:"omitempty,oneof=Submitted Assigned InProgress Resolved Rejected PendingManualRouting"`
	From         string `form:"from" validate:"omitempty,max=40"`
	To           string `form:"to" validate:"omitempty,max=40"`
	DepartmentID string `form:"departmentId" validate:"omitempty,uuid"`
}

type DraftDTO struct {
	LocalID        string                 `json:"localId" validate:"required,max=128"`
	CreatedAtLocal time.Time              `json:"createdAtLocal" validate:"required"`
	Payload        SubmitComplaintRequest `json:"payload" validate:"required"`
}

type ReconcileRequest struct {
	Drafts []DraftDTO `json:"drafts" validate:"required,min=1,max=200,dive"`
}

type RoutingResponse struct {
	DepartmentID uuid.UUID `json:"departmentId"`
	WorkOrderID  string    `json:"workOrderId"`
	RoutedAt     string    `json:"routedAt"`
}

type HistoryEntryResponse struct {
	Status   string            `json:"status"`
	At       string            `json:"at"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ComplaintResponse struct {
	ID             uuid.UUID              `json:"id"`
	Type           string                 `json:"type"`
	Classification domain.Classification  `json:"classification"`
	Location       domain.Location        `json:"location"`
	Status         string                 `json:"status"`
	StatusHistory  []HistoryEntryResponse `json:"statusHistory"`
	Routing        *RoutingResponse       `json:"routing,omitempty"`
	PhotoRef       string                 `json:"photoRef,omitempty"`
	Contact        string                 `json:"contact,omitempty"`
	CreatedAt      string                 `json:"createdAt"`
	UpdatedAt      string                 `json:"updatedAt"`
	ResolvedAt     *string                `json:"resolvedAt,omitempty"`
}

type SubmitComplaintResponse struct {
	Complaint     ComplaintResponse `json:"complaint"`
	RoutingStatus string            `json:"routingStatus,omitempty"`
	Duplicate     bool              `json:"duplicate,omitempty"`
}

type ListComplaintsResponse struct {
	Items []ComplaintResponse `json:"items"`
	Total int                 `json:"total"`
}

type ReconcileResponse struct {
	Outcomes []offline.Outcome `json:"outcomes"`
}

// ToComplaintResponse maps the aggregate to its wire shape.
func ToComplaintResponse(c domain.Complaint) ComplaintResponse {
	history := make([]HistoryEntryResponse, 0, len(c.StatusHistory))
	for _, h := range c.StatusHistory {
		history = append(history, HistoryEntryResponse{
			Status:   string(h.Status),
			At:       h.At.Format(time.RFC3339),
			Metadata: h.Metadata,
		})
	}

	resp := ComplaintResponse{
		ID:             c.ID,
		Type:           string(c.Type),
		Classification: c.Classification,
		Location:       c.Location,
		Status:         string(c.Status),
		StatusHistory:  history,
		PhotoRef:       c.PhotoRef,
		Contact:        c.Contact,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
	}

	if c.Routing != nil {
		resp.Routing = &RoutingResponse{
			DepartmentID: c.Routing.DepartmentID,
			WorkOrderID:  c.Routing.WorkOrderID,
			RoutedAt:     c.Routing.RoutedAt.Format(time.RFC3339),
		}
	}
	if c.ResolvedAt != nil {
		at := c.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &at
	}
	return resp
}

// ToAlternatives maps DTO alternatives into the domain shape.
func ToAlternatives(alts []AlternativeDTO) []domain.Alternative {
	if len(alts) == 0 {
		return nil
	}
	out := make([]domain.Alternative, 0, len(alts))
	for _, a := range alts {
		out = append(out, domain.Alternative{
			Type:       domain.Type(a.Type),
			Confidence: a.Confidence,
		})
	}
	return out
}
