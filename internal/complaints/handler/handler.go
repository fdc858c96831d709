// Package handler exposes the complaints module over HTTP.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/internal/complaints/repository"
	"complaints_portal_backend/internal/complaints/service"
	"complaints_portal_backend/internal/complaints/transport"
	"complaints_portal_backend/internal/offline"
	"complaints_portal_backend/platform/httpkit"
	"complaints_portal_backend/platform/phone"
	"complaints_portal_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid complaint id"
)

// Handler handles HTTP requests for complaints.
type Handler struct {
	svc        *service.Service
	reconciler *offline.Reconciler
	val        *validator.Validator
}

// New creates a new complaints handler.
func New(svc *service.Service, reconciler *offline.Reconciler, val *validator.Validator) *Handler {
	return &Handler{svc: svc, reconciler: reconciler, val: val}
}

// Submit ingests one classified, geolocated complaint.
// POST /api/v1/complaints
func (h *Handler) Submit(c *gin.Context) {
	var req transport.SubmitComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), toSubmitParams(req))
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, transport.SubmitComplaintResponse{
		Complaint:     transport.ToComplaintResponse(result.Complaint),
		RoutingStatus: string(result.Routing.Status),
		Duplicate:     result.Duplicate,
	})
}

// Reconcile replays an offline draft queue in creation order.
// POST /api/v1/complaints/sync
func (h *Handler) Reconcile(c *gin.Context) {
	var req transport.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	drafts := make([]offline.Draft, 0, len(req.Drafts))
	for _, d := range req.Drafts {
		p := toSubmitParams(d.Payload)
		drafts = append(drafts, offline.Draft{
			LocalID:        d.LocalID,
			CreatedAtLocal: d.CreatedAtLocal,
			Payload: offline.DraftPayload{
				Type:         p.Type,
				Confidence:   p.Confidence,
				Alternatives: p.Alternatives,
				Latitude:     p.Latitude,
				Longitude:    p.Longitude,
				Address:      p.Address,
				WithinBounds: p.WithinBounds,
				PhotoRef:     p.PhotoRef,
				Contact:      p.Contact,
			},
		})
	}

	outcomes, err := h.reconciler.Reconcile(c.Request.Context(), drafts)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ReconcileResponse{Outcomes: outcomes})
}

// Get returns one complaint with its full history.
// GET /api/v1/complaints/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	complaint, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToComplaintResponse(complaint))
}

// List runs the conjunctive dashboard query.
// GET /api/v1/complaints
func (h *Handler) List(c *gin.Context) {
	var req transport.ListComplaintsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	filter, err := toFilter(req)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	complaints, err := h.svc.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.ComplaintResponse, 0, len(complaints))
	for _, complaint := range complaints {
		items = append(items, transport.ToComplaintResponse(complaint))
	}
	httpkit.OK(c, transport.ListComplaintsResponse{Items: items, Total: len(items)})
}

// Reclassify changes the complaint type and re-runs routing.
// POST /api/v1/admin/complaints/:id/reclassify
func (h *Handler) Reclassify(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.ReclassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	complaint, err := h.svc.Reclassify(c.Request.Context(), id, domain.Type(req.NewType))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToComplaintResponse(complaint))
}

// UpdateStatus applies an administrative lifecycle transition.
// POST /api/v1/admin/complaints/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	complaint, err := h.svc.UpdateStatus(c.Request.Context(), id, domain.Status(req.Status), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToComplaintResponse(complaint))
}

func toSubmitParams(req transport.SubmitComplaintRequest) service.SubmitParams {
	contact := strings.TrimSpace(req.Contact)
	if contact != "" && !strings.Contains(contact, "@") {
		contact = phone.NormalizeE164(contact)
	}

	return service.SubmitParams{
		LocalID:      req.LocalID,
		Type:         domain.Type(req.Type),
		Confidence:   req.Confidence,
		Alternatives: transport.ToAlternatives(req.Alternatives),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Address:      req.Address,
		WithinBounds: req.WithinBoundaries,
		PhotoRef:     req.PhotoRef,
		Contact:      contact,
	}
}

func toFilter(req transport.ListComplaintsRequest) (repository.Filter, error) {
	var f repository.Filter
	f.Type = domain.Type(req.Type)
	f.Status = domain.Status(req.Status)

	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return repository.Filter{}, err
		}
		f.From = from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return repository.Filter{}, err
		}
		f.To = to
	}
	if req.DepartmentID != "" {
		id, err := uuid.Parse(req.DepartmentID)
		if err != nil {
			return repository.Filter{}, err
		}
		f.DepartmentID = id
	}
	return f, nil
}
