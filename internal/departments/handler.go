package departments

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/platform/httpkit"
	"complaints_portal_backend/platform/validator"
)

type upsertDepartmentRequest struct {
	Type        string `json:"type" validate:"required,oneof=pothole garbage graffiti broken_streetlight damaged_signage illegal_dumping"`
	Name        string `json:"name" validate:"required,min=1,max=200"`
	EndpointURL string `json:"endpointUrl" validate:"required,url,max=500"`
	IsPrimary   bool   `json:"isPrimary"`
	Priority    int    `json:"priority" validate:"min=0,max=1000"`
}

type listDepartmentsResponse struct {
	Items   []Department `json:"items"`
	Version uint64       `json:"version"`
}

// Handler exposes the registry over HTTP.
type Handler struct {
	registry *Registry
	val      *validator.Validator
}

func NewHandler(registry *Registry, val *validator.Validator) *Handler {
	return &Handler{registry: registry, val: val}
}

// List returns the current registry snapshot.
// GET /api/v1/admin/departments
func (h *Handler) List(c *gin.Context) {
	httpkit.OK(c, listDepartmentsResponse{
		Items:   h.registry.ListAll(),
		Version: h.registry.Version(),
	})
}

// Upsert writes one type-to-department mapping and swaps in a new snapshot.
// PUT /api/v1/admin/departments
func (h *Handler) Upsert(c *gin.Context) {
	var req upsertDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	stored, err := h.registry.Upsert(c.Request.Context(), Department{
		Type:        domain.Type(req.Type),
		Name:        req.Name,
		EndpointURL: req.EndpointURL,
		IsPrimary:   req.IsPrimary,
		Priority:    req.Priority,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stored)
}
