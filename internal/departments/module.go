package departments

import (
	apphttp "complaints_portal_backend/internal/http"
	"complaints_portal_backend/platform/validator"
)

// Module exposes the department registry as an http.Module.
type Module struct {
	registry *Registry
	handler  *Handler
}

func NewModule(registry *Registry, val *validator.Validator) *Module {
	return &Module{
		registry: registry,
		handler:  NewHandler(registry, val),
	}
}

func (m *Module) Name() string { return "departments" }

// Registry returns the underlying registry for cross-module wiring.
func (m *Module) Registry() *Registry { return m.registry }

// RegisterRoutes mounts the admin registry endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	admin := ctx.Admin.Group("/departments")
	admin.GET("", m.handler.List)
	admin.PUT("", m.handler.Upsert)
}

var _ apphttp.Module = (*Module)(nil)
