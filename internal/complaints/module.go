// Package complaints provides the complaints bounded context module.
package complaints

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"complaints_portal_backend/internal/complaints/handler"
	"complaints_portal_backend/internal/complaints/lifecycle"
	"complaints_portal_backend/internal/complaints/repository"
	"complaints_portal_backend/internal/complaints/service"
	"complaints_portal_backend/internal/departments"
	"complaints_portal_backend/internal/events"
	apphttp "complaints_portal_backend/internal/http"
	"complaints_portal_backend/internal/offline"
	"complaints_portal_backend/internal/routing"
	"complaints_portal_backend/platform/config"
	"complaints_portal_backend/platform/logger"
	"complaints_portal_backend/platform/validator"
)

// Module is the complaints bounded context implementing http.Module.
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	engine     *routing.Engine
	machine    *lifecycle.Machine
	repo       repository.ComplaintsRepository
	reconciler *offline.Reconciler
}

// NewModule wires the complaint lifecycle: repository, lifecycle machine,
// routing engine, orchestrator, offline reconciler, and HTTP handler.
func NewModule(
	pool *pgxpool.Pool,
	registry *departments.Registry,
	retries routing.RetryScheduler,
	bus events.Bus,
	val *validator.Validator,
	cfg config.IngestionConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	machine := lifecycle.NewMachine(repo, log)

	workOrders := routing.NewHTTPWorkOrderClient()
	engine := routing.NewEngine(registry, repo, machine, workOrders, retries, bus,
		cfg.GetRoutingAttemptTimeout(), log)

	svc := service.NewService(repo, machine, engine, bus, log)
	reconciler := offline.NewReconciler(svc, log)
	h := handler.New(svc, reconciler, val)

	return &Module{
		handler:    h,
		service:    svc,
		engine:     engine,
		machine:    machine,
		repo:       repo,
		reconciler: reconciler,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "complaints" }

// Service returns the orchestrator for cross-module use.
func (m *Module) Service() *service.Service { return m.service }

// Engine returns the routing engine so the worker process can execute
// scheduled attempts.
func (m *Module) Engine() *routing.Engine { return m.engine }

// Repository returns the complaints repository for maintenance jobs.
func (m *Module) Repository() repository.ComplaintsRepository { return m.repo }

// RegisterRoutes mounts complaint routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Citizen-facing intake and status endpoints.
	ctx.V1.POST("/complaints", m.handler.Submit)
	ctx.V1.POST("/complaints/sync", m.handler.Reconcile)
	ctx.V1.GET("/complaints/:id", m.handler.Get)

	// Dashboard query surface.
	ctx.Protected.GET("/complaints", m.handler.List)

	// Administrative lifecycle actions.
	adminGroup := ctx.Admin.Group("/complaints")
	adminGroup.POST("/:id/reclassify", m.handler.Reclassify)
	adminGroup.POST("/:id/status", m.handler.UpdateStatus)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
