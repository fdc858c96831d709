// Package auth provides administrator authentication as an http.Module.
package auth

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"complaints_portal_backend/internal/auth/handler"
	"complaints_portal_backend/internal/auth/repository"
	"complaints_portal_backend/internal/auth/service"
	apphttp "complaints_portal_backend/internal/http"
	"complaints_portal_backend/platform/config"
	"complaints_portal_backend/platform/logger"
	"complaints_portal_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, cfg config.AuthConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string { return "auth" }

func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes mounts the auth endpoints on the public group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/auth")
	group.POST("/sign-in", m.handler.SignIn)
	group.POST("/refresh", m.handler.Refresh)
	group.POST("/sign-out", m.handler.SignOut)
}

var _ apphttp.Module = (*Module)(nil)
