// Package appointments books meetings with franchise offices and runs the
// confirm, complete, no-show and cancel workflow.
package appointments

import (
	"franchise_crm/internal/appointments/handler"
	"franchise_crm/internal/appointments/repository"
	"franchise_crm/internal/appointments/service"
	"franchise_crm/internal/events"
	apphttp "franchise_crm/internal/http"
	"franchise_crm/platform/config"
	"franchise_crm/platform/logger"
	"franchise_crm/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the appointments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the appointments module.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, cfg config.PipelineConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, cfg, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "appointments"
}

// Service exposes the appointment service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the repository for reports and the SLA scanner.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts appointment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/appointments"))
}

var _ apphttp.Module = (*Module)(nil)
