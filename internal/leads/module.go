// Package leads provides the lead bounded context: the lead state machine and
// its HTTP surface.
package leads

import (
	"franchise_crm/internal/activity"
	"franchise_crm/internal/events"
	apphttp "franchise_crm/internal/http"
	"franchise_crm/internal/leads/handler"
	"franchise_crm/internal/leads/repository"
	"franchise_crm/internal/leads/service"
	"franchise_crm/platform/config"
	"franchise_crm/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, cfg config.PipelineConfig, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, activity.NewReader(pool), eventBus, cfg)
	return &Module{handler: handler.New(svc, val), service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes lead persistence to reconciliation.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
