// Package calls provides call logging against leads.
package calls

import (
	"franchise_crm/internal/calls/handler"
	"franchise_crm/internal/calls/repository"
	"franchise_crm/internal/calls/service"
	"franchise_crm/internal/events"
	apphttp "franchise_crm/internal/http"
	"franchise_crm/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the calls bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the calls module.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator) *Module {
	svc := service.New(repository.New(pool), eventBus)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "calls"
}

// RegisterRoutes mounts call routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/calls"))
}

var _ apphttp.Module = (*Module)(nil)
