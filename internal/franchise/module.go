// Package franchise provides the franchise office bounded context module.
package franchise

import (
	"franchise_crm/internal/franchise/handler"
	"franchise_crm/internal/franchise/repository"
	"franchise_crm/internal/franchise/service"
	apphttp "franchise_crm/internal/http"
	"franchise_crm/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the franchise bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the franchise module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	return &Module{handler: handler.New(svc, val), service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "franchise"
}

// Repository exposes office lookups to other modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts office routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/franchise-offices"))
}

var _ apphttp.Module = (*Module)(nil)
