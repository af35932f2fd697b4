// Package reports files meeting reports against appointments and scores
// their completeness.
package reports

import (
	"franchise_crm/internal/adapters/storage"
	"franchise_crm/internal/events"
	apphttp "franchise_crm/internal/http"
	"franchise_crm/internal/reports/handler"
	"franchise_crm/internal/reports/repository"
	"franchise_crm/internal/reports/service"
	"franchise_crm/platform/config"
	"franchise_crm/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the reports bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the reports module. media may be nil.
func NewModule(pool *pgxpool.Pool, media storage.MediaStore, eventBus events.Bus, cfg config.PipelineConfig, val *validator.Validator) *Module {
	svc := service.New(repository.New(pool), media, eventBus, cfg)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reports"
}

// RegisterRoutes mounts report routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/reports"))
}

var _ apphttp.Module = (*Module)(nil)
