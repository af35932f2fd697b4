package sla

import (
	"franchise_crm/internal/authz"
	"franchise_crm/internal/events"
	apphttp "franchise_crm/internal/http"
	"franchise_crm/platform/config"
	"franchise_crm/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires SLA escalation and implements http.Module.
type Module struct {
	handler *Handler
	scanner *Scanner
	repo    *Repository
}

func NewModule(pool *pgxpool.Pool, directory Directory, notifier Notifier, eventBus events.Bus, cfg config.PipelineConfig, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	scanner := NewScanner(repo, directory, notifier, eventBus, cfg, log)
	return &Module{
		handler: NewHandler(repo, scanner),
		scanner: scanner,
		repo:    repo,
	}
}

func (m *Module) Name() string {
	return "sla"
}

func (m *Module) Scanner() *Scanner {
	return m.scanner
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/sla")
	group.GET("/breaches", m.handler.ListBreaches)
	group.POST("/scan", authz.Require(authz.OpRunSync), m.handler.Scan)
}

var _ apphttp.Module = (*Module)(nil)
