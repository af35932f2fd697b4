package kpi

import (
	"franchise_crm/internal/authz"
	apphttp "franchise_crm/internal/http"
	"franchise_crm/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the KPI rollup and implements http.Module.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(pool *pgxpool.Pool, offices Offices, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), offices, log)
	return &Module{handler: NewHandler(svc), service: svc}
}

func (m *Module) Name() string {
	return "kpi"
}

// Service exposes SnapshotDaily to the worker and the CLI.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/kpi/snapshots")
	group.GET("", m.handler.List)
	group.GET("/export.xlsx", m.handler.Export)
	group.POST("/run", authz.Require(authz.OpRunSync), m.handler.Run)
}

var _ apphttp.Module = (*Module)(nil)
