// Package auth provides the authentication bounded context module: staff
// login, the caller's profile and user administration.
package auth

import (
	"franchise_crm/internal/auth/handler"
	"franchise_crm/internal/auth/repository"
	"franchise_crm/internal/auth/service"
	authvalidator "franchise_crm/internal/auth/validator"
	apphttp "franchise_crm/internal/http"
	"franchise_crm/platform/config"
	"franchise_crm/platform/logger"
	"franchise_crm/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, val *validator.Validator, log *logger.Logger) (*Module, error) {
	if err := authvalidator.Register(val); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the auth service.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the user store for SLA recipient lookup.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public auth routes with stricter rate limiting
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(authGroup)

	ctx.Protected.GET("/auth/me", m.handler.GetMe)
	m.handler.RegisterUserRoutes(ctx.Protected.Group("/users"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
