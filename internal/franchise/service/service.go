package service

import (
	"context"
	"strings"
	"time"

	"franchise_crm/internal/authz"
	"franchise_crm/internal/franchise/repository"
	"franchise_crm/internal/franchise/transport"
	"franchise_crm/platform/httpkit"
	"franchise_crm/platform/phone"
	"franchise_crm/platform/sanitize"

	"github.com/google/uuid"
)

const defaultCity = "İstanbul"

// Store is the persistence the office service needs.
type Store interface {
	Create(ctx context.Context, office repository.Office) (repository.Office, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Office, error)
	Update(ctx context.Context, update repository.OfficeUpdate) (repository.Office, error)
	List(ctx context.Context, params repository.ListParams) (repository.ListResult, error)
}

// Service handles franchise office business logic.
type Service struct {
	repo Store
	now  func() time.Time
}

// New creates a new franchise service.
func New(repo Store) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, id httpkit.Identity, req transport.CreateOfficeRequest) (transport.OfficeResponse, error) {
	if err := authz.Authorize(id, authz.OpManageOffice); err != nil {
		return transport.OfficeResponse{}, err
	}

	now := s.now()
	city := sanitize.Text(req.City)
	if city == "" {
		city = defaultCity
	}
	office := repository.Office{
		ID:        uuid.New(),
		Code:      strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:      sanitize.Text(req.Name),
		City:      city,
		District:  sanitize.Text(req.District),
		Address:   sanitize.Text(req.Address),
		Phone:     normalizePhone(req.Phone),
		Email:     normalizeEmail(req.Email),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.Create(ctx, office)
	if err != nil {
		return transport.OfficeResponse{}, err
	}
	return mapOfficeResponse(created), nil
}

func (s *Service) GetByID(ctx context.Context, id httpkit.Identity, officeID uuid.UUID) (transport.OfficeResponse, error) {
	if err := authz.EnsureOfficeVisible(id, authz.FranchiseViewAll, authz.LeadsViewOwnOffice, &officeID); err != nil {
		return transport.OfficeResponse{}, err
	}
	office, err := s.repo.GetByID(ctx, officeID)
	if err != nil {
		return transport.OfficeResponse{}, err
	}
	return mapOfficeResponse(office), nil
}

func (s *Service) Update(ctx context.Context, id httpkit.Identity, officeID uuid.UUID, req transport.UpdateOfficeRequest) (transport.OfficeResponse, error) {
	if err := authz.Authorize(id, authz.OpManageOffice); err != nil {
		return transport.OfficeResponse{}, err
	}

	update := repository.OfficeUpdate{
		ID:       officeID,
		Name:     normalizeOptionalString(req.Name, sanitize.Text),
		City:     normalizeOptionalString(req.City, sanitize.Text),
		District: normalizeOptionalString(req.District, sanitize.Text),
		Address:  normalizeOptionalString(req.Address, sanitize.Text),
		Phone:    normalizeOptionalString(req.Phone, normalizePhone),
		Email:    normalizeOptionalString(req.Email, normalizeEmail),
		IsActive: req.IsActive,
	}

	updated, err := s.repo.Update(ctx, update)
	if err != nil {
		return transport.OfficeResponse{}, err
	}
	return mapOfficeResponse(updated), nil
}

func (s *Service) List(ctx context.Context, id httpkit.Identity, req transport.ListOfficesRequest) (transport.ListOfficesResponse, error) {
	scope, err := authz.OfficeScope(id, authz.FranchiseViewAll, authz.LeadsViewOwnOffice, nil)
	if err != nil {
		return transport.ListOfficesResponse{}, err
	}

	result, err := s.repo.List(ctx, repository.ListParams{
		OfficeID:  scope,
		Search:    req.Search,
		City:      req.City,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return transport.ListOfficesResponse{}, err
	}

	items := make([]transport.OfficeResponse, 0, len(result.Items))
	for _, office := range result.Items {
		items = append(items, mapOfficeResponse(office))
	}

	return transport.ListOfficesResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

func mapOfficeResponse(office repository.Office) transport.OfficeResponse {
	return transport.OfficeResponse{
		ID:        office.ID,
		Code:      office.Code,
		Name:      office.Name,
		City:      office.City,
		District:  office.District,
		Address:   office.Address,
		Phone:     office.Phone,
		Email:     office.Email,
		IsActive:  office.IsActive,
		CreatedAt: office.CreatedAt,
		UpdatedAt: office.UpdatedAt,
	}
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func normalizePhone(value string) string {
	return phone.NormalizeE164(strings.TrimSpace(value))
}

func normalizeOptionalString(value *string, normalize func(string) string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	normalized := normalize(trimmed)
	if normalized == "" {
		return nil
	}
	return &normalized
}
