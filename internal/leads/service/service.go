package service

import (
	"context"
	"strings"
	"time"

	"franchise_crm/internal/activity"
	"franchise_crm/internal/authz"
	"franchise_crm/internal/events"
	"franchise_crm/internal/leads/domain"
	"franchise_crm/internal/leads/repository"
	"franchise_crm/internal/leads/transport"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/config"
	"franchise_crm/platform/httpkit"
	"franchise_crm/platform/phone"
	"franchise_crm/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
	defaultCity     = "İstanbul"
)

// Store is the persistence the lead service needs.
type Store interface {
	Create(ctx context.Context, l domain.Lead, actorID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	List(ctx context.Context, params repository.ListParams) (repository.ListResult, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, to domain.Status, subStatus *string, actorID uuid.UUID, now time.Time) (domain.Lead, domain.StatusChange, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate, status *domain.Status, actorID uuid.UUID, now time.Time) (domain.Lead, domain.StatusChange, error)
	AssignOffice(ctx context.Context, id, officeID, actorID uuid.UUID, now time.Time) (domain.Lead, error)
}

// TimelineReader reads the audit trail of a lead.
type TimelineReader interface {
	ListByLead(ctx context.Context, leadID uuid.UUID, limit int) ([]activity.Entry, error)
}

// Service handles lead business logic.
type Service struct {
	repo         Store
	timeline     TimelineReader
	eventBus     events.Bus
	firstCallSLA time.Duration
	now          func() time.Time
}

// New creates a new lead service.
func New(repo Store, timeline TimelineReader, eventBus events.Bus, cfg config.PipelineConfig) *Service {
	return &Service{
		repo:         repo,
		timeline:     timeline,
		eventBus:     eventBus,
		firstCallSLA: cfg.GetFirstCallSLA(),
		now:          time.Now,
	}
}

// Create registers a manually entered lead. Its first-call clock starts now.
func (s *Service) Create(ctx context.Context, id httpkit.Identity, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	if err := authz.Authorize(id, authz.OpCreateLead); err != nil {
		return transport.LeadResponse{}, err
	}

	now := s.now()
	city := sanitize.Text(req.City)
	if city == "" {
		city = defaultCity
	}
	lead := domain.Lead{
		ID:                 uuid.New(),
		CustomerName:       sanitize.Text(req.CustomerName),
		CustomerPhone:      phone.NormalizeE164(req.CustomerPhone),
		CustomerEmail:      strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		City:               city,
		District:           sanitize.Text(req.District),
		Neighborhood:       sanitize.Text(req.Neighborhood),
		Street:             sanitize.Text(req.Street),
		DoorNo:             strings.TrimSpace(req.DoorNo),
		BlockNo:            strings.TrimSpace(req.BlockNo),
		ParcelNo:           strings.TrimSpace(req.ParcelNo),
		BuildingArea:       req.BuildingArea,
		UnitCount:          req.UnitCount,
		TransformationType: sanitize.Text(req.TransformationType),
		Source:             domain.SourceManual,
		Status:             domain.StatusReceived,
		AssignedOfficeID:   req.AssignedOfficeID,
		FirstCallDeadline:  domain.FirstCallDeadline(now, s.firstCallSLA),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, lead, id.UserID()); err != nil {
		return transport.LeadResponse{}, err
	}
	return mapLeadResponse(lead, now), nil
}

func (s *Service) GetByID(ctx context.Context, id httpkit.Identity, leadID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.visibleLead(ctx, id, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return mapLeadResponse(lead, s.now()), nil
}

func (s *Service) List(ctx context.Context, id httpkit.Identity, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	var requested *uuid.UUID
	if req.OfficeID != "" {
		officeID, err := uuid.Parse(req.OfficeID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid office id")
		}
		requested = &officeID
	}
	scope, err := authz.OfficeScope(id, authz.LeadsViewAll, authz.LeadsViewOwnOffice, requested)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	params := repository.ListParams{
		OfficeID:     scope,
		Search:       req.Search,
		BreachedOnly: req.BreachedOnly,
		Now:          s.now(),
		SortBy:       req.SortBy,
		SortOrder:    req.SortOrder,
		Page:         max(req.Page, 1),
		PageSize:     clampPageSize(req.PageSize),
	}
	if req.Status != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return transport.LeadListResponse{}, err
		}
		params.Status = &status
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(result.Items))
	for _, lead := range result.Items {
		items = append(items, mapLeadResponse(lead, params.Now))
	}
	return transport.LeadListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// ChangeStatus overwrites the lead status with any member of the enum.
func (s *Service) ChangeStatus(ctx context.Context, id httpkit.Identity, leadID uuid.UUID, req transport.ChangeStatusRequest) (transport.LeadResponse, error) {
	if err := authz.Authorize(id, authz.OpChangeLeadStatus); err != nil {
		return transport.LeadResponse{}, err
	}
	to, err := domain.ParseStatus(req.Status)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	subStatus := sanitize.TextPtr(req.SubStatus)

	now := s.now()
	lead, change, err := s.repo.ChangeStatus(ctx, leadID, to, subStatus, id.UserID(), now)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if change.Changed {
		actor := id.UserID()
		s.eventBus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEventAt(now),
			LeadID:    lead.ID,
			OfficeID:  lead.AssignedOfficeID,
			ActorID:   &actor,
			OldStatus: string(change.From),
			NewStatus: string(change.To),
		})
	}
	return mapLeadResponse(lead, now), nil
}

// Update edits the contact, address and qualification fields of a lead. A
// status in the request goes through the same transition and audit path as
// ChangeStatus.
func (s *Service) Update(ctx context.Context, id httpkit.Identity, leadID uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	if err := authz.Authorize(id, authz.OpUpdateLead); err != nil {
		return transport.LeadResponse{}, err
	}
	var status *domain.Status
	if req.Status != nil {
		to, err := domain.ParseStatus(*req.Status)
		if err != nil {
			return transport.LeadResponse{}, err
		}
		status = &to
	}
	update := domain.ProfileUpdate{
		CustomerName:       sanitize.TextPtr(req.CustomerName),
		CustomerPhone:      mapString(req.CustomerPhone, phone.NormalizeE164),
		CustomerEmail:      mapString(req.CustomerEmail, func(v string) string { return strings.ToLower(strings.TrimSpace(v)) }),
		City:               sanitize.TextPtr(req.City),
		District:           sanitize.TextPtr(req.District),
		Neighborhood:       sanitize.TextPtr(req.Neighborhood),
		Street:             sanitize.TextPtr(req.Street),
		DoorNo:             mapString(req.DoorNo, strings.TrimSpace),
		BlockNo:            mapString(req.BlockNo, strings.TrimSpace),
		ParcelNo:           mapString(req.ParcelNo, strings.TrimSpace),
		BuildingArea:       req.BuildingArea,
		UnitCount:          req.UnitCount,
		TransformationType: sanitize.TextPtr(req.TransformationType),
		Grade:              mapString(req.Grade, strings.ToUpper),
		MeetingScore:       req.MeetingScore,
		DecisionMaker:      sanitize.TextPtr(req.DecisionMaker),
		WhatsAppGroup:      req.WhatsAppGroup,
		BuildingAge:        req.BuildingAge,
		Intent:             req.Intent,
	}
	if update.CustomerName != nil && *update.CustomerName == "" {
		return transport.LeadResponse{}, apperr.Validation("customer name cannot be empty")
	}

	now := s.now()
	lead, change, err := s.repo.UpdateProfile(ctx, leadID, update, status, id.UserID(), now)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if change.Changed {
		actor := id.UserID()
		s.eventBus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEventAt(now),
			LeadID:    lead.ID,
			OfficeID:  lead.AssignedOfficeID,
			ActorID:   &actor,
			OldStatus: string(change.From),
			NewStatus: string(change.To),
		})
	}
	return mapLeadResponse(lead, now), nil
}

func mapString(v *string, fn func(string) string) *string {
	if v == nil {
		return nil
	}
	out := fn(*v)
	return &out
}

func (s *Service) AssignOffice(ctx context.Context, id httpkit.Identity, leadID uuid.UUID, req transport.AssignOfficeRequest) (transport.LeadResponse, error) {
	if err := authz.Authorize(id, authz.OpAssignLead); err != nil {
		return transport.LeadResponse{}, err
	}
	now := s.now()
	lead, err := s.repo.AssignOffice(ctx, leadID, req.OfficeID, id.UserID(), now)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return mapLeadResponse(lead, now), nil
}

func (s *Service) Timeline(ctx context.Context, id httpkit.Identity, leadID uuid.UUID) ([]transport.TimelineItem, error) {
	if _, err := s.visibleLead(ctx, id, leadID); err != nil {
		return nil, err
	}
	entries, err := s.timeline.ListByLead(ctx, leadID, 0)
	if err != nil {
		return nil, err
	}
	items := make([]transport.TimelineItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, transport.TimelineItem{
			ID:        e.ID,
			Type:      e.Type,
			Title:     e.Title,
			ActorID:   e.ActorID,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}
	return items, nil
}

func (s *Service) visibleLead(ctx context.Context, id httpkit.Identity, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := authz.EnsureOfficeVisible(id, authz.LeadsViewAll, authz.LeadsViewOwnOffice, lead.AssignedOfficeID); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

func clampPageSize(size int) int {
	if size < 1 {
		return defaultPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}

// MapLeadResponse converts a lead for transport; shared with modules that
// return the mutated lead.
func MapLeadResponse(lead domain.Lead, now time.Time) transport.LeadResponse {
	return mapLeadResponse(lead, now)
}

func mapLeadResponse(lead domain.Lead, now time.Time) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                   lead.ID,
		ExternalID:           lead.ExternalID,
		CustomerName:         lead.CustomerName,
		CustomerPhone:        lead.CustomerPhone,
		CustomerEmail:        lead.CustomerEmail,
		City:                 lead.City,
		District:             lead.District,
		Neighborhood:         lead.Neighborhood,
		Street:               lead.Street,
		DoorNo:               lead.DoorNo,
		BlockNo:              lead.BlockNo,
		ParcelNo:             lead.ParcelNo,
		BuildingArea:         lead.BuildingArea,
		UnitCount:            lead.UnitCount,
		TransformationType:   lead.TransformationType,
		ReviewStatus:         lead.ReviewStatus,
		Source:               lead.Source,
		Status:               string(lead.Status),
		SubStatus:            lead.SubStatus,
		AssignedOfficeID:     lead.AssignedOfficeID,
		FirstCallDeadline:    lead.FirstCallDeadline,
		FirstCallCompletedAt: lead.FirstCallCompletedAt,
		FirstCallOverdue:     lead.FirstCallOverdue(now),
		ClosedAt:             lead.ClosedAt,
		Grade:                lead.Grade,
		MeetingScore:         lead.MeetingScore,
		DecisionMaker:        lead.DecisionMaker,
		WhatsAppGroup:        lead.WhatsAppGroup,
		BuildingAge:          lead.BuildingAge,
		Intent:               lead.Intent,
		CreatedAt:            lead.CreatedAt,
		UpdatedAt:            lead.UpdatedAt,
	}
}
