package service

import (
	"context"
	"time"

	"franchise_crm/internal/appointments/domain"
	"franchise_crm/internal/appointments/repository"
	"franchise_crm/internal/appointments/transport"
	"franchise_crm/internal/authz"
	"franchise_crm/internal/events"
	leaddomain "franchise_crm/internal/leads/domain"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/config"
	"franchise_crm/platform/httpkit"
	"franchise_crm/platform/logger"
	"franchise_crm/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Store is the persistence the appointment service needs.
type Store interface {
	Create(ctx context.Context, a domain.Appointment) (repository.CreateResult, error)
	Confirm(ctx context.Context, id, actorID uuid.UUID, alt *domain.Slot, note string, now time.Time, guard repository.Guard) (repository.TransitionResult, error)
	Complete(ctx context.Context, id, actorID uuid.UUID, now time.Time, guard repository.Guard) (repository.TransitionResult, error)
	NoShow(ctx context.Context, id, actorID uuid.UUID, now time.Time, guard repository.Guard) (repository.TransitionResult, error)
	Cancel(ctx context.Context, id, actorID uuid.UUID, reason string, now time.Time, guard repository.Guard) (repository.TransitionResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, params repository.ListParams) (repository.ListResult, error)
}

// ConfirmationScheduler arranges a check when the confirmation window closes.
type ConfirmationScheduler interface {
	ScheduleConfirmationCheck(ctx context.Context, appointmentID uuid.UUID, at time.Time) error
}

// Service handles the appointment confirmation workflow.
type Service struct {
	repo               Store
	eventBus           events.Bus
	log                *logger.Logger
	confirmationWindow time.Duration
	reportWindow       time.Duration
	scheduler          ConfirmationScheduler
	now                func() time.Time
}

// New creates a new appointments service.
func New(repo Store, eventBus events.Bus, cfg config.PipelineConfig, log *logger.Logger) *Service {
	return &Service{
		repo:               repo,
		eventBus:           eventBus,
		log:                log,
		confirmationWindow: cfg.GetConfirmationWindow(),
		reportWindow:       cfg.GetReportWindow(),
		now:                time.Now,
	}
}

// SetConfirmationScheduler wires the background confirmation check.
func (s *Service) SetConfirmationScheduler(scheduler ConfirmationScheduler) {
	s.scheduler = scheduler
}

// Create books a meeting. The lead is forced into meeting_scheduled no matter
// where it was. A second active appointment for the same lead is allowed but
// flagged in the response.
func (s *Service) Create(ctx context.Context, id httpkit.Identity, req transport.CreateAppointmentRequest) (transport.CreateAppointmentResponse, error) {
	if err := authz.Authorize(id, authz.OpCreateAppointment); err != nil {
		return transport.CreateAppointmentResponse{}, err
	}

	now := s.now()
	appt, err := domain.New(req.LeadID, req.OfficeID, id.UserID(),
		domain.Slot{Date: req.ScheduledDate, Time: req.ScheduledTime}, req.LocationType, now, s.confirmationWindow)
	if err != nil {
		return transport.CreateAppointmentResponse{}, err
	}
	appt.EndTime = req.EndTime
	appt.LocationAddress = sanitize.Text(req.LocationAddress)
	appt.AssignedTo = req.AssignedTo
	appt.Notes = sanitize.Text(req.Notes)

	result, err := s.repo.Create(ctx, appt)
	if err != nil {
		return transport.CreateAppointmentResponse{}, err
	}

	if result.HasOtherActive {
		s.log.Warn("lead has more than one active appointment",
			"leadId", appt.LeadID, "appointmentId", appt.ID)
	}

	s.eventBus.Publish(ctx, events.AppointmentCreated{
		BaseEvent:            events.NewBaseEventAt(now),
		AppointmentID:        appt.ID,
		LeadID:               appt.LeadID,
		OfficeID:             appt.OfficeID,
		CreatedBy:            appt.CreatedBy,
		ConfirmationDeadline: appt.ConfirmationDeadline,
	})
	s.publishLeadChange(ctx, id, result.Lead, result.Change, now)

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleConfirmationCheck(ctx, appt.ID, appt.ConfirmationDeadline); err != nil {
			s.log.Warn("failed to schedule confirmation check", "appointmentId", appt.ID, "error", err)
		}
	}

	return transport.CreateAppointmentResponse{
		Appointment:    s.mapResponse(result.Appointment, now),
		LeadStatus:     string(result.Lead.Status),
		HasOtherActive: result.HasOtherActive,
	}, nil
}

func (s *Service) Confirm(ctx context.Context, id httpkit.Identity, appointmentID uuid.UUID, req transport.ConfirmAppointmentRequest) (transport.TransitionResponse, error) {
	if err := authz.Authorize(id, authz.OpConfirmAppointment); err != nil {
		return transport.TransitionResponse{}, err
	}

	var alt *domain.Slot
	if req.AlternativeDate != nil || req.AlternativeTime != nil {
		alt = &domain.Slot{}
		if req.AlternativeDate != nil {
			alt.Date = *req.AlternativeDate
		}
		if req.AlternativeTime != nil {
			alt.Time = *req.AlternativeTime
		}
	}

	now := s.now()
	result, err := s.repo.Confirm(ctx, appointmentID, id.UserID(), alt, sanitize.Text(req.Note), now, s.officeGuard(id))
	if err != nil {
		return transport.TransitionResponse{}, err
	}

	a := result.Appointment
	s.eventBus.Publish(ctx, events.AppointmentConfirmed{
		BaseEvent:     events.NewBaseEventAt(now),
		AppointmentID: a.ID,
		LeadID:        a.LeadID,
		OfficeID:      a.OfficeID,
		ConfirmedBy:   id.UserID(),
		Rescheduled:   result.Rescheduled,
	})
	return transport.TransitionResponse{Appointment: s.mapResponse(a, now)}, nil
}

// Complete is open to any authenticated user.
func (s *Service) Complete(ctx context.Context, id httpkit.Identity, appointmentID uuid.UUID) (transport.TransitionResponse, error) {
	if err := authz.Authorize(id, authz.OpCompleteAppointment); err != nil {
		return transport.TransitionResponse{}, err
	}

	now := s.now()
	result, err := s.repo.Complete(ctx, appointmentID, id.UserID(), now, nil)
	if err != nil {
		return transport.TransitionResponse{}, err
	}

	a := result.Appointment
	s.eventBus.Publish(ctx, events.AppointmentCompleted{
		BaseEvent:      events.NewBaseEventAt(now),
		AppointmentID:  a.ID,
		LeadID:         a.LeadID,
		OfficeID:       a.OfficeID,
		ReportDeadline: a.ReportDeadline(s.reportWindow),
	})

	resp := transport.TransitionResponse{Appointment: s.mapResponse(a, now)}
	if result.Lead != nil {
		s.publishLeadChange(ctx, id, *result.Lead, result.Change, now)
		resp.LeadStatus = string(result.Lead.Status)
	}
	return resp, nil
}

// NoShow is open to any authenticated user and does not touch the lead.
func (s *Service) NoShow(ctx context.Context, id httpkit.Identity, appointmentID uuid.UUID) (transport.TransitionResponse, error) {
	if err := authz.Authorize(id, authz.OpNoShowAppointment); err != nil {
		return transport.TransitionResponse{}, err
	}

	now := s.now()
	result, err := s.repo.NoShow(ctx, appointmentID, id.UserID(), now, nil)
	if err != nil {
		return transport.TransitionResponse{}, err
	}

	a := result.Appointment
	s.eventBus.Publish(ctx, events.AppointmentNoShow{
		BaseEvent:     events.NewBaseEventAt(now),
		AppointmentID: a.ID,
		LeadID:        a.LeadID,
		OfficeID:      a.OfficeID,
	})
	return transport.TransitionResponse{Appointment: s.mapResponse(a, now)}, nil
}

func (s *Service) Cancel(ctx context.Context, id httpkit.Identity, appointmentID uuid.UUID, req transport.CancelAppointmentRequest) (transport.TransitionResponse, error) {
	if err := authz.Authorize(id, authz.OpCancelAppointment); err != nil {
		return transport.TransitionResponse{}, err
	}
	now := s.now()
	result, err := s.repo.Cancel(ctx, appointmentID, id.UserID(), sanitize.Text(req.Reason), now, s.officeGuard(id))
	if err != nil {
		return transport.TransitionResponse{}, err
	}
	return transport.TransitionResponse{Appointment: s.mapResponse(result.Appointment, now)}, nil
}

func (s *Service) GetByID(ctx context.Context, id httpkit.Identity, appointmentID uuid.UUID) (transport.AppointmentResponse, error) {
	a, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return transport.AppointmentResponse{}, err
	}
	if err := s.officeGuard(id)(a); err != nil {
		return transport.AppointmentResponse{}, err
	}
	return s.mapResponse(a, s.now()), nil
}

func (s *Service) List(ctx context.Context, id httpkit.Identity, req transport.ListAppointmentsRequest) (transport.AppointmentListResponse, error) {
	params, err := parseListFilters(req)
	if err != nil {
		return transport.AppointmentListResponse{}, err
	}
	scope, err := authz.OfficeScope(id, authz.AppointmentsViewAll, authz.LeadsViewOwnOffice, params.OfficeID)
	if err != nil {
		return transport.AppointmentListResponse{}, err
	}
	params.OfficeID = scope

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.AppointmentListResponse{}, err
	}

	now := s.now()
	items := make([]transport.AppointmentResponse, 0, len(result.Items))
	for _, a := range result.Items {
		items = append(items, s.mapResponse(a, now))
	}
	return transport.AppointmentListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

func (s *Service) officeGuard(id httpkit.Identity) repository.Guard {
	return func(a domain.Appointment) error {
		officeID := a.OfficeID
		return authz.EnsureOfficeVisible(id, authz.AppointmentsViewAll, authz.LeadsViewOwnOffice, &officeID)
	}
}

func (s *Service) publishLeadChange(ctx context.Context, id httpkit.Identity, lead leaddomain.Lead, change leaddomain.StatusChange, now time.Time) {
	if !change.Changed {
		return
	}
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

func parseListFilters(req transport.ListAppointmentsRequest) (repository.ListParams, error) {
	params := repository.ListParams{
		SortOrder: req.SortOrder,
		Page:      max(req.Page, 1),
		PageSize:  clampPageSize(req.PageSize),
	}
	if req.OfficeID != "" {
		officeID, err := uuid.Parse(req.OfficeID)
		if err != nil {
			return params, apperr.Validation("invalid office id")
		}
		params.OfficeID = &officeID
	}
	if req.LeadID != "" {
		leadID, err := uuid.Parse(req.LeadID)
		if err != nil {
			return params, apperr.Validation("invalid lead id")
		}
		params.LeadID = &leadID
	}
	if req.Status != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return params, err
		}
		params.Status = &status
	}
	if req.DateFrom != "" {
		from, err := domain.ParseDate(req.DateFrom)
		if err != nil {
			return params, err
		}
		params.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := domain.ParseDate(req.DateTo)
		if err != nil {
			return params, err
		}
		params.DateTo = &to
	}
	if params.DateFrom != nil && params.DateTo != nil && params.DateTo.Before(*params.DateFrom) {
		return params, apperr.Validation("dateTo must not be before dateFrom")
	}
	return params, nil
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

func (s *Service) mapResponse(a domain.Appointment, now time.Time) transport.AppointmentResponse {
	return transport.AppointmentResponse{
		ID:                   a.ID,
		LeadID:               a.LeadID,
		OfficeID:             a.OfficeID,
		ScheduledDate:        a.DateString(),
		ScheduledTime:        a.ScheduledTime,
		EndTime:              a.EndTime,
		StartsAt:             a.StartsAt(),
		LocationType:         a.LocationType,
		LocationAddress:      a.LocationAddress,
		Status:               transport.AppointmentStatus(a.Status),
		ConfirmationDeadline: a.ConfirmationDeadline,
		ConfirmationOverdue:  a.ConfirmationOverdue(now),
		ConfirmedAt:          a.ConfirmedAt,
		ConfirmedBy:          a.ConfirmedBy,
		AssignedTo:           a.AssignedTo,
		CancelReason:         a.CancelReason,
		Notes:                a.Notes,
		CreatedBy:            a.CreatedBy,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}
