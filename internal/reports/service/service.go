package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"franchise_crm/internal/adapters/storage"
	apptdomain "franchise_crm/internal/appointments/domain"
	"franchise_crm/internal/authz"
	"franchise_crm/internal/events"
	"franchise_crm/internal/reports/domain"
	"franchise_crm/internal/reports/repository"
	"franchise_crm/internal/reports/transport"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/config"
	"franchise_crm/platform/httpkit"
	"franchise_crm/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Store is the persistence the reports service needs.
type Store interface {
	Submit(ctx context.Context, appointmentID uuid.UUID, build repository.Builder) (domain.Report, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Report, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Report, error)
	List(ctx context.Context, params repository.ListParams) (repository.ListResult, error)
}

// Service handles meeting report submission and reads.
type Service struct {
	repo         Store
	media        storage.MediaStore
	eventBus     events.Bus
	reportWindow time.Duration
	now          func() time.Time
}

// New creates a new reports service. media may be nil when object storage
// is not configured; upload URLs are then unavailable.
func New(repo Store, media storage.MediaStore, eventBus events.Bus, cfg config.PipelineConfig) *Service {
	return &Service{
		repo:         repo,
		media:        media,
		eventBus:     eventBus,
		reportWindow: cfg.GetReportWindow(),
		now:          time.Now,
	}
}

// MediaFolder is the key prefix for an appointment's uploads.
func MediaFolder(appointmentID uuid.UUID) string {
	return "reports/" + appointmentID.String()
}

// Submit files the one report of an appointment.
func (s *Service) Submit(ctx context.Context, id httpkit.Identity, req transport.SubmitReportRequest) (transport.ReportResponse, error) {
	if err := authz.Authorize(id, authz.OpSubmitReport); err != nil {
		return transport.ReportResponse{}, err
	}

	buildingData, err := domain.ParseBuildingData(req.BuildingData)
	if err != nil {
		return transport.ReportResponse{}, err
	}
	content := domain.Content{
		MeetingType:       sanitize.Text(req.MeetingType),
		Participants:      mapParticipants(req.Participants),
		ParticipantCount:  req.ParticipantCount,
		DecisionStatus:    req.DecisionStatus,
		NextSteps:         sanitize.Text(req.NextSteps),
		PresentationGiven: req.PresentationGiven,
		SiteVisitDone:     req.SiteVisitDone,
		BuildingCondition: req.BuildingCondition,
		BuildingData:      buildingData,
		Photos:            req.Photos,
		Videos:            req.Videos,
		Documents:         req.Documents,
		Summary:           sanitize.Text(req.Summary),
		InternalNotes:     sanitize.Text(req.InternalNotes),
	}
	if content.Summary == "" {
		return transport.ReportResponse{}, apperr.Validation("summary is required")
	}
	if err := checkMediaKeys(req.AppointmentID, content); err != nil {
		return transport.ReportResponse{}, err
	}

	now := s.now()
	report, err := s.repo.Submit(ctx, req.AppointmentID, func(a apptdomain.Appointment) (domain.Report, error) {
		officeID := a.OfficeID
		if err := authz.EnsureOfficeVisible(id, authz.ReportsViewAll, authz.LeadsViewOwnOffice, &officeID); err != nil {
			return domain.Report{}, err
		}
		deadline := a.ReportDeadline(s.reportWindow)
		return domain.New(a.ID, a.LeadID, a.OfficeID, id.UserID(), content, deadline, now), nil
	})
	if err != nil {
		return transport.ReportResponse{}, err
	}

	s.eventBus.Publish(ctx, events.ReportSubmitted{
		BaseEvent:         events.NewBaseEventAt(now),
		ReportID:          report.ID,
		AppointmentID:     report.AppointmentID,
		LeadID:            report.LeadID,
		CompletenessScore: report.CompletenessScore,
		Late:              report.IsLate,
	})

	return mapResponse(report, true), nil
}

func (s *Service) GetByID(ctx context.Context, id httpkit.Identity, reportID uuid.UUID) (transport.ReportResponse, error) {
	report, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return transport.ReportResponse{}, err
	}
	return s.visible(id, report)
}

func (s *Service) GetByAppointment(ctx context.Context, id httpkit.Identity, appointmentID uuid.UUID) (transport.ReportResponse, error) {
	report, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return transport.ReportResponse{}, err
	}
	return s.visible(id, report)
}

func (s *Service) visible(id httpkit.Identity, report domain.Report) (transport.ReportResponse, error) {
	officeID := report.OfficeID
	if err := authz.EnsureOfficeVisible(id, authz.ReportsViewAll, authz.LeadsViewOwnOffice, &officeID); err != nil {
		return transport.ReportResponse{}, err
	}
	return mapResponse(report, authz.HasAny(id, authz.ReportsViewInternal)), nil
}

func (s *Service) List(ctx context.Context, id httpkit.Identity, req transport.ListReportsRequest) (transport.ReportListResponse, error) {
	params := repository.ListParams{
		LateOnly: req.LateOnly,
		Page:     max(req.Page, 1),
		PageSize: clampPageSize(req.PageSize),
	}
	if req.OfficeID != "" {
		officeID, err := uuid.Parse(req.OfficeID)
		if err != nil {
			return transport.ReportListResponse{}, apperr.Validation("invalid office id")
		}
		params.OfficeID = &officeID
	}
	if req.LeadID != "" {
		leadID, err := uuid.Parse(req.LeadID)
		if err != nil {
			return transport.ReportListResponse{}, apperr.Validation("invalid lead id")
		}
		params.LeadID = &leadID
	}

	scope, err := authz.OfficeScope(id, authz.ReportsViewAll, authz.LeadsViewOwnOffice, params.OfficeID)
	if err != nil {
		return transport.ReportListResponse{}, err
	}
	params.OfficeID = scope

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ReportListResponse{}, err
	}

	internal := authz.HasAny(id, authz.ReportsViewInternal)
	items := make([]transport.ReportResponse, 0, len(result.Items))
	for _, r := range result.Items {
		items = append(items, mapResponse(r, internal))
	}
	return transport.ReportListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// UploadURL hands out a presigned PUT URL for one media file.
func (s *Service) UploadURL(ctx context.Context, id httpkit.Identity, req transport.UploadURLRequest) (transport.UploadURLResponse, error) {
	if err := authz.Authorize(id, authz.OpSubmitReport); err != nil {
		return transport.UploadURLResponse{}, err
	}
	if s.media == nil {
		return transport.UploadURLResponse{}, apperr.Unavailable("media storage is not configured", nil)
	}

	kind := storage.KindOf(req.ContentType)
	if kind == "" {
		return transport.UploadURLResponse{}, apperr.Validation(fmt.Sprintf("content type %q is not allowed", req.ContentType))
	}
	if err := storage.ValidateFileSize(req.SizeBytes); err != nil {
		return transport.UploadURLResponse{}, apperr.Validation(err.Error())
	}

	folder := MediaFolder(req.AppointmentID) + "/" + string(kind)
	presigned, err := s.media.GenerateUploadURL(ctx, folder, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return transport.UploadURLResponse{}, apperr.Unavailable("failed to create upload url", err)
	}
	return transport.UploadURLResponse{
		URL:       presigned.URL,
		FileKey:   presigned.FileKey,
		Kind:      string(kind),
		ExpiresAt: presigned.ExpiresAt,
	}, nil
}

// checkMediaKeys rejects keys that were not issued for this appointment.
func checkMediaKeys(appointmentID uuid.UUID, c domain.Content) error {
	prefix := MediaFolder(appointmentID) + "/"
	groups := map[string][]string{"photos": c.Photos, "videos": c.Videos, "documents": c.Documents}
	for name, keys := range groups {
		for _, key := range keys {
			if !strings.HasPrefix(key, prefix) || strings.Contains(key, "..") {
				return apperr.Validation("media key does not belong to this appointment").
					WithDetails(map[string]string{"field": name, "key": key})
			}
		}
	}
	return nil
}

func mapParticipants(in []transport.ParticipantDTO) []domain.Participant {
	out := make([]domain.Participant, 0, len(in))
	for _, p := range in {
		out = append(out, domain.Participant{
			Name:  sanitize.Text(p.Name),
			Role:  sanitize.Text(p.Role),
			Phone: strings.TrimSpace(p.Phone),
		})
	}
	return out
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

func mapResponse(r domain.Report, includeInternal bool) transport.ReportResponse {
	c := r.Content
	participants := make([]transport.ParticipantDTO, 0, len(c.Participants))
	for _, p := range c.Participants {
		participants = append(participants, transport.ParticipantDTO{Name: p.Name, Role: p.Role, Phone: p.Phone})
	}

	resp := transport.ReportResponse{
		ID:                r.ID,
		AppointmentID:     r.AppointmentID,
		LeadID:            r.LeadID,
		OfficeID:          r.OfficeID,
		SubmittedBy:       r.SubmittedBy,
		MeetingType:       c.MeetingType,
		Participants:      participants,
		ParticipantCount:  c.ParticipantCount,
		DecisionStatus:    c.DecisionStatus,
		NextSteps:         c.NextSteps,
		PresentationGiven: c.PresentationGiven,
		SiteVisitDone:     c.SiteVisitDone,
		BuildingCondition: c.BuildingCondition,
		BuildingData: transport.BuildingDataResponse{
			FloorCount:       c.BuildingData.FloorCount,
			UnitCount:        c.BuildingData.UnitCount,
			BuildingAge:      c.BuildingData.BuildingAge,
			PlotArea:         c.BuildingData.PlotArea,
			HasBasement:      c.BuildingData.HasBasement,
			RiskReportExists: c.BuildingData.RiskReportExists,
			Notes:            c.BuildingData.Notes,
		},
		Photos:            nonNil(c.Photos),
		Videos:            nonNil(c.Videos),
		Documents:         nonNil(c.Documents),
		Summary:           c.Summary,
		CompletenessScore: r.CompletenessScore,
		ReportDeadline:    r.ReportDeadline,
		SubmittedAt:       r.SubmittedAt,
		IsLate:            r.IsLate,
	}
	if includeInternal {
		notes := c.InternalNotes
		resp.InternalNotes = &notes
	}
	return resp
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
