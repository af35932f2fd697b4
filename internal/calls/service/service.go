package service

import (
	"context"
	"time"

	"franchise_crm/internal/authz"
	"franchise_crm/internal/calls/domain"
	"franchise_crm/internal/calls/repository"
	"franchise_crm/internal/calls/transport"
	"franchise_crm/internal/events"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/httpkit"
	"franchise_crm/platform/sanitize"

	"github.com/google/uuid"
)

// Store is the persistence the call service needs.
type Store interface {
	LogCall(ctx context.Context, call domain.CallRecord) (repository.LogResult, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.CallRecord, error)
}

// Service handles call logging.
type Service struct {
	repo     Store
	eventBus events.Bus
	now      func() time.Time
}

// New creates a new calls service.
func New(repo Store, eventBus events.Bus) *Service {
	return &Service{repo: repo, eventBus: eventBus, now: time.Now}
}

// LogCall records a contact attempt. A connected first call classifies the
// lead and completes its first call.
func (s *Service) LogCall(ctx context.Context, id httpkit.Identity, req transport.LogCallRequest) (transport.LogCallResponse, error) {
	if err := authz.Authorize(id, authz.OpLogCall); err != nil {
		return transport.LogCallResponse{}, err
	}

	answers, err := domain.ParseScriptAnswers(req.ScriptData)
	if err != nil {
		return transport.LogCallResponse{}, err
	}
	now := s.now()
	call, err := domain.NewCallRecord(req.LeadID, id.UserID(), domain.CallType(req.CallType), domain.ResultCode(req.ResultCode),
		req.DurationSeconds, answers, sanitize.Text(req.Notes), now)
	if err != nil {
		return transport.LogCallResponse{}, err
	}

	result, err := s.repo.LogCall(ctx, call)
	if err != nil {
		return transport.LogCallResponse{}, err
	}

	s.eventBus.Publish(ctx, events.CallLogged{
		BaseEvent:  events.NewBaseEventAt(now),
		CallID:     call.ID,
		LeadID:     call.LeadID,
		CallerID:   call.CallerID,
		ResultCode: string(call.ResultCode),
		Advanced:   result.Change.Changed,
	})
	if result.Change.Changed {
		actor := id.UserID()
		s.eventBus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEventAt(now),
			LeadID:    result.Lead.ID,
			OfficeID:  result.Lead.AssignedOfficeID,
			ActorID:   &actor,
			OldStatus: string(result.Change.From),
			NewStatus: string(result.Change.To),
		})
	}

	return transport.LogCallResponse{
		Call:         mapCallResponse(result.Call),
		LeadStatus:   string(result.Lead.Status),
		LeadAdvanced: result.Change.Changed,
	}, nil
}

// ListByLead is open to callers and to anyone who may see every call.
func (s *Service) ListByLead(ctx context.Context, id httpkit.Identity, leadID uuid.UUID) (transport.CallListResponse, error) {
	if !authz.HasAny(id, authz.CallsViewAll, authz.CallsMake) {
		return transport.CallListResponse{}, apperr.Forbidden("missing permission").WithDetails(map[string]string{"required": string(authz.CallsViewAll)})
	}
	calls, err := s.repo.ListByLead(ctx, leadID)
	if err != nil {
		return transport.CallListResponse{}, err
	}
	items := make([]transport.CallResponse, 0, len(calls))
	for _, c := range calls {
		items = append(items, mapCallResponse(c))
	}
	return transport.CallListResponse{Items: items}, nil
}

func mapCallResponse(c domain.CallRecord) transport.CallResponse {
	return transport.CallResponse{
		ID:              c.ID,
		LeadID:          c.LeadID,
		CallerID:        c.CallerID,
		CallType:        string(c.CallType),
		ResultCode:      string(c.ResultCode),
		DurationSeconds: c.DurationSeconds,
		ScriptData: transport.ScriptAnswersResponse{
			DecisionMaker:    c.Answers.DecisionMaker,
			WhatsAppGroup:    c.Answers.WhatsAppGroup,
			BuildingAge:      c.Answers.BuildingAge,
			Intent:           string(c.Answers.Intent),
			Grade:            c.Answers.Grade,
			MeetingReadiness: c.Answers.MeetingReadiness,
		},
		Grade:        c.Grade,
		MeetingScore: c.MeetingScore,
		Notes:        c.Notes,
		CreatedAt:    c.CreatedAt,
	}
}
