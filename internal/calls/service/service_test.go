package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"franchise_crm/internal/authz"
	"franchise_crm/internal/calls/domain"
	"franchise_crm/internal/calls/repository"
	"franchise_crm/internal/calls/transport"
	"franchise_crm/internal/events"
	leaddomain "franchise_crm/internal/leads/domain"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/httpkit"

	"github.com/google/uuid"
)

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

// fakeStore applies calls to in-memory leads the way the repository does.
type fakeStore struct {
	leads map[uuid.UUID]leaddomain.Lead
	calls []domain.CallRecord
}

func (f *fakeStore) LogCall(_ context.Context, call domain.CallRecord) (repository.LogResult, error) {
	lead, ok := f.leads[call.LeadID]
	if !ok {
		return repository.LogResult{}, apperr.NotFound("lead not found")
	}
	change, _ := call.ApplyTo(&lead)
	f.leads[lead.ID] = lead
	f.calls = append(f.calls, call)
	return repository.LogResult{Call: call, Lead: lead, Change: change}, nil
}

func (f *fakeStore) ListByLead(_ context.Context, leadID uuid.UUID) ([]domain.CallRecord, error) {
	out := []domain.CallRecord{}
	for _, c := range f.calls {
		if c.LeadID == leadID {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestConnectedCallAdvancesReceivedLead(t *testing.T) {
	created := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	lead := leaddomain.Lead{ID: uuid.New(), Status: leaddomain.StatusReceived, FirstCallDeadline: created.Add(30 * time.Minute)}
	store := &fakeStore{leads: map[uuid.UUID]leaddomain.Lead{lead.ID: lead}}
	bus := &recordingBus{}
	svc := New(store, bus)
	svc.now = func() time.Time { return created.Add(10 * time.Minute) }
	caller := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralCaller}, nil)

	resp, err := svc.LogCall(context.Background(), caller, transport.LogCallRequest{
		LeadID:     lead.ID,
		CallType:   "first_call",
		ResultCode: "connected",
		ScriptData: json.RawMessage(`{"intent":"high","decision_maker":"owner","meeting_readiness":90}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.LeadAdvanced || resp.LeadStatus != "first_call_done" {
		t.Fatalf("expected advance to first_call_done, got %+v", resp)
	}
	stored := store.leads[lead.ID]
	if stored.FirstCallCompletedAt == nil || !stored.FirstCallCompletedAt.Equal(created.Add(10*time.Minute)) {
		t.Fatalf("unexpected first call completion %v", stored.FirstCallCompletedAt)
	}
	if stored.Grade == nil || *stored.Grade != "A" {
		t.Fatalf("expected grade A, got %v", stored.Grade)
	}
	if stored.DecisionMaker != "owner" || stored.Intent != "high" {
		t.Fatalf("expected profile from script answers, got %q/%q", stored.DecisionMaker, stored.Intent)
	}
	if len(bus.published) != 2 {
		t.Fatalf("expected call and status events, got %d", len(bus.published))
	}
}

func TestUnansweredCallLeavesLeadAlone(t *testing.T) {
	lead := leaddomain.Lead{ID: uuid.New(), Status: leaddomain.StatusReceived}
	store := &fakeStore{leads: map[uuid.UUID]leaddomain.Lead{lead.ID: lead}}
	bus := &recordingBus{}
	svc := New(store, bus)
	caller := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralCaller}, nil)

	resp, err := svc.LogCall(context.Background(), caller, transport.LogCallRequest{
		LeadID: lead.ID, CallType: "first_call", ResultCode: "no_answer",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.LeadAdvanced || resp.LeadStatus != "received" {
		t.Fatalf("unexpected lead change %+v", resp)
	}
	if store.leads[lead.ID].FirstCallCompletedAt != nil {
		t.Fatal("first call must stay open")
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected only the call event, got %d", len(bus.published))
	}
}

func TestConnectedFollowUpCallLeavesQualificationAlone(t *testing.T) {
	first := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	grade := "C"
	score := 20
	lead := leaddomain.Lead{
		ID:                   uuid.New(),
		Status:               leaddomain.StatusNurturing,
		FirstCallCompletedAt: &first,
		Grade:                &grade,
		MeetingScore:         &score,
		UpdatedAt:            first,
	}
	store := &fakeStore{leads: map[uuid.UUID]leaddomain.Lead{lead.ID: lead}}
	bus := &recordingBus{}
	svc := New(store, bus)
	svc.now = func() time.Time { return first.Add(48 * time.Hour) }
	caller := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralCaller}, nil)

	for _, callType := range []string{"follow_up", "satisfaction"} {
		resp, err := svc.LogCall(context.Background(), caller, transport.LogCallRequest{
			LeadID:     lead.ID,
			CallType:   callType,
			ResultCode: "connected",
			ScriptData: json.RawMessage(`{"intent":"high","decision_maker":"owner","meeting_readiness":95}`),
		})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", callType, err)
		}
		if resp.LeadAdvanced || resp.LeadStatus != "nurturing" {
			t.Fatalf("%s: unexpected lead change %+v", callType, resp)
		}
	}

	stored := store.leads[lead.ID]
	if stored.Grade == nil || *stored.Grade != "C" {
		t.Errorf("grade must stay C, got %v", stored.Grade)
	}
	if stored.MeetingScore == nil || *stored.MeetingScore != 20 {
		t.Errorf("meeting score must stay 20, got %v", stored.MeetingScore)
	}
	if stored.FirstCallCompletedAt == nil || !stored.FirstCallCompletedAt.Equal(first) {
		t.Errorf("first_call_completed_at must stay %s, got %v", first, stored.FirstCallCompletedAt)
	}
	if stored.DecisionMaker != "" || stored.Intent != "" {
		t.Errorf("profile must not be written, got %q/%q", stored.DecisionMaker, stored.Intent)
	}
	if len(store.calls) != 2 || len(bus.published) != 2 {
		t.Fatalf("expected both calls logged with only call events, got %d calls %d events", len(store.calls), len(bus.published))
	}
}

func TestLogCallValidatesBeforeWriting(t *testing.T) {
	lead := leaddomain.Lead{ID: uuid.New(), Status: leaddomain.StatusReceived}
	store := &fakeStore{leads: map[uuid.UUID]leaddomain.Lead{lead.ID: lead}}
	svc := New(store, &recordingBus{})
	caller := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralCaller}, nil)

	_, err := svc.LogCall(context.Background(), caller, transport.LogCallRequest{
		LeadID: lead.ID, CallType: "first_call", ResultCode: "connected",
		ScriptData: json.RawMessage(`{"mood":"happy"}`),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.calls) != 0 {
		t.Fatal("nothing should be stored")
	}
}

func TestLogCallPermissionAndMissingLead(t *testing.T) {
	office := uuid.New()
	store := &fakeStore{leads: map[uuid.UUID]leaddomain.Lead{}}
	svc := New(store, &recordingBus{})

	rep := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeFieldRep}, &office)
	_, err := svc.LogCall(context.Background(), rep, transport.LogCallRequest{LeadID: uuid.New(), CallType: "first_call", ResultCode: "busy"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	caller := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralCaller}, nil)
	_, err = svc.LogCall(context.Background(), caller, transport.LogCallRequest{LeadID: uuid.New(), CallType: "first_call", ResultCode: "busy"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
