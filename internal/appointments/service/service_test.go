package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"franchise_crm/internal/appointments/domain"
	"franchise_crm/internal/appointments/repository"
	"franchise_crm/internal/appointments/transport"
	"franchise_crm/internal/authz"
	"franchise_crm/internal/events"
	leaddomain "franchise_crm/internal/leads/domain"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/httpkit"
	"franchise_crm/platform/logger"

	"github.com/google/uuid"
)

type pipelineConfig struct{}

func (pipelineConfig) GetFirstCallSLA() time.Duration       { return 30 * time.Minute }
func (pipelineConfig) GetConfirmationWindow() time.Duration { return 2 * time.Hour }
func (pipelineConfig) GetReportWindow() time.Duration       { return 24 * time.Hour }
func (pipelineConfig) GetSLAScanInterval() time.Duration    { return 5 * time.Minute }

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for _, e := range b.published {
		out = append(out, e.EventName())
	}
	return out
}

// fakeStore mirrors the repository's transactional behaviour in memory.
type fakeStore struct {
	appointments map[uuid.UUID]domain.Appointment
	leads        map[uuid.UUID]leaddomain.Lead
	lastList     repository.ListParams
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appointments: map[uuid.UUID]domain.Appointment{},
		leads:        map[uuid.UUID]leaddomain.Lead{},
	}
}

func (f *fakeStore) Create(_ context.Context, a domain.Appointment) (repository.CreateResult, error) {
	lead, ok := f.leads[a.LeadID]
	if !ok {
		return repository.CreateResult{}, apperr.NotFound("lead not found")
	}
	other := false
	for _, existing := range f.appointments {
		if existing.LeadID == a.LeadID && existing.Status.IsActive() {
			other = true
		}
	}
	f.appointments[a.ID] = a
	officeID := a.OfficeID
	lead.AssignedOfficeID = &officeID
	change := lead.ApplyStatus(leaddomain.StatusMeetingScheduled, a.CreatedAt)
	f.leads[lead.ID] = lead
	return repository.CreateResult{Appointment: a, Lead: lead, Change: change, HasOtherActive: other}, nil
}

func (f *fakeStore) transition(id uuid.UUID, guard repository.Guard, apply func(a *domain.Appointment, res *repository.TransitionResult) error) (repository.TransitionResult, error) {
	a, ok := f.appointments[id]
	if !ok {
		return repository.TransitionResult{}, apperr.NotFound("appointment not found")
	}
	if guard != nil {
		if err := guard(a); err != nil {
			return repository.TransitionResult{}, err
		}
	}
	var res repository.TransitionResult
	if err := apply(&a, &res); err != nil {
		return repository.TransitionResult{}, err
	}
	f.appointments[id] = a
	res.Appointment = a
	return res, nil
}

func (f *fakeStore) Confirm(_ context.Context, id, actorID uuid.UUID, alt *domain.Slot, note string, now time.Time, guard repository.Guard) (repository.TransitionResult, error) {
	return f.transition(id, guard, func(a *domain.Appointment, res *repository.TransitionResult) error {
		rescheduled, err := a.Confirm(actorID, alt, note, now)
		res.Rescheduled = rescheduled
		return err
	})
}

func (f *fakeStore) Complete(_ context.Context, id, _ uuid.UUID, now time.Time, guard repository.Guard) (repository.TransitionResult, error) {
	return f.transition(id, guard, func(a *domain.Appointment, res *repository.TransitionResult) error {
		if err := a.Complete(now); err != nil {
			return err
		}
		lead := f.leads[a.LeadID]
		res.Change = lead.ApplyStatus(leaddomain.StatusMeetingHeld, now)
		f.leads[lead.ID] = lead
		res.Lead = &lead
		return nil
	})
}

func (f *fakeStore) NoShow(_ context.Context, id, _ uuid.UUID, now time.Time, guard repository.Guard) (repository.TransitionResult, error) {
	return f.transition(id, guard, func(a *domain.Appointment, _ *repository.TransitionResult) error {
		a.MarkNoShow(now)
		return nil
	})
}

func (f *fakeStore) Cancel(_ context.Context, id, _ uuid.UUID, reason string, now time.Time, guard repository.Guard) (repository.TransitionResult, error) {
	return f.transition(id, guard, func(a *domain.Appointment, _ *repository.TransitionResult) error {
		return a.Cancel(reason, now)
	})
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (domain.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return domain.Appointment{}, apperr.NotFound("appointment not found")
	}
	return a, nil
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) (repository.ListResult, error) {
	f.lastList = params
	return repository.ListResult{Page: params.Page, PageSize: params.PageSize}, nil
}

type recordingScheduler struct {
	scheduled map[uuid.UUID]time.Time
}

func (r *recordingScheduler) ScheduleConfirmationCheck(_ context.Context, id uuid.UUID, at time.Time) error {
	r.scheduled[id] = at
	return nil
}

var testNow = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, bus *recordingBus) *Service {
	svc := New(store, bus, pipelineConfig{}, logger.New("test"))
	svc.now = func() time.Time { return testNow }
	return svc
}

func seedLead(store *fakeStore, status leaddomain.Status) leaddomain.Lead {
	lead := leaddomain.Lead{ID: uuid.New(), CustomerName: "Mehmet Kaya", Status: status, CreatedAt: testNow}
	store.leads[lead.ID] = lead
	return lead
}

func createRequest(leadID, officeID uuid.UUID) transport.CreateAppointmentRequest {
	return transport.CreateAppointmentRequest{
		LeadID:        leadID,
		OfficeID:      officeID,
		ScheduledDate: "2025-06-05",
		ScheduledTime: "14:30",
	}
}

func TestCreateForcesLeadIntoMeetingScheduled(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	sched := &recordingScheduler{scheduled: map[uuid.UUID]time.Time{}}
	svc := newTestService(store, bus)
	svc.SetConfirmationScheduler(sched)

	lead := seedLead(store, leaddomain.StatusLost)
	officeID := uuid.New()
	caller := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralCaller}, nil)

	resp, err := svc.Create(context.Background(), caller, createRequest(lead.ID, officeID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.LeadStatus != string(leaddomain.StatusMeetingScheduled) {
		t.Errorf("expected meeting_scheduled, got %s", resp.LeadStatus)
	}
	if resp.Appointment.Status != transport.AppointmentStatusPending {
		t.Errorf("expected pending, got %s", resp.Appointment.Status)
	}
	if !resp.Appointment.ConfirmationDeadline.Equal(testNow.Add(2 * time.Hour)) {
		t.Errorf("unexpected confirmation deadline %s", resp.Appointment.ConfirmationDeadline)
	}
	if store.leads[lead.ID].ClosedAt != nil {
		t.Error("leaving a terminal status must clear closed_at")
	}
	if got := sched.scheduled[resp.Appointment.ID]; !got.Equal(resp.Appointment.ConfirmationDeadline) {
		t.Errorf("expected confirmation check at deadline, got %s", got)
	}

	names := bus.names()
	if len(names) != 2 || names[0] != "appointments.created" || names[1] != "leads.status_changed" {
		t.Errorf("unexpected events: %v", names)
	}
}

func TestCreateFlagsSecondActiveAppointment(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})
	lead := seedLead(store, leaddomain.StatusFirstCallDone)
	caller := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralCaller}, nil)

	first, err := svc.Create(context.Background(), caller, createRequest(lead.ID, uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.HasOtherActive {
		t.Error("first appointment should not be flagged")
	}
	second, err := svc.Create(context.Background(), caller, createRequest(lead.ID, uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.HasOtherActive {
		t.Error("expected second active appointment to be flagged")
	}
}

func TestCreateRequiresPermission(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})
	lead := seedLead(store, leaddomain.StatusReceived)
	rep := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeFieldRep}, nil)

	_, err := svc.Create(context.Background(), rep, createRequest(lead.ID, uuid.New()))
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestConfirmRespectsOfficeScope(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)
	lead := seedLead(store, leaddomain.StatusFirstCallDone)
	officeID := uuid.New()
	caller := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralCaller}, nil)

	created, err := svc.Create(context.Background(), caller, createRequest(lead.ID, officeID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	otherOffice := uuid.New()
	outsider := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeManager}, &otherOffice)
	_, err = svc.Confirm(context.Background(), outsider, created.Appointment.ID, transport.ConfirmAppointmentRequest{})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for another office, got %v", err)
	}

	manager := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeManager}, &officeID)
	altDate, altTime := "2025-06-06", "10:00"
	resp, err := svc.Confirm(context.Background(), manager, created.Appointment.ID, transport.ConfirmAppointmentRequest{
		AlternativeDate: &altDate,
		AlternativeTime: &altTime,
		Note:            "müşteri cuma uygun",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Appointment.Status != transport.AppointmentStatusConfirmed {
		t.Errorf("expected confirmed, got %s", resp.Appointment.Status)
	}
	if resp.Appointment.ScheduledDate != altDate || resp.Appointment.ScheduledTime != altTime {
		t.Errorf("expected reschedule to %s %s, got %s %s", altDate, altTime, resp.Appointment.ScheduledDate, resp.Appointment.ScheduledTime)
	}

	_, err = svc.Confirm(context.Background(), manager, created.Appointment.ID, transport.ConfirmAppointmentRequest{})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on second confirm, got %v", err)
	}
}

func TestCompleteAndNoShowOpenToAnyAuthenticatedUser(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)
	caller := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralCaller}, nil)
	nobody := httpkit.NewIdentity(uuid.New(), nil, nil)

	lead := seedLead(store, leaddomain.StatusFirstCallDone)
	first, err := svc.Create(context.Background(), caller, createRequest(lead.ID, uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := svc.Complete(context.Background(), nobody, first.Appointment.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.LeadStatus != string(leaddomain.StatusMeetingHeld) {
		t.Errorf("expected lead to cascade to meeting_held, got %s", resp.LeadStatus)
	}

	other := seedLead(store, leaddomain.StatusFirstCallDone)
	second, err := svc.Create(context.Background(), caller, createRequest(other.ID, uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	noShow, err := svc.NoShow(context.Background(), nobody, second.Appointment.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if noShow.Appointment.Status != transport.AppointmentStatusNoShow {
		t.Errorf("expected no_show, got %s", noShow.Appointment.Status)
	}
	if store.leads[other.ID].Status != leaddomain.StatusMeetingScheduled {
		t.Errorf("no-show must not touch the lead, got %s", store.leads[other.ID].Status)
	}
}

func TestCancelRequiresReason(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})
	lead := seedLead(store, leaddomain.StatusFirstCallDone)
	admin := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralAdmin}, nil)

	created, err := svc.Create(context.Background(), admin, createRequest(lead.ID, uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = svc.Cancel(context.Background(), admin, created.Appointment.ID, transport.CancelAppointmentRequest{Reason: "   "})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	resp, err := svc.Cancel(context.Background(), admin, created.Appointment.ID, transport.CancelAppointmentRequest{Reason: "müşteri vazgeçti"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Appointment.Status != transport.AppointmentStatusCancelled {
		t.Errorf("expected cancelled, got %s", resp.Appointment.Status)
	}
}

func TestListScopesToOwnOffice(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})
	officeID := uuid.New()
	manager := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeManager}, &officeID)

	if _, err := svc.List(context.Background(), manager, transport.ListAppointmentsRequest{PageSize: 500}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastList.OfficeID == nil || *store.lastList.OfficeID != officeID {
		t.Errorf("expected list scoped to own office, got %v", store.lastList.OfficeID)
	}
	if store.lastList.PageSize != maxPageSize || store.lastList.Page != 1 {
		t.Errorf("unexpected paging %d/%d", store.lastList.Page, store.lastList.PageSize)
	}

	_, err := svc.List(context.Background(), manager, transport.ListAppointmentsRequest{DateFrom: "2025-06-10", DateTo: "2025-06-01"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}
