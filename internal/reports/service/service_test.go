package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"franchise_crm/internal/adapters/storage"
	apptdomain "franchise_crm/internal/appointments/domain"
	"franchise_crm/internal/authz"
	"franchise_crm/internal/events"
	"franchise_crm/internal/reports/domain"
	"franchise_crm/internal/reports/repository"
	"franchise_crm/internal/reports/transport"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/httpkit"

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

type fakeStore struct {
	appointments map[uuid.UUID]apptdomain.Appointment
	reports      map[uuid.UUID]domain.Report
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appointments: map[uuid.UUID]apptdomain.Appointment{},
		reports:      map[uuid.UUID]domain.Report{},
	}
}

func (f *fakeStore) Submit(_ context.Context, appointmentID uuid.UUID, build repository.Builder) (domain.Report, error) {
	a, ok := f.appointments[appointmentID]
	if !ok {
		return domain.Report{}, apperr.NotFound("appointment not found")
	}
	for _, r := range f.reports {
		if r.AppointmentID == appointmentID {
			return domain.Report{}, apperr.Conflict("a meeting report already exists for this appointment")
		}
	}
	r, err := build(a)
	if err != nil {
		return domain.Report{}, err
	}
	f.reports[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (domain.Report, error) {
	r, ok := f.reports[id]
	if !ok {
		return domain.Report{}, apperr.NotFound("meeting report not found")
	}
	return r, nil
}

func (f *fakeStore) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (domain.Report, error) {
	for _, r := range f.reports {
		if r.AppointmentID == appointmentID {
			return r, nil
		}
	}
	return domain.Report{}, apperr.NotFound("meeting report not found")
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) (repository.ListResult, error) {
	return repository.ListResult{Page: params.Page, PageSize: params.PageSize}, nil
}

type fakeMedia struct {
	folder string
	err    error
}

func (m *fakeMedia) GenerateUploadURL(_ context.Context, folder, fileName, _ string, _ int64) (*storage.PresignedURL, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.folder = folder
	return &storage.PresignedURL{URL: "https://minio.local/put", FileKey: folder + "/" + fileName}, nil
}

// 2025-06-05 14:30 in the booking zone.
func seedAppointment(store *fakeStore, officeID uuid.UUID) apptdomain.Appointment {
	a := apptdomain.Appointment{
		ID:            uuid.New(),
		LeadID:        uuid.New(),
		OfficeID:      officeID,
		ScheduledDate: time.Date(2025, 6, 5, 0, 0, 0, 0, apptdomain.Local),
		ScheduledTime: "14:30",
		Status:        apptdomain.StatusCompleted,
	}
	store.appointments[a.ID] = a
	return a
}

func newTestService(store *fakeStore, media storage.MediaStore, bus *recordingBus, now time.Time) *Service {
	svc := New(store, media, bus, pipelineConfig{})
	svc.now = func() time.Time { return now }
	return svc
}

func TestSubmitStampsDeadlineAndLateness(t *testing.T) {
	officeID := uuid.New()
	rep := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeFieldRep}, &officeID)

	tests := []struct {
		name     string
		now      time.Time
		wantLate bool
	}{
		{"within window", time.Date(2025, 6, 6, 14, 30, 0, 0, apptdomain.Local), false},
		{"after window", time.Date(2025, 6, 6, 14, 31, 0, 0, apptdomain.Local), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			bus := &recordingBus{}
			a := seedAppointment(store, officeID)
			svc := newTestService(store, nil, bus, tt.now)

			resp, err := svc.Submit(context.Background(), rep, transport.SubmitReportRequest{
				AppointmentID: a.ID,
				Summary:       "Site yönetimi kentsel dönüşüm için oylama yapacak.",
				InternalNotes: "yönetici ikna edilmeli",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			wantDeadline := time.Date(2025, 6, 6, 14, 30, 0, 0, apptdomain.Local)
			if !resp.ReportDeadline.Equal(wantDeadline) {
				t.Errorf("expected deadline %s, got %s", wantDeadline, resp.ReportDeadline)
			}
			if resp.IsLate != tt.wantLate {
				t.Errorf("expected late=%v, got %v", tt.wantLate, resp.IsLate)
			}
			if resp.CompletenessScore != 15 {
				t.Errorf("expected score 15 for summary only, got %d", resp.CompletenessScore)
			}
			if len(bus.published) != 1 || bus.published[0].EventName() != "reports.submitted" {
				t.Errorf("expected one reports.submitted event, got %v", bus.published)
			}
		})
	}
}

func TestSubmitRejectsDuplicate(t *testing.T) {
	officeID := uuid.New()
	store := newFakeStore()
	a := seedAppointment(store, officeID)
	svc := newTestService(store, nil, &recordingBus{}, time.Now())
	rep := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeFieldRep}, &officeID)
	req := transport.SubmitReportRequest{AppointmentID: a.ID, Summary: "ilk görüşme yapıldı"}

	if _, err := svc.Submit(context.Background(), rep, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Submit(context.Background(), rep, req); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSubmitErrors(t *testing.T) {
	officeID := uuid.New()
	otherOffice := uuid.New()
	store := newFakeStore()
	a := seedAppointment(store, officeID)
	svc := newTestService(store, nil, &recordingBus{}, time.Now())

	rep := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeFieldRep}, &officeID)
	outsider := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeFieldRep}, &otherOffice)
	caller := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralCaller}, nil)

	tests := []struct {
		name string
		id   httpkit.Identity
		req  transport.SubmitReportRequest
		want apperr.Kind
	}{
		{"missing appointment", rep, transport.SubmitReportRequest{AppointmentID: uuid.New(), Summary: "x"}, apperr.KindNotFound},
		{"no permission", caller, transport.SubmitReportRequest{AppointmentID: a.ID, Summary: "x"}, apperr.KindForbidden},
		{"other office", outsider, transport.SubmitReportRequest{AppointmentID: a.ID, Summary: "x"}, apperr.KindForbidden},
		{"blank summary", rep, transport.SubmitReportRequest{AppointmentID: a.ID, Summary: "<b></b>"}, apperr.KindValidation},
		{"foreign media key", rep, transport.SubmitReportRequest{
			AppointmentID: a.ID, Summary: "x", Photos: []string{"reports/" + uuid.NewString() + "/photo/a.jpg"},
		}, apperr.KindValidation},
		{"unknown building key", rep, transport.SubmitReportRequest{
			AppointmentID: a.ID, Summary: "x", BuildingData: []byte(`{"roof":"flat"}`),
		}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.id, tt.req)
			if !apperr.Is(err, tt.want) {
				t.Fatalf("expected kind %v, got %v", tt.want, err)
			}
		})
	}
}

func TestInternalNotesHiddenWithoutPermission(t *testing.T) {
	officeID := uuid.New()
	store := newFakeStore()
	a := seedAppointment(store, officeID)
	svc := newTestService(store, nil, &recordingBus{}, time.Now())
	rep := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeFieldRep}, &officeID)

	created, err := svc.Submit(context.Background(), rep, transport.SubmitReportRequest{
		AppointmentID: a.ID,
		Summary:       "görüşme olumlu",
		InternalNotes: "fiyat hassasiyeti yüksek",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetByID(context.Background(), rep, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.InternalNotes != nil {
		t.Error("field rep must not see internal notes")
	}

	sales := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralSales}, nil)
	got, err = svc.GetByAppointment(context.Background(), sales, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.InternalNotes == nil || *got.InternalNotes != "fiyat hassasiyeti yüksek" {
		t.Errorf("expected internal notes for central sales, got %v", got.InternalNotes)
	}
}

func TestUploadURL(t *testing.T) {
	officeID := uuid.New()
	rep := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeFieldRep}, &officeID)
	appointmentID := uuid.New()
	req := transport.UploadURLRequest{AppointmentID: appointmentID, FileName: "cephe.jpg", ContentType: "image/jpeg", SizeBytes: 2048}

	unconfigured := newTestService(newFakeStore(), nil, &recordingBus{}, time.Now())
	if _, err := unconfigured.UploadURL(context.Background(), rep, req); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable without storage, got %v", err)
	}

	media := &fakeMedia{}
	svc := newTestService(newFakeStore(), media, &recordingBus{}, time.Now())
	resp, err := svc.UploadURL(context.Background(), rep, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if media.folder != MediaFolder(appointmentID)+"/photo" || resp.Kind != "photo" {
		t.Errorf("unexpected folder %q kind %q", media.folder, resp.Kind)
	}

	bad := req
	bad.ContentType = "application/x-sh"
	if _, err := svc.UploadURL(context.Background(), rep, bad); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for content type, got %v", err)
	}

	failing := newTestService(newFakeStore(), &fakeMedia{err: errors.New("dial tcp: refused")}, &recordingBus{}, time.Now())
	if _, err := failing.UploadURL(context.Background(), rep, req); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable on storage failure, got %v", err)
	}
}
