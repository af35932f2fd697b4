package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	apptdomain "franchise_crm/internal/appointments/domain"
	"franchise_crm/internal/email"
	"franchise_crm/internal/kpi"
	"franchise_crm/internal/sla"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeSnapshots struct {
	days []time.Time
	err  error
}

func (f *fakeSnapshots) SnapshotDaily(_ context.Context, day time.Time) ([]kpi.Snapshot, error) {
	f.days = append(f.days, day)
	return nil, f.err
}

type fakeSender struct {
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeAppointments map[uuid.UUID]apptdomain.Appointment

func (f fakeAppointments) GetByID(_ context.Context, id uuid.UUID) (apptdomain.Appointment, error) {
	a, ok := f[id]
	if !ok {
		return apptdomain.Appointment{}, apperr.NotFound("appointment not found")
	}
	return a, nil
}

type fakeScanner struct {
	clocks []sla.Clock
}

func (f *fakeScanner) ScanClock(_ context.Context, c sla.Clock, _ time.Time) (sla.ClockResult, error) {
	f.clocks = append(f.clocks, c)
	return sla.ClockResult{Clock: c, Escalated: 1}, nil
}

var workerNow = time.Date(2026, 3, 5, 0, 5, 0, 0, apptdomain.Local)

func newTestHandlers(snaps *fakeSnapshots, sender *fakeSender, appts fakeAppointments, scanner *fakeScanner) *Handlers {
	h := NewHandlers(snaps, sender, appts, scanner, logger.New("development"))
	h.now = func() time.Time { return workerNow }
	return h
}

func TestKPISnapshotDefaultsToYesterday(t *testing.T) {
	snaps := &fakeSnapshots{}
	h := newTestHandlers(snaps, &fakeSender{}, nil, &fakeScanner{})

	task, _ := NewKPISnapshotTask(KPISnapshotPayload{})
	if err := h.handleKPISnapshot(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps.days) != 1 || snaps.days[0].Format("2006-01-02") != "2026-03-04" {
		t.Fatalf("expected yesterday, got %v", snaps.days)
	}

	task, _ = NewKPISnapshotTask(KPISnapshotPayload{Date: "2026-02-01"})
	if err := h.handleKPISnapshot(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snaps.days[1].Format("2006-01-02") != "2026-02-01" {
		t.Fatalf("expected explicit date, got %s", snaps.days[1])
	}
}

func TestKPISnapshotBadDateSkipsRetry(t *testing.T) {
	h := newTestHandlers(&fakeSnapshots{}, &fakeSender{}, nil, &fakeScanner{})

	task, _ := NewKPISnapshotTask(KPISnapshotPayload{Date: "yesterday"})
	err := h.handleKPISnapshot(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestNotificationEmailRoundTrip(t *testing.T) {
	sender := &fakeSender{}
	h := newTestHandlers(&fakeSnapshots{}, sender, nil, &fakeScanner{})

	msg := email.Message{To: "yonetici@example.com", Subject: "SLA", Heading: "SLA İhlali!", Body: "Gecikme", CTALabel: "Aç", CTAURL: "https://crm.example.com/leads/1"}
	task, err := NewNotificationEmailTask(msg)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.handleNotificationEmail(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != msg {
		t.Fatalf("expected the original message, got %+v", sender.sent)
	}
}

func TestNotificationEmailFailureRetries(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	h := newTestHandlers(&fakeSnapshots{}, sender, nil, &fakeScanner{})

	task, _ := NewNotificationEmailTask(email.Message{To: "a@example.com", Subject: "x"})
	err := h.handleNotificationEmail(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected a retryable error, got %v", err)
	}
}

func TestConfirmationCheck(t *testing.T) {
	pending, confirmed, notYet := uuid.New(), uuid.New(), uuid.New()
	appts := fakeAppointments{
		pending:   {ID: pending, Status: apptdomain.StatusPending, ConfirmationDeadline: workerNow.Add(-time.Minute)},
		confirmed: {ID: confirmed, Status: apptdomain.StatusConfirmed, ConfirmationDeadline: workerNow.Add(-time.Minute)},
		notYet:    {ID: notYet, Status: apptdomain.StatusPending, ConfirmationDeadline: workerNow.Add(time.Hour)},
	}

	tests := []struct {
		name  string
		id    uuid.UUID
		scans int
	}{
		{name: "still pending after deadline", id: pending, scans: 1},
		{name: "already confirmed", id: confirmed, scans: 0},
		{name: "deadline moved", id: notYet, scans: 0},
		{name: "deleted", id: uuid.New(), scans: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &fakeScanner{}
			h := newTestHandlers(&fakeSnapshots{}, &fakeSender{}, appts, scanner)

			task, _ := NewConfirmationCheckTask(ConfirmationCheckPayload{AppointmentID: tt.id.String()})
			if err := h.handleConfirmationCheck(context.Background(), task); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(scanner.clocks) != tt.scans {
				t.Fatalf("expected %d scans, got %d", tt.scans, len(scanner.clocks))
			}
			if tt.scans > 0 && scanner.clocks[0] != sla.ClockConfirmation {
				t.Fatalf("expected confirmation clock, got %s", scanner.clocks[0])
			}
		})
	}
}

func TestConfirmationCheckRejectsBadID(t *testing.T) {
	h := newTestHandlers(&fakeSnapshots{}, &fakeSender{}, fakeAppointments{}, &fakeScanner{})
	task, _ := NewConfirmationCheckTask(ConfirmationCheckPayload{AppointmentID: "nope"})
	if err := h.handleConfirmationCheck(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}
