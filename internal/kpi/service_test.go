package kpi

import (
	"bytes"
	"context"
	"testing"
	"time"

	apptdomain "franchise_crm/internal/appointments/domain"
	franchiserepo "franchise_crm/internal/franchise/repository"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/logger"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

type memStore struct {
	counts   []Count
	start    time.Time
	end      time.Time
	upserted []Snapshot
	listed   []Snapshot
}

func (s *memStore) DayCounts(_ context.Context, start, end time.Time) ([]Count, error) {
	s.start, s.end = start, end
	return s.counts, nil
}

func (s *memStore) Upsert(_ context.Context, snaps []Snapshot) error {
	s.upserted = snaps
	return nil
}

func (s *memStore) List(context.Context, ListParams) ([]Snapshot, error) {
	return s.listed, nil
}

type fakeOffices []franchiserepo.OfficeRef

func (f fakeOffices) ListActiveRefs(context.Context) ([]franchiserepo.OfficeRef, error) {
	return f, nil
}

func newTestService(store *memStore, offices fakeOffices, now time.Time) *Service {
	svc := NewService(store, offices, logger.New("development"))
	svc.now = func() time.Time { return now }
	return svc
}

func TestSnapshotDaily(t *testing.T) {
	office := uuid.New()
	store := &memStore{counts: []Count{{Metric: MetricAppointmentsCreated, OfficeID: &office, Count: 4}}}
	now := time.Date(2026, 3, 5, 0, 5, 0, 0, apptdomain.Local)
	svc := newTestService(store, fakeOffices{{ID: office, Code: "KDK", Name: "Kadıköy"}}, now)

	snaps, err := svc.SnapshotDaily(context.Background(), Yesterday(now))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 2 || len(store.upserted) != 2 {
		t.Fatalf("expected global and office rows, got %d", len(snaps))
	}
	if store.end.Sub(store.start) != 24*time.Hour || store.start.Format(dateLayout) != "2026-03-04" {
		t.Fatalf("unexpected day window %s - %s", store.start, store.end)
	}
	if snaps[1].AppointmentsCreated != 4 || snaps[0].AppointmentsCreated != 4 {
		t.Fatalf("unexpected counters %+v", snaps)
	}
	if snaps[0].CreatedAt.IsZero() {
		t.Fatal("created at should be stamped")
	}
}

func TestSnapshotDailyRejectsFutureDay(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, apptdomain.Local)
	svc := newTestService(&memStore{}, nil, now)

	_, err := svc.SnapshotDaily(context.Background(), now.AddDate(0, 0, 1))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListValidatesRange(t *testing.T) {
	svc := newTestService(&memStore{}, nil, time.Now())
	from := time.Date(2026, 3, 5, 0, 0, 0, 0, apptdomain.Local)

	tests := []struct {
		name string
		to   time.Time
		ok   bool
	}{
		{name: "reversed", to: from.AddDate(0, 0, -1)},
		{name: "too long", to: from.AddDate(2, 0, 0)},
		{name: "one month", to: from.AddDate(0, 1, 0), ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.List(context.Background(), ListParams{From: from, To: tt.to})
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestExportWorkbook(t *testing.T) {
	office := uuid.New()
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, apptdomain.Local)
	store := &memStore{listed: []Snapshot{
		{Date: day, LeadsReceived: 7, AvgCompleteness: 81.5},
		{Date: day, OfficeID: &office, LeadsReceived: 5},
	}}
	svc := newTestService(store, fakeOffices{{ID: office, Name: "Kadıköy"}}, day.AddDate(0, 0, 1))

	data, err := svc.Export(context.Background(), ListParams{From: day, To: day})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Tarih" || rows[1][1] != "Tümü" || rows[2][1] != "Kadıköy" {
		t.Fatalf("unexpected content %v", rows)
	}
	if rows[1][0] != "2026-03-04" || rows[1][2] != "7" {
		t.Fatalf("unexpected global row %v", rows[1])
	}
}
