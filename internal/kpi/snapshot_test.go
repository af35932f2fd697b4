package kpi

import (
	"testing"
	"time"

	apptdomain "franchise_crm/internal/appointments/domain"

	"github.com/google/uuid"
)

func TestDayBoundsUseBusinessZone(t *testing.T) {
	// 22:30 UTC on the 4th is already the 5th in Istanbul.
	instant := time.Date(2026, 3, 4, 22, 30, 0, 0, time.UTC).In(apptdomain.Local)
	start, end := DayBounds(instant)

	if got := start.UTC(); !got.Equal(time.Date(2026, 3, 4, 21, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", got)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Fatalf("expected a 24h day, got %s", end.Sub(start))
	}
}

func TestYesterday(t *testing.T) {
	now := time.Date(2026, 3, 5, 0, 10, 0, 0, apptdomain.Local)
	got := Yesterday(now)
	if got.Format(dateLayout) != "2026-03-04" {
		t.Fatalf("expected 2026-03-04, got %s", got.Format(dateLayout))
	}
}

func TestAggregate(t *testing.T) {
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, apptdomain.Local)
	a, b, idle := uuid.New(), uuid.New(), uuid.New()

	counts := []Count{
		{Metric: MetricLeadsReceived, OfficeID: &a, Count: 3},
		{Metric: MetricLeadsReceived, OfficeID: nil, Count: 2},
		{Metric: MetricReportsSubmitted, OfficeID: &a, Count: 2, Sum: 150},
		{Metric: MetricReportsSubmitted, OfficeID: &b, Count: 1, Sum: 40},
		{Metric: MetricLateReports, OfficeID: &b, Count: 1},
		{Metric: MetricWon, OfficeID: &a, Count: 1},
		{Metric: MetricLost, OfficeID: &b, Count: 2},
	}

	snaps := Aggregate(day, []uuid.UUID{a, idle}, counts)
	if len(snaps) != 4 {
		t.Fatalf("expected global + 3 offices, got %d", len(snaps))
	}

	global := snaps[0]
	if global.OfficeID != nil {
		t.Fatal("global snapshot must come first")
	}
	if global.LeadsReceived != 5 || global.ReportsSubmitted != 3 || global.Won != 1 || global.Lost != 2 {
		t.Fatalf("unexpected global totals %+v", global)
	}
	if global.AvgCompleteness != 63.33 {
		t.Fatalf("expected weighted average 63.33, got %v", global.AvgCompleteness)
	}

	byID := map[uuid.UUID]Snapshot{}
	for _, s := range snaps[1:] {
		byID[*s.OfficeID] = s
	}
	if byID[a].LeadsReceived != 3 || byID[a].AvgCompleteness != 75 {
		t.Fatalf("unexpected office a %+v", byID[a])
	}
	if byID[b].LateReports != 1 || byID[b].AvgCompleteness != 40 {
		t.Fatalf("unexpected office b %+v", byID[b])
	}
	if s, ok := byID[idle]; !ok || s.LeadsReceived != 0 || s.AvgCompleteness != 0 {
		t.Fatalf("idle office should get an empty row, got %+v", s)
	}
	for _, s := range snaps {
		if s.Date.Format(dateLayout) != "2026-03-04" {
			t.Fatalf("unexpected date %s", s.Date)
		}
	}
}
