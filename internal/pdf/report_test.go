package pdf

import (
	"bytes"
	"testing"
	"time"

	"franchise_crm/internal/reports/domain"
	"franchise_crm/internal/reports/transport"

	"github.com/google/uuid"
)

func TestGenerateReportPDF(t *testing.T) {
	floors := 6
	notes := "Yönetici ikinci görüşme istiyor."
	report := transport.ReportResponse{
		ID:                uuid.New(),
		AppointmentID:     uuid.New(),
		LeadID:            uuid.New(),
		OfficeID:          uuid.New(),
		MeetingType:       "office",
		Participants:      []transport.ParticipantDTO{{Name: "Ayşe Yılmaz", Role: "yönetici"}},
		ParticipantCount:  1,
		DecisionStatus:    domain.DecisionThinking,
		SiteVisitDone:     true,
		BuildingCondition: domain.ConditionPoor,
		BuildingData:      transport.BuildingDataResponse{FloorCount: &floors},
		Photos:            []string{"reports/a/1.jpg"},
		Summary:           "Kat malikleri dönüşüm sürecini değerlendirecek.",
		InternalNotes:     &notes,
		CompletenessScore: 85,
		ReportDeadline:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		SubmittedAt:       time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		IsLate:            true,
	}

	doc, err := GenerateReportPDF(report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		t.Fatalf("expected PDF header, got %q", doc[:min(len(doc), 8)])
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{decisionLabel(domain.DecisionPositive), "Olumlu"},
		{decisionLabel(""), "-"},
		{decisionLabel("custom"), "custom"},
		{conditionLabel(domain.ConditionCritical), "Kritik"},
		{yesNo(true), "Evet"},
		{shortID("3f2a9c1e-0000-0000-0000-000000000000"), "#3F2A9C1E"},
		{joinParts([]string{"a", "", "b"}, " · "), "a · b"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestBuildingRowsSkipsUnsetFields(t *testing.T) {
	area := 420.5
	rows := buildingRows(transport.BuildingDataResponse{PlotArea: &area})
	if len(rows) != 1 || rows[0][1] != "420.50 m²" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if len(buildingRows(transport.BuildingDataResponse{})) != 0 {
		t.Fatal("expected no rows for empty building data")
	}
}
