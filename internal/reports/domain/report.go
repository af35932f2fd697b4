// Package domain holds the meeting report model and its completeness scorer.
package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"franchise_crm/platform/apperr"

	"github.com/google/uuid"
)

// Decision statuses recorded at the end of a meeting.
const (
	DecisionPositive = "positive"
	DecisionThinking = "thinking"
	DecisionNegative = "negative"
	DecisionFollowUp = "follow_up"
)

// Building conditions observed during a site visit.
const (
	ConditionGood     = "good"
	ConditionFair     = "fair"
	ConditionPoor     = "poor"
	ConditionCritical = "critical"
)

// Participant is one person present at the meeting.
type Participant struct {
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// BuildingData is the site-survey payload. Only these keys are accepted.
type BuildingData struct {
	FloorCount       *int     `json:"floor_count,omitempty"`
	UnitCount        *int     `json:"unit_count,omitempty"`
	BuildingAge      *int     `json:"building_age,omitempty"`
	PlotArea         *float64 `json:"plot_area,omitempty"`
	HasBasement      *bool    `json:"has_basement,omitempty"`
	RiskReportExists *bool    `json:"risk_report_exists,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

// ParseBuildingData decodes a site-survey payload, rejecting unknown keys.
func ParseBuildingData(raw []byte) (BuildingData, error) {
	var data BuildingData
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return data, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&data); err != nil {
		return BuildingData{}, apperr.Validation("invalid building data").WithDetails(err.Error())
	}
	for name, v := range map[string]*int{"floor_count": data.FloorCount, "unit_count": data.UnitCount, "building_age": data.BuildingAge} {
		if v != nil && *v < 0 {
			return BuildingData{}, apperr.Validation("invalid building data").WithDetails(name + " must not be negative")
		}
	}
	return data, nil
}

// Content is everything the field agent enters about the meeting.
type Content struct {
	MeetingType       string
	Participants      []Participant
	ParticipantCount  int
	DecisionStatus    string
	NextSteps         string
	PresentationGiven bool
	SiteVisitDone     bool
	BuildingCondition string
	BuildingData      BuildingData
	Photos            []string
	Videos            []string
	Documents         []string
	Summary           string
	InternalNotes     string
}

const minScoredSummaryLen = 20

// Score awards fixed points per populated field and clamps to [0, 100].
func Score(c Content) int {
	score := 0
	if strings.TrimSpace(c.MeetingType) != "" {
		score += 10
	}
	if c.ParticipantCount > 0 {
		score += 15
	}
	if strings.TrimSpace(c.DecisionStatus) != "" {
		score += 15
	}
	if strings.TrimSpace(c.NextSteps) != "" {
		score += 15
	}
	if c.PresentationGiven {
		score += 10
	}
	if len([]rune(c.Summary)) > minScoredSummaryLen {
		score += 15
	}
	if len(c.Photos) > 0 {
		score += 10
	}
	if c.SiteVisitDone && strings.TrimSpace(c.BuildingCondition) != "" {
		score += 10
	}
	return min(max(score, 0), 100)
}

// Report is the immutable outcome of one appointment.
type Report struct {
	ID                uuid.UUID
	AppointmentID     uuid.UUID
	LeadID            uuid.UUID
	OfficeID          uuid.UUID
	SubmittedBy       uuid.UUID
	Content           Content
	CompletenessScore int
	ReportDeadline    time.Time
	SubmittedAt       time.Time
	IsLate            bool
}

// New scores the content and stamps lateness against the deadline.
func New(appointmentID, leadID, officeID, submittedBy uuid.UUID, content Content, deadline, now time.Time) Report {
	if content.ParticipantCount == 0 && len(content.Participants) > 0 {
		content.ParticipantCount = len(content.Participants)
	}
	return Report{
		ID:                uuid.New(),
		AppointmentID:     appointmentID,
		LeadID:            leadID,
		OfficeID:          officeID,
		SubmittedBy:       submittedBy,
		Content:           content,
		CompletenessScore: Score(content),
		ReportDeadline:    deadline,
		SubmittedAt:       now,
		IsLate:            now.After(deadline),
	}
}
