package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ParticipantDTO struct {
	Name  string `json:"name" validate:"required,max=120"`
	Role  string `json:"role,omitempty" validate:"omitempty,max=80"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

type SubmitReportRequest struct {
	AppointmentID     uuid.UUID        `json:"appointmentId" validate:"required"`
	MeetingType       string           `json:"meetingType" validate:"omitempty,max=30"`
	Participants      []ParticipantDTO `json:"participants" validate:"omitempty,max=50,dive"`
	ParticipantCount  int              `json:"participantCount" validate:"omitempty,min=0,max=500"`
	DecisionStatus    string           `json:"decisionStatus" validate:"omitempty,oneof=positive thinking negative follow_up"`
	NextSteps         string           `json:"nextSteps" validate:"omitempty,max=2000"`
	PresentationGiven bool             `json:"presentationGiven"`
	SiteVisitDone     bool             `json:"siteVisitDone"`
	BuildingCondition string           `json:"buildingCondition" validate:"omitempty,oneof=good fair poor critical"`
	BuildingData      json.RawMessage  `json:"buildingData,omitempty"`
	Photos            []string         `json:"photos" validate:"omitempty,max=50,dive,required,max=500"`
	Videos            []string         `json:"videos" validate:"omitempty,max=20,dive,required,max=500"`
	Documents         []string         `json:"documents" validate:"omitempty,max=20,dive,required,max=500"`
	Summary           string           `json:"summary" validate:"required,max=5000"`
	InternalNotes     string           `json:"internalNotes" validate:"omitempty,max=5000"`
}

type ListReportsRequest struct {
	OfficeID string `form:"officeId" validate:"omitempty,uuid"`
	LeadID   string `form:"leadId" validate:"omitempty,uuid"`
	LateOnly bool   `form:"lateOnly"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type UploadURLRequest struct {
	AppointmentID uuid.UUID `json:"appointmentId" validate:"required"`
	FileName      string    `json:"fileName" validate:"required,max=200"`
	ContentType   string    `json:"contentType" validate:"required,max=120"`
	SizeBytes     int64     `json:"sizeBytes" validate:"required,min=1"`
}

type UploadURLResponse struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	Kind      string    `json:"kind"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type BuildingDataResponse struct {
	FloorCount       *int     `json:"floorCount,omitempty"`
	UnitCount        *int     `json:"unitCount,omitempty"`
	BuildingAge      *int     `json:"buildingAge,omitempty"`
	PlotArea         *float64 `json:"plotArea,omitempty"`
	HasBasement      *bool    `json:"hasBasement,omitempty"`
	RiskReportExists *bool    `json:"riskReportExists,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

type ReportResponse struct {
	ID                uuid.UUID            `json:"id"`
	AppointmentID     uuid.UUID            `json:"appointmentId"`
	LeadID            uuid.UUID            `json:"leadId"`
	OfficeID          uuid.UUID            `json:"officeId"`
	SubmittedBy       uuid.UUID            `json:"submittedBy"`
	MeetingType       string               `json:"meetingType,omitempty"`
	Participants      []ParticipantDTO     `json:"participants"`
	ParticipantCount  int                  `json:"participantCount"`
	DecisionStatus    string               `json:"decisionStatus,omitempty"`
	NextSteps         string               `json:"nextSteps,omitempty"`
	PresentationGiven bool                 `json:"presentationGiven"`
	SiteVisitDone     bool                 `json:"siteVisitDone"`
	BuildingCondition string               `json:"buildingCondition,omitempty"`
	BuildingData      BuildingDataResponse `json:"buildingData"`
	Photos            []string             `json:"photos"`
	Videos            []string             `json:"videos"`
	Documents         []string             `json:"documents"`
	Summary           string               `json:"summary"`
	InternalNotes     *string              `json:"internalNotes,omitempty"`
	CompletenessScore int                  `json:"completenessScore"`
	ReportDeadline    time.Time            `json:"reportDeadline"`
	SubmittedAt       time.Time            `json:"submittedAt"`
	IsLate            bool                 `json:"isLate"`
}

type ReportListResponse struct {
	Items      []ReportResponse `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}
