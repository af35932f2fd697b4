package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	CustomerName       string     `json:"customerName" validate:"required,min=1,max=200"`
	CustomerPhone      string     `json:"customerPhone" validate:"required,min=7,max=30"`
	CustomerEmail      string     `json:"customerEmail" validate:"omitempty,email"`
	City               string     `json:"city" validate:"omitempty,max=120"`
	District           string     `json:"district" validate:"omitempty,max=120"`
	Neighborhood       string     `json:"neighborhood" validate:"omitempty,max=120"`
	Street             string     `json:"street" validate:"omitempty,max=200"`
	DoorNo             string     `json:"doorNo" validate:"omitempty,max=20"`
	BlockNo            string     `json:"blockNo" validate:"omitempty,max=20"`
	ParcelNo           string     `json:"parcelNo" validate:"omitempty,max=20"`
	BuildingArea       *float64   `json:"buildingArea,omitempty" validate:"omitempty,gt=0"`
	UnitCount          *int       `json:"unitCount,omitempty" validate:"omitempty,min=1"`
	TransformationType string     `json:"transformationType" validate:"omitempty,max=60"`
	AssignedOfficeID   *uuid.UUID `json:"assignedOfficeId,omitempty"`
}

type ChangeStatusRequest struct {
	Status    string  `json:"status" validate:"required,oneof=received first_call_done nurturing meeting_scheduled meeting_held follow_up_call proposal_stage won lost cancelled disqualified"`
	SubStatus *string `json:"subStatus,omitempty" validate:"omitempty,max=120"`
}

// UpdateLeadRequest is a partial edit: absent fields are left as they are.
type UpdateLeadRequest struct {
	CustomerName       *string  `json:"customerName,omitempty" validate:"omitempty,min=1,max=200"`
	CustomerPhone      *string  `json:"customerPhone,omitempty" validate:"omitempty,min=7,max=30"`
	CustomerEmail      *string  `json:"customerEmail,omitempty" validate:"omitempty,email"`
	City               *string  `json:"city,omitempty" validate:"omitempty,max=120"`
	District           *string  `json:"district,omitempty" validate:"omitempty,max=120"`
	Neighborhood       *string  `json:"neighborhood,omitempty" validate:"omitempty,max=120"`
	Street             *string  `json:"street,omitempty" validate:"omitempty,max=200"`
	DoorNo             *string  `json:"doorNo,omitempty" validate:"omitempty,max=20"`
	BlockNo            *string  `json:"blockNo,omitempty" validate:"omitempty,max=20"`
	ParcelNo           *string  `json:"parcelNo,omitempty" validate:"omitempty,max=20"`
	BuildingArea       *float64 `json:"buildingArea,omitempty" validate:"omitempty,gt=0"`
	UnitCount          *int     `json:"unitCount,omitempty" validate:"omitempty,min=1"`
	TransformationType *string  `json:"transformationType,omitempty" validate:"omitempty,max=60"`
	Grade              *string  `json:"grade,omitempty" validate:"omitempty,oneof=A B C D a b c d"`
	MeetingScore       *int     `json:"meetingScore,omitempty" validate:"omitempty,min=0,max=100"`
	DecisionMaker      *string  `json:"decisionMaker,omitempty" validate:"omitempty,max=120"`
	WhatsAppGroup      *bool    `json:"whatsappGroup,omitempty"`
	BuildingAge        *int     `json:"buildingAge,omitempty" validate:"omitempty,min=0,max=300"`
	Intent             *string  `json:"intent,omitempty" validate:"omitempty,oneof=high medium low none"`
	Status             *string  `json:"status,omitempty" validate:"omitempty,oneof=received first_call_done nurturing meeting_scheduled meeting_held follow_up_call proposal_stage won lost cancelled disqualified"`
}

type AssignOfficeRequest struct {
	OfficeID uuid.UUID `json:"officeId" validate:"required"`
}

type ListLeadsRequest struct {
	Status       string `form:"status" validate:"omitempty,oneof=received first_call_done nurturing meeting_scheduled meeting_held follow_up_call proposal_stage won lost cancelled disqualified"`
	OfficeID     string `form:"officeId" validate:"omitempty,uuid"`
	Search       string `form:"search" validate:"omitempty,max=100"`
	BreachedOnly bool   `form:"breachedOnly"`
	SortBy       string `form:"sortBy" validate:"omitempty,oneof=createdAt firstCallDeadline status customerName"`
	SortOrder    string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page         int    `form:"page" validate:"omitempty,min=1"`
	PageSize     int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type LeadResponse struct {
	ID                   uuid.UUID  `json:"id"`
	ExternalID           *int64     `json:"externalId,omitempty"`
	CustomerName         string     `json:"customerName"`
	CustomerPhone        string     `json:"customerPhone"`
	CustomerEmail        string     `json:"customerEmail,omitempty"`
	City                 string     `json:"city"`
	District             string     `json:"district"`
	Neighborhood         string     `json:"neighborhood,omitempty"`
	Street               string     `json:"street,omitempty"`
	DoorNo               string     `json:"doorNo,omitempty"`
	BlockNo              string     `json:"blockNo,omitempty"`
	ParcelNo             string     `json:"parcelNo,omitempty"`
	BuildingArea         *float64   `json:"buildingArea,omitempty"`
	UnitCount            *int       `json:"unitCount,omitempty"`
	TransformationType   string     `json:"transformationType,omitempty"`
	ReviewStatus         string     `json:"reviewStatus,omitempty"`
	Source               string     `json:"source"`
	Status               string     `json:"status"`
	SubStatus            string     `json:"subStatus,omitempty"`
	AssignedOfficeID     *uuid.UUID `json:"assignedOfficeId,omitempty"`
	FirstCallDeadline    time.Time  `json:"firstCallDeadline"`
	FirstCallCompletedAt *time.Time `json:"firstCallCompletedAt,omitempty"`
	FirstCallOverdue     bool       `json:"firstCallOverdue"`
	ClosedAt             *time.Time `json:"closedAt,omitempty"`
	Grade                *string    `json:"grade,omitempty"`
	MeetingScore         *int       `json:"meetingScore,omitempty"`
	DecisionMaker        string     `json:"decisionMaker,omitempty"`
	WhatsAppGroup        *bool      `json:"whatsappGroup,omitempty"`
	BuildingAge          *int       `json:"buildingAge,omitempty"`
	Intent               string     `json:"intent,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type TimelineItem struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	ActorID   *uuid.UUID      `json:"actorId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
