package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type LogCallRequest struct {
	LeadID          uuid.UUID       `json:"leadId" validate:"required"`
	CallType        string          `json:"callType" validate:"required,oneof=first_call follow_up satisfaction"`
	ResultCode      string          `json:"resultCode" validate:"required,oneof=connected no_answer busy wrong_number call_back rejected"`
	DurationSeconds int             `json:"durationSeconds" validate:"min=0,max=86400"`
	ScriptData      json.RawMessage `json:"scriptData,omitempty"`
	Notes           string          `json:"notes" validate:"omitempty,max=4000"`
}

type ListCallsRequest struct {
	LeadID string `form:"leadId" validate:"required,uuid"`
}

type ScriptAnswersResponse struct {
	DecisionMaker    string `json:"decisionMaker,omitempty"`
	WhatsAppGroup    *bool  `json:"whatsappGroup,omitempty"`
	BuildingAge      *int   `json:"buildingAge,omitempty"`
	Intent           string `json:"intent,omitempty"`
	Grade            string `json:"grade,omitempty"`
	MeetingReadiness *int   `json:"meetingReadiness,omitempty"`
}

type CallResponse struct {
	ID              uuid.UUID             `json:"id"`
	LeadID          uuid.UUID             `json:"leadId"`
	CallerID        uuid.UUID             `json:"callerId"`
	CallType        string                `json:"callType"`
	ResultCode      string                `json:"resultCode"`
	DurationSeconds int                   `json:"durationSeconds"`
	ScriptData      ScriptAnswersResponse `json:"scriptData"`
	Grade           *string               `json:"grade,omitempty"`
	MeetingScore    *int                  `json:"meetingScore,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
}

type LogCallResponse struct {
	Call         CallResponse `json:"call"`
	LeadStatus   string       `json:"leadStatus"`
	LeadAdvanced bool         `json:"leadAdvanced"`
}

type CallListResponse struct {
	Items []CallResponse `json:"items"`
}
