// Package domain holds call records and the typed script payload captured
// during a call.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	leaddomain "franchise_crm/internal/leads/domain"
	"franchise_crm/platform/apperr"

	"github.com/google/uuid"
)

// CallType classifies why the lead was called.
type CallType string

const (
	CallTypeFirstCall    CallType = "first_call"
	CallTypeFollowUp     CallType = "follow_up"
	CallTypeSatisfaction CallType = "satisfaction"
)

// ResultCode is the outcome of a contact attempt.
type ResultCode string

const (
	ResultConnected   ResultCode = "connected"
	ResultNoAnswer    ResultCode = "no_answer"
	ResultBusy        ResultCode = "busy"
	ResultWrongNumber ResultCode = "wrong_number"
	ResultCallBack    ResultCode = "call_back"
	ResultRejected    ResultCode = "rejected"
)

// Intent is the customer's stated interest.
type Intent string

const (
	IntentHigh   Intent = "high"
	IntentMedium Intent = "medium"
	IntentLow    Intent = "low"
	IntentNone   Intent = "none"
)

// Grades are the lead classification letters, best first.
var Grades = []string{"A", "B", "C", "D"}

// ScriptAnswers is the structured payload extracted from the call script.
// Only these keys are accepted.
type ScriptAnswers struct {
	DecisionMaker    string `json:"decision_maker,omitempty"`
	WhatsAppGroup    *bool  `json:"whatsapp_group,omitempty"`
	BuildingAge      *int   `json:"building_age,omitempty"`
	Intent           Intent `json:"intent,omitempty"`
	Grade            string `json:"grade,omitempty"`
	MeetingReadiness *int   `json:"meeting_readiness,omitempty"`
}

// ParseScriptAnswers decodes raw strictly: unknown keys and out-of-range
// values are validation errors. An empty payload is allowed.
func ParseScriptAnswers(raw []byte) (ScriptAnswers, error) {
	var a ScriptAnswers
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return a, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return ScriptAnswers{}, apperr.Validation("invalid script answers").WithDetails(err.Error())
	}
	a.DecisionMaker = strings.TrimSpace(a.DecisionMaker)
	a.Grade = strings.ToUpper(strings.TrimSpace(a.Grade))
	if err := a.Validate(); err != nil {
		return ScriptAnswers{}, err
	}
	return a, nil
}

// Validate checks enum membership and ranges.
func (a ScriptAnswers) Validate() error {
	switch a.Intent {
	case "", IntentHigh, IntentMedium, IntentLow, IntentNone:
	default:
		return apperr.Validation("invalid intent").WithDetails(map[string]string{"intent": string(a.Intent)})
	}
	if a.Grade != "" && !validGrade(a.Grade) {
		return apperr.Validation("invalid grade").WithDetails(map[string]string{"grade": a.Grade})
	}
	if a.MeetingReadiness != nil && (*a.MeetingReadiness < 0 || *a.MeetingReadiness > 100) {
		return apperr.Validation("meeting readiness must be between 0 and 100")
	}
	if a.BuildingAge != nil && (*a.BuildingAge < 0 || *a.BuildingAge > 300) {
		return apperr.Validation("building age out of range")
	}
	return nil
}

func validGrade(g string) bool {
	for _, v := range Grades {
		if v == g {
			return true
		}
	}
	return false
}

// ResolvedGrade is the explicit grade when given, otherwise derived from the
// intent. Without either it is nil.
func (a ScriptAnswers) ResolvedGrade() *string {
	if a.Grade != "" {
		g := a.Grade
		return &g
	}
	var g string
	switch a.Intent {
	case "":
		return nil
	case IntentHigh:
		if a.DecisionMaker != "" {
			g = "A"
		} else {
			g = "B"
		}
	case IntentMedium:
		g = "B"
	case IntentLow:
		g = "C"
	default:
		g = "D"
	}
	return &g
}

// ResolvedScore is the meeting-readiness score, if captured.
func (a ScriptAnswers) ResolvedScore() *int {
	if a.MeetingReadiness == nil {
		return nil
	}
	s := *a.MeetingReadiness
	return &s
}

// CallRecord is one immutable contact attempt against a lead.
type CallRecord struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	CallerID        uuid.UUID
	CallType        CallType
	ResultCode      ResultCode
	DurationSeconds int
	Answers         ScriptAnswers
	Grade           *string
	MeetingScore    *int
	Notes           string
	CreatedAt       time.Time
}

// NewCallRecord resolves the derived grade and score from the answers.
func NewCallRecord(leadID, callerID uuid.UUID, callType CallType, result ResultCode, duration int, answers ScriptAnswers, notes string, at time.Time) (CallRecord, error) {
	if !validCallType(callType) {
		return CallRecord{}, apperr.Validation(fmt.Sprintf("unknown call type %q", callType))
	}
	if !validResult(result) {
		return CallRecord{}, apperr.Validation(fmt.Sprintf("unknown result code %q", result))
	}
	return CallRecord{
		ID:              uuid.New(),
		LeadID:          leadID,
		CallerID:        callerID,
		CallType:        callType,
		ResultCode:      result,
		DurationSeconds: duration,
		Answers:         answers,
		Grade:           answers.ResolvedGrade(),
		MeetingScore:    answers.ResolvedScore(),
		Notes:           notes,
		CreatedAt:       at,
	}, nil
}

// Connected reports whether the call reached the customer.
func (c CallRecord) Connected() bool {
	return c.ResultCode == ResultConnected
}

// Qualifies reports whether the call counts as the lead's first call. Only a
// connected first_call classifies the lead; follow-up and satisfaction calls
// are logged without touching it.
func (c CallRecord) Qualifies() bool {
	return c.CallType == CallTypeFirstCall && c.Connected()
}

// Qualification is the lead profile carried by the call.
func (c CallRecord) Qualification() leaddomain.Qualification {
	return leaddomain.Qualification{
		Grade:         c.Grade,
		MeetingScore:  c.MeetingScore,
		DecisionMaker: c.Answers.DecisionMaker,
		WhatsAppGroup: c.Answers.WhatsAppGroup,
		BuildingAge:   c.Answers.BuildingAge,
		Intent:        string(c.Answers.Intent),
	}
}

// ApplyTo records a qualifying call on lead. Any other call leaves the lead
// as it is and reports no change.
func (c CallRecord) ApplyTo(lead *leaddomain.Lead) (leaddomain.StatusChange, bool) {
	if !c.Qualifies() {
		return leaddomain.StatusChange{From: lead.Status, To: lead.Status}, false
	}
	return lead.RecordConnectedCall(c.Qualification(), c.CreatedAt), true
}

func validCallType(t CallType) bool {
	switch t {
	case CallTypeFirstCall, CallTypeFollowUp, CallTypeSatisfaction:
		return true
	}
	return false
}

func validResult(r ResultCode) bool {
	switch r {
	case ResultConnected, ResultNoAnswer, ResultBusy, ResultWrongNumber, ResultCallBack, ResultRejected:
		return true
	}
	return false
}
