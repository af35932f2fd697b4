package domain

import (
	"testing"
	"time"

	leaddomain "franchise_crm/internal/leads/domain"
	"franchise_crm/platform/apperr"

	"github.com/google/uuid"
)

func TestParseScriptAnswersRejectsUnknownKeys(t *testing.T) {
	_, err := ParseScriptAnswers([]byte(`{"intent":"high","favourite_colour":"blue"}`))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseScriptAnswersValidatesRanges(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"empty", ``, true},
		{"null", `null`, true},
		{"full", `{"decision_maker":"owner","whatsapp_group":true,"building_age":35,"intent":"medium","grade":"b","meeting_readiness":70}`, true},
		{"bad intent", `{"intent":"maybe"}`, false},
		{"bad grade", `{"grade":"E"}`, false},
		{"readiness over 100", `{"meeting_readiness":101}`, false},
		{"negative age", `{"building_age":-1}`, false},
		{"wrong type", `{"whatsapp_group":"yes"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScriptAnswers([]byte(tt.raw))
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestResolvedGrade(t *testing.T) {
	tests := []struct {
		name    string
		answers ScriptAnswers
		want    string
	}{
		{"explicit wins", ScriptAnswers{Grade: "C", Intent: IntentHigh, DecisionMaker: "owner"}, "C"},
		{"high with decision maker", ScriptAnswers{Intent: IntentHigh, DecisionMaker: "owner"}, "A"},
		{"high without decision maker", ScriptAnswers{Intent: IntentHigh}, "B"},
		{"medium", ScriptAnswers{Intent: IntentMedium, DecisionMaker: "tenant"}, "B"},
		{"low", ScriptAnswers{Intent: IntentLow}, "C"},
		{"none", ScriptAnswers{Intent: IntentNone}, "D"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.answers.ResolvedGrade()
			if got == nil || *got != tt.want {
				t.Fatalf("expected %s, got %v", tt.want, got)
			}
		})
	}

	if (ScriptAnswers{}).ResolvedGrade() != nil {
		t.Error("expected no grade without intent")
	}
}

func TestNewCallRecordDerivesFields(t *testing.T) {
	readiness := 65
	answers := ScriptAnswers{Intent: IntentHigh, DecisionMaker: "owner", MeetingReadiness: &readiness}

	rec, err := NewCallRecord(uuid.New(), uuid.New(), CallTypeFirstCall, ResultConnected, 120, answers, "", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Connected() {
		t.Error("expected connected")
	}
	if rec.Grade == nil || *rec.Grade != "A" || rec.MeetingScore == nil || *rec.MeetingScore != 65 {
		t.Fatalf("unexpected derived values %v %v", rec.Grade, rec.MeetingScore)
	}

	if _, err := NewCallRecord(uuid.New(), uuid.New(), "cold_call", ResultConnected, 0, answers, "", time.Now()); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for call type, got %v", err)
	}
	if _, err := NewCallRecord(uuid.New(), uuid.New(), CallTypeFollowUp, "voicemail", 0, answers, "", time.Now()); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for result, got %v", err)
	}
}

func TestQualifies(t *testing.T) {
	tests := []struct {
		callType CallType
		result   ResultCode
		want     bool
	}{
		{CallTypeFirstCall, ResultConnected, true},
		{CallTypeFirstCall, ResultNoAnswer, false},
		{CallTypeFollowUp, ResultConnected, false},
		{CallTypeSatisfaction, ResultConnected, false},
	}
	for _, tt := range tests {
		c := CallRecord{CallType: tt.callType, ResultCode: tt.result}
		if got := c.Qualifies(); got != tt.want {
			t.Errorf("%s/%s: expected %v, got %v", tt.callType, tt.result, tt.want, got)
		}
	}
}

func TestApplyToSkipsNonQualifyingCall(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	age := 30
	answers := ScriptAnswers{DecisionMaker: "owner", BuildingAge: &age, Intent: IntentHigh}

	followUp, err := NewCallRecord(uuid.New(), uuid.New(), CallTypeFollowUp, ResultConnected, 60, answers, "", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lead := leaddomain.Lead{Status: leaddomain.StatusReceived}
	if _, applied := followUp.ApplyTo(&lead); applied {
		t.Fatal("follow-up call must not apply")
	}
	if lead.Grade != nil || lead.FirstCallCompletedAt != nil || lead.Status != leaddomain.StatusReceived {
		t.Fatalf("lead changed by follow-up call: %+v", lead)
	}

	first, err := NewCallRecord(uuid.New(), uuid.New(), CallTypeFirstCall, ResultConnected, 60, answers, "", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	change, applied := first.ApplyTo(&lead)
	if !applied || !change.Changed || lead.Status != leaddomain.StatusFirstCallDone {
		t.Fatalf("expected first call to advance the lead, got %s", lead.Status)
	}
	if lead.Grade == nil || *lead.Grade != "A" || lead.DecisionMaker != "owner" || lead.BuildingAge == nil || lead.Intent != "high" {
		t.Fatalf("profile not copied: %+v", lead)
	}
}
