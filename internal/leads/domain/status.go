// Package domain holds the lead state machine. It has no storage or transport
// dependencies.
package domain

import (
	"strings"

	"franchise_crm/platform/apperr"
)

// Status is the pipeline position of a lead.
type Status string

const (
	StatusReceived         Status = "received"
	StatusFirstCallDone    Status = "first_call_done"
	StatusNurturing        Status = "nurturing"
	StatusMeetingScheduled Status = "meeting_scheduled"
	StatusMeetingHeld      Status = "meeting_held"
	StatusFollowUpCall     Status = "follow_up_call"
	StatusProposalStage    Status = "proposal_stage"
	StatusWon              Status = "won"
	StatusLost             Status = "lost"
	StatusCancelled        Status = "cancelled"
	StatusDisqualified     Status = "disqualified"
)

// Statuses lists every value in pipeline order.
var Statuses = []Status{
	StatusReceived,
	StatusFirstCallDone,
	StatusNurturing,
	StatusMeetingScheduled,
	StatusMeetingHeld,
	StatusFollowUpCall,
	StatusProposalStage,
	StatusWon,
	StatusLost,
	StatusCancelled,
	StatusDisqualified,
}

// ParseStatus accepts only the closed set of statuses.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", apperr.Validation("unknown lead status").WithDetails(map[string]string{"status": raw})
	}
	return s, nil
}

// Valid reports whether s is a member of the enum.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s closes the lead.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusWon, StatusLost, StatusCancelled, StatusDisqualified:
		return true
	default:
		return false
	}
}

// StatusStrings is the enum as plain strings, for validation tags and filters.
func StatusStrings() []string {
	out := make([]string, len(Statuses))
	for i, s := range Statuses {
		out[i] = string(s)
	}
	return out
}
