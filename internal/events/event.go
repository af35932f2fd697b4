// Package events defines the pipeline's domain events. Transitions publish
// them after their transaction commits; notification and escalation handlers
// consume them.
package events

import (
	"time"

	"franchise_crm/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Lead Events
// =============================================================================

// LeadIngested is published when reconciliation creates a lead from the partner system.
type LeadIngested struct {
	BaseEvent
	LeadID            uuid.UUID `json:"leadId"`
	ExternalID        int64     `json:"externalId"`
	Via               string    `json:"via"`
	FirstCallDeadline time.Time `json:"firstCallDeadline"`
}

func (e LeadIngested) EventName() string { return "leads.ingested" }

// LeadStatusChanged is published after an explicit or cascaded status change.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	OfficeID  *uuid.UUID `json:"officeId,omitempty"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
	OldStatus string     `json:"oldStatus"`
	NewStatus string     `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status_changed" }

// CallLogged is published after a call record is stored.
type CallLogged struct {
	BaseEvent
	CallID     uuid.UUID `json:"callId"`
	LeadID     uuid.UUID `json:"leadId"`
	CallerID   uuid.UUID `json:"callerId"`
	ResultCode string    `json:"resultCode"`
	Advanced   bool      `json:"advanced"`
}

func (e CallLogged) EventName() string { return "calls.logged" }

// =============================================================================
// Appointment Events
// =============================================================================

// AppointmentCreated is published when a lead is booked into an office.
type AppointmentCreated struct {
	BaseEvent
	AppointmentID        uuid.UUID `json:"appointmentId"`
	LeadID               uuid.UUID `json:"leadId"`
	OfficeID             uuid.UUID `json:"officeId"`
	CreatedBy            uuid.UUID `json:"createdBy"`
	ConfirmationDeadline time.Time `json:"confirmationDeadline"`
}

func (e AppointmentCreated) EventName() string { return "appointments.created" }

// AppointmentConfirmed is published when an office confirms an appointment.
type AppointmentConfirmed struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	LeadID        uuid.UUID `json:"leadId"`
	OfficeID      uuid.UUID `json:"officeId"`
	ConfirmedBy   uuid.UUID `json:"confirmedBy"`
	Rescheduled   bool      `json:"rescheduled"`
}

func (e AppointmentConfirmed) EventName() string { return "appointments.confirmed" }

// AppointmentCompleted is published when a meeting took place.
type AppointmentCompleted struct {
	BaseEvent
	AppointmentID  uuid.UUID `json:"appointmentId"`
	LeadID         uuid.UUID `json:"leadId"`
	OfficeID       uuid.UUID `json:"officeId"`
	ReportDeadline time.Time `json:"reportDeadline"`
}

func (e AppointmentCompleted) EventName() string { return "appointments.completed" }

// AppointmentNoShow is published when the customer did not attend.
type AppointmentNoShow struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	LeadID        uuid.UUID `json:"leadId"`
	OfficeID      uuid.UUID `json:"officeId"`
}

func (e AppointmentNoShow) EventName() string { return "appointments.no_show" }

// =============================================================================
// Report Events
// =============================================================================

// ReportSubmitted is published when a meeting report is filed.
type ReportSubmitted struct {
	BaseEvent
	ReportID          uuid.UUID `json:"reportId"`
	AppointmentID     uuid.UUID `json:"appointmentId"`
	LeadID            uuid.UUID `json:"leadId"`
	CompletenessScore int       `json:"completenessScore"`
	Late              bool      `json:"late"`
}

func (e ReportSubmitted) EventName() string { return "reports.submitted" }

// =============================================================================
// SLA Events
// =============================================================================

// SLABreached is published once per breached deadline.
type SLABreached struct {
	BaseEvent
	Clock      string      `json:"clock"`
	EntityID   uuid.UUID   `json:"entityId"`
	LeadID     uuid.UUID   `json:"leadId"`
	OfficeID   *uuid.UUID  `json:"officeId,omitempty"`
	Deadline   time.Time   `json:"deadline"`
	Recipients []uuid.UUID `json:"recipients"`
	Title      string      `json:"title"`
	Body       string      `json:"body"`
	Link       string      `json:"link"`
}

func (e SLABreached) EventName() string { return "sla.breached" }
