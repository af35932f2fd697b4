package transport

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

type CreateAppointmentRequest struct {
	LeadID          uuid.UUID  `json:"leadId" validate:"required"`
	OfficeID        uuid.UUID  `json:"officeId" validate:"required"`
	ScheduledDate   string     `json:"scheduledDate" validate:"required,datetime=2006-01-02"`
	ScheduledTime   string     `json:"scheduledTime" validate:"required,hhmm"`
	EndTime         *string    `json:"endTime,omitempty" validate:"omitempty,hhmm"`
	LocationType    string     `json:"locationType" validate:"omitempty,oneof=office site online"`
	LocationAddress string     `json:"locationAddress" validate:"omitempty,max=300"`
	AssignedTo      *uuid.UUID `json:"assignedTo,omitempty"`
	Notes           string     `json:"notes" validate:"omitempty,max=2000"`
}

type ConfirmAppointmentRequest struct {
	AlternativeDate *string `json:"alternativeDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AlternativeTime *string `json:"alternativeTime,omitempty" validate:"omitempty,hhmm"`
	Note            string  `json:"note" validate:"omitempty,max=1000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type ListAppointmentsRequest struct {
	OfficeID  string `form:"officeId" validate:"omitempty,uuid"`
	LeadID    string `form:"leadId" validate:"omitempty,uuid"`
	Status    string `form:"status" validate:"omitempty,oneof=pending confirmed completed no_show cancelled"`
	DateFrom  string `form:"dateFrom" validate:"omitempty,datetime=2006-01-02"`
	DateTo    string `form:"dateTo" validate:"omitempty,datetime=2006-01-02"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type AppointmentResponse struct {
	ID                   uuid.UUID         `json:"id"`
	LeadID               uuid.UUID         `json:"leadId"`
	OfficeID             uuid.UUID         `json:"officeId"`
	ScheduledDate        string            `json:"scheduledDate"`
	ScheduledTime        string            `json:"scheduledTime"`
	EndTime              *string           `json:"endTime,omitempty"`
	StartsAt             time.Time         `json:"startsAt"`
	LocationType         string            `json:"locationType"`
	LocationAddress      string            `json:"locationAddress,omitempty"`
	Status               AppointmentStatus `json:"status"`
	ConfirmationDeadline time.Time         `json:"confirmationDeadline"`
	ConfirmationOverdue  bool              `json:"confirmationOverdue"`
	ConfirmedAt          *time.Time        `json:"confirmedAt,omitempty"`
	ConfirmedBy          *uuid.UUID        `json:"confirmedBy,omitempty"`
	AssignedTo           *uuid.UUID        `json:"assignedTo,omitempty"`
	CancelReason         string            `json:"cancelReason,omitempty"`
	Notes                string            `json:"notes,omitempty"`
	CreatedBy            uuid.UUID         `json:"createdBy"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

type CreateAppointmentResponse struct {
	Appointment    AppointmentResponse `json:"appointment"`
	LeadStatus     string              `json:"leadStatus"`
	HasOtherActive bool                `json:"hasOtherActive"`
}

type TransitionResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	LeadStatus  string              `json:"leadStatus,omitempty"`
}

type AppointmentListResponse struct {
	Items      []AppointmentResponse `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}
