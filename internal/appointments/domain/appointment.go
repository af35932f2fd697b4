// Package domain holds the appointment confirmation workflow.
package domain

import (
	"fmt"
	"strings"
	"time"

	"franchise_crm/platform/apperr"

	"github.com/google/uuid"
)

// Status of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
	StatusCancelled Status = "cancelled"
)

// Location types.
const (
	LocationOffice = "office"
	LocationSite   = "site"
	LocationOnline = "online"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	confirmationNotePrefix = "\nConfirmation note: "
)

// Local is the wall clock appointments are booked in. Turkey has observed a
// fixed UTC+3 offset since 2016.
var Local = time.FixedZone("TRT", 3*60*60)

// ParseStatus accepts only the closed set of statuses.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.TrimSpace(raw)); s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusNoShow, StatusCancelled:
		return s, nil
	}
	return "", apperr.Validation("unknown appointment status").WithDetails(map[string]string{"status": raw})
}

// IsActive reports whether the appointment still blocks the lead's calendar.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Appointment is a scheduled meeting between a lead and an office.
type Appointment struct {
	ID                   uuid.UUID
	LeadID               uuid.UUID
	OfficeID             uuid.UUID
	ScheduledDate        time.Time
	ScheduledTime        string
	EndTime              *string
	LocationType         string
	LocationAddress      string
	Status               Status
	ConfirmationDeadline time.Time
	ConfirmedAt          *time.Time
	ConfirmedBy          *uuid.UUID
	AssignedTo           *uuid.UUID
	CancelReason         string
	Notes                string
	CreatedBy            uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Slot is a date/time pair as entered by users.
type Slot struct {
	Date string
	Time string
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), Local)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date, expected YYYY-MM-DD")
	}
	return d, nil
}

func parseClock(raw string) (string, error) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", apperr.Validation("invalid time, expected HH:MM")
	}
	return t.Format(timeLayout), nil
}

// New builds a pending appointment whose confirmation clock starts at now.
func New(leadID, officeID, createdBy uuid.UUID, slot Slot, locationType string, now time.Time, confirmationWindow time.Duration) (Appointment, error) {
	date, err := ParseDate(slot.Date)
	if err != nil {
		return Appointment{}, err
	}
	clock, err := parseClock(slot.Time)
	if err != nil {
		return Appointment{}, err
	}
	if locationType == "" {
		locationType = LocationOffice
	}
	return Appointment{
		ID:                   uuid.New(),
		LeadID:               leadID,
		OfficeID:             officeID,
		ScheduledDate:        date,
		ScheduledTime:        clock,
		LocationType:         locationType,
		Status:               StatusPending,
		ConfirmationDeadline: now.Add(confirmationWindow),
		CreatedBy:            createdBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// StartsAt combines the scheduled date and time in the booking zone.
func (a Appointment) StartsAt() time.Time {
	t, err := time.Parse(timeLayout, a.ScheduledTime)
	if err != nil {
		t = time.Time{}
	}
	y, m, d := a.ScheduledDate.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, Local)
}

// ReportDeadline is the start of the meeting plus the report window.
func (a Appointment) ReportDeadline(window time.Duration) time.Time {
	return a.StartsAt().Add(window)
}

// ConfirmationOverdue reports whether a pending appointment missed its
// confirmation deadline.
func (a Appointment) ConfirmationOverdue(now time.Time) bool {
	return a.Status == StatusPending && now.After(a.ConfirmationDeadline)
}

// Confirm is legal only from pending. An alternative slot overwrites the
// schedule before the status flips. A note is appended, never replaced.
func (a *Appointment) Confirm(actor uuid.UUID, alt *Slot, note string, now time.Time) (rescheduled bool, err error) {
	if a.Status != StatusPending {
		return false, apperr.Conflict(fmt.Sprintf("appointment is %s, only pending appointments can be confirmed", a.Status))
	}
	if alt != nil {
		if alt.Date != "" {
			date, err := ParseDate(alt.Date)
			if err != nil {
				return false, err
			}
			a.ScheduledDate = date
			rescheduled = true
		}
		if alt.Time != "" {
			clock, err := parseClock(alt.Time)
			if err != nil {
				return false, err
			}
			a.ScheduledTime = clock
			rescheduled = true
		}
	}
	if note = strings.TrimSpace(note); note != "" {
		a.Notes += confirmationNotePrefix + note
	}
	a.Status = StatusConfirmed
	at := now
	by := actor
	a.ConfirmedAt = &at
	a.ConfirmedBy = &by
	a.UpdatedAt = now
	return rescheduled, nil
}

// Complete is allowed from any non-terminal status.
func (a *Appointment) Complete(now time.Time) error {
	if !a.Status.IsActive() {
		return apperr.Conflict(fmt.Sprintf("appointment is already %s", a.Status))
	}
	a.Status = StatusCompleted
	a.UpdatedAt = now
	return nil
}

// MarkNoShow is applied unconditionally.
func (a *Appointment) MarkNoShow(now time.Time) {
	a.Status = StatusNoShow
	a.UpdatedAt = now
}

// Cancel ends a pending or confirmed appointment with a reason.
func (a *Appointment) Cancel(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Validation("cancel reason is required")
	}
	if !a.Status.IsActive() {
		return apperr.Conflict(fmt.Sprintf("appointment is already %s", a.Status))
	}
	a.Status = StatusCancelled
	a.CancelReason = reason
	a.UpdatedAt = now
	return nil
}

// DateString formats the scheduled date as YYYY-MM-DD.
func (a Appointment) DateString() string {
	return a.ScheduledDate.Format(dateLayout)
}
