package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source values.
const (
	SourceManual   = "manual"
	SourceExternal = "external"
)

// Lead is a customer opportunity.
type Lead struct {
	ID                   uuid.UUID
	ExternalID           *int64
	CustomerName         string
	CustomerPhone        string
	CustomerEmail        string
	City                 string
	District             string
	Neighborhood         string
	Street               string
	DoorNo               string
	BlockNo              string
	ParcelNo             string
	BuildingArea         *float64
	UnitCount            *int
	TransformationType   string
	ReviewStatus         string
	Source               string
	Status               Status
	SubStatus            string
	AssignedOfficeID     *uuid.UUID
	FirstCallDeadline    time.Time
	FirstCallCompletedAt *time.Time
	ClosedAt             *time.Time
	Grade                *string
	MeetingScore         *int
	DecisionMaker        string
	WhatsAppGroup        *bool
	BuildingAge          *int
	Intent               string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// StatusChange describes the effect of a transition.
type StatusChange struct {
	From    Status
	To      Status
	Changed bool
}

// FirstCallDeadline is fixed once at creation from the base time.
func FirstCallDeadline(base time.Time, sla time.Duration) time.Time {
	return base.Add(sla)
}

// ApplyStatus moves the lead to any status. There is no legality matrix:
// every status is reachable from every other. closed_at is stamped when the
// target is terminal and cleared otherwise.
func (l *Lead) ApplyStatus(to Status, now time.Time) StatusChange {
	change := StatusChange{From: l.Status, To: to, Changed: l.Status != to}
	if !change.Changed {
		return change
	}
	l.Status = to
	if to.IsTerminal() {
		at := now
		l.ClosedAt = &at
	} else {
		l.ClosedAt = nil
	}
	l.UpdatedAt = now
	return change
}

// Qualification is what a qualifying call learned about the customer. Nil
// and empty fields leave the lead's current value alone.
type Qualification struct {
	Grade         *string
	MeetingScore  *int
	DecisionMaker string
	WhatsAppGroup *bool
	BuildingAge   *int
	Intent        string
}

// RecordConnectedCall applies a qualifying call: the qualification profile is
// written, first_call_completed_at is set once, and a lead still at received
// advances to first_call_done.
func (l *Lead) RecordConnectedCall(q Qualification, now time.Time) StatusChange {
	if q.Grade != nil {
		g := *q.Grade
		l.Grade = &g
	}
	if q.MeetingScore != nil {
		s := *q.MeetingScore
		l.MeetingScore = &s
	}
	if q.DecisionMaker != "" {
		l.DecisionMaker = q.DecisionMaker
	}
	if q.WhatsAppGroup != nil {
		w := *q.WhatsAppGroup
		l.WhatsAppGroup = &w
	}
	if q.BuildingAge != nil {
		a := *q.BuildingAge
		l.BuildingAge = &a
	}
	if q.Intent != "" {
		l.Intent = q.Intent
	}
	if l.FirstCallCompletedAt == nil {
		at := now
		l.FirstCallCompletedAt = &at
	}
	l.UpdatedAt = now
	if l.Status == StatusReceived {
		return l.ApplyStatus(StatusFirstCallDone, now)
	}
	return StatusChange{From: l.Status, To: l.Status}
}

// ProfileUpdate is a partial edit of the contact, address and qualification
// fields of a lead. Nil fields are left untouched.
type ProfileUpdate struct {
	CustomerName       *string
	CustomerPhone      *string
	CustomerEmail      *string
	City               *string
	District           *string
	Neighborhood       *string
	Street             *string
	DoorNo             *string
	BlockNo            *string
	ParcelNo           *string
	BuildingArea       *float64
	UnitCount          *int
	TransformationType *string
	Grade              *string
	MeetingScore       *int
	DecisionMaker      *string
	WhatsAppGroup      *bool
	BuildingAge        *int
	Intent             *string
}

// ChangedFields lists the set fields by their JSON name, for the audit trail.
func (u ProfileUpdate) ChangedFields() map[string][]string {
	fields := []string{}
	add := func(name string, set bool) {
		if set {
			fields = append(fields, name)
		}
	}
	add("customerName", u.CustomerName != nil)
	add("customerPhone", u.CustomerPhone != nil)
	add("customerEmail", u.CustomerEmail != nil)
	add("city", u.City != nil)
	add("district", u.District != nil)
	add("neighborhood", u.Neighborhood != nil)
	add("street", u.Street != nil)
	add("doorNo", u.DoorNo != nil)
	add("blockNo", u.BlockNo != nil)
	add("parcelNo", u.ParcelNo != nil)
	add("buildingArea", u.BuildingArea != nil)
	add("unitCount", u.UnitCount != nil)
	add("transformationType", u.TransformationType != nil)
	add("grade", u.Grade != nil)
	add("meetingScore", u.MeetingScore != nil)
	add("decisionMaker", u.DecisionMaker != nil)
	add("whatsappGroup", u.WhatsAppGroup != nil)
	add("buildingAge", u.BuildingAge != nil)
	add("intent", u.Intent != nil)
	return map[string][]string{"fields": fields}
}

// ApplyProfile copies the set fields of u onto the lead and reports whether
// anything was given. Status is never touched here.
func (l *Lead) ApplyProfile(u ProfileUpdate, now time.Time) bool {
	touched := false
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
			touched = true
		}
	}
	setString(&l.CustomerName, u.CustomerName)
	setString(&l.CustomerPhone, u.CustomerPhone)
	setString(&l.CustomerEmail, u.CustomerEmail)
	setString(&l.City, u.City)
	setString(&l.District, u.District)
	setString(&l.Neighborhood, u.Neighborhood)
	setString(&l.Street, u.Street)
	setString(&l.DoorNo, u.DoorNo)
	setString(&l.BlockNo, u.BlockNo)
	setString(&l.ParcelNo, u.ParcelNo)
	setString(&l.TransformationType, u.TransformationType)
	setString(&l.DecisionMaker, u.DecisionMaker)
	setString(&l.Intent, u.Intent)
	if u.BuildingArea != nil {
		v := *u.BuildingArea
		l.BuildingArea = &v
		touched = true
	}
	if u.UnitCount != nil {
		v := *u.UnitCount
		l.UnitCount = &v
		touched = true
	}
	if u.Grade != nil {
		v := *u.Grade
		l.Grade = &v
		touched = true
	}
	if u.MeetingScore != nil {
		v := *u.MeetingScore
		l.MeetingScore = &v
		touched = true
	}
	if u.WhatsAppGroup != nil {
		v := *u.WhatsAppGroup
		l.WhatsAppGroup = &v
		touched = true
	}
	if u.BuildingAge != nil {
		v := *u.BuildingAge
		l.BuildingAge = &v
		touched = true
	}
	if touched {
		l.UpdatedAt = now
	}
	return touched
}

// FirstCallOverdue reports whether the first-call clock is breached at now.
func (l *Lead) FirstCallOverdue(now time.Time) bool {
	return l.Status == StatusReceived && l.FirstCallCompletedAt == nil && now.After(l.FirstCallDeadline)
}
