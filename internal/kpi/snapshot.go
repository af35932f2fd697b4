// Package kpi rolls the pipeline up into one row per office per day and
// exports the history as a spreadsheet.
package kpi

import (
	"time"

	apptdomain "franchise_crm/internal/appointments/domain"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Snapshot holds the counters of one office (or every office when OfficeID
// is nil) for one local calendar day.
type Snapshot struct {
	ID                    uuid.UUID  `json:"id"`
	Date                  time.Time  `json:"date"`
	OfficeID              *uuid.UUID `json:"officeId,omitempty"`
	LeadsReceived         int        `json:"leadsReceived"`
	FirstCallsOnTime      int        `json:"firstCallsOnTime"`
	FirstCallBreaches     int        `json:"firstCallBreaches"`
	AppointmentsCreated   int        `json:"appointmentsCreated"`
	AppointmentsConfirmed int        `json:"appointmentsConfirmed"`
	NoShows               int        `json:"noShows"`
	ReportsSubmitted      int        `json:"reportsSubmitted"`
	LateReports           int        `json:"lateReports"`
	AvgCompleteness       float64    `json:"avgCompleteness"`
	Won                   int        `json:"won"`
	Lost                  int        `json:"lost"`
	CreatedAt             time.Time  `json:"createdAt"`

	completenessSum int
}

// Metric names one counter produced by the day query.
type Metric string

const (
	MetricLeadsReceived         Metric = "leads_received"
	MetricFirstCallsOnTime      Metric = "first_calls_on_time"
	MetricFirstCallBreaches     Metric = "first_call_breaches"
	MetricAppointmentsCreated   Metric = "appointments_created"
	MetricAppointmentsConfirmed Metric = "appointments_confirmed"
	MetricNoShows               Metric = "no_shows"
	MetricReportsSubmitted      Metric = "reports_submitted"
	MetricLateReports           Metric = "late_reports"
	MetricWon                   Metric = "won"
	MetricLost                  Metric = "lost"
)

// Count is one grouped row of the day query. Sum is only set for
// reports_submitted, where it carries the total completeness score.
type Count struct {
	Metric   Metric
	OfficeID *uuid.UUID
	Count    int
	Sum      int
}

// DayBounds returns the [start, end) instants of day in the business zone.
func DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, apptdomain.Local)
	return start, start.AddDate(0, 0, 1)
}

// ParseDay reads a YYYY-MM-DD date in the business zone.
func ParseDay(raw string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, raw, apptdomain.Local)
}

// Yesterday is the day before now in the business zone.
func Yesterday(now time.Time) time.Time {
	start, _ := DayBounds(now.In(apptdomain.Local))
	return start.AddDate(0, 0, -1)
}

// Aggregate folds grouped counts into one snapshot per office plus a global
// snapshot (OfficeID nil) that includes unassigned work. Every office in
// offices gets a row even on an idle day. The global snapshot is always first.
func Aggregate(day time.Time, offices []uuid.UUID, counts []Count) []Snapshot {
	date, _ := DayBounds(day)
	global := &Snapshot{Date: date}
	byOffice := map[uuid.UUID]*Snapshot{}
	order := make([]uuid.UUID, 0, len(offices))
	for _, id := range offices {
		if _, ok := byOffice[id]; ok {
			continue
		}
		officeID := id
		byOffice[id] = &Snapshot{Date: date, OfficeID: &officeID}
		order = append(order, id)
	}

	for _, c := range counts {
		global.add(c)
		if c.OfficeID == nil {
			continue
		}
		snap, ok := byOffice[*c.OfficeID]
		if !ok {
			officeID := *c.OfficeID
			snap = &Snapshot{Date: date, OfficeID: &officeID}
			byOffice[officeID] = snap
			order = append(order, officeID)
		}
		snap.add(c)
	}

	out := make([]Snapshot, 0, len(order)+1)
	global.finish()
	out = append(out, *global)
	for _, id := range order {
		snap := byOffice[id]
		snap.finish()
		out = append(out, *snap)
	}
	return out
}

func (s *Snapshot) add(c Count) {
	switch c.Metric {
	case MetricLeadsReceived:
		s.LeadsReceived += c.Count
	case MetricFirstCallsOnTime:
		s.FirstCallsOnTime += c.Count
	case MetricFirstCallBreaches:
		s.FirstCallBreaches += c.Count
	case MetricAppointmentsCreated:
		s.AppointmentsCreated += c.Count
	case MetricAppointmentsConfirmed:
		s.AppointmentsConfirmed += c.Count
	case MetricNoShows:
		s.NoShows += c.Count
	case MetricReportsSubmitted:
		s.ReportsSubmitted += c.Count
		s.completenessSum += c.Sum
	case MetricLateReports:
		s.LateReports += c.Count
	case MetricWon:
		s.Won += c.Count
	case MetricLost:
		s.Lost += c.Count
	}
}

func (s *Snapshot) finish() {
	if s.ReportsSubmitted == 0 {
		s.AvgCompleteness = 0
		return
	}
	avg := float64(s.completenessSum) / float64(s.ReportsSubmitted)
	s.AvgCompleteness = float64(int(avg*100+0.5)) / 100
}
