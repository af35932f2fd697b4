// Package sla watches the three pipeline clocks (first call, appointment
// confirmation, meeting report) and escalates each missed deadline once.
package sla

import (
	"fmt"
	"strings"
	"time"

	"franchise_crm/internal/authz"

	"github.com/google/uuid"
)

// Clock names a deadline kind.
type Clock string

const (
	ClockFirstCall    Clock = "first_call"
	ClockConfirmation Clock = "confirmation"
	ClockReport       Clock = "report"
)

// Clocks lists every clock in scan order.
var Clocks = []Clock{ClockFirstCall, ClockConfirmation, ClockReport}

func ParseClock(raw string) (Clock, bool) {
	c := Clock(strings.TrimSpace(raw))
	for _, known := range Clocks {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Breach is one missed deadline found by a scan.
type Breach struct {
	Clock        Clock
	EntityID     uuid.UUID
	LeadID       uuid.UUID
	OfficeID     *uuid.UUID
	Deadline     time.Time
	CustomerName string
	District     string
}

// Recipients describes who hears about a breach: central roles everywhere
// plus office roles scoped to the breach's office.
type Recipients struct {
	CentralRoles []string
	OfficeRoles  []string
}

// RecipientsFor returns the audience of a clock.
func RecipientsFor(c Clock) Recipients {
	if c == ClockFirstCall {
		return Recipients{CentralRoles: []string{authz.RoleCentralAdmin, authz.RoleCentralCaller}}
	}
	return Recipients{
		CentralRoles: []string{authz.RoleCentralSales},
		OfficeRoles:  []string{authz.RoleOfficeManager},
	}
}

// Notice is the user-facing text of a breach.
type Notice struct {
	Title string
	Body  string
	Link  string
}

// NoticeFor renders the escalation text.
func NoticeFor(b Breach) Notice {
	who := b.CustomerName
	if b.District != "" {
		who = fmt.Sprintf("%s (%s)", b.CustomerName, b.District)
	}
	switch b.Clock {
	case ClockFirstCall:
		return Notice{
			Title: "SLA İhlali!",
			Body:  fmt.Sprintf("%s için ilk arama süresi aşıldı.", who),
			Link:  fmt.Sprintf("/leads/%s", b.LeadID),
		}
	case ClockConfirmation:
		return Notice{
			Title: "Randevu onayı gecikti",
			Body:  fmt.Sprintf("%s randevusu onay süresi içinde onaylanmadı.", who),
			Link:  fmt.Sprintf("/appointments/%s", b.EntityID),
		}
	default:
		return Notice{
			Title: "Görüşme raporu gecikti",
			Body:  fmt.Sprintf("%s görüşmesinin raporu süresi içinde girilmedi.", who),
			Link:  fmt.Sprintf("/appointments/%s", b.EntityID),
		}
	}
}
