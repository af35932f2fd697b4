// Package reconcile keeps the lead table in step with the partner system of
// record. A cursor poller and an inbound webhook share one mapping and one
// idempotent insert keyed by external id.
package reconcile

import (
	"fmt"
	"strings"
	"time"

	leaddomain "franchise_crm/internal/leads/domain"
	"franchise_crm/platform/phone"

	"github.com/google/uuid"
)

const (
	DefaultCity     = "İstanbul"
	DefaultDistrict = "Bilinmiyor"
)

// ExternalRecord is one partner request as read from either source.
type ExternalRecord struct {
	ExternalID         int64
	CustomerName       string
	CustomerPhone      string
	CustomerEmail      string
	City               string
	District           string
	Neighborhood       string
	Street             string
	DoorNo             string
	BlockNo            string
	ParcelNo           string
	BuildingArea       *float64
	UnitCount          *int
	TransformationType string
	ReviewStatus       string
	CreatedAt          *time.Time
}

// MapRecord turns a partner record into a new lead. The first-call deadline
// counts from the partner's creation time when known so leads that reach us
// late are already close to breach.
func MapRecord(rec ExternalRecord, now time.Time, sla time.Duration) leaddomain.Lead {
	base := now
	if rec.CreatedAt != nil && !rec.CreatedAt.IsZero() {
		base = *rec.CreatedAt
	}

	name := strings.TrimSpace(rec.CustomerName)
	if name == "" {
		name = fmt.Sprintf("Talep #%d", rec.ExternalID)
	}

	externalID := rec.ExternalID
	return leaddomain.Lead{
		ID:                 uuid.New(),
		ExternalID:         &externalID,
		CustomerName:       name,
		CustomerPhone:      phone.NormalizeE164(rec.CustomerPhone),
		CustomerEmail:      strings.ToLower(strings.TrimSpace(rec.CustomerEmail)),
		City:               orDefault(rec.City, DefaultCity),
		District:           orDefault(rec.District, DefaultDistrict),
		Neighborhood:       strings.TrimSpace(rec.Neighborhood),
		Street:             strings.TrimSpace(rec.Street),
		DoorNo:             strings.TrimSpace(rec.DoorNo),
		BlockNo:            strings.TrimSpace(rec.BlockNo),
		ParcelNo:           strings.TrimSpace(rec.ParcelNo),
		BuildingArea:       rec.BuildingArea,
		UnitCount:          rec.UnitCount,
		TransformationType: strings.TrimSpace(rec.TransformationType),
		ReviewStatus:       strings.TrimSpace(rec.ReviewStatus),
		Source:             leaddomain.SourceExternal,
		Status:             leaddomain.StatusReceived,
		FirstCallDeadline:  leaddomain.FirstCallDeadline(base, sla),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
