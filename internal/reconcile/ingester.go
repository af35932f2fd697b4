package reconcile

import (
	"context"
	"time"

	"franchise_crm/internal/events"
	"franchise_crm/platform/apperr"

	"github.com/google/uuid"
)

// Ingestion paths recorded on the activity and event.
const (
	ViaPoll    = "poll"
	ViaWebhook = "webhook"
	ViaManual  = "manual"
)

// Outcome reports what ingestion did with one record.
type Outcome struct {
	LeadID  uuid.UUID `json:"leadId"`
	Created bool      `json:"created"`
}

// Ingester is the single write path for partner records.
type Ingester struct {
	store    Store
	eventBus events.Bus
	sla      time.Duration
	now      func() time.Time
}

func NewIngester(store Store, eventBus events.Bus, firstCallSLA time.Duration) *Ingester {
	return &Ingester{store: store, eventBus: eventBus, sla: firstCallSLA, now: time.Now}
}

// Ingest creates the lead for rec. A record whose external id is already
// stored is not an error: the existing lead id is returned with Created false.
func (i *Ingester) Ingest(ctx context.Context, rec ExternalRecord, via string) (Outcome, error) {
	if rec.ExternalID <= 0 {
		return Outcome{}, apperr.Validation("external record has no id")
	}

	now := i.now()
	lead := MapRecord(rec, now, i.sla)
	created, err := i.store.InsertExternal(ctx, lead, via)
	if err != nil {
		return Outcome{}, err
	}

	if !created {
		id, found, err := i.store.FindIDByExternalID(ctx, rec.ExternalID)
		if err != nil {
			return Outcome{}, err
		}
		if !found {
			return Outcome{}, apperr.Internal("lead vanished after conflicting insert")
		}
		return Outcome{LeadID: id}, nil
	}

	i.eventBus.Publish(ctx, events.LeadIngested{
		BaseEvent:         events.NewBaseEventAt(now),
		LeadID:            lead.ID,
		ExternalID:        rec.ExternalID,
		Via:               via,
		FirstCallDeadline: lead.FirstCallDeadline,
	})
	return Outcome{LeadID: lead.ID, Created: true}, nil
}
