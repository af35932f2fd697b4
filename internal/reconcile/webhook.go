package reconcile

import (
	"context"

	"franchise_crm/platform/apperr"
	"franchise_crm/platform/logger"
)

// Webhook handles partner push notifications that carry only an external id.
type Webhook struct {
	source   Source
	store    Store
	ingester *Ingester
	log      *logger.Logger
}

func NewWebhook(source Source, store Store, ingester *Ingester, log *logger.Logger) *Webhook {
	return &Webhook{source: source, store: store, ingester: ingester, log: log.WithComponent("reconcile-webhook")}
}

// Receive ingests externalID. Known ids return the existing lead without
// contacting the partner. Unreachable partners fail closed with
// apperr.Unavailable; ids the partner does not know are apperr.NotFound.
func (w *Webhook) Receive(ctx context.Context, externalID int64) (Outcome, error) {
	if externalID <= 0 {
		return Outcome{}, apperr.Validation("external_id must be positive")
	}

	if id, found, err := w.store.FindIDByExternalID(ctx, externalID); err != nil {
		return Outcome{}, err
	} else if found {
		return Outcome{LeadID: id}, nil
	}

	rec, err := w.source.Fetch(ctx, externalID)
	if err != nil {
		w.log.Warn("partner fetch failed for webhook", "externalId", externalID, "error", err)
		if apperr.Is(err, apperr.KindUnavailable) {
			return Outcome{}, err
		}
		return Outcome{}, apperr.Unavailable("partner system unavailable", err)
	}
	if rec == nil {
		return Outcome{}, apperr.NotFound("record not found in partner system")
	}

	return w.ingester.Ingest(ctx, *rec, ViaWebhook)
}
