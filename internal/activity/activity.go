// Package activity is the append-only audit trail written alongside every
// pipeline transition.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"franchise_crm/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Type constants tag the nature of an entry.
const (
	TypeLeadCreated          = "lead_created"
	TypeLeadIngested         = "lead_ingested"
	TypeLeadUpdated          = "lead_updated"
	TypeStatusChanged        = "status_changed"
	TypeOfficeAssigned       = "office_assigned"
	TypeCallLogged           = "call_logged"
	TypeAppointmentCreated   = "appointment_created"
	TypeAppointmentConfirmed = "appointment_confirmed"
	TypeAppointmentCompleted = "appointment_completed"
	TypeAppointmentNoShow    = "appointment_no_show"
	TypeAppointmentCancelled = "appointment_cancelled"
	TypeReportSubmitted      = "report_submitted"
	TypeSLABreached          = "sla_breached"
)

// Entry is one immutable audit record.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	LeadID    *uuid.UUID      `json:"leadId,omitempty"`
	OfficeID  *uuid.UUID      `json:"officeId,omitempty"`
	ActorID   *uuid.UUID      `json:"actorId,omitempty"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// New builds an entry with a fresh id. payload may be nil.
func New(leadID, officeID, actorID *uuid.UUID, typ, title string, payload any, at time.Time) (Entry, error) {
	e := Entry{
		ID:        uuid.New(),
		LeadID:    leadID,
		OfficeID:  officeID,
		ActorID:   actorID,
		Type:      typ,
		Title:     title,
		CreatedAt: at,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to encode activity payload: %w", err)
		}
		e.Payload = raw
	}
	return e, nil
}

// Record inserts e through q so the write joins the caller's transaction.
func Record(ctx context.Context, q db.Querier, e Entry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO activities (id, lead_id, franchise_office_id, actor_id, type, title, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.LeadID, e.OfficeID, e.ActorID, e.Type, e.Title, nullableJSON(e.Payload), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record activity %s: %w", e.Type, err)
	}
	return nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// Reader lists the trail of a lead.
type Reader struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

// ListByLead returns the entries of a lead, newest first.
func (r *Reader) ListByLead(ctx context.Context, leadID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, franchise_office_id, actor_id, type, title, payload, created_at
		FROM activities
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.LeadID, &e.OfficeID, &e.ActorID, &e.Type, &e.Title, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if len(payload) > 0 {
			e.Payload = payload
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return entries, nil
}
