package sla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"franchise_crm/internal/activity"
	apptdomain "franchise_crm/internal/appointments/domain"
	"franchise_crm/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads overdue work and records escalations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) OverdueFirstCalls(ctx context.Context, now time.Time) ([]Breach, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, assigned_franchise_id, first_call_deadline, customer_name, district
		FROM leads
		WHERE status = 'received'
			AND first_call_completed_at IS NULL
			AND first_call_deadline < $1
		ORDER BY first_call_deadline`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue first calls: %w", err)
	}
	defer rows.Close()

	out := make([]Breach, 0)
	for rows.Next() {
		b := Breach{Clock: ClockFirstCall}
		if err := rows.Scan(&b.LeadID, &b.OfficeID, &b.Deadline, &b.CustomerName, &b.District); err != nil {
			return nil, fmt.Errorf("failed to scan overdue lead: %w", err)
		}
		b.EntityID = b.LeadID
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) OverdueConfirmations(ctx context.Context, now time.Time) ([]Breach, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.lead_id, a.franchise_office_id, a.confirmation_deadline, l.customer_name, l.district
		FROM appointments a
		JOIN leads l ON l.id = a.lead_id
		WHERE a.status = 'pending' AND a.confirmation_deadline < $1
		ORDER BY a.confirmation_deadline`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue confirmations: %w", err)
	}
	defer rows.Close()

	out := make([]Breach, 0)
	for rows.Next() {
		b := Breach{Clock: ClockConfirmation}
		var officeID uuid.UUID
		if err := rows.Scan(&b.EntityID, &b.LeadID, &officeID, &b.Deadline, &b.CustomerName, &b.District); err != nil {
			return nil, fmt.Errorf("failed to scan overdue appointment: %w", err)
		}
		b.OfficeID = &officeID
		out = append(out, b)
	}
	return out, rows.Err()
}

// OverdueReports returns completed appointments without a report whose
// report deadline (meeting start plus window) is before now. The deadline is
// derived in Go so it follows the same zone rules as report submission.
func (r *Repository) OverdueReports(ctx context.Context, now time.Time, window time.Duration) ([]Breach, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.lead_id, a.franchise_office_id, a.scheduled_date, a.scheduled_time, l.customer_name, l.district
		FROM appointments a
		JOIN leads l ON l.id = a.lead_id
		LEFT JOIN meeting_reports mr ON mr.appointment_id = a.id
		WHERE a.status = 'completed' AND mr.id IS NULL
			AND a.scheduled_date <= $1::date
		ORDER BY a.scheduled_date, a.scheduled_time`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue reports: %w", err)
	}
	defer rows.Close()

	out := make([]Breach, 0)
	for rows.Next() {
		var a apptdomain.Appointment
		b := Breach{Clock: ClockReport}
		if err := rows.Scan(&a.ID, &a.LeadID, &a.OfficeID, &a.ScheduledDate, &a.ScheduledTime, &b.CustomerName, &b.District); err != nil {
			return nil, fmt.Errorf("failed to scan completed appointment: %w", err)
		}
		deadline := a.ReportDeadline(window)
		if !now.After(deadline) {
			continue
		}
		officeID := a.OfficeID
		b.EntityID, b.LeadID, b.OfficeID, b.Deadline = a.ID, a.LeadID, &officeID, deadline
		out = append(out, b)
	}
	return out, rows.Err()
}

// Record claims the escalation of b. It returns false when the breach was
// already recorded by an earlier scan or a concurrent scanner.
func (r *Repository) Record(ctx context.Context, b Breach, now time.Time) (bool, error) {
	var created bool
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO sla_escalations (id, clock, entity_id, lead_id, deadline, breached_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (clock, entity_id) DO NOTHING
			RETURNING id`,
			uuid.New(), string(b.Clock), b.EntityID, b.LeadID, b.Deadline, now,
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to record escalation: %w", err)
		}
		created = true

		entry, err := activity.New(&b.LeadID, b.OfficeID, nil, activity.TypeSLABreached,
			fmt.Sprintf("SLA breached: %s", b.Clock),
			map[string]any{"clock": b.Clock, "entityId": b.EntityID, "deadline": b.Deadline},
			now)
		if err != nil {
			return err
		}
		return activity.Record(ctx, tx, entry)
	})
	return created, err
}

func (r *Repository) SetNotified(ctx context.Context, c Clock, entityID uuid.UUID, count int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sla_escalations SET notified_users = $3
		WHERE clock = $1 AND entity_id = $2`, string(c), entityID, count)
	if err != nil {
		return fmt.Errorf("failed to update escalation: %w", err)
	}
	return nil
}

// Escalation is a stored breach.
type Escalation struct {
	ID            uuid.UUID  `json:"id"`
	Clock         Clock      `json:"clock"`
	EntityID      uuid.UUID  `json:"entityId"`
	LeadID        uuid.UUID  `json:"leadId"`
	OfficeID      *uuid.UUID `json:"officeId,omitempty"`
	CustomerName  string     `json:"customerName"`
	Deadline      time.Time  `json:"deadline"`
	BreachedAt    time.Time  `json:"breachedAt"`
	NotifiedUsers int        `json:"notifiedUsers"`
	Open          bool       `json:"open"`
}

type ListParams struct {
	Clock    *Clock
	OfficeID *uuid.UUID
	OpenOnly bool
	Page     int
	PageSize int
}

type ListResult struct {
	Items      []Escalation `json:"items"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
}

// openExpr is true while the condition that caused the breach still holds.
const openExpr = `(CASE e.clock
		WHEN 'first_call' THEN l.status = 'received' AND l.first_call_completed_at IS NULL
		WHEN 'confirmation' THEN EXISTS (SELECT 1 FROM appointments a WHERE a.id = e.entity_id AND a.status = 'pending')
		ELSE NOT EXISTS (SELECT 1 FROM meeting_reports mr WHERE mr.appointment_id = e.entity_id)
	END)`

// officeExpr is the office responsible for the breached entity.
const officeExpr = `(CASE e.clock
		WHEN 'first_call' THEN l.assigned_franchise_id
		ELSE (SELECT a.franchise_office_id FROM appointments a WHERE a.id = e.entity_id)
	END)`

func addFilter(query *string, args *[]interface{}, argIdx *int, clause string, value interface{}) {
	*query += fmt.Sprintf(clause, *argIdx)
	*args = append(*args, value)
	*argIdx++
}

func (r *Repository) List(ctx context.Context, p ListParams) (ListResult, error) {
	baseQuery := `
		FROM sla_escalations e
		JOIN leads l ON l.id = e.lead_id
		WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if p.Clock != nil {
		addFilter(&baseQuery, &args, &argIdx, " AND e.clock = $%d", string(*p.Clock))
	}
	if p.OfficeID != nil {
		addFilter(&baseQuery, &args, &argIdx, " AND "+officeExpr+" = $%d", *p.OfficeID)
	}
	if p.OpenOnly {
		baseQuery += " AND " + openExpr
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("failed to count escalations: %w", err)
	}

	offset := (p.Page - 1) * p.PageSize
	selectQuery := fmt.Sprintf(`
		SELECT e.id, e.clock, e.entity_id, e.lead_id, %s, l.customer_name, e.deadline, e.breached_at, e.notified_users, %s
		%s
		ORDER BY e.breached_at DESC
		LIMIT $%d OFFSET $%d`, officeExpr, openExpr, baseQuery, argIdx, argIdx+1)
	args = append(args, p.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("failed to list escalations: %w", err)
	}
	defer rows.Close()

	items := make([]Escalation, 0)
	for rows.Next() {
		var e Escalation
		var clock string
		if err := rows.Scan(&e.ID, &clock, &e.EntityID, &e.LeadID, &e.OfficeID, &e.CustomerName,
			&e.Deadline, &e.BreachedAt, &e.NotifiedUsers, &e.Open); err != nil {
			return ListResult{}, fmt.Errorf("failed to scan escalation: %w", err)
		}
		e.Clock = Clock(clock)
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("failed to iterate escalations: %w", err)
	}

	totalPages := 0
	if p.PageSize > 0 {
		totalPages = (total + p.PageSize - 1) / p.PageSize
	}
	return ListResult{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize, TotalPages: totalPages}, nil
}
