package kpi

import (
	"context"
	"fmt"
	"time"

	"franchise_crm/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// dayCountsQuery attributes work to the office that owns it at query time.
const dayCountsQuery = `
	SELECT 'leads_received', assigned_franchise_id, COUNT(*), 0
	FROM leads WHERE created_at >= $1 AND created_at < $2
	GROUP BY assigned_franchise_id
UNION ALL
	SELECT 'first_calls_on_time', assigned_franchise_id, COUNT(*), 0
	FROM leads
	WHERE first_call_completed_at >= $1 AND first_call_completed_at < $2
		AND first_call_completed_at <= first_call_deadline
	GROUP BY assigned_franchise_id
UNION ALL
	SELECT 'first_call_breaches', l.assigned_franchise_id, COUNT(*), 0
	FROM sla_escalations e JOIN leads l ON l.id = e.lead_id
	WHERE e.clock = 'first_call' AND e.breached_at >= $1 AND e.breached_at < $2
	GROUP BY l.assigned_franchise_id
UNION ALL
	SELECT 'appointments_created', franchise_office_id, COUNT(*), 0
	FROM appointments WHERE created_at >= $1 AND created_at < $2
	GROUP BY franchise_office_id
UNION ALL
	SELECT 'appointments_confirmed', franchise_office_id, COUNT(*), 0
	FROM appointments WHERE confirmed_at >= $1 AND confirmed_at < $2
	GROUP BY franchise_office_id
UNION ALL
	SELECT 'no_shows', franchise_office_id, COUNT(*), 0
	FROM appointments WHERE status = 'no_show' AND updated_at >= $1 AND updated_at < $2
	GROUP BY franchise_office_id
UNION ALL
	SELECT 'reports_submitted', franchise_office_id, COUNT(*), COALESCE(SUM(completeness_score), 0)
	FROM meeting_reports WHERE submitted_at >= $1 AND submitted_at < $2
	GROUP BY franchise_office_id
UNION ALL
	SELECT 'late_reports', franchise_office_id, COUNT(*), 0
	FROM meeting_reports WHERE is_late AND submitted_at >= $1 AND submitted_at < $2
	GROUP BY franchise_office_id
UNION ALL
	SELECT status, assigned_franchise_id, COUNT(*), 0
	FROM leads WHERE status IN ('won', 'lost') AND closed_at >= $1 AND closed_at < $2
	GROUP BY status, assigned_franchise_id`

func (r *Repository) DayCounts(ctx context.Context, start, end time.Time) ([]Count, error) {
	rows, err := r.pool.Query(ctx, dayCountsQuery, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query day counts: %w", err)
	}
	defer rows.Close()

	out := make([]Count, 0)
	for rows.Next() {
		var (
			c      Count
			metric string
			count  int64
			sum    int64
		)
		if err := rows.Scan(&metric, &c.OfficeID, &count, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		c.Metric, c.Count, c.Sum = Metric(metric), int(count), int(sum)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert replaces the snapshots of their day in one transaction, so a rerun
// of the same day overwrites instead of duplicating.
func (r *Repository) Upsert(ctx context.Context, snaps []Snapshot) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, s := range snaps {
			_, err := tx.Exec(ctx, `
				INSERT INTO kpi_snapshots (
					id, snapshot_date, franchise_office_id, leads_received, first_calls_on_time,
					first_call_breaches, appointments_created, appointments_confirmed, no_shows,
					reports_submitted, late_reports, avg_completeness, won, lost, created_at
				) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
				ON CONFLICT (snapshot_date, COALESCE(franchise_office_id, '00000000-0000-0000-0000-000000000000'::uuid))
				DO UPDATE SET
					leads_received = EXCLUDED.leads_received,
					first_calls_on_time = EXCLUDED.first_calls_on_time,
					first_call_breaches = EXCLUDED.first_call_breaches,
					appointments_created = EXCLUDED.appointments_created,
					appointments_confirmed = EXCLUDED.appointments_confirmed,
					no_shows = EXCLUDED.no_shows,
					reports_submitted = EXCLUDED.reports_submitted,
					late_reports = EXCLUDED.late_reports,
					avg_completeness = EXCLUDED.avg_completeness,
					won = EXCLUDED.won,
					lost = EXCLUDED.lost,
					created_at = EXCLUDED.created_at`,
				uuid.New(), s.Date.Format(dateLayout), s.OfficeID, s.LeadsReceived, s.FirstCallsOnTime,
				s.FirstCallBreaches, s.AppointmentsCreated, s.AppointmentsConfirmed, s.NoShows,
				s.ReportsSubmitted, s.LateReports, s.AvgCompleteness, s.Won, s.Lost, s.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert kpi snapshot: %w", err)
			}
		}
		return nil
	})
}

type ListParams struct {
	From     time.Time
	To       time.Time
	OfficeID *uuid.UUID
	// Global selects the all-office rows instead of per-office rows.
	Global bool
}

func (r *Repository) List(ctx context.Context, p ListParams) ([]Snapshot, error) {
	query := `
		SELECT id, snapshot_date, franchise_office_id, leads_received, first_calls_on_time,
			first_call_breaches, appointments_created, appointments_confirmed, no_shows,
			reports_submitted, late_reports, avg_completeness::float8, won, lost, created_at
		FROM kpi_snapshots
		WHERE snapshot_date >= $1::date AND snapshot_date <= $2::date`
	args := []interface{}{p.From.Format(dateLayout), p.To.Format(dateLayout)}

	switch {
	case p.OfficeID != nil:
		query += " AND franchise_office_id = $3"
		args = append(args, *p.OfficeID)
	case p.Global:
		query += " AND franchise_office_id IS NULL"
	}
	query += " ORDER BY snapshot_date DESC, franchise_office_id NULLS FIRST"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list kpi snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]Snapshot, 0)
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.Date, &s.OfficeID, &s.LeadsReceived, &s.FirstCallsOnTime,
			&s.FirstCallBreaches, &s.AppointmentsCreated, &s.AppointmentsConfirmed, &s.NoShows,
			&s.ReportsSubmitted, &s.LateReports, &s.AvgCompleteness, &s.Won, &s.Lost, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan kpi snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
