package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"franchise_crm/internal/activity"
	apptdomain "franchise_crm/internal/appointments/domain"
	apptrepo "franchise_crm/internal/appointments/repository"
	"franchise_crm/internal/reports/domain"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	reportNotFoundMsg  = "meeting report not found"
	reportDuplicateMsg = "a meeting report already exists for this appointment"
)

// Repository provides database operations for meeting reports.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new reports repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Builder turns the locked appointment into the report to insert. It may
// reject the submission.
type Builder func(a apptdomain.Appointment) (domain.Report, error)

const reportColumns = `
	id, appointment_id, lead_id, franchise_office_id, submitted_by, meeting_type,
	participants, participant_count, decision_status, next_steps, presentation_given,
	site_visit_done, building_condition, building_data, photos, videos, documents,
	summary, internal_notes, completeness_score, report_deadline, submitted_at, is_late`

const insertReportSQL = `INSERT INTO meeting_reports (` + reportColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`

func scanReport(row pgx.Row) (domain.Report, error) {
	var r domain.Report
	var participants, buildingData, photos, videos, documents []byte
	c := &r.Content
	err := row.Scan(
		&r.ID, &r.AppointmentID, &r.LeadID, &r.OfficeID, &r.SubmittedBy, &c.MeetingType,
		&participants, &c.ParticipantCount, &c.DecisionStatus, &c.NextSteps, &c.PresentationGiven,
		&c.SiteVisitDone, &c.BuildingCondition, &buildingData, &photos, &videos, &documents,
		&c.Summary, &c.InternalNotes, &r.CompletenessScore, &r.ReportDeadline, &r.SubmittedAt, &r.IsLate,
	)
	if err != nil {
		return domain.Report{}, err
	}
	for _, field := range []struct {
		raw []byte
		dst interface{}
	}{
		{participants, &c.Participants},
		{buildingData, &c.BuildingData},
		{photos, &c.Photos},
		{videos, &c.Videos},
		{documents, &c.Documents},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.dst); err != nil {
			return domain.Report{}, fmt.Errorf("failed to decode report payload: %w", err)
		}
	}
	return r, nil
}

func jsonList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// Submit inserts the report for an appointment. The appointment row is locked
// so two concurrent submissions serialize; the loser sees the duplicate check
// and the unique index backs it up.
func (r *Repository) Submit(ctx context.Context, appointmentID uuid.UUID, build Builder) (domain.Report, error) {
	var report domain.Report

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		appt, err := apptrepo.GetForUpdate(ctx, tx, appointmentID)
		if err != nil {
			return err
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM meeting_reports WHERE appointment_id = $1)`, appointmentID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check existing report: %w", err)
		}
		if exists {
			return apperr.Conflict(reportDuplicateMsg)
		}

		report, err = build(appt)
		if err != nil {
			return err
		}
		if err := insert(ctx, tx, report); err != nil {
			return err
		}

		entry, err := activity.New(&report.LeadID, &report.OfficeID, &report.SubmittedBy,
			activity.TypeReportSubmitted, "Meeting report submitted",
			map[string]interface{}{
				"appointmentId":     report.AppointmentID,
				"reportId":          report.ID,
				"completenessScore": report.CompletenessScore,
				"late":              report.IsLate,
			}, report.SubmittedAt)
		if err != nil {
			return err
		}
		return activity.Record(ctx, tx, entry)
	})
	if err != nil {
		return domain.Report{}, err
	}
	return report, nil
}

func insert(ctx context.Context, q db.Querier, r domain.Report) error {
	c := r.Content
	participants, err := jsonList(c.Participants)
	if err != nil {
		return err
	}
	buildingData, err := json.Marshal(c.BuildingData)
	if err != nil {
		return err
	}
	photos, err := jsonList(c.Photos)
	if err != nil {
		return err
	}
	videos, err := jsonList(c.Videos)
	if err != nil {
		return err
	}
	documents, err := jsonList(c.Documents)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, insertReportSQL,
		r.ID, r.AppointmentID, r.LeadID, r.OfficeID, r.SubmittedBy, c.MeetingType,
		participants, c.ParticipantCount, c.DecisionStatus, c.NextSteps, c.PresentationGiven,
		c.SiteVisitDone, c.BuildingCondition, buildingData, photos, videos, documents,
		c.Summary, c.InternalNotes, r.CompletenessScore, r.ReportDeadline, r.SubmittedAt, r.IsLate,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Conflict(reportDuplicateMsg)
		}
		return fmt.Errorf("failed to insert meeting report: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Report, error) {
	return r.getOne(ctx, `SELECT `+reportColumns+` FROM meeting_reports WHERE id = $1`, id)
}

func (r *Repository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Report, error) {
	return r.getOne(ctx, `SELECT `+reportColumns+` FROM meeting_reports WHERE appointment_id = $1`, appointmentID)
}

func (r *Repository) getOne(ctx context.Context, query string, arg uuid.UUID) (domain.Report, error) {
	report, err := scanReport(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Report{}, apperr.NotFound(reportNotFoundMsg)
		}
		return domain.Report{}, fmt.Errorf("failed to get meeting report: %w", err)
	}
	return report, nil
}

type ListParams struct {
	OfficeID *uuid.UUID
	LeadID   *uuid.UUID
	LateOnly bool
	Page     int
	PageSize int
}

type ListResult struct {
	Items      []domain.Report
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	baseQuery := " FROM meeting_reports WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if params.OfficeID != nil {
		addFilter(&baseQuery, &args, &argIndex, " AND franchise_office_id = $%d", *params.OfficeID)
	}
	if params.LeadID != nil {
		addFilter(&baseQuery, &args, &argIndex, " AND lead_id = $%d", *params.LeadID)
	}
	if params.LateOnly {
		baseQuery += " AND is_late"
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("failed to count meeting reports: %w", err)
	}

	query := fmt.Sprintf("SELECT %s%s ORDER BY submitted_at DESC LIMIT $%d OFFSET $%d",
		reportColumns, baseQuery, argIndex, argIndex+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("failed to list meeting reports: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Report, 0, params.PageSize)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return ListResult{}, fmt.Errorf("failed to scan meeting report: %w", err)
		}
		items = append(items, report)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("failed to iterate meeting reports: %w", err)
	}

	totalPages := 0
	if params.PageSize > 0 {
		totalPages = (total + params.PageSize - 1) / params.PageSize
	}
	return ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

func addFilter(query *string, args *[]interface{}, argIndex *int, clause string, value interface{}) {
	*query += fmt.Sprintf(clause, *argIndex)
	*args = append(*args, value)
	*argIndex++
}
