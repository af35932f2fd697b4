package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"franchise_crm/internal/activity"
	"franchise_crm/internal/appointments/domain"
	franchiserepo "franchise_crm/internal/franchise/repository"
	leaddomain "franchise_crm/internal/leads/domain"
	leadrepo "franchise_crm/internal/leads/repository"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentNotFoundMsg = "appointment not found"

// Repository provides database operations for appointments.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new appointments repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Guard is evaluated on the locked appointment before a transition, so
// scope checks see committed state.
type Guard func(a domain.Appointment) error

const appointmentColumns = `
	id, lead_id, franchise_office_id, scheduled_date, scheduled_time, end_time,
	location_type, location_address, status, confirmation_deadline, confirmed_at,
	confirmed_by, assigned_to, cancel_reason, notes, created_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (domain.Appointment, error) {
	var a domain.Appointment
	var status string
	err := row.Scan(
		&a.ID, &a.LeadID, &a.OfficeID, &a.ScheduledDate, &a.ScheduledTime, &a.EndTime,
		&a.LocationType, &a.LocationAddress, &status, &a.ConfirmationDeadline, &a.ConfirmedAt,
		&a.ConfirmedBy, &a.AssignedTo, &a.CancelReason, &a.Notes, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	a.Status = domain.Status(status)
	return a, err
}

// CreateResult is the committed outcome of Create.
type CreateResult struct {
	Appointment    domain.Appointment
	Lead           leaddomain.Lead
	Change         leaddomain.StatusChange
	HasOtherActive bool
}

// Create books the appointment and forces the lead into meeting_scheduled,
// whatever its previous status. The lead is also handed to the office.
func (r *Repository) Create(ctx context.Context, a domain.Appointment) (CreateResult, error) {
	var result CreateResult

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		lead, err := leadrepo.GetForUpdate(ctx, tx, a.LeadID)
		if err != nil {
			return err
		}
		exists, err := franchiserepo.Exists(ctx, tx, a.OfficeID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("franchise office not found")
		}

		var others int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM appointments
			WHERE lead_id = $1 AND status IN ('pending', 'confirmed')`, a.LeadID).Scan(&others); err != nil {
			return fmt.Errorf("failed to count active appointments: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO appointments (`+appointmentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			a.ID, a.LeadID, a.OfficeID, a.ScheduledDate, a.ScheduledTime, a.EndTime,
			a.LocationType, a.LocationAddress, string(a.Status), a.ConfirmationDeadline, a.ConfirmedAt,
			a.ConfirmedBy, a.AssignedTo, a.CancelReason, a.Notes, a.CreatedBy, a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert appointment: %w", err)
		}

		officeID := a.OfficeID
		lead.AssignedOfficeID = &officeID
		lead.UpdatedAt = a.CreatedAt
		change := lead.ApplyStatus(leaddomain.StatusMeetingScheduled, a.CreatedAt)
		if err := leadrepo.Save(ctx, tx, lead); err != nil {
			return err
		}
		if change.Changed {
			entry, err := leadrepo.StatusActivity(lead, change, &a.CreatedBy, "appointment created", a.CreatedAt)
			if err != nil {
				return err
			}
			if err := activity.Record(ctx, tx, entry); err != nil {
				return err
			}
		}

		entry, err := activity.New(&lead.ID, &officeID, &a.CreatedBy, activity.TypeAppointmentCreated,
			fmt.Sprintf("Appointment booked for %s %s", a.DateString(), a.ScheduledTime),
			map[string]interface{}{
				"appointmentId":        a.ID,
				"confirmationDeadline": a.ConfirmationDeadline,
				"otherActive":          others,
			}, a.CreatedAt)
		if err != nil {
			return err
		}
		if err := activity.Record(ctx, tx, entry); err != nil {
			return err
		}

		result = CreateResult{Appointment: a, Lead: lead, Change: change, HasOtherActive: others > 0}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}
	return result, nil
}

// TransitionResult is the committed outcome of an appointment transition.
type TransitionResult struct {
	Appointment domain.Appointment
	Lead        *leaddomain.Lead
	Change      leaddomain.StatusChange
	Rescheduled bool
}

// GetForUpdate locks an appointment row inside the caller's transaction.
func GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (domain.Appointment, error) {
	a, err := scanAppointment(q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Appointment{}, apperr.NotFound(appointmentNotFoundMsg)
		}
		return domain.Appointment{}, fmt.Errorf("failed to lock appointment: %w", err)
	}
	return a, nil
}

func (r *Repository) transition(ctx context.Context, id uuid.UUID, guard Guard, apply func(tx pgx.Tx, a *domain.Appointment, res *TransitionResult) error) (TransitionResult, error) {
	var result TransitionResult

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		a, err := GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(a); err != nil {
				return err
			}
		}
		if err := apply(tx, &a, &result); err != nil {
			return err
		}
		if err := save(ctx, tx, a); err != nil {
			return err
		}
		result.Appointment = a
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}
	return result, nil
}

func save(ctx context.Context, q db.Querier, a domain.Appointment) error {
	_, err := q.Exec(ctx, `
		UPDATE appointments SET
			scheduled_date = $2,
			scheduled_time = $3,
			status = $4,
			confirmed_at = $5,
			confirmed_by = $6,
			cancel_reason = $7,
			notes = $8,
			updated_at = $9
		WHERE id = $1`,
		a.ID, a.ScheduledDate, a.ScheduledTime, string(a.Status), a.ConfirmedAt, a.ConfirmedBy,
		a.CancelReason, a.Notes, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save appointment: %w", err)
	}
	return nil
}

func record(ctx context.Context, q db.Querier, a domain.Appointment, actorID uuid.UUID, typ, title string, payload interface{}, at time.Time) error {
	entry, err := activity.New(&a.LeadID, &a.OfficeID, &actorID, typ, title, payload, at)
	if err != nil {
		return err
	}
	return activity.Record(ctx, q, entry)
}

// Confirm moves a pending appointment to confirmed.
func (r *Repository) Confirm(ctx context.Context, id, actorID uuid.UUID, alt *domain.Slot, note string, now time.Time, guard Guard) (TransitionResult, error) {
	return r.transition(ctx, id, guard, func(tx pgx.Tx, a *domain.Appointment, res *TransitionResult) error {
		rescheduled, err := a.Confirm(actorID, alt, note, now)
		if err != nil {
			return err
		}
		res.Rescheduled = rescheduled
		return record(ctx, tx, *a, actorID, activity.TypeAppointmentConfirmed, "Appointment confirmed",
			map[string]interface{}{
				"appointmentId": a.ID,
				"rescheduled":   rescheduled,
				"date":          a.DateString(),
				"time":          a.ScheduledTime,
			}, now)
	})
}

// Complete marks the meeting as held and forces the lead to meeting_held.
func (r *Repository) Complete(ctx context.Context, id, actorID uuid.UUID, now time.Time, guard Guard) (TransitionResult, error) {
	return r.transition(ctx, id, guard, func(tx pgx.Tx, a *domain.Appointment, res *TransitionResult) error {
		if err := a.Complete(now); err != nil {
			return err
		}
		lead, err := leadrepo.GetForUpdate(ctx, tx, a.LeadID)
		if err != nil {
			return err
		}
		change := lead.ApplyStatus(leaddomain.StatusMeetingHeld, now)
		if err := leadrepo.Save(ctx, tx, lead); err != nil {
			return err
		}
		if change.Changed {
			entry, err := leadrepo.StatusActivity(lead, change, &actorID, "appointment completed", now)
			if err != nil {
				return err
			}
			if err := activity.Record(ctx, tx, entry); err != nil {
				return err
			}
		}
		res.Lead = &lead
		res.Change = change
		return record(ctx, tx, *a, actorID, activity.TypeAppointmentCompleted, "Appointment completed",
			map[string]interface{}{"appointmentId": a.ID}, now)
	})
}

// NoShow records that the customer did not attend. The lead is untouched.
func (r *Repository) NoShow(ctx context.Context, id, actorID uuid.UUID, now time.Time, guard Guard) (TransitionResult, error) {
	return r.transition(ctx, id, guard, func(tx pgx.Tx, a *domain.Appointment, _ *TransitionResult) error {
		previous := a.Status
		a.MarkNoShow(now)
		return record(ctx, tx, *a, actorID, activity.TypeAppointmentNoShow, "Customer did not attend",
			map[string]interface{}{"appointmentId": a.ID, "previousStatus": previous}, now)
	})
}

// Cancel ends an active appointment with a reason.
func (r *Repository) Cancel(ctx context.Context, id, actorID uuid.UUID, reason string, now time.Time, guard Guard) (TransitionResult, error) {
	return r.transition(ctx, id, guard, func(tx pgx.Tx, a *domain.Appointment, _ *TransitionResult) error {
		if err := a.Cancel(reason, now); err != nil {
			return err
		}
		return record(ctx, tx, *a, actorID, activity.TypeAppointmentCancelled, "Appointment cancelled",
			map[string]interface{}{"appointmentId": a.ID, "reason": a.CancelReason}, now)
	})
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Appointment{}, apperr.NotFound(appointmentNotFoundMsg)
		}
		return domain.Appointment{}, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

type ListParams struct {
	OfficeID  *uuid.UUID
	LeadID    *uuid.UUID
	Status    *domain.Status
	DateFrom  *time.Time
	DateTo    *time.Time
	SortOrder string
	Page      int
	PageSize  int
}

type ListResult struct {
	Items      []domain.Appointment
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	baseQuery := " FROM appointments WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if params.OfficeID != nil {
		addFilter(&baseQuery, &args, &argIndex, " AND franchise_office_id = $%d", *params.OfficeID)
	}
	if params.LeadID != nil {
		addFilter(&baseQuery, &args, &argIndex, " AND lead_id = $%d", *params.LeadID)
	}
	if params.Status != nil {
		addFilter(&baseQuery, &args, &argIndex, " AND status = $%d", string(*params.Status))
	}
	if params.DateFrom != nil {
		addFilter(&baseQuery, &args, &argIndex, " AND scheduled_date >= $%d", *params.DateFrom)
	}
	if params.DateTo != nil {
		addFilter(&baseQuery, &args, &argIndex, " AND scheduled_date <= $%d", *params.DateTo)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("failed to count appointments: %w", err)
	}

	order := "ASC"
	if params.SortOrder == "desc" {
		order = "DESC"
	}
	offset := (params.Page - 1) * params.PageSize
	selectQuery := fmt.Sprintf("SELECT %s%s ORDER BY scheduled_date %s, scheduled_time %s, id LIMIT $%d OFFSET $%d",
		appointmentColumns, baseQuery, order, order, argIndex, argIndex+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return ListResult{}, fmt.Errorf("failed to scan appointment: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("failed to iterate appointments: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	return ListResult{Items: items, Total: total, Page: params.Page, PageSize: params.PageSize, TotalPages: totalPages}, nil
}

func addFilter(query *string, args *[]interface{}, argIndex *int, clause string, value interface{}) {
	*query += fmt.Sprintf(clause, *argIndex)
	*args = append(*args, value)
	*argIndex++
}
