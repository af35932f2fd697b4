package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"franchise_crm/internal/activity"
	franchiserepo "franchise_crm/internal/franchise/repository"
	"franchise_crm/internal/leads/domain"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMsg = "lead not found"

// Repository provides database operations for leads.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the pool to sibling repositories that compose lead writes into
// their own transactions.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

const leadColumns = `
	id, external_id, customer_name, customer_phone, customer_email,
	city, district, neighborhood, street, door_no, block_no, parcel_no,
	building_area, unit_count, transformation_type, review_status, source,
	status, sub_status, assigned_franchise_id, first_call_deadline,
	first_call_completed_at, closed_at, grade, meeting_score,
	decision_maker, whatsapp_group, building_age, intent, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	var status string
	err := row.Scan(
		&l.ID, &l.ExternalID, &l.CustomerName, &l.CustomerPhone, &l.CustomerEmail,
		&l.City, &l.District, &l.Neighborhood, &l.Street, &l.DoorNo, &l.BlockNo, &l.ParcelNo,
		&l.BuildingArea, &l.UnitCount, &l.TransformationType, &l.ReviewStatus, &l.Source,
		&status, &l.SubStatus, &l.AssignedOfficeID, &l.FirstCallDeadline,
		&l.FirstCallCompletedAt, &l.ClosedAt, &l.Grade, &l.MeetingScore,
		&l.DecisionMaker, &l.WhatsAppGroup, &l.BuildingAge, &l.Intent, &l.CreatedAt, &l.UpdatedAt,
	)
	l.Status = domain.Status(status)
	return l, err
}

func insertArgs(l domain.Lead) []interface{} {
	return []interface{}{
		l.ID, l.ExternalID, l.CustomerName, l.CustomerPhone, l.CustomerEmail,
		l.City, l.District, l.Neighborhood, l.Street, l.DoorNo, l.BlockNo, l.ParcelNo,
		l.BuildingArea, l.UnitCount, l.TransformationType, l.ReviewStatus, l.Source,
		string(l.Status), l.SubStatus, l.AssignedOfficeID, l.FirstCallDeadline,
		l.FirstCallCompletedAt, l.ClosedAt, l.Grade, l.MeetingScore,
		l.DecisionMaker, l.WhatsAppGroup, l.BuildingAge, l.Intent, l.CreatedAt, l.UpdatedAt,
	}
}

const insertLeadSQL = `
	INSERT INTO leads (` + leadColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)`

// InsertExternalSQL relies on UNIQUE(external_id): a concurrent or repeated
// ingestion of the same record inserts nothing and returns no row.
const InsertExternalSQL = insertLeadSQL + `
	ON CONFLICT (external_id) DO NOTHING
	RETURNING id`

// Insert writes a new lead through q.
func Insert(ctx context.Context, q db.Querier, l domain.Lead) error {
	if _, err := q.Exec(ctx, insertLeadSQL, insertArgs(l)...); err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("lead with this external id already exists")
		}
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// InsertExternal inserts a lead keyed by external id. created is false when a
// lead with that external id already exists.
func InsertExternal(ctx context.Context, q db.Querier, l domain.Lead) (created bool, err error) {
	var id uuid.UUID
	err = q.QueryRow(ctx, InsertExternalSQL, insertArgs(l)...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert external lead: %w", err)
	}
	return true, nil
}

// GetForUpdate loads and row-locks a lead inside a transaction.
func GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (domain.Lead, error) {
	l, err := scanLead(q.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, apperr.NotFound(leadNotFoundMsg)
		}
		return domain.Lead{}, fmt.Errorf("failed to lock lead: %w", err)
	}
	return l, nil
}

// Save persists every mutable field of l. Identity, source and the
// first-call deadline are fixed at creation.
func Save(ctx context.Context, q db.Querier, l domain.Lead) error {
	_, err := q.Exec(ctx, `
		UPDATE leads SET
			customer_name = $2,
			customer_phone = $3,
			customer_email = $4,
			city = $5,
			district = $6,
			neighborhood = $7,
			street = $8,
			door_no = $9,
			block_no = $10,
			parcel_no = $11,
			building_area = $12,
			unit_count = $13,
			transformation_type = $14,
			status = $15,
			sub_status = $16,
			assigned_franchise_id = $17,
			first_call_completed_at = $18,
			closed_at = $19,
			grade = $20,
			meeting_score = $21,
			decision_maker = $22,
			whatsapp_group = $23,
			building_age = $24,
			intent = $25,
			updated_at = $26
		WHERE id = $1`,
		l.ID, l.CustomerName, l.CustomerPhone, l.CustomerEmail,
		l.City, l.District, l.Neighborhood, l.Street, l.DoorNo, l.BlockNo, l.ParcelNo,
		l.BuildingArea, l.UnitCount, l.TransformationType,
		string(l.Status), l.SubStatus, l.AssignedOfficeID, l.FirstCallCompletedAt,
		l.ClosedAt, l.Grade, l.MeetingScore,
		l.DecisionMaker, l.WhatsAppGroup, l.BuildingAge, l.Intent, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save lead: %w", err)
	}
	return nil
}

// StatusActivity builds the audit entry for a status change.
func StatusActivity(l domain.Lead, change domain.StatusChange, actorID *uuid.UUID, reason string, at time.Time) (activity.Entry, error) {
	payload := map[string]string{"oldStatus": string(change.From), "newStatus": string(change.To)}
	if reason != "" {
		payload["reason"] = reason
	}
	return activity.New(&l.ID, l.AssignedOfficeID, actorID, activity.TypeStatusChanged,
		fmt.Sprintf("Status changed: %s -> %s", change.From, change.To), payload, at)
}

// Create inserts a manual lead together with its creation entry.
func (r *Repository) Create(ctx context.Context, l domain.Lead, actorID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if l.AssignedOfficeID != nil {
			if err := ensureOffice(ctx, tx, *l.AssignedOfficeID); err != nil {
				return err
			}
		}
		if err := Insert(ctx, tx, l); err != nil {
			return err
		}
		entry, err := activity.New(&l.ID, l.AssignedOfficeID, &actorID, activity.TypeLeadCreated, "Lead created", map[string]string{"source": l.Source}, l.CreatedAt)
		if err != nil {
			return err
		}
		return activity.Record(ctx, tx, entry)
	})
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, apperr.NotFound(leadNotFoundMsg)
		}
		return domain.Lead{}, fmt.Errorf("failed to get lead: %w", err)
	}
	return l, nil
}

// FindIDByExternalID returns the lead holding externalID, if any.
func (r *Repository) FindIDByExternalID(ctx context.Context, externalID int64) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM leads WHERE external_id = $1`, externalID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to look up external id: %w", err)
	}
	return id, true, nil
}

// MaxExternalID is the sync cursor: the highest external id ever stored.
func (r *Repository) MaxExternalID(ctx context.Context) (int64, error) {
	var cursor int64
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(external_id), 0) FROM leads`).Scan(&cursor); err != nil {
		return 0, fmt.Errorf("failed to read sync cursor: %w", err)
	}
	return cursor, nil
}

// ChangeStatus overwrites the status and records an entry when it differs.
func (r *Repository) ChangeStatus(ctx context.Context, id uuid.UUID, to domain.Status, subStatus *string, actorID uuid.UUID, now time.Time) (domain.Lead, domain.StatusChange, error) {
	var lead domain.Lead
	var change domain.StatusChange

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		l, err := GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		change = l.ApplyStatus(to, now)
		if subStatus != nil {
			l.SubStatus = *subStatus
			l.UpdatedAt = now
		}
		if err := Save(ctx, tx, l); err != nil {
			return err
		}
		if change.Changed {
			entry, err := StatusActivity(l, change, &actorID, "", now)
			if err != nil {
				return err
			}
			if err := activity.Record(ctx, tx, entry); err != nil {
				return err
			}
		}
		lead = l
		return nil
	})
	if err != nil {
		return domain.Lead{}, domain.StatusChange{}, err
	}
	return lead, change, nil
}

// UpdateProfile applies a partial edit and, when status is given, a status
// change in one transaction. A status change is audited like ChangeStatus;
// a profile edit gets its own entry.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate, status *domain.Status, actorID uuid.UUID, now time.Time) (domain.Lead, domain.StatusChange, error) {
	var lead domain.Lead
	var change domain.StatusChange

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		l, err := GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		touched := l.ApplyProfile(update, now)
		change = domain.StatusChange{From: l.Status, To: l.Status}
		if status != nil {
			change = l.ApplyStatus(*status, now)
		}
		if !touched && !change.Changed {
			lead = l
			return nil
		}
		if err := Save(ctx, tx, l); err != nil {
			return err
		}
		if touched {
			entry, err := activity.New(&l.ID, l.AssignedOfficeID, &actorID, activity.TypeLeadUpdated, "Lead updated", update.ChangedFields(), now)
			if err != nil {
				return err
			}
			if err := activity.Record(ctx, tx, entry); err != nil {
				return err
			}
		}
		if change.Changed {
			entry, err := StatusActivity(l, change, &actorID, "", now)
			if err != nil {
				return err
			}
			if err := activity.Record(ctx, tx, entry); err != nil {
				return err
			}
		}
		lead = l
		return nil
	})
	if err != nil {
		return domain.Lead{}, domain.StatusChange{}, err
	}
	return lead, change, nil
}

// AssignOffice hands the lead to a franchise office.
func (r *Repository) AssignOffice(ctx context.Context, id, officeID, actorID uuid.UUID, now time.Time) (domain.Lead, error) {
	var lead domain.Lead

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := ensureOffice(ctx, tx, officeID); err != nil {
			return err
		}
		l, err := GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		previous := l.AssignedOfficeID
		l.AssignedOfficeID = &officeID
		l.UpdatedAt = now
		if err := Save(ctx, tx, l); err != nil {
			return err
		}
		payload := map[string]interface{}{"officeId": officeID}
		if previous != nil {
			payload["previousOfficeId"] = *previous
		}
		entry, err := activity.New(&l.ID, &officeID, &actorID, activity.TypeOfficeAssigned, "Lead assigned to office", payload, now)
		if err != nil {
			return err
		}
		if err := activity.Record(ctx, tx, entry); err != nil {
			return err
		}
		lead = l
		return nil
	})
	if err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

func ensureOffice(ctx context.Context, q db.Querier, officeID uuid.UUID) error {
	exists, err := franchiserepo.Exists(ctx, q, officeID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("franchise office not found")
	}
	return nil
}

type ListParams struct {
	Status       *domain.Status
	OfficeID     *uuid.UUID
	Search       string
	BreachedOnly bool
	Now          time.Time
	SortBy       string
	SortOrder    string
	Page         int
	PageSize     int
}

type ListResult struct {
	Items      []domain.Lead
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

var sortColumns = map[string]string{
	"createdAt":         "created_at",
	"firstCallDeadline": "first_call_deadline",
	"status":            "status",
	"customerName":      "customer_name",
}

func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	baseQuery := " FROM leads WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if params.Status != nil {
		addFilter(&baseQuery, &args, &argIndex, " AND status = $%d", string(*params.Status))
	}
	if params.OfficeID != nil {
		addFilter(&baseQuery, &args, &argIndex, " AND assigned_franchise_id = $%d", *params.OfficeID)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		addFilter(&baseQuery, &args, &argIndex, " AND (customer_name ILIKE $%[1]d OR customer_phone ILIKE $%[1]d OR district ILIKE $%[1]d)", "%"+search+"%")
	}
	if params.BreachedOnly {
		baseQuery += " AND status = 'received' AND first_call_completed_at IS NULL"
		addFilter(&baseQuery, &args, &argIndex, " AND first_call_deadline < $%d", params.Now)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("failed to count leads: %w", err)
	}

	sortCol, ok := sortColumns[params.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	order := "DESC"
	if params.SortOrder == "asc" {
		order = "ASC"
	}

	offset := (params.Page - 1) * params.PageSize
	selectQuery := fmt.Sprintf("SELECT %s%s ORDER BY %s %s, id LIMIT $%d OFFSET $%d",
		leadColumns, baseQuery, sortCol, order, argIndex, argIndex+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return ListResult{}, fmt.Errorf("failed to scan lead: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("failed to iterate leads: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	return ListResult{Items: items, Total: total, Page: params.Page, PageSize: params.PageSize, TotalPages: totalPages}, nil
}

func addFilter(query *string, args *[]interface{}, argIndex *int, clause string, value interface{}) {
	*query += fmt.Sprintf(clause, *argIndex)
	*args = append(*args, value)
	*argIndex++
}
