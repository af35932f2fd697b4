package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"franchise_crm/platform/apperr"
	"franchise_crm/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const officeNotFoundMsg = "franchise office not found"
const officeCodeTakenMsg = "franchise office code already exists"

// Repository provides database operations for franchise offices.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new franchise repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Office struct {
	ID        uuid.UUID
	Code      string
	Name      string
	City      string
	District  string
	Address   string
	Phone     string
	Email     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OfficeUpdate struct {
	ID       uuid.UUID
	Name     *string
	City     *string
	District *string
	Address  *string
	Phone    *string
	Email    *string
	IsActive *bool
}

type ListParams struct {
	OfficeID  *uuid.UUID
	Search    string
	City      string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

type ListResult struct {
	Items      []Office
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

const officeColumns = `id, code, name, city, district, address, phone, email, is_active, created_at, updated_at`

func scanOffice(row pgx.Row) (Office, error) {
	var o Office
	err := row.Scan(&o.ID, &o.Code, &o.Name, &o.City, &o.District, &o.Address, &o.Phone, &o.Email, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *Repository) Create(ctx context.Context, office Office) (Office, error) {
	query := `
		INSERT INTO franchise_offices (
			id, code, name, city, district, address, phone, email, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + officeColumns

	created, err := scanOffice(r.pool.QueryRow(ctx, query,
		office.ID,
		office.Code,
		office.Name,
		office.City,
		office.District,
		office.Address,
		office.Phone,
		office.Email,
		office.IsActive,
		office.CreatedAt,
		office.UpdatedAt,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Office{}, apperr.Conflict(officeCodeTakenMsg)
		}
		return Office{}, fmt.Errorf("create franchise office: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Office, error) {
	office, err := scanOffice(r.pool.QueryRow(ctx, `SELECT `+officeColumns+` FROM franchise_offices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Office{}, apperr.NotFound(officeNotFoundMsg)
		}
		return Office{}, fmt.Errorf("get franchise office: %w", err)
	}
	return office, nil
}

func (r *Repository) Update(ctx context.Context, update OfficeUpdate) (Office, error) {
	query := `
		UPDATE franchise_offices
		SET
			name = COALESCE($2, name),
			city = COALESCE($3, city),
			district = COALESCE($4, district),
			address = COALESCE($5, address),
			phone = COALESCE($6, phone),
			email = COALESCE($7, email),
			is_active = COALESCE($8, is_active),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + officeColumns

	office, err := scanOffice(r.pool.QueryRow(ctx, query,
		update.ID,
		update.Name,
		update.City,
		update.District,
		update.Address,
		update.Phone,
		update.Email,
		update.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Office{}, apperr.NotFound(officeNotFoundMsg)
		}
		return Office{}, fmt.Errorf("update franchise office: %w", err)
	}
	return office, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	sortBy, err := resolveSortBy(params.SortBy)
	if err != nil {
		return ListResult{}, err
	}
	orderBy, err := resolveSortOrder(params.SortOrder)
	if err != nil {
		return ListResult{}, err
	}

	baseQuery := `
		FROM franchise_offices
		WHERE ($1::uuid IS NULL OR id = $1)
			AND ($2::text IS NULL OR name ILIKE $2 OR code ILIKE $2 OR district ILIKE $2)
			AND ($3::text IS NULL OR city = $3)
	`
	args := []interface{}{params.OfficeID, optionalSearch(params.Search), optionalText(params.City)}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count franchise offices: %w", err)
	}

	page := params.Page
	pageSize := params.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize
	pageTotal := (total + pageSize - 1) / pageSize

	selectQuery := `
		SELECT ` + officeColumns + `
		` + baseQuery + `
		ORDER BY
			CASE WHEN $4 = 'name' AND $5 = 'asc' THEN name END ASC,
			CASE WHEN $4 = 'name' AND $5 = 'desc' THEN name END DESC,
			CASE WHEN $4 = 'code' AND $5 = 'asc' THEN code END ASC,
			CASE WHEN $4 = 'code' AND $5 = 'desc' THEN code END DESC,
			CASE WHEN $4 = 'createdAt' AND $5 = 'asc' THEN created_at END ASC,
			CASE WHEN $4 = 'createdAt' AND $5 = 'desc' THEN created_at END DESC,
			name ASC
		LIMIT $6 OFFSET $7
	`

	args = append(args, sortBy, orderBy, pageSize, offset)
	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list franchise offices: %w", err)
	}
	defer rows.Close()

	items := make([]Office, 0)
	for rows.Next() {
		office, err := scanOffice(rows)
		if err != nil {
			return ListResult{}, fmt.Errorf("scan franchise office: %w", err)
		}
		items = append(items, office)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("iterate franchise offices: %w", err)
	}

	return ListResult{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: pageTotal}, nil
}

// Exists checks an office through q, so callers inside a transaction can
// validate a reference before writing it.
func Exists(ctx context.Context, q db.Querier, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM franchise_offices WHERE id = $1)`
	if err := q.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check franchise office exists: %w", err)
	}
	return exists, nil
}

// OfficeRef is the short form of an office used by rollups and exports.
type OfficeRef struct {
	ID   uuid.UUID
	Code string
	Name string
}

// ListActiveRefs returns every active office ordered by code.
func (r *Repository) ListActiveRefs(ctx context.Context) ([]OfficeRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name FROM franchise_offices WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list active offices: %w", err)
	}
	defer rows.Close()

	refs := make([]OfficeRef, 0)
	for rows.Next() {
		var ref OfficeRef
		if err := rows.Scan(&ref.ID, &ref.Code, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan office: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func resolveSortBy(value string) (string, error) {
	if value == "" {
		return "name", nil
	}
	switch value {
	case "name", "code", "createdAt":
		return value, nil
	default:
		return "", apperr.BadRequest("invalid sort field")
	}
}

func resolveSortOrder(value string) (string, error) {
	if value == "" {
		return "asc", nil
	}
	switch value {
	case "asc", "desc":
		return value, nil
	default:
		return "", apperr.BadRequest("invalid sort order")
	}
}

func optionalSearch(value string) interface{} {
	if value == "" {
		return nil
	}
	return "%" + value + "%"
}

func optionalText(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
