package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"franchise_crm/platform/apperr"
	"franchise_crm/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userNotFoundMsg = "user not found"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	OfficeID     *uuid.UUID
	IsActive     bool
	Roles        []string
	CreatedAt    time.Time
}

const selectUserQuery = `
	SELECT u.id, u.email, u.password_hash, u.full_name, u.phone, u.franchise_office_id,
		u.is_active, u.created_at,
		COALESCE(array_agg(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}') AS roles
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id`

const listRecipientsQuery = `
	SELECT DISTINCT u.id
	FROM users u
	JOIN user_roles ur ON ur.user_id = u.id
	WHERE u.is_active AND ur.role = ANY($1)
		AND ($2::uuid IS NULL OR u.franchise_office_id = $2)`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.OfficeID,
		&u.IsActive, &u.CreatedAt, &u.Roles)
	return u, err
}

// CreateUser inserts the user and its role set in one transaction.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, full_name, phone, franchise_office_id, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			u.ID, u.Email, u.PasswordHash, u.FullName, u.Phone, u.OfficeID, u.IsActive, u.CreatedAt)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.Conflict("email already registered")
			}
			if db.IsForeignKeyViolation(err) {
				return apperr.NotFound("franchise office not found")
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return replaceRoles(ctx, tx, u.ID, u.Roles)
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, selectUserQuery+` WHERE lower(u.email) = lower($1) GROUP BY u.id`, email)
}

func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	return r.getOne(ctx, selectUserQuery+` WHERE u.id = $1 GROUP BY u.id`, userID)
}

func (r *Repository) getOne(ctx context.Context, query string, arg interface{}) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound(userNotFoundMsg)
		}
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListUsers returns users, optionally limited to one office.
func (r *Repository) ListUsers(ctx context.Context, officeID *uuid.UUID) ([]User, error) {
	rows, err := r.pool.Query(ctx, selectUserQuery+`
		WHERE ($1::uuid IS NULL OR u.franchise_office_id = $1)
		GROUP BY u.id
		ORDER BY u.email`, officeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// ListRecipients returns active users holding any of roles. A non-nil
// officeID restricts the result to that office's staff.
func (r *Repository) ListRecipients(ctx context.Context, roles []string, officeID *uuid.UUID) ([]uuid.UUID, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, listRecipientsQuery, roles, officeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EmailsByID maps active users among ids to their email address.
func (r *Repository) EmailsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, email FROM users WHERE id = ANY($1) AND is_active`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load user emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		out[id] = email
	}
	return out, rows.Err()
}

// SetUserRoles replaces the role set of a user.
func (r *Repository) SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return apperr.NotFound(userNotFoundMsg)
		}
		return replaceRoles(ctx, tx, userID, roles)
	})
}

func replaceRoles(ctx context.Context, q db.Querier, userID uuid.UUID, roles []string) error {
	if _, err := q.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	roles = uniqueStrings(roles)
	if len(roles) == 0 {
		return nil
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO user_roles (user_id, role)
		SELECT $1, unnest($2::text[])`, userID, roles); err != nil {
		return fmt.Errorf("failed to insert roles: %w", err)
	}
	return nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
