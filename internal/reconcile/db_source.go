package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"franchise_crm/platform/apperr"

	_ "github.com/lib/pq"
)

const msgPartnerDBUnavailable = "partner database unavailable"

const partnerSelect = `
	SELECT
		t.id,
		u.first_name,
		u.last_name,
		u.phone_number,
		u.email,
		t.ilce,
		t.mahalle,
		t.sokak,
		t.kapi_no,
		t.ada,
		t.parsel,
		t.bina_alani,
		t.bagimsiz_bolum_sayisi,
		t.donusum_tipi,
		t.inceleme_durumu,
		t.created_at
	FROM kentsel_donusum_talebi t
	LEFT JOIN tbl_users u ON t.user_id = u.user_id`

// DBSource reads partner records straight from the partner's Postgres when
// both systems share a host.
type DBSource struct {
	db      *sql.DB
	timeout time.Duration
}

// OpenDBSource connects to the partner database through lib/pq.
func OpenDBSource(dsn string, timeout time.Duration) (*DBSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open partner database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewDBSource(db, timeout), nil
}

// NewDBSource wraps an open handle.
func NewDBSource(db *sql.DB, timeout time.Duration) *DBSource {
	return &DBSource{db: db, timeout: timeout}
}

func (s *DBSource) Name() string { return SourceModeDB }

func (s *DBSource) Close() error {
	return s.db.Close()
}

func (s *DBSource) FetchSince(ctx context.Context, cursor int64) ([]ExternalRecord, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, partnerSelect+`
	WHERE t.id > $1
	ORDER BY t.id ASC`, cursor)
	if err != nil {
		return nil, apperr.Unavailable(msgPartnerDBUnavailable, err)
	}
	defer rows.Close()

	records := make([]ExternalRecord, 0)
	for rows.Next() {
		rec, err := scanPartnerRow(rows)
		if err != nil {
			return nil, apperr.Unavailable(msgPartnerDBUnavailable, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(msgPartnerDBUnavailable, err)
	}
	return records, nil
}

func (s *DBSource) Fetch(ctx context.Context, externalID int64) (*ExternalRecord, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rec, err := scanPartnerRow(s.db.QueryRowContext(ctx, partnerSelect+`
	WHERE t.id = $1`, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unavailable(msgPartnerDBUnavailable, err)
	}
	return &rec, nil
}

func (s *DBSource) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPartnerRow(row rowScanner) (ExternalRecord, error) {
	var (
		rec                                    ExternalRecord
		firstName, lastName, phoneNo, email    sql.NullString
		district, neighborhood, street, doorNo sql.NullString
		blockNo, parcelNo, transform, review   sql.NullString
		area                                   sql.NullFloat64
		units                                  sql.NullInt64
		createdAt                              sql.NullTime
	)
	err := row.Scan(
		&rec.ExternalID, &firstName, &lastName, &phoneNo, &email,
		&district, &neighborhood, &street, &doorNo, &blockNo, &parcelNo,
		&area, &units, &transform, &review, &createdAt,
	)
	if err != nil {
		return ExternalRecord{}, err
	}

	rec.CustomerName = strings.TrimSpace(firstName.String + " " + lastName.String)
	rec.CustomerPhone = phoneNo.String
	rec.CustomerEmail = email.String
	rec.City = DefaultCity
	rec.District = district.String
	rec.Neighborhood = neighborhood.String
	rec.Street = street.String
	rec.DoorNo = doorNo.String
	rec.BlockNo = blockNo.String
	rec.ParcelNo = parcelNo.String
	rec.TransformationType = transform.String
	rec.ReviewStatus = review.String
	if area.Valid {
		v := area.Float64
		rec.BuildingArea = &v
	}
	if units.Valid {
		v := int(units.Int64)
		rec.UnitCount = &v
	}
	if createdAt.Valid {
		v := createdAt.Time
		rec.CreatedAt = &v
	}
	return rec, nil
}
