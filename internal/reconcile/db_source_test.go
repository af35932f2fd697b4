package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"franchise_crm/platform/apperr"

	"github.com/DATA-DOG/go-sqlmock"
)

var partnerColumns = []string{
	"id", "first_name", "last_name", "phone_number", "email",
	"ilce", "mahalle", "sokak", "kapi_no", "ada", "parsel",
	"bina_alani", "bagimsiz_bolum_sayisi", "donusum_tipi", "inceleme_durumu", "created_at",
}

func newMockSource(t *testing.T) (*DBSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewDBSource(db, time.Second), mock
}

func TestDBSourceFetchSince(t *testing.T) {
	src, mock := newMockSource(t)
	created := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(partnerColumns).
		AddRow(11, "Ayşe", "Kaya", "05321112233", "a@x.com", "Kadıköy", "Moda", "Bahariye", "5", "101", "7", 250.0, 12, "yerinde", "bekliyor", created).
		AddRow(12, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery(`FROM kentsel_donusum_talebi t`).WithArgs(int64(10)).WillReturnRows(rows)

	records, err := src.FetchSince(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.CustomerName != "Ayşe Kaya" || first.UnitCount == nil || *first.UnitCount != 12 || first.CreatedAt == nil {
		t.Errorf("unexpected first record %+v", first)
	}
	second := records[1]
	if second.CustomerName != "" || second.BuildingArea != nil || second.CreatedAt != nil {
		t.Errorf("nulls must map to zero values, got %+v", second)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDBSourceFetch(t *testing.T) {
	src, mock := newMockSource(t)

	mock.ExpectQuery(`WHERE t.id = \$1`).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)
	rec, err := src.Fetch(context.Background(), 99)
	if err != nil || rec != nil {
		t.Fatalf("expected nil, nil for missing record, got %+v, %v", rec, err)
	}

	mock.ExpectQuery(`WHERE t.id = \$1`).WithArgs(int64(5)).WillReturnError(errors.New("connection refused"))
	if _, err := src.Fetch(context.Background(), 5); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
