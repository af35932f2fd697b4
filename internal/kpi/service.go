package kpi

import (
	"context"
	"time"

	franchiserepo "franchise_crm/internal/franchise/repository"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/logger"

	"github.com/google/uuid"
)

// Store persists and reads snapshots.
type Store interface {
	DayCounts(ctx context.Context, start, end time.Time) ([]Count, error)
	Upsert(ctx context.Context, snaps []Snapshot) error
	List(ctx context.Context, p ListParams) ([]Snapshot, error)
}

// Offices lists the offices a rollup covers.
type Offices interface {
	ListActiveRefs(ctx context.Context) ([]franchiserepo.OfficeRef, error)
}

// maxRange bounds list and export reads.
const maxRange = 366 * 24 * time.Hour

type Service struct {
	store   Store
	offices Offices
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store Store, offices Offices, log *logger.Logger) *Service {
	return &Service{store: store, offices: offices, log: log.WithComponent("kpi"), now: time.Now}
}

// SnapshotDaily computes and stores the counters of day. Running it twice for
// the same day replaces the earlier rows.
func (s *Service) SnapshotDaily(ctx context.Context, day time.Time) ([]Snapshot, error) {
	start, end := DayBounds(day)
	if !start.Before(s.now()) {
		return nil, apperr.Validation("cannot snapshot a day that has not started")
	}

	refs, err := s.offices.ListActiveRefs(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.DayCounts(ctx, start, end)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	snaps := Aggregate(start, ids, counts)
	now := s.now().UTC()
	for i := range snaps {
		snaps[i].CreatedAt = now
	}

	if err := s.store.Upsert(ctx, snaps); err != nil {
		return nil, err
	}
	s.log.Info("kpi snapshot stored", "date", start.Format(dateLayout), "rows", len(snaps))
	return snaps, nil
}

// List reads snapshots in [from, to]. A nil office with global set returns
// the all-office rows; a nil office without global returns everything.
func (s *Service) List(ctx context.Context, p ListParams) ([]Snapshot, error) {
	if p.To.Before(p.From) {
		return nil, apperr.Validation("to must not be before from")
	}
	if p.To.Sub(p.From) > maxRange {
		return nil, apperr.Validation("date range is limited to one year")
	}
	return s.store.List(ctx, p)
}

// Export renders the snapshots of p as an xlsx workbook.
func (s *Service) Export(ctx context.Context, p ListParams) ([]byte, error) {
	snaps, err := s.List(ctx, p)
	if err != nil {
		return nil, err
	}
	refs, err := s.offices.ListActiveRefs(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(refs))
	for _, ref := range refs {
		names[ref.ID] = ref.Name
	}
	return WriteWorkbook(snaps, names)
}
