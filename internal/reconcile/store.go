package reconcile

import (
	"context"

	"franchise_crm/internal/activity"
	leaddomain "franchise_crm/internal/leads/domain"
	leadrepo "franchise_crm/internal/leads/repository"
	"franchise_crm/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store is the lead persistence reconciliation needs.
type Store interface {
	// MaxExternalID is the poll cursor.
	MaxExternalID(ctx context.Context) (int64, error)
	FindIDByExternalID(ctx context.Context, externalID int64) (uuid.UUID, bool, error)
	// InsertExternal inserts lead unless its external id is already stored.
	InsertExternal(ctx context.Context, lead leaddomain.Lead, via string) (bool, error)
}

// PGStore implements Store on top of the leads repository.
type PGStore struct {
	leads *leadrepo.Repository
}

func NewPGStore(leads *leadrepo.Repository) *PGStore {
	return &PGStore{leads: leads}
}

func (s *PGStore) MaxExternalID(ctx context.Context) (int64, error) {
	return s.leads.MaxExternalID(ctx)
}

func (s *PGStore) FindIDByExternalID(ctx context.Context, externalID int64) (uuid.UUID, bool, error) {
	return s.leads.FindIDByExternalID(ctx, externalID)
}

func (s *PGStore) InsertExternal(ctx context.Context, lead leaddomain.Lead, via string) (bool, error) {
	var created bool
	err := db.WithTx(ctx, s.leads.Pool(), func(tx pgx.Tx) error {
		ok, err := leadrepo.InsertExternal(ctx, tx, lead)
		if err != nil || !ok {
			return err
		}
		created = true

		entry, err := activity.New(&lead.ID, nil, nil, activity.TypeLeadIngested,
			"Lead received from partner system",
			map[string]any{"externalId": *lead.ExternalID, "via": via},
			lead.CreatedAt)
		if err != nil {
			return err
		}
		return activity.Record(ctx, tx, entry)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

var _ Store = (*PGStore)(nil)
