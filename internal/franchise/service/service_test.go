package service

import (
	"context"
	"testing"

	"franchise_crm/internal/authz"
	"franchise_crm/internal/franchise/repository"
	"franchise_crm/internal/franchise/transport"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/httpkit"

	"github.com/google/uuid"
)

type fakeStore struct {
	offices  map[uuid.UUID]repository.Office
	codes    map[string]bool
	lastList repository.ListParams
}

func newFakeStore() *fakeStore {
	return &fakeStore{offices: map[uuid.UUID]repository.Office{}, codes: map[string]bool{}}
}

func (f *fakeStore) Create(_ context.Context, office repository.Office) (repository.Office, error) {
	if f.codes[office.Code] {
		return repository.Office{}, apperr.Conflict("franchise office code already exists")
	}
	f.codes[office.Code] = true
	f.offices[office.ID] = office
	return office, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Office, error) {
	office, ok := f.offices[id]
	if !ok {
		return repository.Office{}, apperr.NotFound("franchise office not found")
	}
	return office, nil
}

func (f *fakeStore) Update(_ context.Context, update repository.OfficeUpdate) (repository.Office, error) {
	office, ok := f.offices[update.ID]
	if !ok {
		return repository.Office{}, apperr.NotFound("franchise office not found")
	}
	if update.Name != nil {
		office.Name = *update.Name
	}
	f.offices[update.ID] = office
	return office, nil
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) (repository.ListResult, error) {
	f.lastList = params
	return repository.ListResult{Page: 1, PageSize: 20}, nil
}

func TestCreateRequiresFranchiseManage(t *testing.T) {
	svc := New(newFakeStore())
	office := uuid.New()
	rep := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeFieldRep}, &office)

	_, err := svc.Create(context.Background(), rep, transport.CreateOfficeRequest{Code: "KDK", Name: "Kadıköy"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateDuplicateCodeConflicts(t *testing.T) {
	svc := New(newFakeStore())
	admin := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralAdmin}, nil)

	created, err := svc.Create(context.Background(), admin, transport.CreateOfficeRequest{Code: "kdk", Name: "Kadıköy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Code != "KDK" || created.City != defaultCity || !created.IsActive {
		t.Errorf("unexpected office %+v", created)
	}

	_, err = svc.Create(context.Background(), admin, transport.CreateOfficeRequest{Code: "KDK", Name: "Kadıköy 2"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestListPinsOfficeManagerToOwnOffice(t *testing.T) {
	store := newFakeStore()
	svc := New(store)
	office := uuid.New()
	manager := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeManager}, &office)

	if _, err := svc.List(context.Background(), manager, transport.ListOfficesRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastList.OfficeID == nil || *store.lastList.OfficeID != office {
		t.Fatalf("expected list scoped to %s, got %v", office, store.lastList.OfficeID)
	}
}
