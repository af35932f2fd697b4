package service

import (
	"context"
	"testing"
	"time"

	"franchise_crm/internal/auth/password"
	"franchise_crm/internal/auth/repository"
	"franchise_crm/internal/auth/transport"
	"franchise_crm/internal/authz"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/httpkit"
	"franchise_crm/platform/logger"

	"github.com/google/uuid"
)

type authConfig struct{}

func (authConfig) GetJWTAccessSecret() string       { return "test-secret" }
func (authConfig) GetAccessTokenTTL() time.Duration { return 15 * time.Minute }

type fakeUsers struct {
	byID       map[uuid.UUID]repository.User
	lastFilter *uuid.UUID
}

func newFakeUsers(users ...repository.User) *fakeUsers {
	f := &fakeUsers{byID: map[uuid.UUID]repository.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) CreateUser(_ context.Context, u repository.User) (repository.User, error) {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return repository.User{}, apperr.Conflict("email already registered")
		}
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, apperr.NotFound("user not found")
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeUsers) ListUsers(_ context.Context, officeID *uuid.UUID) ([]repository.User, error) {
	f.lastFilter = officeID
	var out []repository.User
	for _, u := range f.byID {
		if officeID == nil || (u.OfficeID != nil && *u.OfficeID == *officeID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) SetUserRoles(_ context.Context, id uuid.UUID, roles []string) error {
	u, ok := f.byID[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.Roles = roles
	f.byID[id] = u
	return nil
}

func newService(t *testing.T, users ...repository.User) (*Service, *fakeUsers) {
	t.Helper()
	store := newFakeUsers(users...)
	svc := New(store, authConfig{}, logger.New("test"))
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	hash, err := password.Hash(pw)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

func TestLogin(t *testing.T) {
	office := uuid.New()
	active := repository.User{
		ID: uuid.New(), Email: "saha@ofis.com", PasswordHash: mustHash(t, "Sifre!123"),
		FullName: "Saha", OfficeID: &office, IsActive: true, Roles: []string{authz.RoleOfficeFieldRep},
	}
	disabled := repository.User{
		ID: uuid.New(), Email: "eski@ofis.com", PasswordHash: mustHash(t, "Sifre!123"),
		FullName: "Eski", IsActive: false, Roles: []string{authz.RoleCentralCaller},
	}
	svc, _ := newService(t, active, disabled)

	tests := []struct {
		name     string
		email    string
		password string
		wantKind apperr.Kind
	}{
		{name: "unknown email", email: "yok@ofis.com", password: "Sifre!123", wantKind: apperr.KindUnauthorized},
		{name: "wrong password", email: "saha@ofis.com", password: "Yanlis!123", wantKind: apperr.KindUnauthorized},
		{name: "inactive account", email: "eski@ofis.com", password: "Sifre!123", wantKind: apperr.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), transport.LoginRequest{Email: tt.email, Password: tt.password})
			if !apperr.Is(err, tt.wantKind) {
				t.Fatalf("expected kind %v, got %v", tt.wantKind, err)
			}
		})
	}

	resp, err := svc.Login(context.Background(), transport.LoginRequest{Email: "  SAHA@ofis.com ", Password: "Sifre!123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" || resp.TokenType != "Bearer" {
		t.Fatalf("unexpected token response %+v", resp)
	}
	if !resp.ExpiresAt.Equal(svc.now().Add(15 * time.Minute)) {
		t.Errorf("unexpected expiry %s", resp.ExpiresAt)
	}
	if resp.User.OfficeID == nil || *resp.User.OfficeID != office {
		t.Errorf("expected office in profile")
	}
	if len(resp.User.Permissions) == 0 {
		t.Errorf("expected resolved permissions")
	}
}

func TestCreateUserValidatesRoles(t *testing.T) {
	svc, _ := newService(t)
	admin := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralAdmin}, nil)

	_, err := svc.CreateUser(context.Background(), admin, transport.CreateUserRequest{
		Email: "x@crm.com", Password: "Sifre!123", FullName: "X", Roles: []string{"patron"},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation for unknown role, got %v", err)
	}

	_, err = svc.CreateUser(context.Background(), admin, transport.CreateUserRequest{
		Email: "x@crm.com", Password: "Sifre!123", FullName: "X", Roles: []string{authz.RoleOfficeManager},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation for office role without office, got %v", err)
	}

	office := uuid.New()
	created, err := svc.CreateUser(context.Background(), admin, transport.CreateUserRequest{
		Email: " Yeni@CRM.com", Password: "Sifre!123", FullName: " Yeni Kişi ", Phone: "0532 111 22 33",
		OfficeID: &office, Roles: []string{authz.RoleOfficeManager, authz.RoleOfficeManager},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Email != "yeni@crm.com" || created.FullName != "Yeni Kişi" {
		t.Errorf("expected normalized identity fields, got %+v", created)
	}
	if created.Phone != "+905321112233" {
		t.Errorf("expected E.164 phone, got %q", created.Phone)
	}
	if len(created.Roles) != 1 {
		t.Errorf("expected duplicate roles collapsed, got %v", created.Roles)
	}
}

func TestCreateUserOfficeManagerScope(t *testing.T) {
	svc, _ := newService(t)
	office := uuid.New()
	other := uuid.New()
	manager := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeManager}, &office)

	tests := []struct {
		name     string
		officeID uuid.UUID
		roles    []string
		wantErr  bool
	}{
		{name: "field rep in own office", officeID: office, roles: []string{authz.RoleOfficeFieldRep}},
		{name: "other office", officeID: other, roles: []string{authz.RoleOfficeFieldRep}, wantErr: true},
		{name: "manager role", officeID: office, roles: []string{authz.RoleOfficeManager}, wantErr: true},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			officeID := tt.officeID
			_, err := svc.CreateUser(context.Background(), manager, transport.CreateUserRequest{
				Email:    uuid.NewString() + "@ofis.com",
				Password: "Sifre!123",
				FullName: "Kişi",
				OfficeID: &officeID,
				Roles:    tt.roles,
			})
			if tt.wantErr {
				if !apperr.Is(err, apperr.KindForbidden) {
					t.Fatalf("case %d: expected forbidden, got %v", i, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("case %d: unexpected error %v", i, err)
			}
		})
	}

	caller := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralCaller}, nil)
	_, err := svc.CreateUser(context.Background(), caller, transport.CreateUserRequest{
		Email: "a@crm.com", Password: "Sifre!123", FullName: "A", Roles: []string{authz.RoleCentralCaller},
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for caller, got %v", err)
	}
}

func TestListUsersPinsManagerToOffice(t *testing.T) {
	office := uuid.New()
	svc, store := newService(t,
		repository.User{ID: uuid.New(), Email: "a@ofis.com", OfficeID: &office, Roles: []string{authz.RoleOfficeFieldRep}},
		repository.User{ID: uuid.New(), Email: "b@crm.com", Roles: []string{authz.RoleCentralCaller}},
	)
	manager := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeManager}, &office)

	result, err := svc.ListUsers(context.Background(), manager, transport.ListUsersRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if store.lastFilter == nil || *store.lastFilter != office {
		t.Fatalf("expected office filter, got %v", store.lastFilter)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 user, got %d", len(result.Items))
	}

	_, err = svc.ListUsers(context.Background(), manager, transport.ListUsersRequest{OfficeID: uuid.NewString()})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for foreign office, got %v", err)
	}
}

func TestSetRolesRequiresUsersManage(t *testing.T) {
	office := uuid.New()
	target := repository.User{ID: uuid.New(), Email: "a@ofis.com", OfficeID: &office, Roles: []string{authz.RoleOfficeFieldRep}}
	svc, store := newService(t, target)

	manager := httpkit.NewIdentity(uuid.New(), []string{authz.RoleOfficeManager}, &office)
	if _, err := svc.SetRoles(context.Background(), manager, target.ID, transport.SetRolesRequest{Roles: []string{authz.RoleOfficeManager}}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	admin := httpkit.NewIdentity(uuid.New(), []string{authz.RoleCentralAdmin}, nil)
	got, err := svc.SetRoles(context.Background(), admin, target.ID, transport.SetRolesRequest{Roles: []string{authz.RoleOfficeManager}})
	if err != nil {
		t.Fatalf("set roles: %v", err)
	}
	if got.Roles[0] != authz.RoleOfficeManager || store.byID[target.ID].Roles[0] != authz.RoleOfficeManager {
		t.Fatalf("roles not replaced: %v", got.Roles)
	}
}
