package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"franchise_crm/internal/auth/password"
	"franchise_crm/internal/auth/repository"
	"franchise_crm/internal/auth/token"
	"franchise_crm/internal/auth/transport"
	"franchise_crm/internal/authz"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/config"
	"franchise_crm/platform/httpkit"
	"franchise_crm/platform/logger"
	"franchise_crm/platform/phone"

	"github.com/google/uuid"
)

const msgInvalidCredentials = "invalid credentials"

// officeRoles must be bound to a franchise office.
var officeRoles = map[string]bool{
	authz.RoleOfficeManager:  true,
	authz.RoleOfficeFieldRep: true,
}

type Service struct {
	repo   repository.UserStore
	cfg    config.AuthServiceConfig
	log    *logger.Logger
	tables *authz.Table
	now    func() time.Time
}

func New(repo repository.UserStore, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log, tables: authz.Default(), now: time.Now}
}

// Login verifies the password and issues an access token.
func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (transport.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.log.AuthEvent("login", email, false, "unknown email")
			return transport.AuthResponse{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		return transport.AuthResponse{}, err
	}

	if err := password.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			s.log.AuthEvent("login", email, false, "wrong password")
			return transport.AuthResponse{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		return transport.AuthResponse{}, err
	}
	if !user.IsActive {
		s.log.AuthEvent("login", email, false, "inactive account")
		return transport.AuthResponse{}, apperr.Forbidden("account is disabled")
	}

	now := s.now()
	ttl := s.cfg.GetAccessTokenTTL()
	accessToken, err := token.SignAccess(s.cfg.GetJWTAccessSecret(), user.ID, user.Roles, user.OfficeID, ttl, now)
	if err != nil {
		return transport.AuthResponse{}, err
	}

	s.log.AuthEvent("login", email, true, "")
	return transport.AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresAt:   now.Add(ttl),
		User:        s.profile(user),
	}, nil
}

// Me returns the caller's profile with effective permissions.
func (s *Service) Me(ctx context.Context, id httpkit.Identity) (transport.ProfileResponse, error) {
	user, err := s.repo.GetUserByID(ctx, id.UserID())
	if err != nil {
		return transport.ProfileResponse{}, err
	}
	return s.profile(user), nil
}

// CreateUser adds a staff account. Holders of users.manage may create any
// role; office managers holding users.manage_own_team may only add field
// reps to their own office.
func (s *Service) CreateUser(ctx context.Context, id httpkit.Identity, req transport.CreateUserRequest) (transport.ProfileResponse, error) {
	roles, err := s.validateRoles(req.Roles, req.OfficeID)
	if err != nil {
		return transport.ProfileResponse{}, err
	}
	if err := s.authorizeUserAdmin(id, roles, req.OfficeID); err != nil {
		return transport.ProfileResponse{}, err
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return transport.ProfileResponse{}, err
	}

	user, err := s.repo.CreateUser(ctx, repository.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        phone.NormalizeE164(req.Phone),
		OfficeID:     req.OfficeID,
		IsActive:     true,
		Roles:        roles,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return transport.ProfileResponse{}, err
	}
	return s.profile(user), nil
}

// SetRoles replaces a user's roles. Only users.manage may do this.
func (s *Service) SetRoles(ctx context.Context, id httpkit.Identity, userID uuid.UUID, req transport.SetRolesRequest) (transport.ProfileResponse, error) {
	if err := authz.Authorize(id, authz.OpManageUsers); err != nil {
		return transport.ProfileResponse{}, err
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return transport.ProfileResponse{}, err
	}
	roles, err := s.validateRoles(req.Roles, user.OfficeID)
	if err != nil {
		return transport.ProfileResponse{}, err
	}
	if err := s.repo.SetUserRoles(ctx, userID, roles); err != nil {
		return transport.ProfileResponse{}, err
	}
	user.Roles = roles
	return s.profile(user), nil
}

func (s *Service) ListUsers(ctx context.Context, id httpkit.Identity, req transport.ListUsersRequest) (transport.UserListResponse, error) {
	var requested *uuid.UUID
	if req.OfficeID != "" {
		officeID, err := uuid.Parse(req.OfficeID)
		if err != nil {
			return transport.UserListResponse{}, apperr.Validation("invalid office id")
		}
		requested = &officeID
	}
	scope, err := authz.OfficeScope(id, authz.UsersManage, authz.UsersManageOwnTeam, requested)
	if err != nil {
		return transport.UserListResponse{}, err
	}

	users, err := s.repo.ListUsers(ctx, scope)
	if err != nil {
		return transport.UserListResponse{}, err
	}
	items := make([]transport.ProfileResponse, 0, len(users))
	for _, u := range users {
		items = append(items, s.profile(u))
	}
	return transport.UserListResponse{Items: items}, nil
}

func (s *Service) validateRoles(roles []string, officeID *uuid.UUID) ([]string, error) {
	out := make([]string, 0, len(roles))
	seen := make(map[string]bool, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if !s.tables.IsRole(role) {
			return nil, apperr.Validation("unknown role").WithDetails(map[string]string{"role": role})
		}
		if officeRoles[role] && officeID == nil {
			return nil, apperr.Validation("office roles require an office").WithDetails(map[string]string{"role": role})
		}
		if !seen[role] {
			seen[role] = true
			out = append(out, role)
		}
	}
	return out, nil
}

func (s *Service) authorizeUserAdmin(id httpkit.Identity, roles []string, officeID *uuid.UUID) error {
	if authz.HasAny(id, authz.UsersManage) {
		return nil
	}
	if !authz.HasAny(id, authz.UsersManageOwnTeam) {
		return authz.Authorize(id, authz.OpManageUsers)
	}
	own := id.OfficeID()
	if own == nil || officeID == nil || *own != *officeID {
		return apperr.Forbidden("office outside of your scope")
	}
	for _, role := range roles {
		if role != authz.RoleOfficeFieldRep {
			return apperr.Forbidden("office managers may only add field representatives")
		}
	}
	return nil
}

func (s *Service) profile(u repository.User) transport.ProfileResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return transport.ProfileResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Phone:       u.Phone,
		OfficeID:    u.OfficeID,
		Roles:       roles,
		Permissions: s.tables.Resolve(roles).List(),
		CreatedAt:   u.CreatedAt,
	}
}
