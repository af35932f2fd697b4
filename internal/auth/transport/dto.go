package transport

import (
	"time"

	"github.com/google/uuid"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string          `json:"accessToken"`
	TokenType   string          `json:"tokenType"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	User        ProfileResponse `json:"user"`
}

type ProfileResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"fullName"`
	Phone       string     `json:"phone,omitempty"`
	OfficeID    *uuid.UUID `json:"officeId,omitempty"`
	Roles       []string   `json:"roles"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type CreateUserRequest struct {
	Email    string     `json:"email" validate:"required,email,max=254"`
	Password string     `json:"password" validate:"required,strongpassword"`
	FullName string     `json:"fullName" validate:"required,min=2,max=120"`
	Phone    string     `json:"phone" validate:"omitempty,max=30"`
	OfficeID *uuid.UUID `json:"officeId,omitempty"`
	Roles    []string   `json:"roles" validate:"required,min=1,dive,required"`
}

type SetRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

type ListUsersRequest struct {
	OfficeID string `form:"officeId" validate:"omitempty,uuid"`
}

type UserListResponse struct {
	Items []ProfileResponse `json:"items"`
}
