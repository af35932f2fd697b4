package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateOfficeRequest struct {
	Code     string `json:"code" validate:"required,min=2,max=32"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	City     string `json:"city" validate:"omitempty,max=120"`
	District string `json:"district" validate:"omitempty,max=120"`
	Address  string `json:"address" validate:"omitempty,max=300"`
	Phone    string `json:"phone" validate:"omitempty,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type UpdateOfficeRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	City     *string `json:"city,omitempty" validate:"omitempty,max=120"`
	District *string `json:"district,omitempty" validate:"omitempty,max=120"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=300"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	IsActive *bool   `json:"isActive,omitempty"`
}

type OfficeResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	District  string    `json:"district"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ListOfficesRequest struct {
	Search    string `form:"search" validate:"omitempty,max=100"`
	City      string `form:"city" validate:"omitempty,max=120"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=name code createdAt"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ListOfficesResponse struct {
	Items      []OfficeResponse `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}
