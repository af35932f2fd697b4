// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated caller as seen by handlers and services.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
	// OfficeID is the franchise office the user belongs to; nil for central staff.
	OfficeID() *uuid.UUID
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	roles         []string
	officeID      *uuid.UUID
	authenticated bool
}

func (i *identity) UserID() uuid.UUID    { return i.userID }
func (i *identity) Roles() []string      { return i.roles }
func (i *identity) OfficeID() *uuid.UUID { return i.officeID }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

// NewIdentity builds an authenticated identity outside of a request, for
// background jobs and tests.
func NewIdentity(userID uuid.UUID, roles []string, officeID *uuid.UUID) Identity {
	return &identity{userID: userID, roles: roles, officeID: officeID, authenticated: true}
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	var roleList []string
	if roles, ok := c.Get(ContextRolesKey); ok {
		roleList, _ = roles.([]string)
	}

	var officeID *uuid.UUID
	if raw, ok := c.Get(ContextOfficeIDKey); ok {
		if id, ok := raw.(uuid.UUID); ok {
			officeID = &id
		}
	}

	return &identity{
		userID:        uid,
		roles:         roleList,
		officeID:      officeID,
		authenticated: true,
	}
}

// MustGetIdentity aborts with 401 and returns nil when the caller is anonymous.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	return id
}
