package authz

import (
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/httpkit"

	"github.com/google/uuid"
)

// OfficeScope resolves the office filter for a list read. Callers holding
// viewAll may filter by any office or none. Callers holding only viewOwn are
// pinned to their own office; asking for another office is forbidden.
func OfficeScope(id httpkit.Identity, viewAll, viewOwn Permission, requested *uuid.UUID) (*uuid.UUID, error) {
	if id == nil || !id.IsAuthenticated() {
		return nil, apperr.Unauthorized("authentication required")
	}
	set := defaultTable.Resolve(id.Roles())
	if set.Has(viewAll) {
		return requested, nil
	}
	own := id.OfficeID()
	if !set.Has(viewOwn) || own == nil {
		return nil, apperr.Forbidden("missing permission").WithDetails(map[string]string{"required": string(viewAll)})
	}
	if requested != nil && *requested != *own {
		return nil, apperr.Forbidden("office outside of your scope")
	}
	return own, nil
}

// EnsureOfficeVisible checks a single record owned by officeID against the
// same rules as OfficeScope. Unassigned records are visible only with viewAll.
func EnsureOfficeVisible(id httpkit.Identity, viewAll, viewOwn Permission, officeID *uuid.UUID) error {
	if id == nil || !id.IsAuthenticated() {
		return apperr.Unauthorized("authentication required")
	}
	set := defaultTable.Resolve(id.Roles())
	if set.Has(viewAll) {
		return nil
	}
	own := id.OfficeID()
	if set.Has(viewOwn) && own != nil && officeID != nil && *own == *officeID {
		return nil
	}
	return apperr.Forbidden("record outside of your scope")
}
