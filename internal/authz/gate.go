package authz

import (
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Operation names a gated pipeline entry point.
type Operation string

const (
	OpCreateLead          Operation = "leads.create"
	OpChangeLeadStatus    Operation = "leads.change_status"
	OpUpdateLead          Operation = "leads.update"
	OpAssignLead          Operation = "leads.assign"
	OpLogCall             Operation = "calls.log"
	OpCreateAppointment   Operation = "appointments.create"
	OpConfirmAppointment  Operation = "appointments.confirm"
	OpCompleteAppointment Operation = "appointments.complete"
	OpNoShowAppointment   Operation = "appointments.no_show"
	OpCancelAppointment   Operation = "appointments.cancel"
	OpSubmitReport        Operation = "reports.submit"
	OpManageOffice        Operation = "franchise.manage"
	OpManageUsers         Operation = "users.manage"
	OpRunSync             Operation = "sync.run"
)

// Requirement describes what an operation demands of the caller. AuthOnly
// operations accept any authenticated user.
type Requirement struct {
	Permission Permission
	AuthOnly   bool
}

// Requirements is the explicit per-operation table. Completing an appointment
// and marking a no-show are deliberately open to every authenticated user,
// while creation and confirmation need their own tokens.
var Requirements = map[Operation]Requirement{
	OpCreateLead:          {Permission: LeadsClassify},
	OpChangeLeadStatus:    {Permission: LeadsClassify},
	OpUpdateLead:          {Permission: LeadsClassify},
	OpAssignLead:          {Permission: LeadsAssign},
	OpLogCall:             {Permission: CallsMake},
	OpCreateAppointment:   {Permission: AppointmentsCreate},
	OpConfirmAppointment:  {Permission: AppointmentsConfirm},
	OpCompleteAppointment: {AuthOnly: true},
	OpNoShowAppointment:   {AuthOnly: true},
	OpCancelAppointment:   {Permission: AppointmentsConfirm},
	OpSubmitReport:        {Permission: ReportsSubmit},
	OpManageOffice:        {Permission: FranchiseManage},
	OpManageUsers:         {Permission: UsersManage},
	OpRunSync:             {Permission: SettingsManage},
}

// Authorize checks the caller against the requirement of op.
func Authorize(id httpkit.Identity, op Operation) error {
	if id == nil || !id.IsAuthenticated() {
		return apperr.Unauthorized("authentication required")
	}
	req, ok := Requirements[op]
	if !ok {
		return apperr.Internal("no authorization rule for " + string(op))
	}
	if req.AuthOnly {
		return nil
	}
	return Ensure(id, req.Permission)
}

// Ensure returns a forbidden error unless the caller holds p.
func Ensure(id httpkit.Identity, p Permission) error {
	if id == nil || !id.IsAuthenticated() {
		return apperr.Unauthorized("authentication required")
	}
	if !Can(id.Roles(), p) {
		return apperr.Forbidden("missing permission").WithDetails(map[string]string{"required": string(p)})
	}
	return nil
}

// HasAny reports whether the caller holds at least one of perms.
func HasAny(id httpkit.Identity, perms ...Permission) bool {
	if id == nil {
		return false
	}
	set := defaultTable.Resolve(id.Roles())
	for _, p := range perms {
		if set.Has(p) {
			return true
		}
	}
	return false
}

// Require is gin middleware enforcing the requirement of op.
func Require(op Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if httpkit.HandleError(c, Authorize(httpkit.GetIdentity(c), op)) {
			return
		}
		c.Next()
	}
}
