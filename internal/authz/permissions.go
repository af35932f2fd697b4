// Package authz resolves roles into permission sets and gates pipeline
// operations on them.
package authz

// Permission is a single capability token.
type Permission string

const (
	LeadsViewAll        Permission = "leads.view_all"
	LeadsViewOwnOffice  Permission = "leads.view_own_office"
	LeadsClassify       Permission = "leads.classify"
	LeadsAssign         Permission = "leads.assign"
	CallsMake           Permission = "calls.make"
	CallsViewAll        Permission = "calls.view_all"
	AppointmentsCreate  Permission = "appointments.create"
	AppointmentsConfirm Permission = "appointments.confirm"
	AppointmentsViewAll Permission = "appointments.view_all"
	ReportsSubmit       Permission = "reports.submit"
	ReportsViewAll      Permission = "reports.view_all"
	ReportsViewInternal Permission = "reports.view_internal"
	FranchiseManage     Permission = "franchise.manage"
	FranchiseViewAll    Permission = "franchise.view_all"
	UsersManage         Permission = "users.manage"
	UsersManageOwnTeam  Permission = "users.manage_own_team"
	KPIViewAll          Permission = "kpi.view_all"
	KPIViewOwnOffice    Permission = "kpi.view_own_office"
	RevenueViewAll      Permission = "revenue.view_all"
	RevenueViewOwn      Permission = "revenue.view_own"
	RevenueApprove      Permission = "revenue.approve"
	SettingsManage      Permission = "settings.manage"
	PricingGive         Permission = "pricing.give"
)

// All is the closed permission universe in declaration order.
var All = []Permission{
	LeadsViewAll, LeadsViewOwnOffice, LeadsClassify, LeadsAssign,
	CallsMake, CallsViewAll,
	AppointmentsCreate, AppointmentsConfirm, AppointmentsViewAll,
	ReportsSubmit, ReportsViewAll, ReportsViewInternal,
	FranchiseManage, FranchiseViewAll,
	UsersManage, UsersManageOwnTeam,
	KPIViewAll, KPIViewOwnOffice,
	RevenueViewAll, RevenueViewOwn, RevenueApprove,
	SettingsManage,
	PricingGive,
}

// Role names.
const (
	RoleCentralAdmin   = "merkez_admin"
	RoleCentralCaller  = "merkez_cagri"
	RoleCentralSales   = "merkez_satis"
	RoleOfficeManager  = "franchise_yonetici"
	RoleOfficeFieldRep = "franchise_saha"
)

// IsKnown reports whether p belongs to the permission universe.
func IsKnown(p Permission) bool {
	for _, known := range All {
		if known == p {
			return true
		}
	}
	return false
}
