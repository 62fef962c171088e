package auth

import "slices"

const (
	RoleOwner      = "owner"
	RoleDispatcher = "dispatcher"
	RoleDriver     = "driver"
)

const (
	PermFleetRead         = "fleet.read"
	PermFleetWrite        = "fleet.write"
	PermStatementsRead    = "statements.read"
	PermStatementsWrite   = "statements.write"
	PermStatementsApprove = "statements.approve"
	PermStatementsExport  = "statements.export"
	PermAuditRead         = "audit.read"
	PermNotificationsRead = "notifications.read"
	PermReportsRead       = "reports.read"
	PermJobsRun           = "jobs.run"
)

var Roles = []string{RoleOwner, RoleDispatcher, RoleDriver}

// RolePermissions is the static grant table. Drivers only ever see their own
// statements; handlers narrow the scope using the driver id in the token.
var RolePermissions = map[string][]string{
	RoleOwner: {
		PermFleetRead,
		PermFleetWrite,
		PermStatementsRead,
		PermStatementsWrite,
		PermStatementsApprove,
		PermStatementsExport,
		PermAuditRead,
		PermNotificationsRead,
		PermReportsRead,
		PermJobsRun,
	},
	RoleDispatcher: {
		PermFleetRead,
		PermFleetWrite,
		PermStatementsRead,
		PermStatementsWrite,
		PermStatementsExport,
		PermNotificationsRead,
		PermReportsRead,
	},
	RoleDriver: {
		PermStatementsRead,
		PermNotificationsRead,
	},
}

func HasPermission(role, perm string) bool {
	return slices.Contains(RolePermissions[role], perm)
}
