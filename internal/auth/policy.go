package auth

import (
	"github.com/frahmantamala/vuln-management/internal/system"
)

// Route names used to look up access rules. A route without a policy
// entry requires authentication only.
const (
	RouteSystemsCreate        = "systems_create"
	RouteAddUser              = "systems_add_user"
	RouteReportVuln           = "systems_report_vuln"
	RouteReportVulnsBulk      = "systems_report_vulns_bulk"
	RouteUpdateVulnState      = "systems_update_vuln_state"
	RouteUpdateVulnsStateBulk = "systems_update_vulns_state_bulk"
	RouteVulnSummary          = "systems_get_vuln_summary"
)

// Policy maps a route name to the membership roles allowed to call it.
type Policy map[string][]system.Role

// DefaultPolicy is the access model for the system routes. Creating a
// system is open to any authenticated caller, so it carries no entry.
func DefaultPolicy() Policy {
	return Policy{
		RouteAddUser:              {system.RoleOwner},
		RouteReportVuln:           {system.RoleOwner, system.RoleReporter},
		RouteReportVulnsBulk:      {system.RoleOwner, system.RoleReporter},
		RouteUpdateVulnState:      {system.RoleOwner, system.RoleReporter},
		RouteUpdateVulnsStateBulk: {system.RoleOwner, system.RoleReporter},
		RouteVulnSummary:          {system.RoleOwner, system.RoleReporter, system.RoleViewer},
	}
}
