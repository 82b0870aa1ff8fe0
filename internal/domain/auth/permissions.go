package auth

const (
	RoleEmployee = "Employee"
	RoleManager  = "Manager"
	RoleHR       = "HR"
)

const (
	PermTemplatesRead    = "appraisal.templates.read"
	PermTemplatesWrite   = "appraisal.templates.write"
	PermCyclesRead       = "appraisal.cycles.read"
	PermCyclesWrite      = "appraisal.cycles.write"
	PermCyclesManage     = "appraisal.cycles.manage"
	PermEvaluationsRead  = "appraisal.evaluations.read"
	PermEvaluationsWrite = "appraisal.evaluations.write"
	PermHRReview         = "appraisal.evaluations.hr_review"
	PermDisputesRead     = "appraisal.disputes.read"
	PermDisputesWrite    = "appraisal.disputes.write"
	PermDisputesResolve  = "appraisal.disputes.resolve"
	PermMetricsRead      = "appraisal.metrics.read"
	PermAuditRead        = "appraisal.audit.read"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermTemplatesRead,
		PermCyclesRead,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermDisputesRead,
		PermDisputesWrite,
	},
	RoleManager: {
		PermTemplatesRead,
		PermCyclesRead,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermDisputesRead,
	},
	RoleHR: {
		PermTemplatesRead,
		PermTemplatesWrite,
		PermCyclesRead,
		PermCyclesWrite,
		PermCyclesManage,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermHRReview,
		PermDisputesRead,
		PermDisputesWrite,
		PermDisputesResolve,
		PermMetricsRead,
		PermAuditRead,
	},
}

// HasPermission answers against the static role map; roles are closed here,
// not tenant-configurable.
func HasPermission(roleName, permission string) bool {
	for _, candidate := range RolePermissions[roleName] {
		if candidate == permission {
			return true
		}
	}
	return false
}
