package cycle

import (
	"context"
	"log/slog"
	"time"

	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/template"
)

// Directory is the org-hierarchy collaborator the resolver consults. The
// production implementation is directory.Store; tests use a fake.
type Directory interface {
	EligibleEmployees(ctx context.Context, tenantID string, filter directory.ScopeFilter) ([]directory.Employee, error)
	SupervisorPositionID(ctx context.Context, tenantID, employeeID string) (string, error)
	ActivePositionHolder(ctx context.Context, tenantID, positionID string) (string, error)
	DepartmentHeadPositionID(ctx context.Context, tenantID, departmentID string) (string, error)
}

type Resolver struct {
	Directory Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{Directory: dir}
}

// Resolve derives the (employee, reviewer) pairings for a cycle. Employees
// already present in existing are skipped, which makes re-running resolution
// on an activated cycle idempotent. Employees with no resolvable reviewer
// (top of the hierarchy) get no assignment — that is deliberate, not an
// error.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, cyc Cycle, tmpl template.Template, existing map[string]bool, now time.Time) ([]Assignment, error) {
	filter := scopeFilter(cyc.Scope, tmpl)

	employees, err := r.Directory.EligibleEmployees(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	var assignments []Assignment
	for _, emp := range employees {
		if existing[emp.ID] {
			continue
		}

		reviewerID, err := r.resolveReviewer(ctx, tenantID, emp)
		if err != nil {
			return nil, err
		}
		if reviewerID == "" || reviewerID == emp.ID {
			slog.Info("no reviewer resolvable, employee excluded from cycle",
				"cycleId", cyc.ID, "employeeId", emp.ID)
			continue
		}

		assignments = append(assignments, Assignment{
			CycleID:                cyc.ID,
			EmployeeID:             emp.ID,
			ReviewerID:             reviewerID,
			SelfAssessmentRequired: tmpl.RequiresSelfAssessment,
			Status:                 AssignmentNotStarted,
			AssignedAt:             now,
		})
	}
	return assignments, nil
}

// resolveReviewer walks the hierarchy: the active holder of the employee's
// supervisor position first, then the active holder of the department head
// position.
func (r *Resolver) resolveReviewer(ctx context.Context, tenantID string, emp directory.Employee) (string, error) {
	supervisorPos, err := r.Directory.SupervisorPositionID(ctx, tenantID, emp.ID)
	if err != nil {
		return "", err
	}
	if supervisorPos != "" {
		holder, err := r.Directory.ActivePositionHolder(ctx, tenantID, supervisorPos)
		if err != nil {
			return "", err
		}
		if holder != "" {
			return holder, nil
		}
	}

	if emp.DepartmentID == "" {
		return "", nil
	}
	headPos, err := r.Directory.DepartmentHeadPositionID(ctx, tenantID, emp.DepartmentID)
	if err != nil {
		return "", err
	}
	if headPos == "" {
		return "", nil
	}
	return r.Directory.ActivePositionHolder(ctx, tenantID, headPos)
}

func scopeFilter(scope Scope, tmpl template.Template) directory.ScopeFilter {
	filter := directory.ScopeFilter{ExcludedIDs: scope.ExcludedIDs}
	switch {
	case len(scope.EmployeeIDs) > 0:
		filter.EmployeeIDs = scope.EmployeeIDs
	case len(scope.DepartmentIDs) > 0:
		filter.DepartmentIDs = scope.DepartmentIDs
	case len(scope.PositionIDs) > 0:
		filter.PositionIDs = scope.PositionIDs
	default:
		// Fall back to the template's applicable departments.
		filter.DepartmentIDs = tmpl.ApplicableDepartmentIDs
	}
	return filter
}
