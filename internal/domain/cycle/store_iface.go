package cycle

import "context"

type StoreAPI interface {
	Insert(ctx context.Context, tenantID string, cyc Cycle) (string, error)
	Get(ctx context.Context, tenantID, cycleID string) (Cycle, error)
	List(ctx context.Context, tenantID string, status Status, limit, offset int) ([]Cycle, error)
	// Update persists the cycle with an optimistic version check. A stale
	// version returns ErrStaleVersion.
	Update(ctx context.Context, tenantID string, cyc Cycle) error
	// Activate persists the status flip and the resolved assignments in a
	// single transaction.
	Activate(ctx context.Context, tenantID string, cyc Cycle, assignments []Assignment) error
	// Publish flips the cycle to COMPLETED with results published, and in the
	// same transaction force-completes every still-pending assignment and
	// marks their submitted evaluations PUBLISHED.
	Publish(ctx context.Context, tenantID string, cyc Cycle) error

	GetAssignment(ctx context.Context, tenantID, assignmentID string) (Assignment, error)
	FindAssignment(ctx context.Context, tenantID, cycleID, employeeID string) (Assignment, error)
	ListAssignments(ctx context.Context, tenantID, cycleID string) ([]Assignment, error)
	ListAssignmentsByReviewer(ctx context.Context, tenantID, reviewerID string) ([]Assignment, error)
	ListAssignmentsByEmployee(ctx context.Context, tenantID, employeeID string) ([]Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, tenantID, assignmentID string, from, to AssignmentStatus) error
	CountAssignmentsByStatus(ctx context.Context, tenantID, cycleID string) (map[AssignmentStatus]int, error)
}
