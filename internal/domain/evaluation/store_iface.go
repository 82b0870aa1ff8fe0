package evaluation

import "context"

type StoreAPI interface {
	Insert(ctx context.Context, tenantID string, eval Evaluation) (string, error)
	Get(ctx context.Context, tenantID, evaluationID string) (Evaluation, error)
	FindByCycleEmployee(ctx context.Context, tenantID, cycleID, employeeID string) (Evaluation, error)
	ListByCycle(ctx context.Context, tenantID, cycleID string) ([]Evaluation, error)
	ListByEmployee(ctx context.Context, tenantID, employeeID string) ([]Evaluation, error)
	// Update persists the evaluation with an optimistic version check. A
	// stale version returns ErrStaleVersion.
	Update(ctx context.Context, tenantID string, eval Evaluation) error
}
