package dispute

import "context"

type StoreAPI interface {
	// Insert persists a new dispute. The store enforces the one-active-
	// dispute-per-evaluation invariant and returns ErrDuplicateActive when
	// it is violated.
	Insert(ctx context.Context, tenantID string, d Dispute) (string, error)
	Get(ctx context.Context, tenantID, disputeID string) (Dispute, error)
	FindActiveByEvaluation(ctx context.Context, tenantID, evaluationID string) (Dispute, error)
	List(ctx context.Context, tenantID string, status Status) ([]Dispute, error)
	ListByEmployee(ctx context.Context, tenantID, employeeID string) ([]Dispute, error)
	Update(ctx context.Context, tenantID string, d Dispute) error
}
