package dispute

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Insert relies on the partial unique index over open disputes
// (evaluation_id WHERE status IN SUBMITTED/UNDER_REVIEW) to enforce the
// one-active-dispute invariant under concurrency.
func (s *Store) Insert(ctx context.Context, tenantID string, d Dispute) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO disputes
      (tenant_id, evaluation_id, cycle_id, employee_id, reason,
       disputed_section_ids, disputed_criterion_ids, proposed_rating,
       supporting_documents, status, submitted_at, deadline)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    RETURNING id
  `, tenantID, d.EvaluationID, d.CycleID, d.EmployeeID, d.Reason,
		d.DisputedSectionIDs, d.DisputedCriterionIDs, d.ProposedRating,
		d.SupportingDocuments, d.Status, d.SubmittedAt, d.Deadline).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrDuplicateActive
		}
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, tenantID, disputeID string) (Dispute, error) {
	row := s.DB.QueryRow(ctx, selectDispute+" WHERE tenant_id = $1 AND id = $2", tenantID, disputeID)
	d, err := scanDispute(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Dispute{}, ErrNotFound
	}
	return d, err
}

func (s *Store) FindActiveByEvaluation(ctx context.Context, tenantID, evaluationID string) (Dispute, error) {
	row := s.DB.QueryRow(ctx, selectDispute+`
    WHERE tenant_id = $1 AND evaluation_id = $2 AND status IN ($3, $4)
  `, tenantID, evaluationID, StatusSubmitted, StatusUnderReview)
	d, err := scanDispute(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Dispute{}, ErrNotFound
	}
	return d, err
}

func (s *Store) List(ctx context.Context, tenantID string, status Status) ([]Dispute, error) {
	query := selectDispute + " WHERE tenant_id = $1"
	args := []any{tenantID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY submitted_at DESC"
	return s.list(ctx, query, args...)
}

func (s *Store) ListByEmployee(ctx context.Context, tenantID, employeeID string) ([]Dispute, error) {
	return s.list(ctx, selectDispute+
		" WHERE tenant_id = $1 AND employee_id = $2 ORDER BY submitted_at DESC", tenantID, employeeID)
}

func (s *Store) Update(ctx context.Context, tenantID string, d Dispute) error {
	var resolutionJSON []byte
	if d.Resolution != nil {
		var err error
		if resolutionJSON, err = json.Marshal(d.Resolution); err != nil {
			return err
		}
	}

	tag, err := s.DB.Exec(ctx, `
    UPDATE disputes
    SET status = $1, resolution_json = $2, reviewer_id = $3, reviewed_at = $4,
        escalated = $5, escalated_at = $6, escalation_reason = $7, updated_at = now()
    WHERE tenant_id = $8 AND id = $9
  `, d.Status, resolutionJSON, nullIfEmpty(d.ReviewerID), d.ReviewedAt,
		d.Escalated, d.EscalatedAt, d.EscalationReason, tenantID, d.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Dispute, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var disputes []Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

const selectDispute = `
    SELECT id, evaluation_id, cycle_id, employee_id, reason,
           COALESCE(disputed_section_ids, '{}'), COALESCE(disputed_criterion_ids, '{}'),
           proposed_rating, COALESCE(supporting_documents, '{}'),
           status, resolution_json, COALESCE(reviewer_id::text, ''), reviewed_at,
           submitted_at, deadline, escalated, escalated_at, COALESCE(escalation_reason, ''),
           created_at, updated_at
    FROM disputes`

func scanDispute(row pgx.Row) (Dispute, error) {
	var d Dispute
	var resolutionJSON []byte
	if err := row.Scan(
		&d.ID, &d.EvaluationID, &d.CycleID, &d.EmployeeID, &d.Reason,
		&d.DisputedSectionIDs, &d.DisputedCriterionIDs,
		&d.ProposedRating, &d.SupportingDocuments,
		&d.Status, &resolutionJSON, &d.ReviewerID, &d.ReviewedAt,
		&d.SubmittedAt, &d.Deadline, &d.Escalated, &d.EscalatedAt, &d.EscalationReason,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return Dispute{}, err
	}
	if len(resolutionJSON) > 0 {
		d.Resolution = &Resolution{}
		if err := json.Unmarshal(resolutionJSON, d.Resolution); err != nil {
			return Dispute{}, err
		}
	}
	return d, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
