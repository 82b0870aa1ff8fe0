package evaluation

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Insert(ctx context.Context, tenantID string, eval Evaluation) (string, error) {
	docs, err := marshalDocs(eval)
	if err != nil {
		return "", err
	}

	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO evaluations
      (tenant_id, cycle_id, assignment_id, template_id, employee_id, reviewer_id,
       self_assessment_json, manager_evaluation_json, hr_review_json, breakdown_json,
       final_rating, category, status, published_at, acknowledged_at, employee_comments, version)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
    RETURNING id
  `, tenantID, eval.CycleID, eval.AssignmentID, eval.TemplateID, eval.EmployeeID, eval.ReviewerID,
		docs.selfAssessment, docs.managerEvaluation, docs.hrReview, docs.breakdown,
		eval.FinalRating, nullIfEmpty(string(eval.Category)), eval.Status,
		eval.PublishedAt, eval.AcknowledgedAt, eval.EmployeeComments, eval.Version).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, tenantID, evaluationID string) (Evaluation, error) {
	row := s.DB.QueryRow(ctx, selectEvaluation+" WHERE tenant_id = $1 AND id = $2", tenantID, evaluationID)
	eval, err := scanEvaluation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	return eval, err
}

func (s *Store) FindByCycleEmployee(ctx context.Context, tenantID, cycleID, employeeID string) (Evaluation, error) {
	row := s.DB.QueryRow(ctx,
		selectEvaluation+" WHERE tenant_id = $1 AND cycle_id = $2 AND employee_id = $3",
		tenantID, cycleID, employeeID)
	eval, err := scanEvaluation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	return eval, err
}

func (s *Store) ListByCycle(ctx context.Context, tenantID, cycleID string) ([]Evaluation, error) {
	return s.list(ctx, selectEvaluation+
		" WHERE tenant_id = $1 AND cycle_id = $2 ORDER BY created_at", tenantID, cycleID)
}

func (s *Store) ListByEmployee(ctx context.Context, tenantID, employeeID string) ([]Evaluation, error) {
	return s.list(ctx, selectEvaluation+
		" WHERE tenant_id = $1 AND employee_id = $2 ORDER BY created_at DESC", tenantID, employeeID)
}

func (s *Store) Update(ctx context.Context, tenantID string, eval Evaluation) error {
	docs, err := marshalDocs(eval)
	if err != nil {
		return err
	}

	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET self_assessment_json = $1, manager_evaluation_json = $2, hr_review_json = $3,
        breakdown_json = $4, final_rating = $5, category = $6, status = $7,
        published_at = $8, acknowledged_at = $9, employee_comments = $10,
        version = version + 1, updated_at = now()
    WHERE tenant_id = $11 AND id = $12 AND version = $13
  `, docs.selfAssessment, docs.managerEvaluation, docs.hrReview, docs.breakdown,
		eval.FinalRating, nullIfEmpty(string(eval.Category)), eval.Status,
		eval.PublishedAt, eval.AcknowledgedAt, eval.EmployeeComments,
		tenantID, eval.ID, eval.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.DB.QueryRow(ctx,
			"SELECT true FROM evaluations WHERE tenant_id = $1 AND id = $2",
			tenantID, eval.ID).Scan(&exists); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return ErrStaleVersion
	}
	return nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Evaluation, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evaluations []Evaluation
	for rows.Next() {
		eval, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evaluations = append(evaluations, eval)
	}
	return evaluations, rows.Err()
}

const selectEvaluation = `
    SELECT id, cycle_id, assignment_id, template_id, employee_id, reviewer_id,
           self_assessment_json, manager_evaluation_json, hr_review_json, breakdown_json,
           final_rating, COALESCE(category, ''), status, published_at, acknowledged_at,
           COALESCE(employee_comments, ''), version, created_at, updated_at
    FROM evaluations`

type evalDocs struct {
	selfAssessment    []byte
	managerEvaluation []byte
	hrReview          []byte
	breakdown         []byte
}

func marshalDocs(eval Evaluation) (evalDocs, error) {
	var docs evalDocs
	var err error
	if eval.SelfAssessment != nil {
		if docs.selfAssessment, err = json.Marshal(eval.SelfAssessment); err != nil {
			return evalDocs{}, err
		}
	}
	if eval.ManagerEvaluation != nil {
		if docs.managerEvaluation, err = json.Marshal(eval.ManagerEvaluation); err != nil {
			return evalDocs{}, err
		}
	}
	if eval.HRReview != nil {
		if docs.hrReview, err = json.Marshal(eval.HRReview); err != nil {
			return evalDocs{}, err
		}
	}
	if eval.Breakdown != nil {
		if docs.breakdown, err = json.Marshal(eval.Breakdown); err != nil {
			return evalDocs{}, err
		}
	}
	return docs, nil
}

func scanEvaluation(row pgx.Row) (Evaluation, error) {
	var eval Evaluation
	var selfJSON, managerJSON, hrJSON, breakdownJSON []byte
	var category string
	if err := row.Scan(
		&eval.ID, &eval.CycleID, &eval.AssignmentID, &eval.TemplateID, &eval.EmployeeID, &eval.ReviewerID,
		&selfJSON, &managerJSON, &hrJSON, &breakdownJSON,
		&eval.FinalRating, &category, &eval.Status, &eval.PublishedAt, &eval.AcknowledgedAt,
		&eval.EmployeeComments, &eval.Version, &eval.CreatedAt, &eval.UpdatedAt,
	); err != nil {
		return Evaluation{}, err
	}
	eval.Category = Category(category)

	if len(selfJSON) > 0 {
		eval.SelfAssessment = &SelfAssessment{}
		if err := json.Unmarshal(selfJSON, eval.SelfAssessment); err != nil {
			return Evaluation{}, err
		}
	}
	if len(managerJSON) > 0 {
		eval.ManagerEvaluation = &ManagerEvaluation{}
		if err := json.Unmarshal(managerJSON, eval.ManagerEvaluation); err != nil {
			return Evaluation{}, err
		}
	}
	if len(hrJSON) > 0 {
		eval.HRReview = &HRReview{}
		if err := json.Unmarshal(hrJSON, eval.HRReview); err != nil {
			return Evaluation{}, err
		}
	}
	if len(breakdownJSON) > 0 {
		eval.Breakdown = &ScoreBreakdown{}
		if err := json.Unmarshal(breakdownJSON, eval.Breakdown); err != nil {
			return Evaluation{}, err
		}
	}
	return eval, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
