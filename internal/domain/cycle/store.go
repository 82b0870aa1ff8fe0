package cycle

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

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

func (s *Store) Insert(ctx context.Context, tenantID string, cyc Cycle) (string, error) {
	timelineJSON, err := json.Marshal(cyc.Timeline)
	if err != nil {
		return "", err
	}
	scopeJSON, err := json.Marshal(cyc.Scope)
	if err != nil {
		return "", err
	}

	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO appraisal_cycles
      (tenant_id, code, name, kind, template_id, timeline_json, scope_json,
       status, results_published, version, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    RETURNING id
  `, tenantID, cyc.Code, cyc.Name, cyc.Kind, cyc.TemplateID, timelineJSON, scopeJSON,
		cyc.Status, cyc.ResultsPublished, cyc.Version, nullIfEmpty(cyc.CreatedBy)).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	row := s.DB.QueryRow(ctx, selectCycle+" WHERE tenant_id = $1 AND id = $2", tenantID, cycleID)
	cyc, err := scanCycle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cycle{}, ErrNotFound
	}
	return cyc, err
}

func (s *Store) List(ctx context.Context, tenantID string, status Status, limit, offset int) ([]Cycle, error) {
	query := selectCycle + " WHERE tenant_id = $1"
	args := []any{tenantID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		cyc, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, cyc)
	}
	return cycles, rows.Err()
}

// Update persists the cycle guarded by its version. The version the caller
// read must still be current, otherwise ErrStaleVersion.
func (s *Store) Update(ctx context.Context, tenantID string, cyc Cycle) error {
	tag, err := s.updateTx(ctx, s.DB, tenantID, cyc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.staleOrMissing(ctx, tenantID, cyc.ID)
	}
	return nil
}

func (s *Store) Activate(ctx context.Context, tenantID string, cyc Cycle, assignments []Assignment) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := s.updateTx(ctx, tx, tenantID, cyc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.staleOrMissing(ctx, tenantID, cyc.ID)
	}

	for _, asg := range assignments {
		if _, err := tx.Exec(ctx, `
      INSERT INTO appraisal_assignments
        (tenant_id, cycle_id, employee_id, reviewer_id, self_assessment_required, status, assigned_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
      ON CONFLICT (cycle_id, employee_id) DO NOTHING
    `, tenantID, asg.CycleID, asg.EmployeeID, asg.ReviewerID,
			asg.SelfAssessmentRequired, asg.Status, asg.AssignedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Publish releases results atomically: pending assignments are
// force-completed and every open evaluation in the cycle flips to PUBLISHED
// in the same transaction.
func (s *Store) Publish(ctx context.Context, tenantID string, cyc Cycle) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := s.updateTx(ctx, tx, tenantID, cyc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.staleOrMissing(ctx, tenantID, cyc.ID)
	}

	if _, err := tx.Exec(ctx, `
    UPDATE appraisal_assignments
    SET status = $1
    WHERE tenant_id = $2 AND cycle_id = $3 AND status IN ($4, $5)
  `, AssignmentCompleted, tenantID, cyc.ID,
		AssignmentManagerReviewPending, AssignmentHRReviewPending); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
    UPDATE evaluations
    SET status = 'PUBLISHED', published_at = now(), version = version + 1, updated_at = now()
    WHERE tenant_id = $1 AND cycle_id = $2
      AND status IN ('DRAFT', 'SELF_ASSESSMENT_SUBMITTED', 'MANAGER_REVIEW_SUBMITTED', 'HR_REVIEWED')
  `, tenantID, cyc.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetAssignment(ctx context.Context, tenantID, assignmentID string) (Assignment, error) {
	row := s.DB.QueryRow(ctx, selectAssignment+" WHERE tenant_id = $1 AND id = $2", tenantID, assignmentID)
	asg, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, ErrAssignmentNotFound
	}
	return asg, err
}

func (s *Store) FindAssignment(ctx context.Context, tenantID, cycleID, employeeID string) (Assignment, error) {
	row := s.DB.QueryRow(ctx,
		selectAssignment+" WHERE tenant_id = $1 AND cycle_id = $2 AND employee_id = $3",
		tenantID, cycleID, employeeID)
	asg, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, ErrAssignmentNotFound
	}
	return asg, err
}

func (s *Store) ListAssignments(ctx context.Context, tenantID, cycleID string) ([]Assignment, error) {
	return s.listAssignments(ctx, selectAssignment+
		" WHERE tenant_id = $1 AND cycle_id = $2 ORDER BY assigned_at", tenantID, cycleID)
}

func (s *Store) ListAssignmentsByReviewer(ctx context.Context, tenantID, reviewerID string) ([]Assignment, error) {
	return s.listAssignments(ctx, selectAssignment+
		" WHERE tenant_id = $1 AND reviewer_id = $2 ORDER BY assigned_at", tenantID, reviewerID)
}

func (s *Store) ListAssignmentsByEmployee(ctx context.Context, tenantID, employeeID string) ([]Assignment, error) {
	return s.listAssignments(ctx, selectAssignment+
		" WHERE tenant_id = $1 AND employee_id = $2 ORDER BY assigned_at", tenantID, employeeID)
}

// UpdateAssignmentStatus is compare-and-set on the status column so two
// concurrent workflow steps cannot both win.
func (s *Store) UpdateAssignmentStatus(ctx context.Context, tenantID, assignmentID string, from, to AssignmentStatus) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisal_assignments
    SET status = $1
    WHERE tenant_id = $2 AND id = $3 AND status = $4
  `, to, tenantID, assignmentID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.DB.QueryRow(ctx,
			"SELECT true FROM appraisal_assignments WHERE tenant_id = $1 AND id = $2",
			tenantID, assignmentID).Scan(&exists); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAssignmentNotFound
			}
			return err
		}
		return ErrInvalidState
	}
	return nil
}

func (s *Store) CountAssignmentsByStatus(ctx context.Context, tenantID, cycleID string) (map[AssignmentStatus]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(*)
    FROM appraisal_assignments
    WHERE tenant_id = $1 AND cycle_id = $2
    GROUP BY status
  `, tenantID, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[AssignmentStatus]int)
	for rows.Next() {
		var status AssignmentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) updateTx(ctx context.Context, db execer, tenantID string, cyc Cycle) (pgconn.CommandTag, error) {
	timelineJSON, err := json.Marshal(cyc.Timeline)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	scopeJSON, err := json.Marshal(cyc.Scope)
	if err != nil {
		return pgconn.CommandTag{}, err
	}

	return db.Exec(ctx, `
    UPDATE appraisal_cycles
    SET name = $1, kind = $2, template_id = $3, timeline_json = $4, scope_json = $5,
        status = $6, results_published = $7, published_at = $8,
        version = version + 1, updated_at = now()
    WHERE tenant_id = $9 AND id = $10 AND version = $11
  `, cyc.Name, cyc.Kind, cyc.TemplateID, timelineJSON, scopeJSON,
		cyc.Status, cyc.ResultsPublished, cyc.PublishedAt,
		tenantID, cyc.ID, cyc.Version)
}

func (s *Store) staleOrMissing(ctx context.Context, tenantID, cycleID string) error {
	var exists bool
	if err := s.DB.QueryRow(ctx,
		"SELECT true FROM appraisal_cycles WHERE tenant_id = $1 AND id = $2",
		tenantID, cycleID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrStaleVersion
}

func (s *Store) listAssignments(ctx context.Context, query string, args ...any) ([]Assignment, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		asg, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, asg)
	}
	return assignments, rows.Err()
}

const selectCycle = `
    SELECT id, code, name, kind, template_id, timeline_json, scope_json,
           status, results_published, published_at, version,
           COALESCE(created_by::text, ''), created_at, updated_at
    FROM appraisal_cycles`

const selectAssignment = `
    SELECT id, cycle_id, employee_id, reviewer_id, self_assessment_required, status, assigned_at
    FROM appraisal_assignments`

func scanCycle(row pgx.Row) (Cycle, error) {
	var cyc Cycle
	var timelineJSON, scopeJSON []byte
	if err := row.Scan(
		&cyc.ID, &cyc.Code, &cyc.Name, &cyc.Kind, &cyc.TemplateID, &timelineJSON, &scopeJSON,
		&cyc.Status, &cyc.ResultsPublished, &cyc.PublishedAt, &cyc.Version,
		&cyc.CreatedBy, &cyc.CreatedAt, &cyc.UpdatedAt,
	); err != nil {
		return Cycle{}, err
	}
	if err := json.Unmarshal(timelineJSON, &cyc.Timeline); err != nil {
		return Cycle{}, err
	}
	if err := json.Unmarshal(scopeJSON, &cyc.Scope); err != nil {
		return Cycle{}, err
	}
	return cyc, nil
}

func scanAssignment(row pgx.Row) (Assignment, error) {
	var asg Assignment
	if err := row.Scan(
		&asg.ID, &asg.CycleID, &asg.EmployeeID, &asg.ReviewerID,
		&asg.SelfAssessmentRequired, &asg.Status, &asg.AssignedAt,
	); err != nil {
		return Assignment{}, err
	}
	return asg, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
