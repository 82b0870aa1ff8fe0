package template

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

func (s *Store) Insert(ctx context.Context, tenantID string, tmpl Template) (string, error) {
	sectionsJSON, err := json.Marshal(tmpl.Sections)
	if err != nil {
		return "", err
	}
	scaleJSON, err := json.Marshal(tmpl.RatingScale)
	if err != nil {
		return "", err
	}

	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO appraisal_templates
      (tenant_id, code, name, kind, rating_scale_json, sections_json, calculation_method,
       requires_self_assessment, dispute_window_days, applicable_department_ids,
       is_active, version, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    RETURNING id
  `, tenantID, tmpl.Code, tmpl.Name, tmpl.Kind, scaleJSON, sectionsJSON, tmpl.CalculationMethod,
		tmpl.RequiresSelfAssessment, tmpl.DisputeWindowDays, tmpl.ApplicableDepartmentIDs,
		tmpl.IsActive, tmpl.Version, nullIfEmpty(tmpl.CreatedBy)).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, tenantID, templateID string) (Template, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, code, name, kind, rating_scale_json, sections_json, calculation_method,
           requires_self_assessment, dispute_window_days,
           COALESCE(applicable_department_ids, '{}'),
           is_active, version, COALESCE(created_by::text, ''), created_at, updated_at
    FROM appraisal_templates
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, templateID)

	tmpl, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	return tmpl, err
}

func (s *Store) List(ctx context.Context, tenantID string, activeOnly bool) ([]Template, error) {
	query := `
    SELECT id, code, name, kind, rating_scale_json, sections_json, calculation_method,
           requires_self_assessment, dispute_window_days,
           COALESCE(applicable_department_ids, '{}'),
           is_active, version, COALESCE(created_by::text, ''), created_at, updated_at
    FROM appraisal_templates
    WHERE tenant_id = $1
  `
	if activeOnly {
		query += " AND is_active = true"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}
	return templates, rows.Err()
}

func (s *Store) Update(ctx context.Context, tenantID string, tmpl Template) error {
	sectionsJSON, err := json.Marshal(tmpl.Sections)
	if err != nil {
		return err
	}
	scaleJSON, err := json.Marshal(tmpl.RatingScale)
	if err != nil {
		return err
	}

	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisal_templates
    SET name = $1, kind = $2, rating_scale_json = $3, sections_json = $4,
        calculation_method = $5, requires_self_assessment = $6,
        dispute_window_days = $7, applicable_department_ids = $8,
        is_active = $9, version = $10, updated_at = now()
    WHERE tenant_id = $11 AND id = $12
  `, tmpl.Name, tmpl.Kind, scaleJSON, sectionsJSON, tmpl.CalculationMethod,
		tmpl.RequiresSelfAssessment, tmpl.DisputeWindowDays, tmpl.ApplicableDepartmentIDs,
		tmpl.IsActive, tmpl.Version, tenantID, tmpl.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, tenantID, templateID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM appraisal_templates WHERE tenant_id = $1 AND id = $2", tenantID, templateID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTemplate(row pgx.Row) (Template, error) {
	var tmpl Template
	var scaleJSON, sectionsJSON []byte
	if err := row.Scan(
		&tmpl.ID, &tmpl.Code, &tmpl.Name, &tmpl.Kind, &scaleJSON, &sectionsJSON,
		&tmpl.CalculationMethod, &tmpl.RequiresSelfAssessment, &tmpl.DisputeWindowDays,
		&tmpl.ApplicableDepartmentIDs, &tmpl.IsActive, &tmpl.Version, &tmpl.CreatedBy,
		&tmpl.CreatedAt, &tmpl.UpdatedAt,
	); err != nil {
		return Template{}, err
	}
	if err := json.Unmarshal(scaleJSON, &tmpl.RatingScale); err != nil {
		return Template{}, err
	}
	if err := json.Unmarshal(sectionsJSON, &tmpl.Sections); err != nil {
		return Template{}, err
	}
	return tmpl, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
