package directory

import (
	"context"
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

const employeeColumns = `
    id,
    COALESCE(user_id::text, ''),
    first_name, last_name, email,
    COALESCE(department_id::text, ''),
    COALESCE(position_id::text, ''),
    status, start_date, created_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(
		&emp.ID, &emp.UserID, &emp.FirstName, &emp.LastName, &emp.Email,
		&emp.DepartmentID, &emp.PositionID, &emp.Status, &emp.StartDate, &emp.CreatedAt,
	)
	return emp, err
}

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID))
}

func (s *Store) EmployeeByUserID(ctx context.Context, tenantID, userID string) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID))
}

func (s *Store) EmployeeUserID(ctx context.Context, tenantID, employeeID string) (string, error) {
	var userID string
	if err := s.DB.QueryRow(ctx, "SELECT COALESCE(user_id::text,'') FROM employees WHERE tenant_id = $1 AND id = $2", tenantID, employeeID).Scan(&userID); err != nil {
		return "", err
	}
	return userID, nil
}

// EligibleEmployees lists active and probationary employees matching the
// scope filter, exclusions already subtracted.
func (s *Store) EligibleEmployees(ctx context.Context, tenantID string, filter ScopeFilter) ([]Employee, error) {
	query := `
    SELECT ` + employeeColumns + `
    FROM employees
    WHERE tenant_id = $1 AND status = ANY($2)
  `
	args := []any{tenantID, []string{EmployeeStatusActive, EmployeeStatusProbationary}}

	switch {
	case len(filter.EmployeeIDs) > 0:
		query += " AND id = ANY($3)"
		args = append(args, filter.EmployeeIDs)
	case len(filter.DepartmentIDs) > 0:
		query += " AND department_id = ANY($3)"
		args = append(args, filter.DepartmentIDs)
	case len(filter.PositionIDs) > 0:
		query += " AND position_id = ANY($3)"
		args = append(args, filter.PositionIDs)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	excluded := make(map[string]bool, len(filter.ExcludedIDs))
	for _, id := range filter.ExcludedIDs {
		excluded[id] = true
	}

	var employees []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		if excluded[emp.ID] {
			continue
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// SupervisorPositionID resolves the position an employee reports to through
// the employee's own position. Empty when the employee has no position or
// the position reports to nobody.
func (s *Store) SupervisorPositionID(ctx context.Context, tenantID, employeeID string) (string, error) {
	var positionID string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(p.reports_to_position_id::text, '')
    FROM employees e
    JOIN positions p ON e.position_id = p.id
    WHERE e.tenant_id = $1 AND e.id = $2
  `, tenantID, employeeID).Scan(&positionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return positionID, nil
}

// ActivePositionHolder returns the id of the active employee currently
// holding the position, or empty when the seat is vacant.
func (s *Store) ActivePositionHolder(ctx context.Context, tenantID, positionID string) (string, error) {
	var employeeID string
	err := s.DB.QueryRow(ctx, `
    SELECT id
    FROM employees
    WHERE tenant_id = $1 AND position_id = $2 AND status = $3
    ORDER BY created_at
    LIMIT 1
  `, tenantID, positionID, EmployeeStatusActive).Scan(&employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return employeeID, nil
}

func (s *Store) DepartmentHeadPositionID(ctx context.Context, tenantID, departmentID string) (string, error) {
	var positionID string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(head_position_id::text, '')
    FROM departments
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, departmentID).Scan(&positionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return positionID, nil
}
