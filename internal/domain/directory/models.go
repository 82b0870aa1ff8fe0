package directory

import "time"

const (
	EmployeeStatusActive       = "active"
	EmployeeStatusProbationary = "probationary"
	EmployeeStatusInactive     = "inactive"
)

type Employee struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	DepartmentID string     `json:"departmentId"`
	PositionID   string     `json:"positionId"`
	Status       string     `json:"status"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Department struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	HeadPositionID string `json:"headPositionId"`
}

type Position struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	DepartmentID        string `json:"departmentId"`
	ReportsToPositionID string `json:"reportsToPositionId"`
}

// ScopeFilter narrows the employee population a cycle targets. Filters are
// applied in precedence order: employee ids, then department ids, then
// position ids. Exclusions are subtracted last regardless of which filter
// matched.
type ScopeFilter struct {
	EmployeeIDs   []string
	DepartmentIDs []string
	PositionIDs   []string
	ExcludedIDs   []string
}
