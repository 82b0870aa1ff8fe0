package cycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/template"
)

// fakeDirectory mirrors how directory.Store applies scope precedence and
// exclusions, over an in-memory org chart.
type fakeDirectory struct {
	employees       []directory.Employee
	supervisorPos   map[string]string // employeeID -> supervisor position
	positionHolders map[string]string // positionID -> active employee
	deptHeadPos     map[string]string // departmentID -> head position
}

func (f *fakeDirectory) EligibleEmployees(_ context.Context, _ string, filter directory.ScopeFilter) ([]directory.Employee, error) {
	excluded := make(map[string]bool, len(filter.ExcludedIDs))
	for _, id := range filter.ExcludedIDs {
		excluded[id] = true
	}

	matches := func(emp directory.Employee) bool {
		switch {
		case len(filter.EmployeeIDs) > 0:
			return contains(filter.EmployeeIDs, emp.ID)
		case len(filter.DepartmentIDs) > 0:
			return contains(filter.DepartmentIDs, emp.DepartmentID)
		case len(filter.PositionIDs) > 0:
			return contains(filter.PositionIDs, emp.PositionID)
		default:
			return true
		}
	}

	var out []directory.Employee
	for _, emp := range f.employees {
		if emp.Status != directory.EmployeeStatusActive && emp.Status != directory.EmployeeStatusProbationary {
			continue
		}
		if excluded[emp.ID] || !matches(emp) {
			continue
		}
		out = append(out, emp)
	}
	return out, nil
}

func (f *fakeDirectory) SupervisorPositionID(_ context.Context, _, employeeID string) (string, error) {
	return f.supervisorPos[employeeID], nil
}

func (f *fakeDirectory) ActivePositionHolder(_ context.Context, _, positionID string) (string, error) {
	return f.positionHolders[positionID], nil
}

func (f *fakeDirectory) DepartmentHeadPositionID(_ context.Context, _, departmentID string) (string, error) {
	return f.deptHeadPos[departmentID], nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func orgChart() *fakeDirectory {
	return &fakeDirectory{
		employees: []directory.Employee{
			{ID: "emp-alice", DepartmentID: "dept-eng", PositionID: "pos-dev", Status: directory.EmployeeStatusActive},
			{ID: "emp-bob", DepartmentID: "dept-eng", PositionID: "pos-dev", Status: directory.EmployeeStatusActive},
			{ID: "emp-carol", DepartmentID: "dept-eng", PositionID: "pos-lead", Status: directory.EmployeeStatusActive},
			{ID: "emp-dave", DepartmentID: "dept-sales", PositionID: "pos-rep", Status: directory.EmployeeStatusActive},
			{ID: "emp-erin", DepartmentID: "dept-sales", PositionID: "pos-sales-head", Status: directory.EmployeeStatusActive},
			{ID: "emp-frank", DepartmentID: "", PositionID: "pos-ceo", Status: directory.EmployeeStatusActive},
			{ID: "emp-gone", DepartmentID: "dept-eng", PositionID: "pos-dev", Status: directory.EmployeeStatusInactive},
		},
		supervisorPos: map[string]string{
			"emp-alice": "pos-lead",
			"emp-bob":   "pos-lead",
			"emp-carol": "pos-ceo",
			"emp-dave":  "pos-sales-head",
			"emp-erin":  "pos-ceo",
		},
		positionHolders: map[string]string{
			"pos-lead":       "emp-carol",
			"pos-ceo":        "emp-frank",
			"pos-sales-head": "emp-erin",
		},
		deptHeadPos: map[string]string{
			"dept-eng":   "pos-lead",
			"dept-sales": "pos-sales-head",
		},
	}
}

func resolverFixture() (*Resolver, Cycle, template.Template) {
	resolver := NewResolver(orgChart())
	cyc := Cycle{ID: "cycle-1", Status: StatusDraft}
	tmpl := template.Template{ID: "tmpl-1", RequiresSelfAssessment: true}
	return resolver, cyc, tmpl
}

func TestResolveScopePrecedence(t *testing.T) {
	resolver, cyc, tmpl := resolverFixture()
	cyc.Scope = Scope{
		EmployeeIDs:   []string{"emp-alice"},
		DepartmentIDs: []string{"dept-sales"},
	}

	assignments, err := resolver.Resolve(context.Background(), "t1", cyc, tmpl, nil, time.Now())
	require.NoError(t, err)

	// Explicit employee list wins over the department filter.
	require.Len(t, assignments, 1)
	assert.Equal(t, "emp-alice", assignments[0].EmployeeID)
	assert.Equal(t, "emp-carol", assignments[0].ReviewerID)
}

func TestResolveFallsBackToTemplateDepartments(t *testing.T) {
	resolver, cyc, tmpl := resolverFixture()
	tmpl.ApplicableDepartmentIDs = []string{"dept-sales"}

	assignments, err := resolver.Resolve(context.Background(), "t1", cyc, tmpl, nil, time.Now())
	require.NoError(t, err)

	require.Len(t, assignments, 2)
	byEmployee := map[string]string{}
	for _, asg := range assignments {
		byEmployee[asg.EmployeeID] = asg.ReviewerID
	}
	assert.Equal(t, "emp-erin", byEmployee["emp-dave"])
	assert.Equal(t, "emp-frank", byEmployee["emp-erin"])
}

func TestResolveAppliesExclusions(t *testing.T) {
	resolver, cyc, tmpl := resolverFixture()
	cyc.Scope = Scope{
		DepartmentIDs: []string{"dept-eng"},
		ExcludedIDs:   []string{"emp-bob"},
	}

	assignments, err := resolver.Resolve(context.Background(), "t1", cyc, tmpl, nil, time.Now())
	require.NoError(t, err)

	for _, asg := range assignments {
		assert.NotEqual(t, "emp-bob", asg.EmployeeID)
	}
	require.Len(t, assignments, 2)
}

func TestResolveDepartmentHeadFallback(t *testing.T) {
	dir := orgChart()
	// Alice's supervisor position is vacant; the department head steps in.
	dir.positionHolders["pos-lead"] = ""

	resolver := NewResolver(dir)
	cyc := Cycle{ID: "cycle-1", Scope: Scope{EmployeeIDs: []string{"emp-alice"}}}

	assignments, err := resolver.Resolve(context.Background(), "t1", cyc, template.Template{}, nil, time.Now())
	require.NoError(t, err)
	require.Empty(t, assignments) // dept head position is the same vacant pos-lead

	dir.deptHeadPos["dept-eng"] = "pos-ceo"
	assignments, err = resolver.Resolve(context.Background(), "t1", cyc, template.Template{}, nil, time.Now())
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "emp-frank", assignments[0].ReviewerID)
}

func TestResolveSkipsEmployeesWithoutReviewer(t *testing.T) {
	resolver, cyc, tmpl := resolverFixture()
	cyc.Scope = Scope{EmployeeIDs: []string{"emp-frank"}}

	// The CEO reviews themselves up the chain; no assignment is created.
	assignments, err := resolver.Resolve(context.Background(), "t1", cyc, tmpl, nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

func TestResolveSkipsAlreadyAssigned(t *testing.T) {
	resolver, cyc, tmpl := resolverFixture()
	cyc.Scope = Scope{DepartmentIDs: []string{"dept-eng"}}

	existing := map[string]bool{"emp-alice": true}
	assignments, err := resolver.Resolve(context.Background(), "t1", cyc, tmpl, existing, time.Now())
	require.NoError(t, err)

	for _, asg := range assignments {
		assert.NotEqual(t, "emp-alice", asg.EmployeeID)
	}
	require.Len(t, assignments, 2)
}

func TestResolveCarriesTemplateSelfAssessmentFlag(t *testing.T) {
	resolver, cyc, tmpl := resolverFixture()
	cyc.Scope = Scope{EmployeeIDs: []string{"emp-alice"}}
	tmpl.RequiresSelfAssessment = false

	assignments, err := resolver.Resolve(context.Background(), "t1", cyc, tmpl, nil, time.Now())
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.False(t, assignments[0].SelfAssessmentRequired)
	assert.Equal(t, AssignmentNotStarted, assignments[0].Status)
}
