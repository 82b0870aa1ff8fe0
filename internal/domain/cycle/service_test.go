package cycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/domain/template"
)

type fakeStore struct {
	cycles      map[string]Cycle
	assignments map[string]Assignment
	nextID      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cycles:      make(map[string]Cycle),
		assignments: make(map[string]Assignment),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) Insert(_ context.Context, _ string, cyc Cycle) (string, error) {
	cyc.ID = f.id("cycle")
	f.cycles[cyc.ID] = cyc
	return cyc.ID, nil
}

func (f *fakeStore) Get(_ context.Context, _ string, cycleID string) (Cycle, error) {
	cyc, ok := f.cycles[cycleID]
	if !ok {
		return Cycle{}, ErrNotFound
	}
	return cyc, nil
}

func (f *fakeStore) List(_ context.Context, _ string, status Status, _, _ int) ([]Cycle, error) {
	var out []Cycle
	for _, cyc := range f.cycles {
		if status != "" && cyc.Status != status {
			continue
		}
		out = append(out, cyc)
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, _ string, cyc Cycle) error {
	current, ok := f.cycles[cyc.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != cyc.Version {
		return ErrStaleVersion
	}
	cyc.Version++
	f.cycles[cyc.ID] = cyc
	return nil
}

func (f *fakeStore) Activate(ctx context.Context, tenantID string, cyc Cycle, assignments []Assignment) error {
	if err := f.Update(ctx, tenantID, cyc); err != nil {
		return err
	}
	for _, asg := range assignments {
		asg.ID = f.id("asg")
		f.assignments[asg.ID] = asg
	}
	return nil
}

func (f *fakeStore) Publish(ctx context.Context, tenantID string, cyc Cycle) error {
	if err := f.Update(ctx, tenantID, cyc); err != nil {
		return err
	}
	for id, asg := range f.assignments {
		if asg.CycleID != cyc.ID {
			continue
		}
		if asg.Status == AssignmentManagerReviewPending || asg.Status == AssignmentHRReviewPending {
			asg.Status = AssignmentCompleted
			f.assignments[id] = asg
		}
	}
	return nil
}

func (f *fakeStore) GetAssignment(_ context.Context, _ string, assignmentID string) (Assignment, error) {
	asg, ok := f.assignments[assignmentID]
	if !ok {
		return Assignment{}, ErrAssignmentNotFound
	}
	return asg, nil
}

func (f *fakeStore) FindAssignment(_ context.Context, _ string, cycleID, employeeID string) (Assignment, error) {
	for _, asg := range f.assignments {
		if asg.CycleID == cycleID && asg.EmployeeID == employeeID {
			return asg, nil
		}
	}
	return Assignment{}, ErrAssignmentNotFound
}

func (f *fakeStore) ListAssignments(_ context.Context, _ string, cycleID string) ([]Assignment, error) {
	var out []Assignment
	for _, asg := range f.assignments {
		if asg.CycleID == cycleID {
			out = append(out, asg)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAssignmentsByReviewer(_ context.Context, _ string, reviewerID string) ([]Assignment, error) {
	var out []Assignment
	for _, asg := range f.assignments {
		if asg.ReviewerID == reviewerID {
			out = append(out, asg)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAssignmentsByEmployee(_ context.Context, _ string, employeeID string) ([]Assignment, error) {
	var out []Assignment
	for _, asg := range f.assignments {
		if asg.EmployeeID == employeeID {
			out = append(out, asg)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateAssignmentStatus(_ context.Context, _ string, assignmentID string, from, to AssignmentStatus) error {
	asg, ok := f.assignments[assignmentID]
	if !ok {
		return ErrAssignmentNotFound
	}
	if asg.Status != from {
		return ErrInvalidState
	}
	asg.Status = to
	f.assignments[assignmentID] = asg
	return nil
}

func (f *fakeStore) CountAssignmentsByStatus(_ context.Context, _ string, cycleID string) (map[AssignmentStatus]int, error) {
	counts := make(map[AssignmentStatus]int)
	for _, asg := range f.assignments {
		if asg.CycleID == cycleID {
			counts[asg.Status]++
		}
	}
	return counts, nil
}

type fakeTemplates struct {
	templates map[string]template.Template
}

func (f *fakeTemplates) Insert(_ context.Context, _ string, tmpl template.Template) (string, error) {
	f.templates[tmpl.ID] = tmpl
	return tmpl.ID, nil
}

func (f *fakeTemplates) Get(_ context.Context, _ string, templateID string) (template.Template, error) {
	tmpl, ok := f.templates[templateID]
	if !ok {
		return template.Template{}, template.ErrNotFound
	}
	return tmpl, nil
}

func (f *fakeTemplates) List(_ context.Context, _ string, _ bool) ([]template.Template, error) {
	return nil, nil
}

func (f *fakeTemplates) Update(_ context.Context, _ string, tmpl template.Template) error {
	f.templates[tmpl.ID] = tmpl
	return nil
}

func (f *fakeTemplates) Delete(_ context.Context, _ string, templateID string) error {
	delete(f.templates, templateID)
	return nil
}

func serviceFixture() (*Service, *fakeStore, *fakeTemplates) {
	store := newFakeStore()
	templates := &fakeTemplates{templates: map[string]template.Template{
		"tmpl-1": {
			ID:                     "tmpl-1",
			Kind:                   template.KindAnnual,
			RequiresSelfAssessment: true,
			IsActive:               true,
		},
	}}
	svc := NewService(store, templates, NewResolver(orgChart()))
	return svc, store, templates
}

func createInput() CreateInput {
	return CreateInput{
		Code:       "FY26-ANNUAL",
		Name:       "FY26 Annual Review",
		TemplateID: "tmpl-1",
		Timeline: Timeline{
			StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		Scope: Scope{DepartmentIDs: []string{"dept-eng"}},
	}
}

func TestCreateStartsAsDraft(t *testing.T) {
	svc, _, _ := serviceFixture()

	cyc, err := svc.Create(context.Background(), "t1", "hr-user", createInput())
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, cyc.Status)
	assert.Equal(t, 1, cyc.Version)
	assert.Equal(t, template.KindAnnual, cyc.Kind)
	assert.False(t, cyc.ResultsPublished)
}

func TestCreateRejectsInvertedTimeline(t *testing.T) {
	svc, _, _ := serviceFixture()

	input := createInput()
	input.Timeline.EndDate = input.Timeline.StartDate

	_, err := svc.Create(context.Background(), "t1", "hr-user", input)
	assert.ErrorIs(t, err, ErrInvalidTimeline)
}

func TestCreateRejectsInactiveTemplate(t *testing.T) {
	svc, _, templates := serviceFixture()
	tmpl := templates.templates["tmpl-1"]
	tmpl.IsActive = false
	templates.templates["tmpl-1"] = tmpl

	_, err := svc.Create(context.Background(), "t1", "hr-user", createInput())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestActivateResolvesAssignments(t *testing.T) {
	svc, _, _ := serviceFixture()

	cyc, err := svc.Create(context.Background(), "t1", "hr-user", createInput())
	require.NoError(t, err)

	activated, assignments, err := svc.Activate(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, activated.Status)
	require.Len(t, assignments, 3) // alice, bob, carol
	for _, asg := range assignments {
		assert.Equal(t, AssignmentNotStarted, asg.Status)
		assert.True(t, asg.SelfAssessmentRequired)
	}

	// A second activation is rejected outright.
	_, _, err = svc.Activate(context.Background(), "t1", "hr-user", cyc.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestActivateRejectsEmptyScope(t *testing.T) {
	svc, _, _ := serviceFixture()

	input := createInput()
	input.Scope = Scope{EmployeeIDs: []string{"emp-frank"}} // no resolvable reviewer

	cyc, err := svc.Create(context.Background(), "t1", "hr-user", input)
	require.NoError(t, err)

	_, _, err = svc.Activate(context.Background(), "t1", "hr-user", cyc.ID)
	assert.ErrorIs(t, err, ErrEmptyScope)
}

func TestUpdateAllowedUntilCompletion(t *testing.T) {
	svc, store, _ := serviceFixture()

	cyc, err := svc.Create(context.Background(), "t1", "hr-user", createInput())
	require.NoError(t, err)

	name := "FY26 Annual Review (revised)"
	updated, err := svc.Update(context.Background(), "t1", "hr-user", cyc.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 2, updated.Version)

	_, _, err = svc.Activate(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)

	// Scope edits after activation must not re-run assignment resolution.
	scope := &Scope{DepartmentIDs: []string{"dept-eng", "dept-sales"}}
	updated, err = svc.Update(context.Background(), "t1", "hr-user", cyc.ID, UpdateInput{Scope: scope})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, updated.Status)
	assert.Len(t, store.assignments, 3)

	_, err = svc.Close(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "t1", "hr-user", cyc.ID, UpdateInput{Name: &name})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPublishLeavesStatusUntouched(t *testing.T) {
	svc, store, _ := serviceFixture()

	cyc, err := svc.Create(context.Background(), "t1", "hr-user", createInput())
	require.NoError(t, err)
	_, assignments, err := svc.Activate(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)

	// One assignment sits in self-assessment when HR publishes.
	asg := assignments[0]
	require.NoError(t, store.UpdateAssignmentStatus(context.Background(), "t1", findAssignmentID(store, asg.EmployeeID), AssignmentNotStarted, AssignmentSelfAssessmentPending))

	published, err := svc.Publish(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, published.Status)
	assert.True(t, published.ResultsPublished)
	require.NotNil(t, published.PublishedAt)

	// Results are only released once.
	_, err = svc.Publish(context.Background(), "t1", "hr-user", cyc.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	// Closing is a separate step and still works after publication.
	closed, err := svc.Close(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, closed.Status)
	assert.True(t, closed.ResultsPublished)
}

func TestPublishRequiresOpenCycle(t *testing.T) {
	svc, _, _ := serviceFixture()

	cyc, err := svc.Create(context.Background(), "t1", "hr-user", createInput())
	require.NoError(t, err)

	_, err = svc.Publish(context.Background(), "t1", "hr-user", cyc.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func findAssignmentID(store *fakeStore, employeeID string) string {
	for id, asg := range store.assignments {
		if asg.EmployeeID == employeeID {
			return id
		}
	}
	return ""
}

func TestCancelOnlyBeforeReviewsBegin(t *testing.T) {
	svc, _, _ := serviceFixture()

	cyc, err := svc.Create(context.Background(), "t1", "hr-user", createInput())
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.Cancel(context.Background(), "t1", "hr-user", cyc.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestArchiveRequiresCompleted(t *testing.T) {
	svc, _, _ := serviceFixture()

	cyc, err := svc.Create(context.Background(), "t1", "hr-user", createInput())
	require.NoError(t, err)

	_, err = svc.Archive(context.Background(), "t1", "hr-user", cyc.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, _, err = svc.Activate(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)

	archived, err := svc.Archive(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, archived.Status)
}

func TestProgressHandlesEmptyCycle(t *testing.T) {
	svc, _, _ := serviceFixture()

	cyc, err := svc.Create(context.Background(), "t1", "hr-user", createInput())
	require.NoError(t, err)

	progress, err := svc.Progress(context.Background(), "t1", cyc.ID)
	require.NoError(t, err)
	assert.Zero(t, progress.Total)
	assert.Zero(t, progress.CompletionRate)
}

func TestProgressCountsCompletion(t *testing.T) {
	svc, store, _ := serviceFixture()

	cyc, err := svc.Create(context.Background(), "t1", "hr-user", createInput())
	require.NoError(t, err)
	_, assignments, err := svc.Activate(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 3)

	id := findAssignmentID(store, assignments[0].EmployeeID)
	asg := store.assignments[id]
	asg.Status = AssignmentCompleted
	store.assignments[id] = asg

	progress, err := svc.Progress(context.Background(), "t1", cyc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.Total)
	assert.Equal(t, 1, progress.Completed)
	assert.InDelta(t, 1.0/3.0, progress.CompletionRate, 1e-9)
}

func TestAdvanceAssignmentEnforcesTransitions(t *testing.T) {
	svc, store, _ := serviceFixture()

	cyc, err := svc.Create(context.Background(), "t1", "hr-user", createInput())
	require.NoError(t, err)
	_, assignments, err := svc.Activate(context.Background(), "t1", "hr-user", cyc.ID)
	require.NoError(t, err)

	id := findAssignmentID(store, assignments[0].EmployeeID)

	asg, err := svc.AdvanceAssignment(context.Background(), "t1", id, AssignmentSelfAssessmentPending)
	require.NoError(t, err)
	assert.Equal(t, AssignmentSelfAssessmentPending, asg.Status)

	// Skipping straight to HR review is not a legal step.
	_, err = svc.AdvanceAssignment(context.Background(), "t1", id, AssignmentHRReviewPending)
	assert.ErrorIs(t, err, ErrInvalidState)
}
