package cycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"appraisal/internal/domain/template"
)

type Service struct {
	store     StoreAPI
	templates template.StoreAPI
	resolver  *Resolver
	now       func() time.Time
}

func NewService(store StoreAPI, templates template.StoreAPI, resolver *Resolver) *Service {
	return &Service{store: store, templates: templates, resolver: resolver, now: time.Now}
}

func (s *Service) Create(ctx context.Context, tenantID, actorID string, input CreateInput) (Cycle, error) {
	if !input.Timeline.EndDate.After(input.Timeline.StartDate) {
		return Cycle{}, ErrInvalidTimeline
	}

	tmpl, err := s.templates.Get(ctx, tenantID, input.TemplateID)
	if err != nil {
		if errors.Is(err, template.ErrNotFound) {
			return Cycle{}, fmt.Errorf("template %s: %w", input.TemplateID, template.ErrNotFound)
		}
		return Cycle{}, err
	}
	if !tmpl.IsActive {
		return Cycle{}, fmt.Errorf("template %s is inactive: %w", input.TemplateID, ErrInvalidState)
	}

	kind := input.Kind
	if kind == "" {
		kind = tmpl.Kind
	}
	if !template.KnownKind(kind) {
		return Cycle{}, fmt.Errorf("unknown cycle kind %q: %w", kind, ErrInvalidState)
	}

	now := s.now().UTC()
	cyc := Cycle{
		Code:       strings.TrimSpace(input.Code),
		Name:       strings.TrimSpace(input.Name),
		Kind:       kind,
		TemplateID: tmpl.ID,
		Timeline:   input.Timeline,
		Scope:      input.Scope,
		Status:     StatusDraft,
		Version:    1,
		CreatedBy:  actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	id, err := s.store.Insert(ctx, tenantID, cyc)
	if err != nil {
		return Cycle{}, err
	}
	cyc.ID = id
	return cyc, nil
}

// Update edits cycle fields up to completion. It never re-runs assignment
// resolution; that only happens on activation, so scope edits after
// activation affect nothing until the next resolution-style operation.
func (s *Service) Update(ctx context.Context, tenantID, actorID, cycleID string, input UpdateInput) (Cycle, error) {
	cyc, err := s.store.Get(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, err
	}
	switch cyc.Status {
	case StatusDraft, StatusActive, StatusInProgress:
	default:
		return Cycle{}, fmt.Errorf("cannot edit a %s cycle: %w", cyc.Status, ErrInvalidState)
	}

	if input.Name != nil {
		cyc.Name = strings.TrimSpace(*input.Name)
	}
	if input.Kind != nil {
		if !template.KnownKind(*input.Kind) {
			return Cycle{}, fmt.Errorf("unknown cycle kind %q: %w", *input.Kind, ErrInvalidState)
		}
		cyc.Kind = *input.Kind
	}
	if input.TemplateID != nil {
		tmpl, err := s.templates.Get(ctx, tenantID, *input.TemplateID)
		if err != nil {
			return Cycle{}, err
		}
		if !tmpl.IsActive {
			return Cycle{}, fmt.Errorf("template %s is inactive: %w", tmpl.ID, ErrInvalidState)
		}
		cyc.TemplateID = tmpl.ID
	}
	if input.Timeline != nil {
		if !input.Timeline.EndDate.After(input.Timeline.StartDate) {
			return Cycle{}, ErrInvalidTimeline
		}
		cyc.Timeline = *input.Timeline
	}
	if input.Scope != nil {
		cyc.Scope = *input.Scope
	}

	cyc.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, tenantID, cyc); err != nil {
		return Cycle{}, err
	}
	cyc.Version++
	return cyc, nil
}

// Activate flips a draft cycle to ACTIVE, resolving the employee/reviewer
// pairings from the org hierarchy. Resolution and the status flip commit in
// one transaction.
func (s *Service) Activate(ctx context.Context, tenantID, actorID, cycleID string) (Cycle, []Assignment, error) {
	cyc, err := s.store.Get(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, nil, err
	}
	if !cyc.Status.CanTransition(StatusActive) {
		return Cycle{}, nil, fmt.Errorf("cannot activate a %s cycle: %w", cyc.Status, ErrInvalidState)
	}

	tmpl, err := s.templates.Get(ctx, tenantID, cyc.TemplateID)
	if err != nil {
		return Cycle{}, nil, err
	}

	existing, err := s.store.ListAssignments(ctx, tenantID, cyc.ID)
	if err != nil {
		return Cycle{}, nil, err
	}
	assigned := make(map[string]bool, len(existing))
	for _, a := range existing {
		assigned[a.EmployeeID] = true
	}

	now := s.now().UTC()
	assignments, err := s.resolver.Resolve(ctx, tenantID, cyc, tmpl, assigned, now)
	if err != nil {
		return Cycle{}, nil, err
	}
	if len(assignments)+len(existing) == 0 {
		return Cycle{}, nil, ErrEmptyScope
	}

	cyc.Status = StatusActive
	cyc.UpdatedAt = now
	if err := s.store.Activate(ctx, tenantID, cyc, assignments); err != nil {
		return Cycle{}, nil, err
	}
	cyc.Version++
	return cyc, assignments, nil
}

// MarkInProgress records the first workflow activity on an active cycle. It
// is best-effort: a cycle already past ACTIVE is left alone.
func (s *Service) MarkInProgress(ctx context.Context, tenantID, cycleID string) error {
	cyc, err := s.store.Get(ctx, tenantID, cycleID)
	if err != nil {
		return err
	}
	if cyc.Status != StatusActive {
		return nil
	}
	cyc.Status = StatusInProgress
	cyc.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, tenantID, cyc); err != nil && !errors.Is(err, ErrStaleVersion) {
		return err
	}
	return nil
}

// Publish releases results to employees. Assignments still pending review
// are force-completed in the same transaction. The lifecycle status is left
// alone; Close is the separate step that completes the cycle.
func (s *Service) Publish(ctx context.Context, tenantID, actorID, cycleID string) (Cycle, error) {
	cyc, err := s.store.Get(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, err
	}
	if cyc.ResultsPublished {
		return Cycle{}, fmt.Errorf("cycle results are already published: %w", ErrInvalidState)
	}
	if cyc.Status != StatusActive && cyc.Status != StatusInProgress {
		return Cycle{}, fmt.Errorf("cannot publish a %s cycle: %w", cyc.Status, ErrInvalidState)
	}

	now := s.now().UTC()
	cyc.ResultsPublished = true
	cyc.PublishedAt = &now
	cyc.UpdatedAt = now
	if err := s.store.Publish(ctx, tenantID, cyc); err != nil {
		return Cycle{}, err
	}
	cyc.Version++
	return cyc, nil
}

// Close completes the cycle without releasing results to employees.
func (s *Service) Close(ctx context.Context, tenantID, actorID, cycleID string) (Cycle, error) {
	return s.transition(ctx, tenantID, cycleID, StatusCompleted)
}

func (s *Service) Cancel(ctx context.Context, tenantID, actorID, cycleID string) (Cycle, error) {
	return s.transition(ctx, tenantID, cycleID, StatusCancelled)
}

func (s *Service) Archive(ctx context.Context, tenantID, actorID, cycleID string) (Cycle, error) {
	return s.transition(ctx, tenantID, cycleID, StatusArchived)
}

func (s *Service) transition(ctx context.Context, tenantID, cycleID string, to Status) (Cycle, error) {
	cyc, err := s.store.Get(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, err
	}
	if !cyc.Status.CanTransition(to) {
		return Cycle{}, fmt.Errorf("cannot move a %s cycle to %s: %w", cyc.Status, to, ErrInvalidState)
	}
	cyc.Status = to
	cyc.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, tenantID, cyc); err != nil {
		return Cycle{}, err
	}
	cyc.Version++
	return cyc, nil
}

func (s *Service) Get(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	return s.store.Get(ctx, tenantID, cycleID)
}

func (s *Service) List(ctx context.Context, tenantID string, status Status, limit, offset int) ([]Cycle, error) {
	return s.store.List(ctx, tenantID, status, limit, offset)
}

// Progress summarizes assignment completion for a cycle. An empty cycle
// reports a zero completion rate rather than dividing by zero.
func (s *Service) Progress(ctx context.Context, tenantID, cycleID string) (Progress, error) {
	if _, err := s.store.Get(ctx, tenantID, cycleID); err != nil {
		return Progress{}, err
	}
	byStatus, err := s.store.CountAssignmentsByStatus(ctx, tenantID, cycleID)
	if err != nil {
		return Progress{}, err
	}

	p := Progress{ByStatus: byStatus}
	for status, n := range byStatus {
		p.Total += n
		if status == AssignmentCompleted {
			p.Completed = n
		}
	}
	if p.Total > 0 {
		p.CompletionRate = float64(p.Completed) / float64(p.Total)
	}
	return p, nil
}

func (s *Service) GetAssignment(ctx context.Context, tenantID, assignmentID string) (Assignment, error) {
	return s.store.GetAssignment(ctx, tenantID, assignmentID)
}

func (s *Service) FindAssignment(ctx context.Context, tenantID, cycleID, employeeID string) (Assignment, error) {
	return s.store.FindAssignment(ctx, tenantID, cycleID, employeeID)
}

func (s *Service) ListAssignments(ctx context.Context, tenantID, cycleID string) ([]Assignment, error) {
	return s.store.ListAssignments(ctx, tenantID, cycleID)
}

func (s *Service) ListAssignmentsByReviewer(ctx context.Context, tenantID, reviewerID string) ([]Assignment, error) {
	return s.store.ListAssignmentsByReviewer(ctx, tenantID, reviewerID)
}

func (s *Service) ListAssignmentsByEmployee(ctx context.Context, tenantID, employeeID string) ([]Assignment, error) {
	return s.store.ListAssignmentsByEmployee(ctx, tenantID, employeeID)
}

// AdvanceAssignment moves an assignment along the workflow, enforcing the
// closed transition set.
func (s *Service) AdvanceAssignment(ctx context.Context, tenantID, assignmentID string, to AssignmentStatus) (Assignment, error) {
	asg, err := s.store.GetAssignment(ctx, tenantID, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if !asg.Status.CanTransition(to) {
		return Assignment{}, fmt.Errorf("assignment cannot move from %s to %s: %w", asg.Status, to, ErrInvalidState)
	}
	if err := s.store.UpdateAssignmentStatus(ctx, tenantID, assignmentID, asg.Status, to); err != nil {
		return Assignment{}, err
	}
	asg.Status = to
	return asg, nil
}
