package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"appraisal/internal/domain/cycle"
	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/template"
)

// EvaluationAPI is the slice of the evaluation service a dispute drives: the
// dispute side states and the rating override on resolution.
type EvaluationAPI interface {
	Get(ctx context.Context, tenantID, evaluationID string) (evaluation.Evaluation, error)
	MarkDisputed(ctx context.Context, tenantID, evaluationID string) (evaluation.Evaluation, error)
	RestoreFromDispute(ctx context.Context, tenantID, evaluationID string) (evaluation.Evaluation, error)
	Finalize(ctx context.Context, tenantID, evaluationID string, adjustedRating *float64) (evaluation.Evaluation, error)
}

type CycleAPI interface {
	Get(ctx context.Context, tenantID, cycleID string) (cycle.Cycle, error)
}

type Service struct {
	store         StoreAPI
	evaluations   EvaluationAPI
	cycles        CycleAPI
	templates     template.StoreAPI
	defaultWindow time.Duration
	now           func() time.Time
}

// NewService wires the dispute resolver. defaultWindowDays applies when
// neither the cycle timeline nor the template configures a dispute window.
func NewService(store StoreAPI, evaluations EvaluationAPI, cycles CycleAPI, templates template.StoreAPI, defaultWindowDays int) *Service {
	if defaultWindowDays <= 0 {
		defaultWindowDays = 7
	}
	return &Service{
		store:         store,
		evaluations:   evaluations,
		cycles:        cycles,
		templates:     templates,
		defaultWindow: time.Duration(defaultWindowDays) * 24 * time.Hour,
		now:           time.Now,
	}
}

// Create opens a dispute against the caller's own published evaluation. At
// most one open dispute may exist per evaluation.
func (s *Service) Create(ctx context.Context, tenantID, employeeID string, input CreateInput) (Dispute, error) {
	eval, err := s.evaluations.Get(ctx, tenantID, input.EvaluationID)
	if err != nil {
		return Dispute{}, err
	}
	if eval.EmployeeID != employeeID {
		return Dispute{}, ErrNotOwner
	}
	if eval.Status != evaluation.StatusPublished && eval.Status != evaluation.StatusAcknowledged {
		return Dispute{}, fmt.Errorf("evaluation is %s: %w", eval.Status, ErrNotDisputable)
	}

	if _, err := s.store.FindActiveByEvaluation(ctx, tenantID, eval.ID); err == nil {
		return Dispute{}, ErrDuplicateActive
	} else if !errors.Is(err, ErrNotFound) {
		return Dispute{}, err
	}

	now := s.now().UTC()
	deadline, err := s.deadline(ctx, tenantID, eval, now)
	if err != nil {
		return Dispute{}, err
	}
	if now.After(deadline) {
		return Dispute{}, ErrDeadlinePassed
	}

	d := Dispute{
		EvaluationID:         eval.ID,
		CycleID:              eval.CycleID,
		EmployeeID:           employeeID,
		Reason:               input.Reason,
		DisputedSectionIDs:   input.DisputedSectionIDs,
		DisputedCriterionIDs: input.DisputedCriterionIDs,
		ProposedRating:       input.ProposedRating,
		SupportingDocuments:  input.SupportingDocuments,
		Status:               StatusSubmitted,
		SubmittedAt:          now,
		Deadline:             deadline,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	id, err := s.store.Insert(ctx, tenantID, d)
	if err != nil {
		return Dispute{}, err
	}
	d.ID = id

	if _, err := s.evaluations.MarkDisputed(ctx, tenantID, eval.ID); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

// Review claims a submitted dispute for an HR reviewer.
func (s *Service) Review(ctx context.Context, tenantID, reviewerID, disputeID string) (Dispute, error) {
	d, err := s.store.Get(ctx, tenantID, disputeID)
	if err != nil {
		return Dispute{}, err
	}
	if !d.Status.CanTransition(StatusUnderReview) {
		return Dispute{}, fmt.Errorf("dispute is %s: %w", d.Status, ErrInvalidState)
	}

	now := s.now().UTC()
	d.Status = StatusUnderReview
	d.ReviewerID = reviewerID
	d.ReviewedAt = &now
	d.UpdatedAt = now
	if err := s.store.Update(ctx, tenantID, d); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

// Resolve closes the dispute. A RATING_ADJUSTED resolution with an adjusted
// rating rewrites the evaluation's final rating; in every case the
// evaluation is finalized and its assignment completed.
func (s *Service) Resolve(ctx context.Context, tenantID, reviewerID, disputeID string, input ResolveInput) (Dispute, error) {
	d, err := s.store.Get(ctx, tenantID, disputeID)
	if err != nil {
		return Dispute{}, err
	}

	target := StatusRejected
	if input.Accept {
		target = StatusResolved
	}
	if !d.Status.CanTransition(target) {
		return Dispute{}, fmt.Errorf("dispute is %s: %w", d.Status, ErrInvalidState)
	}
	if !KnownResolutionType(input.ResolutionType) {
		return Dispute{}, fmt.Errorf("unknown resolution type %q: %w", input.ResolutionType, ErrInvalidState)
	}

	now := s.now().UTC()
	d.Status = target
	d.Resolution = &Resolution{
		Type:           input.ResolutionType,
		AdjustedRating: input.AdjustedRating,
		Notes:          input.Notes,
	}
	d.ReviewerID = reviewerID
	d.ReviewedAt = &now
	d.UpdatedAt = now
	if err := s.store.Update(ctx, tenantID, d); err != nil {
		return Dispute{}, err
	}

	var adjusted *float64
	if input.ResolutionType == ResolutionRatingAdjusted {
		adjusted = input.AdjustedRating
	}
	if _, err := s.evaluations.Finalize(ctx, tenantID, d.EvaluationID, adjusted); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

// Withdraw lets the employee retract an open dispute; the evaluation returns
// to its pre-dispute state.
func (s *Service) Withdraw(ctx context.Context, tenantID, employeeID, disputeID string) (Dispute, error) {
	d, err := s.store.Get(ctx, tenantID, disputeID)
	if err != nil {
		return Dispute{}, err
	}
	if d.EmployeeID != employeeID {
		return Dispute{}, ErrNotOwner
	}
	if !d.Status.CanTransition(StatusWithdrawn) {
		return Dispute{}, fmt.Errorf("dispute is %s: %w", d.Status, ErrInvalidState)
	}

	now := s.now().UTC()
	d.Status = StatusWithdrawn
	d.UpdatedAt = now
	if err := s.store.Update(ctx, tenantID, d); err != nil {
		return Dispute{}, err
	}

	if _, err := s.evaluations.RestoreFromDispute(ctx, tenantID, d.EvaluationID); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

// Escalate flags an open dispute for senior review; it does not change the
// status machine.
func (s *Service) Escalate(ctx context.Context, tenantID, actorID, disputeID, reason string) (Dispute, error) {
	d, err := s.store.Get(ctx, tenantID, disputeID)
	if err != nil {
		return Dispute{}, err
	}
	if !d.Status.Open() {
		return Dispute{}, fmt.Errorf("dispute is %s: %w", d.Status, ErrInvalidState)
	}
	if d.Escalated {
		return d, nil
	}

	now := s.now().UTC()
	d.Escalated = true
	d.EscalatedAt = &now
	d.EscalationReason = reason
	d.UpdatedAt = now
	if err := s.store.Update(ctx, tenantID, d); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, tenantID, disputeID string) (Dispute, error) {
	return s.store.Get(ctx, tenantID, disputeID)
}

func (s *Service) List(ctx context.Context, tenantID string, status Status) ([]Dispute, error) {
	return s.store.List(ctx, tenantID, status)
}

func (s *Service) ListByEmployee(ctx context.Context, tenantID, employeeID string) ([]Dispute, error) {
	return s.store.ListByEmployee(ctx, tenantID, employeeID)
}

// deadline picks the dispute cutoff: the cycle's explicit dispute deadline,
// else the template's window counted from publication, else the default
// window.
func (s *Service) deadline(ctx context.Context, tenantID string, eval evaluation.Evaluation, now time.Time) (time.Time, error) {
	cyc, err := s.cycles.Get(ctx, tenantID, eval.CycleID)
	if err != nil {
		return time.Time{}, err
	}
	if cyc.Timeline.DisputeDeadline != nil {
		return *cyc.Timeline.DisputeDeadline, nil
	}

	from := now
	if eval.PublishedAt != nil {
		from = *eval.PublishedAt
	}

	tmpl, err := s.templates.Get(ctx, tenantID, cyc.TemplateID)
	if err == nil && tmpl.DisputeWindowDays > 0 {
		return from.Add(time.Duration(tmpl.DisputeWindowDays) * 24 * time.Hour), nil
	}
	if err != nil && !errors.Is(err, template.ErrNotFound) {
		return time.Time{}, err
	}
	return from.Add(s.defaultWindow), nil
}
