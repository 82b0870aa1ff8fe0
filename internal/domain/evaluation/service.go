package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"appraisal/internal/domain/cycle"
	"appraisal/internal/domain/template"
)

// CycleAPI is the slice of the cycle service the scorer needs: assignment
// lookup and the workflow side effects of a submission.
type CycleAPI interface {
	Get(ctx context.Context, tenantID, cycleID string) (cycle.Cycle, error)
	GetAssignment(ctx context.Context, tenantID, assignmentID string) (cycle.Assignment, error)
	FindAssignment(ctx context.Context, tenantID, cycleID, employeeID string) (cycle.Assignment, error)
	AdvanceAssignment(ctx context.Context, tenantID, assignmentID string, to cycle.AssignmentStatus) (cycle.Assignment, error)
	MarkInProgress(ctx context.Context, tenantID, cycleID string) error
}

type Service struct {
	store     StoreAPI
	templates template.StoreAPI
	cycles    CycleAPI
	now       func() time.Time
}

func NewService(store StoreAPI, templates template.StoreAPI, cycles CycleAPI) *Service {
	return &Service{store: store, templates: templates, cycles: cycles, now: time.Now}
}

// SubmitSelfAssessment records the employee's own input and hands the
// assignment over to the reviewer.
func (s *Service) SubmitSelfAssessment(ctx context.Context, tenantID, employeeID, cycleID string, input SelfAssessmentInput) (Evaluation, error) {
	cyc, err := s.cycles.Get(ctx, tenantID, cycleID)
	if err != nil {
		return Evaluation{}, err
	}
	asg, err := s.cycles.FindAssignment(ctx, tenantID, cycleID, employeeID)
	if err != nil {
		return Evaluation{}, err
	}
	if !asg.SelfAssessmentRequired {
		return Evaluation{}, fmt.Errorf("cycle does not collect self-assessments: %w", ErrInvalidState)
	}
	if asg.Status != cycle.AssignmentNotStarted && asg.Status != cycle.AssignmentSelfAssessmentPending {
		return Evaluation{}, fmt.Errorf("self-assessment window has passed (%s): %w", asg.Status, ErrInvalidState)
	}

	tmpl, err := s.templates.Get(ctx, tenantID, cyc.TemplateID)
	if err != nil {
		return Evaluation{}, err
	}
	if err := validateRatings(tmpl, input.Sections); err != nil {
		return Evaluation{}, err
	}

	now := s.now().UTC()
	eval, err := s.findOrNew(ctx, tenantID, cyc, asg, now)
	if err != nil {
		return Evaluation{}, err
	}
	if !eval.Status.CanTransition(StatusSelfAssessmentSubmitted) && eval.Status != StatusDraft {
		return Evaluation{}, fmt.Errorf("evaluation is already %s: %w", eval.Status, ErrInvalidState)
	}

	eval.SelfAssessment = &SelfAssessment{
		Sections:        input.Sections,
		Accomplishments: input.Accomplishments,
		Strengths:       input.Strengths,
		AreasToImprove:  input.AreasToImprove,
		SubmittedAt:     now,
	}
	eval.Status = StatusSelfAssessmentSubmitted
	eval.UpdatedAt = now

	eval, err = s.save(ctx, tenantID, eval)
	if err != nil {
		return Evaluation{}, err
	}

	if _, err := s.cycles.AdvanceAssignment(ctx, tenantID, asg.ID, cycle.AssignmentManagerReviewPending); err != nil {
		return Evaluation{}, err
	}
	if err := s.cycles.MarkInProgress(ctx, tenantID, cycleID); err != nil {
		return Evaluation{}, err
	}
	return eval, nil
}

// CreateOrUpdate is the manager submission: it computes the weighted final
// rating and performance category from the template, upserting the
// evaluation. The assignment stays at MANAGER_REVIEW_PENDING; completion
// happens only through publication or acknowledgment.
func (s *Service) CreateOrUpdate(ctx context.Context, tenantID, reviewerID, cycleID, employeeID string, input ManagerInput) (Evaluation, error) {
	cyc, err := s.cycles.Get(ctx, tenantID, cycleID)
	if err != nil {
		return Evaluation{}, err
	}
	if cyc.Status != cycle.StatusActive && cyc.Status != cycle.StatusInProgress {
		return Evaluation{}, fmt.Errorf("cycle is %s, not accepting evaluations: %w", cyc.Status, ErrInvalidState)
	}

	asg, err := s.cycles.FindAssignment(ctx, tenantID, cycleID, employeeID)
	if err != nil {
		return Evaluation{}, err
	}
	if asg.Status == cycle.AssignmentCompleted || asg.Status == cycle.AssignmentDisputed {
		return Evaluation{}, fmt.Errorf("assignment is already %s: %w", asg.Status, ErrInvalidState)
	}
	// An empty reviewerID marks an HR calibration caller, who may submit on
	// behalf of any assigned reviewer.
	if reviewerID != "" && asg.ReviewerID != reviewerID {
		return Evaluation{}, ErrNotReviewer
	}

	tmpl, err := s.templates.Get(ctx, tenantID, cyc.TemplateID)
	if err != nil {
		return Evaluation{}, err
	}
	breakdown, err := ComputeScore(tmpl, input.Sections)
	if err != nil {
		return Evaluation{}, err
	}

	now := s.now().UTC()
	eval, err := s.findOrNew(ctx, tenantID, cyc, asg, now)
	if err != nil {
		return Evaluation{}, err
	}
	if eval.Status != StatusDraft && !eval.Status.CanTransition(StatusManagerReviewSubmitted) {
		return Evaluation{}, fmt.Errorf("evaluation is already %s: %w", eval.Status, ErrInvalidState)
	}

	eval.ManagerEvaluation = &ManagerEvaluation{
		Sections:                input.Sections,
		Narrative:               input.Narrative,
		Strengths:               input.Strengths,
		AreasForDevelopment:     input.AreasForDevelopment,
		TrainingRecommendations: input.TrainingRecommendations,
		AttendanceRating:        input.AttendanceRating,
		PunctualityRating:       input.PunctualityRating,
		SubmittedAt:             now,
	}
	eval.Breakdown = &breakdown
	eval.FinalRating = &breakdown.FinalRating
	eval.Category = breakdown.Category
	eval.Status = StatusManagerReviewSubmitted
	eval.UpdatedAt = now

	eval, err = s.save(ctx, tenantID, eval)
	if err != nil {
		return Evaluation{}, err
	}

	if asg.Status.CanTransition(cycle.AssignmentManagerReviewPending) {
		if _, err := s.cycles.AdvanceAssignment(ctx, tenantID, asg.ID, cycle.AssignmentManagerReviewPending); err != nil {
			return Evaluation{}, err
		}
	}
	if err := s.cycles.MarkInProgress(ctx, tenantID, cycleID); err != nil {
		return Evaluation{}, err
	}
	return eval, nil
}

// AddHRReview records the HR calibration pass. A supplied adjusted rating
// overwrites the computed final rating and re-derives the category.
func (s *Service) AddHRReview(ctx context.Context, tenantID, hrReviewerID, evaluationID string, input HRReviewInput) (Evaluation, error) {
	eval, err := s.store.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	if eval.Status != StatusManagerReviewSubmitted && eval.Status != StatusHRReviewed {
		return Evaluation{}, fmt.Errorf("evaluation is %s, not reviewable: %w", eval.Status, ErrInvalidState)
	}

	now := s.now().UTC()
	eval.HRReview = &HRReview{
		ReviewerID:       hrReviewerID,
		Comments:         input.Comments,
		AdjustedRating:   input.AdjustedRating,
		AdjustmentReason: input.AdjustmentReason,
		ReviewedAt:       now,
	}
	if input.AdjustedRating != nil {
		eval.FinalRating = input.AdjustedRating
		eval.Category = CategoryFor(*input.AdjustedRating)
	}
	eval.Status = StatusHRReviewed
	eval.UpdatedAt = now

	eval, err = s.saveExisting(ctx, tenantID, eval)
	if err != nil {
		return Evaluation{}, err
	}

	asg, err := s.cycles.GetAssignment(ctx, tenantID, eval.AssignmentID)
	if err != nil {
		return Evaluation{}, err
	}
	if asg.Status == cycle.AssignmentManagerReviewPending {
		if _, err := s.cycles.AdvanceAssignment(ctx, tenantID, asg.ID, cycle.AssignmentHRReviewPending); err != nil {
			return Evaluation{}, err
		}
	}
	return eval, nil
}

// Acknowledge is the employee sign-off on a published result; it completes
// the assignment.
func (s *Service) Acknowledge(ctx context.Context, tenantID, employeeID, evaluationID, comment string) (Evaluation, error) {
	eval, err := s.store.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	if eval.EmployeeID != employeeID {
		return Evaluation{}, ErrNotOwner
	}
	if eval.Status != StatusPublished {
		return Evaluation{}, fmt.Errorf("evaluation is %s, only published results can be acknowledged: %w", eval.Status, ErrInvalidState)
	}

	now := s.now().UTC()
	eval.AcknowledgedAt = &now
	eval.EmployeeComments = comment
	eval.Status = StatusAcknowledged
	eval.UpdatedAt = now

	eval, err = s.saveExisting(ctx, tenantID, eval)
	if err != nil {
		return Evaluation{}, err
	}

	asg, err := s.cycles.GetAssignment(ctx, tenantID, eval.AssignmentID)
	if err != nil {
		return Evaluation{}, err
	}
	if asg.Status != cycle.AssignmentCompleted {
		if _, err := s.cycles.AdvanceAssignment(ctx, tenantID, asg.ID, cycle.AssignmentCompleted); err != nil {
			return Evaluation{}, err
		}
	}
	return eval, nil
}

// MarkDisputed flips a published or acknowledged evaluation into the dispute
// side state. Called by the dispute resolver.
func (s *Service) MarkDisputed(ctx context.Context, tenantID, evaluationID string) (Evaluation, error) {
	return s.sideTransition(ctx, tenantID, evaluationID, StatusDisputed, func(eval *Evaluation, _ time.Time) {}, cycle.AssignmentDisputed)
}

// RestoreFromDispute undoes MarkDisputed after a withdrawal: the evaluation
// returns to ACKNOWLEDGED if the employee had signed off, else PUBLISHED.
func (s *Service) RestoreFromDispute(ctx context.Context, tenantID, evaluationID string) (Evaluation, error) {
	eval, err := s.store.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	target := StatusPublished
	if eval.AcknowledgedAt != nil {
		target = StatusAcknowledged
	}
	return s.sideTransition(ctx, tenantID, evaluationID, target, func(eval *Evaluation, _ time.Time) {}, cycle.AssignmentCompleted)
}

// Finalize closes an evaluation after dispute resolution, optionally
// overriding the final rating.
func (s *Service) Finalize(ctx context.Context, tenantID, evaluationID string, adjustedRating *float64) (Evaluation, error) {
	return s.sideTransition(ctx, tenantID, evaluationID, StatusFinalized, func(eval *Evaluation, _ time.Time) {
		if adjustedRating != nil {
			eval.FinalRating = adjustedRating
			eval.Category = CategoryFor(*adjustedRating)
		}
	}, cycle.AssignmentCompleted)
}

func (s *Service) sideTransition(ctx context.Context, tenantID, evaluationID string, to Status, mutate func(*Evaluation, time.Time), asgStatus cycle.AssignmentStatus) (Evaluation, error) {
	eval, err := s.store.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	if !eval.Status.CanTransition(to) {
		return Evaluation{}, fmt.Errorf("evaluation cannot move from %s to %s: %w", eval.Status, to, ErrInvalidState)
	}

	now := s.now().UTC()
	mutate(&eval, now)
	eval.Status = to
	eval.UpdatedAt = now

	eval, err = s.saveExisting(ctx, tenantID, eval)
	if err != nil {
		return Evaluation{}, err
	}

	asg, err := s.cycles.GetAssignment(ctx, tenantID, eval.AssignmentID)
	if err != nil {
		return Evaluation{}, err
	}
	if asg.Status != asgStatus && asg.Status.CanTransition(asgStatus) {
		if _, err := s.cycles.AdvanceAssignment(ctx, tenantID, asg.ID, asgStatus); err != nil {
			return Evaluation{}, err
		}
	}
	return eval, nil
}

func (s *Service) Get(ctx context.Context, tenantID, evaluationID string) (Evaluation, error) {
	return s.store.Get(ctx, tenantID, evaluationID)
}

func (s *Service) FindByCycleEmployee(ctx context.Context, tenantID, cycleID, employeeID string) (Evaluation, error) {
	return s.store.FindByCycleEmployee(ctx, tenantID, cycleID, employeeID)
}

func (s *Service) ListByCycle(ctx context.Context, tenantID, cycleID string) ([]Evaluation, error) {
	return s.store.ListByCycle(ctx, tenantID, cycleID)
}

func (s *Service) ListByEmployee(ctx context.Context, tenantID, employeeID string) ([]Evaluation, error) {
	return s.store.ListByEmployee(ctx, tenantID, employeeID)
}

func (s *Service) findOrNew(ctx context.Context, tenantID string, cyc cycle.Cycle, asg cycle.Assignment, now time.Time) (Evaluation, error) {
	eval, err := s.store.FindByCycleEmployee(ctx, tenantID, cyc.ID, asg.EmployeeID)
	if err == nil {
		return eval, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Evaluation{}, err
	}
	return Evaluation{
		CycleID:      cyc.ID,
		AssignmentID: asg.ID,
		TemplateID:   cyc.TemplateID,
		EmployeeID:   asg.EmployeeID,
		ReviewerID:   asg.ReviewerID,
		Status:       StatusDraft,
		Version:      1,
		CreatedAt:    now,
	}, nil
}

func (s *Service) save(ctx context.Context, tenantID string, eval Evaluation) (Evaluation, error) {
	if eval.ID == "" {
		id, err := s.store.Insert(ctx, tenantID, eval)
		if err != nil {
			return Evaluation{}, err
		}
		eval.ID = id
		return eval, nil
	}
	return s.saveExisting(ctx, tenantID, eval)
}

func (s *Service) saveExisting(ctx context.Context, tenantID string, eval Evaluation) (Evaluation, error) {
	if err := s.store.Update(ctx, tenantID, eval); err != nil {
		return Evaluation{}, err
	}
	eval.Version++
	return eval, nil
}
