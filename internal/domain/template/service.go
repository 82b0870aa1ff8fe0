package template

import (
	"context"
	"strings"
	"time"
)

type Service struct {
	store StoreAPI
	now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) Create(ctx context.Context, tenantID, actorID string, input CreateInput) (Template, error) {
	if input.CalculationMethod == "" {
		input.CalculationMethod = CalcWeightedAverage
	}
	if err := Validate(input); err != nil {
		return Template{}, err
	}

	now := s.now().UTC()
	tmpl := Template{
		Code:                    strings.TrimSpace(input.Code),
		Name:                    strings.TrimSpace(input.Name),
		Kind:                    input.Kind,
		RatingScale:             input.RatingScale,
		Sections:                input.Sections,
		CalculationMethod:       input.CalculationMethod,
		RequiresSelfAssessment:  input.RequiresSelfAssessment,
		DisputeWindowDays:       input.DisputeWindowDays,
		ApplicableDepartmentIDs: input.ApplicableDepartmentIDs,
		IsActive:                true,
		Version:                 1,
		CreatedBy:               actorID,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	id, err := s.store.Insert(ctx, tenantID, tmpl)
	if err != nil {
		return Template{}, err
	}
	tmpl.ID = id
	return tmpl, nil
}

// Update applies a partial update. Supplying sections replaces the full
// section list, re-runs weight validation, and bumps the version.
func (s *Service) Update(ctx context.Context, tenantID, actorID, templateID string, input UpdateInput) (Template, error) {
	tmpl, err := s.store.Get(ctx, tenantID, templateID)
	if err != nil {
		return Template{}, err
	}

	if input.Name != nil {
		tmpl.Name = strings.TrimSpace(*input.Name)
	}
	if input.Kind != nil {
		tmpl.Kind = *input.Kind
	}
	if input.RatingScale != nil {
		tmpl.RatingScale = *input.RatingScale
	}
	if input.CalculationMethod != nil {
		tmpl.CalculationMethod = *input.CalculationMethod
	}
	if input.RequiresSelfAssessment != nil {
		tmpl.RequiresSelfAssessment = *input.RequiresSelfAssessment
	}
	if input.DisputeWindowDays != nil {
		tmpl.DisputeWindowDays = *input.DisputeWindowDays
	}
	if input.ApplicableDepartmentIDs != nil {
		tmpl.ApplicableDepartmentIDs = input.ApplicableDepartmentIDs
	}
	if input.IsActive != nil {
		tmpl.IsActive = *input.IsActive
	}
	if input.Sections != nil {
		tmpl.Sections = input.Sections
		tmpl.Version++
	}

	if err := Validate(CreateInput{
		Code:              tmpl.Code,
		Name:              tmpl.Name,
		Kind:              tmpl.Kind,
		RatingScale:       tmpl.RatingScale,
		Sections:          tmpl.Sections,
		CalculationMethod: tmpl.CalculationMethod,
		DisputeWindowDays: tmpl.DisputeWindowDays,
	}); err != nil {
		return Template{}, err
	}

	tmpl.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, tenantID, tmpl); err != nil {
		return Template{}, err
	}
	return tmpl, nil
}

// Deactivate is the preferred removal path; the template stays referencable
// by existing cycles.
func (s *Service) Deactivate(ctx context.Context, tenantID, actorID, templateID string) (Template, error) {
	inactive := false
	return s.Update(ctx, tenantID, actorID, templateID, UpdateInput{IsActive: &inactive})
}

func (s *Service) Delete(ctx context.Context, tenantID, templateID string) error {
	return s.store.Delete(ctx, tenantID, templateID)
}

func (s *Service) Get(ctx context.Context, tenantID, templateID string) (Template, error) {
	return s.store.Get(ctx, tenantID, templateID)
}

func (s *Service) List(ctx context.Context, tenantID string, activeOnly bool) ([]Template, error) {
	return s.store.List(ctx, tenantID, activeOnly)
}
