package templatehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/template"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

type Handler struct {
	Service *template.Service
	Audit   *audit.Service
}

func NewHandler(service *template.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appraisal/templates", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermTemplatesRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermTemplatesRead)).Get("/{templateID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermTemplatesWrite)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermTemplatesWrite)).Put("/{templateID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermTemplatesWrite)).Post("/{templateID}/deactivate", h.handleDeactivate)
		r.With(middleware.RequirePermission(auth.PermTemplatesWrite)).Delete("/{templateID}", h.handleDelete)
	})
}

type templatePayload struct {
	Code                    string               `json:"code"`
	Name                    string               `json:"name"`
	Kind                    string               `json:"kind"`
	RatingScale             template.RatingScale `json:"ratingScale"`
	Sections                []template.Section   `json:"sections"`
	CalculationMethod       string               `json:"calculationMethod"`
	RequiresSelfAssessment  bool                 `json:"requiresSelfAssessment"`
	DisputeWindowDays       int                  `json:"disputeWindowDays"`
	ApplicableDepartmentIDs []string             `json:"applicableDepartmentIds"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	templates, err := h.Service.List(r.Context(), user.TenantID, activeOnly)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "template_list_failed", "failed to list templates", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, templates, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	tmpl, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "templateID"))
	if err != nil {
		h.fail(w, r, err, "template_get_failed", "failed to load template")
		return
	}
	api.Success(w, tmpl, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload templatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("code", payload.Code, "code is required")
	v.Required("name", payload.Name, "name is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	tmpl, err := h.Service.Create(r.Context(), user.TenantID, user.UserID, template.CreateInput{
		Code:                    payload.Code,
		Name:                    payload.Name,
		Kind:                    payload.Kind,
		RatingScale:             payload.RatingScale,
		Sections:                payload.Sections,
		CalculationMethod:       payload.CalculationMethod,
		RequiresSelfAssessment:  payload.RequiresSelfAssessment,
		DisputeWindowDays:       payload.DisputeWindowDays,
		ApplicableDepartmentIDs: payload.ApplicableDepartmentIDs,
	})
	if err != nil {
		h.fail(w, r, err, "template_create_failed", "failed to create template")
		return
	}

	h.audit(r, user, "appraisal.template.create", tmpl.ID, nil, tmpl)
	api.Created(w, tmpl, middleware.GetRequestID(r.Context()))
}

type templateUpdatePayload struct {
	Name                    *string               `json:"name"`
	Kind                    *string               `json:"kind"`
	RatingScale             *template.RatingScale `json:"ratingScale"`
	Sections                []template.Section    `json:"sections"`
	CalculationMethod       *string               `json:"calculationMethod"`
	RequiresSelfAssessment  *bool                 `json:"requiresSelfAssessment"`
	DisputeWindowDays       *int                  `json:"disputeWindowDays"`
	ApplicableDepartmentIDs []string              `json:"applicableDepartmentIds"`
	IsActive                *bool                 `json:"isActive"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload templateUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	templateID := chi.URLParam(r, "templateID")
	before, err := h.Service.Get(r.Context(), user.TenantID, templateID)
	if err != nil {
		h.fail(w, r, err, "template_get_failed", "failed to load template")
		return
	}

	tmpl, err := h.Service.Update(r.Context(), user.TenantID, user.UserID, templateID, template.UpdateInput{
		Name:                    payload.Name,
		Kind:                    payload.Kind,
		RatingScale:             payload.RatingScale,
		Sections:                payload.Sections,
		CalculationMethod:       payload.CalculationMethod,
		RequiresSelfAssessment:  payload.RequiresSelfAssessment,
		DisputeWindowDays:       payload.DisputeWindowDays,
		ApplicableDepartmentIDs: payload.ApplicableDepartmentIDs,
		IsActive:                payload.IsActive,
	})
	if err != nil {
		h.fail(w, r, err, "template_update_failed", "failed to update template")
		return
	}

	h.audit(r, user, "appraisal.template.update", tmpl.ID, before, tmpl)
	api.Success(w, tmpl, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	tmpl, err := h.Service.Deactivate(r.Context(), user.TenantID, user.UserID, chi.URLParam(r, "templateID"))
	if err != nil {
		h.fail(w, r, err, "template_deactivate_failed", "failed to deactivate template")
		return
	}

	h.audit(r, user, "appraisal.template.deactivate", tmpl.ID, nil, tmpl)
	api.Success(w, tmpl, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	templateID := chi.URLParam(r, "templateID")
	if err := h.Service.Delete(r.Context(), user.TenantID, templateID); err != nil {
		h.fail(w, r, err, "template_delete_failed", "failed to delete template")
		return
	}

	h.audit(r, user, "appraisal.template.delete", templateID, nil, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())

	var verr *template.ValidationError
	switch {
	case errors.As(err, &verr):
		issues := make([]shared.ValidationIssue, len(verr.Issues))
		for i, issue := range verr.Issues {
			issues[i] = shared.ValidationIssue{Field: issue.Field, Reason: issue.Reason}
		}
		shared.FailValidation(w, requestID, issues)
	case errors.Is(err, template.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "template_not_found", "template not found", requestID)
	case errors.Is(err, template.ErrInUse):
		api.Fail(w, http.StatusConflict, "template_in_use", "template is referenced by a cycle", requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func (h *Handler) audit(r *http.Request, user auth.UserContext, action, entityID string, before, after any) {
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "appraisal_template", entityID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
