package evaluationhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/cycle"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

type Handler struct {
	Service   *evaluation.Service
	Cycles    *cycle.Service
	Directory *directory.Store
	Reports   *evaluation.ReportGenerator
	Notify    *notifications.Service
	Audit     *audit.Service
}

func NewHandler(service *evaluation.Service, cycles *cycle.Service, dir *directory.Store, reports *evaluation.ReportGenerator, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Cycles: cycles, Directory: dir, Reports: reports, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appraisal/cycles/{cycleID}/employees/{employeeID}", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEvaluationsWrite)).Post("/self-assessment", h.handleSelfAssessment)
		r.With(middleware.RequirePermission(auth.PermEvaluationsWrite)).Put("/evaluation", h.handleCreateOrUpdate)
		r.With(middleware.RequirePermission(auth.PermEvaluationsWrite)).Post("/evaluation", h.handleCreateOrUpdate)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead)).Get("/evaluation", h.handleGetByCycleEmployee)
	})
	r.Route("/appraisal/evaluations", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead)).Get("/mine", h.handleMine)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead)).Get("/{evaluationID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead)).Get("/{evaluationID}/report", h.handleReport)
		r.With(middleware.RequirePermission(auth.PermEvaluationsWrite)).Post("/{evaluationID}/acknowledge", h.handleAcknowledge)
		r.With(middleware.RequirePermission(auth.PermHRReview)).Post("/{evaluationID}/hr-review", h.handleHRReview)
	})
}

type selfAssessmentPayload struct {
	Sections        []evaluation.SectionRatings `json:"sections"`
	Accomplishments string                      `json:"accomplishments"`
	Strengths       string                      `json:"strengths"`
	AreasToImprove  string                      `json:"areasToImprove"`
}

func (h *Handler) handleSelfAssessment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Directory.EmployeeByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil || emp.ID != chi.URLParam(r, "employeeID") {
		api.Fail(w, http.StatusForbidden, "forbidden", "self-assessments can only be submitted for yourself", middleware.GetRequestID(r.Context()))
		return
	}

	var payload selfAssessmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	eval, err := h.Service.SubmitSelfAssessment(r.Context(), user.TenantID, emp.ID, chi.URLParam(r, "cycleID"), evaluation.SelfAssessmentInput{
		Sections:        payload.Sections,
		Accomplishments: payload.Accomplishments,
		Strengths:       payload.Strengths,
		AreasToImprove:  payload.AreasToImprove,
	})
	if err != nil {
		h.fail(w, r, err, "self_assessment_failed", "failed to submit self-assessment")
		return
	}

	h.audit(r, user, "appraisal.evaluation.self_assessment", eval.ID, nil, map[string]any{"status": eval.Status})
	h.notifyEmployee(r, user.TenantID, eval.ReviewerID, notifications.TypeEvaluationSubmitted,
		"Self-assessment submitted", "A self-assessment is ready for your review.")
	api.Success(w, eval, middleware.GetRequestID(r.Context()))
}

type managerPayload struct {
	Sections                []evaluation.SectionRatings `json:"sections"`
	Narrative               string                      `json:"narrative"`
	Strengths               string                      `json:"strengths"`
	AreasForDevelopment     string                      `json:"areasForDevelopment"`
	TrainingRecommendations string                      `json:"trainingRecommendations"`
	AttendanceRating        *float64                    `json:"attendanceRating"`
	PunctualityRating       *float64                    `json:"punctualityRating"`
}

func (h *Handler) handleCreateOrUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	// HR may submit on behalf of any reviewer and needs no employee record;
	// managers are pinned to their own assignment.
	reviewerID := ""
	if !auth.HasPermission(user.RoleName, auth.PermHRReview) {
		emp, err := h.Directory.EmployeeByUserID(r.Context(), user.TenantID, user.UserID)
		if err != nil {
			api.Fail(w, http.StatusNotFound, "employee_not_found", "no employee record for this user", middleware.GetRequestID(r.Context()))
			return
		}
		reviewerID = emp.ID
	}

	var payload managerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	eval, err := h.Service.CreateOrUpdate(r.Context(), user.TenantID, reviewerID, chi.URLParam(r, "cycleID"), chi.URLParam(r, "employeeID"), evaluation.ManagerInput{
		Sections:                payload.Sections,
		Narrative:               payload.Narrative,
		Strengths:               payload.Strengths,
		AreasForDevelopment:     payload.AreasForDevelopment,
		TrainingRecommendations: payload.TrainingRecommendations,
		AttendanceRating:        payload.AttendanceRating,
		PunctualityRating:       payload.PunctualityRating,
	})
	if err != nil {
		h.fail(w, r, err, "evaluation_submit_failed", "failed to submit evaluation")
		return
	}

	h.audit(r, user, "appraisal.evaluation.submit", eval.ID, nil, map[string]any{
		"status": eval.Status, "finalRating": eval.FinalRating, "category": eval.Category,
	})
	api.Success(w, eval, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetByCycleEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	eval, err := h.Service.FindByCycleEmployee(r.Context(), user.TenantID, chi.URLParam(r, "cycleID"), chi.URLParam(r, "employeeID"))
	if err != nil {
		h.fail(w, r, err, "evaluation_get_failed", "failed to load evaluation")
		return
	}
	if !h.canView(r, user, eval) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your evaluation", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, eval, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	eval, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		h.fail(w, r, err, "evaluation_get_failed", "failed to load evaluation")
		return
	}
	if !h.canView(r, user, eval) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your evaluation", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, eval, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Directory.EmployeeByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "employee_not_found", "no employee record for this user", middleware.GetRequestID(r.Context()))
		return
	}

	evaluations, err := h.Service.ListByEmployee(r.Context(), user.TenantID, emp.ID)
	if err != nil {
		h.fail(w, r, err, "evaluation_list_failed", "failed to list evaluations")
		return
	}
	api.Success(w, evaluations, middleware.GetRequestID(r.Context()))
}

type acknowledgePayload struct {
	Comment string `json:"comment"`
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Directory.EmployeeByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "employee_not_found", "no employee record for this user", middleware.GetRequestID(r.Context()))
		return
	}

	var payload acknowledgePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	eval, err := h.Service.Acknowledge(r.Context(), user.TenantID, emp.ID, chi.URLParam(r, "evaluationID"), payload.Comment)
	if err != nil {
		h.fail(w, r, err, "evaluation_acknowledge_failed", "failed to acknowledge evaluation")
		return
	}

	h.audit(r, user, "appraisal.evaluation.acknowledge", eval.ID, nil, map[string]any{"status": eval.Status})
	api.Success(w, eval, middleware.GetRequestID(r.Context()))
}

type hrReviewPayload struct {
	Comments         string   `json:"comments"`
	AdjustedRating   *float64 `json:"adjustedRating"`
	AdjustmentReason string   `json:"adjustmentReason"`
}

func (h *Handler) handleHRReview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload hrReviewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	eval, err := h.Service.AddHRReview(r.Context(), user.TenantID, user.UserID, chi.URLParam(r, "evaluationID"), evaluation.HRReviewInput{
		Comments:         payload.Comments,
		AdjustedRating:   payload.AdjustedRating,
		AdjustmentReason: payload.AdjustmentReason,
	})
	if err != nil {
		h.fail(w, r, err, "hr_review_failed", "failed to record hr review")
		return
	}

	h.audit(r, user, "appraisal.evaluation.hr_review", eval.ID, nil, map[string]any{
		"status": eval.Status, "finalRating": eval.FinalRating, "category": eval.Category,
	})
	api.Success(w, eval, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	eval, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		h.fail(w, r, err, "evaluation_get_failed", "failed to load evaluation")
		return
	}
	if !h.canView(r, user, eval) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your evaluation", middleware.GetRequestID(r.Context()))
		return
	}

	employee, err := h.Directory.GetEmployee(r.Context(), user.TenantID, eval.EmployeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render report", middleware.GetRequestID(r.Context()))
		return
	}
	reviewer, _ := h.Directory.GetEmployee(r.Context(), user.TenantID, eval.ReviewerID)

	cycleName := eval.CycleID
	if cyc, err := h.Cycles.Get(r.Context(), user.TenantID, eval.CycleID); err == nil {
		cycleName = cyc.Name
	}

	path, err := h.Reports.Generate(eval,
		employee.FirstName+" "+employee.LastName,
		reviewer.FirstName+" "+reviewer.LastName,
		cycleName)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render report", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="evaluation-`+eval.ID+`.pdf"`)
	http.ServeFile(w, r, path)
}

// canView narrows read access for plain employees to their own evaluation;
// managers and HR see everything their permissions already allow.
func (h *Handler) canView(r *http.Request, user auth.UserContext, eval evaluation.Evaluation) bool {
	if user.RoleName != auth.RoleEmployee {
		return true
	}
	emp, err := h.Directory.EmployeeByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		return false
	}
	return emp.ID == eval.EmployeeID || emp.ID == eval.ReviewerID
}

func (h *Handler) notifyEmployee(r *http.Request, tenantID, employeeID, ntype, title, body string) {
	userID, err := h.Directory.EmployeeUserID(r.Context(), tenantID, employeeID)
	if err != nil || userID == "" {
		return
	}
	if err := h.Notify.Notify(r.Context(), tenantID, userID, ntype, title, body); err != nil {
		slog.Warn("notification failed", "type", ntype, "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())

	var verr *evaluation.ValidationError
	switch {
	case errors.As(err, &verr):
		issues := make([]shared.ValidationIssue, len(verr.Issues))
		for i, issue := range verr.Issues {
			issues[i] = shared.ValidationIssue{Field: issue.Field, Reason: issue.Reason}
		}
		shared.FailValidation(w, requestID, issues)
	case errors.Is(err, evaluation.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "evaluation_not_found", "evaluation not found", requestID)
	case errors.Is(err, cycle.ErrNotFound), errors.Is(err, cycle.ErrAssignmentNotFound):
		api.Fail(w, http.StatusNotFound, "cycle_not_found", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrNotOwner), errors.Is(err, evaluation.ErrNotReviewer):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrInvalidState), errors.Is(err, cycle.ErrInvalidState):
		api.Fail(w, http.StatusBadRequest, "invalid_state", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrStaleVersion), errors.Is(err, cycle.ErrStaleVersion):
		api.Fail(w, http.StatusConflict, "stale_version", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func (h *Handler) audit(r *http.Request, user auth.UserContext, action, entityID string, before, after any) {
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "evaluation", entityID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
