package disputehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/dispute"
	"appraisal/internal/domain/evaluation"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

type Handler struct {
	Service     *dispute.Service
	Evaluations *evaluation.Service
	Directory   *directory.Store
	Notify      *notifications.Service
	Audit       *audit.Service
}

func NewHandler(service *dispute.Service, evaluations *evaluation.Service, dir *directory.Store, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Evaluations: evaluations, Directory: dir, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appraisal/disputes", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermDisputesWrite)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermDisputesRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermDisputesWrite)).Get("/mine", h.handleMine)
		r.With(middleware.RequirePermission(auth.PermDisputesRead)).Get("/{disputeID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermDisputesResolve)).Post("/{disputeID}/review", h.handleReview)
		r.With(middleware.RequirePermission(auth.PermDisputesResolve)).Post("/{disputeID}/resolve", h.handleResolve)
		r.With(middleware.RequirePermission(auth.PermDisputesWrite)).Post("/{disputeID}/withdraw", h.handleWithdraw)
		r.With(middleware.RequirePermission(auth.PermDisputesWrite)).Post("/{disputeID}/escalate", h.handleEscalate)
	})
}

type createPayload struct {
	EvaluationID         string   `json:"evaluationId"`
	Reason               string   `json:"reason"`
	DisputedSectionIDs   []string `json:"disputedSectionIds"`
	DisputedCriterionIDs []string `json:"disputedCriterionIds"`
	ProposedRating       *float64 `json:"proposedRating"`
	SupportingDocuments  []string `json:"supportingDocuments"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
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

	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("evaluationId", payload.EvaluationID, "evaluationId is required")
	v.Required("reason", payload.Reason, "reason is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	dsp, err := h.Service.Create(r.Context(), user.TenantID, emp.ID, dispute.CreateInput{
		EvaluationID:         payload.EvaluationID,
		Reason:               payload.Reason,
		DisputedSectionIDs:   payload.DisputedSectionIDs,
		DisputedCriterionIDs: payload.DisputedCriterionIDs,
		ProposedRating:       payload.ProposedRating,
		SupportingDocuments:  payload.SupportingDocuments,
	})
	if err != nil {
		h.fail(w, r, err, "dispute_create_failed", "failed to submit dispute")
		return
	}

	h.audit(r, user, "appraisal.dispute.create", dsp.ID, nil, map[string]any{"evaluationId": dsp.EvaluationID, "status": dsp.Status})
	if eval, err := h.Evaluations.Get(r.Context(), user.TenantID, dsp.EvaluationID); err == nil {
		h.notifyEmployee(r, user.TenantID, eval.ReviewerID, notifications.TypeDisputeSubmitted,
			"Evaluation disputed", "An evaluation you reviewed has been disputed.")
	}
	api.Created(w, dsp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	disputes, err := h.Service.List(r.Context(), user.TenantID, dispute.Status(r.URL.Query().Get("status")))
	if err != nil {
		h.fail(w, r, err, "dispute_list_failed", "failed to list disputes")
		return
	}
	api.Success(w, disputes, middleware.GetRequestID(r.Context()))
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

	disputes, err := h.Service.ListByEmployee(r.Context(), user.TenantID, emp.ID)
	if err != nil {
		h.fail(w, r, err, "dispute_list_failed", "failed to list disputes")
		return
	}
	api.Success(w, disputes, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	dsp, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "disputeID"))
	if err != nil {
		h.fail(w, r, err, "dispute_get_failed", "failed to load dispute")
		return
	}
	if user.RoleName == auth.RoleEmployee {
		emp, err := h.Directory.EmployeeByUserID(r.Context(), user.TenantID, user.UserID)
		if err != nil || emp.ID != dsp.EmployeeID {
			api.Fail(w, http.StatusForbidden, "forbidden", "not your dispute", middleware.GetRequestID(r.Context()))
			return
		}
	}
	api.Success(w, dsp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	dsp, err := h.Service.Review(r.Context(), user.TenantID, user.UserID, chi.URLParam(r, "disputeID"))
	if err != nil {
		h.fail(w, r, err, "dispute_review_failed", "failed to start dispute review")
		return
	}

	h.audit(r, user, "appraisal.dispute.review", dsp.ID, nil, map[string]any{"status": dsp.Status})
	api.Success(w, dsp, middleware.GetRequestID(r.Context()))
}

type resolvePayload struct {
	Accept         bool     `json:"accept"`
	ResolutionType string   `json:"resolutionType"`
	AdjustedRating *float64 `json:"adjustedRating"`
	Notes          string   `json:"notes"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload resolvePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	dsp, err := h.Service.Resolve(r.Context(), user.TenantID, user.UserID, chi.URLParam(r, "disputeID"), dispute.ResolveInput{
		Accept:         payload.Accept,
		ResolutionType: dispute.ResolutionType(payload.ResolutionType),
		AdjustedRating: payload.AdjustedRating,
		Notes:          payload.Notes,
	})
	if err != nil {
		h.fail(w, r, err, "dispute_resolve_failed", "failed to resolve dispute")
		return
	}

	h.audit(r, user, "appraisal.dispute.resolve", dsp.ID, nil, map[string]any{
		"status": dsp.Status, "resolutionType": payload.ResolutionType, "adjustedRating": payload.AdjustedRating,
	})
	h.notifyEmployee(r, user.TenantID, dsp.EmployeeID, notifications.TypeDisputeResolved,
		"Dispute resolved", "Your appraisal dispute has been resolved.")
	api.Success(w, dsp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
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

	dsp, err := h.Service.Withdraw(r.Context(), user.TenantID, emp.ID, chi.URLParam(r, "disputeID"))
	if err != nil {
		h.fail(w, r, err, "dispute_withdraw_failed", "failed to withdraw dispute")
		return
	}

	h.audit(r, user, "appraisal.dispute.withdraw", dsp.ID, nil, map[string]any{"status": dsp.Status})
	api.Success(w, dsp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEscalate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	dsp, err := h.Service.Escalate(r.Context(), user.TenantID, user.UserID, chi.URLParam(r, "disputeID"), payload.Reason)
	if err != nil {
		h.fail(w, r, err, "dispute_escalate_failed", "failed to escalate dispute")
		return
	}

	h.audit(r, user, "appraisal.dispute.escalate", dsp.ID, nil, map[string]any{"escalated": dsp.Escalated})
	api.Success(w, dsp, middleware.GetRequestID(r.Context()))
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

	switch {
	case errors.Is(err, dispute.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "dispute_not_found", "dispute not found", requestID)
	case errors.Is(err, evaluation.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "evaluation_not_found", "evaluation not found", requestID)
	case errors.Is(err, dispute.ErrNotOwner):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, dispute.ErrDuplicateActive):
		api.Fail(w, http.StatusConflict, "dispute_conflict", "an active dispute already exists for this evaluation", requestID)
	case errors.Is(err, dispute.ErrNotDisputable), errors.Is(err, dispute.ErrDeadlinePassed), errors.Is(err, dispute.ErrInvalidState):
		api.Fail(w, http.StatusBadRequest, "invalid_dispute", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrStaleVersion):
		api.Fail(w, http.StatusConflict, "stale_version", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func (h *Handler) audit(r *http.Request, user auth.UserContext, action, entityID string, before, after any) {
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "dispute", entityID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
