package cyclehandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/cycle"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/domain/template"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
	"appraisal/internal/transport/http/shared"
)

type Handler struct {
	Service   *cycle.Service
	Directory *directory.Store
	Notify    *notifications.Service
	Audit     *audit.Service
}

func NewHandler(service *cycle.Service, dir *directory.Store, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Directory: dir, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appraisal/cycles", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCyclesRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermCyclesRead)).Get("/{cycleID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermCyclesWrite)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermCyclesWrite)).Put("/{cycleID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermCyclesManage)).Post("/{cycleID}/activate", h.handleActivate)
		r.With(middleware.RequirePermission(auth.PermCyclesManage)).Post("/{cycleID}/publish", h.handlePublish)
		r.With(middleware.RequirePermission(auth.PermCyclesManage)).Post("/{cycleID}/close", h.handleClose)
		r.With(middleware.RequirePermission(auth.PermCyclesManage)).Post("/{cycleID}/cancel", h.handleCancel)
		r.With(middleware.RequirePermission(auth.PermCyclesManage)).Post("/{cycleID}/archive", h.handleArchive)
		r.With(middleware.RequirePermission(auth.PermCyclesRead)).Get("/{cycleID}/progress", h.handleProgress)
		r.With(middleware.RequirePermission(auth.PermCyclesRead)).Get("/{cycleID}/assignments", h.handleListAssignments)
	})
	r.Route("/appraisal/assignments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCyclesRead)).Get("/mine", h.handleMyAssignments)
		r.With(middleware.RequirePermission(auth.PermCyclesRead)).Get("/reviewing", h.handleReviewerAssignments)
	})
}

type timelinePayload struct {
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	SelfAssessmentDue string `json:"selfAssessmentDue"`
	ManagerReviewDue  string `json:"managerReviewDue"`
	HRReviewDue       string `json:"hrReviewDue"`
	DisputeDeadline   string `json:"disputeDeadline"`
}

type cyclePayload struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Kind       string          `json:"kind"`
	TemplateID string          `json:"templateId"`
	Timeline   timelinePayload `json:"timeline"`
	Scope      cycle.Scope     `json:"scope"`
}

func (p timelinePayload) parse(v *shared.Validator) cycle.Timeline {
	var tl cycle.Timeline
	if start, ok := v.Date("timeline.startDate", p.StartDate); ok {
		tl.StartDate = start
	}
	if end, ok := v.Date("timeline.endDate", p.EndDate); ok {
		tl.EndDate = end
	}
	v.DateOrder("timeline.startDate", tl.StartDate, "timeline.endDate", tl.EndDate)
	if due, ok := v.Date("timeline.managerReviewDue", p.ManagerReviewDue); ok {
		tl.ManagerReviewDue = due
	}
	tl.SelfAssessmentDue = optionalDate(v, "timeline.selfAssessmentDue", p.SelfAssessmentDue)
	tl.HRReviewDue = optionalDate(v, "timeline.hrReviewDue", p.HRReviewDue)
	tl.DisputeDeadline = optionalDate(v, "timeline.disputeDeadline", p.DisputeDeadline)
	return tl
}

func optionalDate(v *shared.Validator, field, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, ok := v.Date(field, raw)
	if !ok {
		return nil
	}
	return &parsed
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	cycles, err := h.Service.List(r.Context(), user.TenantID, cycle.Status(r.URL.Query().Get("status")), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "cycle_list_failed", "failed to list cycles", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, cycles, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	cyc, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "cycleID"))
	if err != nil {
		h.fail(w, r, err, "cycle_get_failed", "failed to load cycle")
		return
	}
	api.Success(w, cyc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload cyclePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("code", payload.Code, "code is required")
	v.Required("name", payload.Name, "name is required")
	v.Required("templateId", payload.TemplateID, "templateId is required")
	timeline := payload.Timeline.parse(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	cyc, err := h.Service.Create(r.Context(), user.TenantID, user.UserID, cycle.CreateInput{
		Code:       payload.Code,
		Name:       payload.Name,
		Kind:       payload.Kind,
		TemplateID: payload.TemplateID,
		Timeline:   timeline,
		Scope:      payload.Scope,
	})
	if err != nil {
		h.fail(w, r, err, "cycle_create_failed", "failed to create cycle")
		return
	}

	h.audit(r, user, "appraisal.cycle.create", cyc.ID, nil, cyc)
	api.Created(w, cyc, middleware.GetRequestID(r.Context()))
}

type cycleUpdatePayload struct {
	Name       *string          `json:"name"`
	Kind       *string          `json:"kind"`
	TemplateID *string          `json:"templateId"`
	Timeline   *timelinePayload `json:"timeline"`
	Scope      *cycle.Scope     `json:"scope"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload cycleUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	input := cycle.UpdateInput{
		Name:       payload.Name,
		Kind:       payload.Kind,
		TemplateID: payload.TemplateID,
		Scope:      payload.Scope,
	}
	if payload.Timeline != nil {
		v := shared.NewValidator()
		timeline := payload.Timeline.parse(v)
		if v.Reject(w, middleware.GetRequestID(r.Context())) {
			return
		}
		input.Timeline = &timeline
	}

	cycleID := chi.URLParam(r, "cycleID")
	before, err := h.Service.Get(r.Context(), user.TenantID, cycleID)
	if err != nil {
		h.fail(w, r, err, "cycle_get_failed", "failed to load cycle")
		return
	}

	cyc, err := h.Service.Update(r.Context(), user.TenantID, user.UserID, cycleID, input)
	if err != nil {
		h.fail(w, r, err, "cycle_update_failed", "failed to update cycle")
		return
	}

	h.audit(r, user, "appraisal.cycle.update", cyc.ID, before, cyc)
	api.Success(w, cyc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	cyc, assignments, err := h.Service.Activate(r.Context(), user.TenantID, user.UserID, chi.URLParam(r, "cycleID"))
	if err != nil {
		h.fail(w, r, err, "cycle_activate_failed", "failed to activate cycle")
		return
	}

	h.audit(r, user, "appraisal.cycle.activate", cyc.ID, nil, map[string]any{"status": cyc.Status, "assignments": len(assignments)})
	h.notifyAssignees(r, user.TenantID, cyc, assignments)

	api.Success(w, map[string]any{"cycle": cyc, "assignments": assignments}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	cyc, err := h.Service.Publish(r.Context(), user.TenantID, user.UserID, chi.URLParam(r, "cycleID"))
	if err != nil {
		h.fail(w, r, err, "cycle_publish_failed", "failed to publish cycle")
		return
	}

	h.audit(r, user, "appraisal.cycle.publish", cyc.ID, nil, map[string]any{"status": cyc.Status, "resultsPublished": true})

	assignments, err := h.Service.ListAssignments(r.Context(), user.TenantID, cyc.ID)
	if err == nil {
		for _, asg := range assignments {
			h.notifyEmployee(r, user.TenantID, asg.EmployeeID, notifications.TypeResultsPublished,
				"Appraisal results published",
				"Your results for "+cyc.Name+" are available.")
		}
	}

	api.Success(w, cyc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "appraisal.cycle.close", "cycle_close_failed", "failed to close cycle", h.Service.Close)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "appraisal.cycle.cancel", "cycle_cancel_failed", "failed to cancel cycle", h.Service.Cancel)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "appraisal.cycle.archive", "cycle_archive_failed", "failed to archive cycle", h.Service.Archive)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action, code, message string,
	op func(ctx context.Context, tenantID, actorID, cycleID string) (cycle.Cycle, error)) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	cyc, err := op(r.Context(), user.TenantID, user.UserID, chi.URLParam(r, "cycleID"))
	if err != nil {
		h.fail(w, r, err, code, message)
		return
	}

	h.audit(r, user, action, cyc.ID, nil, map[string]any{"status": cyc.Status})
	api.Success(w, cyc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	progress, err := h.Service.Progress(r.Context(), user.TenantID, chi.URLParam(r, "cycleID"))
	if err != nil {
		h.fail(w, r, err, "cycle_progress_failed", "failed to compute progress")
		return
	}
	api.Success(w, progress, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	assignments, err := h.Service.ListAssignments(r.Context(), user.TenantID, chi.URLParam(r, "cycleID"))
	if err != nil {
		h.fail(w, r, err, "assignment_list_failed", "failed to list assignments")
		return
	}
	api.Success(w, assignments, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMyAssignments(w http.ResponseWriter, r *http.Request) {
	h.listByActor(w, r, h.Service.ListAssignmentsByEmployee)
}

func (h *Handler) handleReviewerAssignments(w http.ResponseWriter, r *http.Request) {
	h.listByActor(w, r, h.Service.ListAssignmentsByReviewer)
}

func (h *Handler) listByActor(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, tenantID, employeeID string) ([]cycle.Assignment, error)) {
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

	assignments, err := list(r.Context(), user.TenantID, emp.ID)
	if err != nil {
		h.fail(w, r, err, "assignment_list_failed", "failed to list assignments")
		return
	}
	api.Success(w, assignments, middleware.GetRequestID(r.Context()))
}

func (h *Handler) notifyAssignees(r *http.Request, tenantID string, cyc cycle.Cycle, assignments []cycle.Assignment) {
	for _, asg := range assignments {
		h.notifyEmployee(r, tenantID, asg.EmployeeID, notifications.TypeCycleActivated,
			"Appraisal cycle started", "You are part of "+cyc.Name+".")
		if asg.SelfAssessmentRequired {
			h.notifyEmployee(r, tenantID, asg.EmployeeID, notifications.TypeSelfAssessmentDue,
				"Self-assessment required", "Complete your self-assessment for "+cyc.Name+".")
		}
	}
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
	case errors.Is(err, cycle.ErrNotFound), errors.Is(err, cycle.ErrAssignmentNotFound):
		api.Fail(w, http.StatusNotFound, "cycle_not_found", err.Error(), requestID)
	case errors.Is(err, template.ErrNotFound):
		api.Fail(w, http.StatusBadRequest, "template_not_found", err.Error(), requestID)
	case errors.Is(err, cycle.ErrInvalidTimeline), errors.Is(err, cycle.ErrEmptyScope):
		api.Fail(w, http.StatusBadRequest, "invalid_cycle", err.Error(), requestID)
	case errors.Is(err, cycle.ErrInvalidState):
		api.Fail(w, http.StatusBadRequest, "invalid_state", err.Error(), requestID)
	case errors.Is(err, cycle.ErrStaleVersion):
		api.Fail(w, http.StatusConflict, "stale_version", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func (h *Handler) audit(r *http.Request, user auth.UserContext, action, entityID string, before, after any) {
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "appraisal_cycle", entityID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
