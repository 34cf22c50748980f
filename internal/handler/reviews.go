package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
)

var reviewListFilters = listFilters{ids: []string{"employee", "reviewer", "department"}, texts: []string{"stage"}}

func (h *Handler) GetAllReviews(w http.ResponseWriter, r *http.Request) {
	p, err := h.readListParams(r, reviewListFilters)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	scope := policy.ListScope(principalFrom(r), policy.ResourceReview)
	page, err := h.repository.ListReviews(r.Context(), scope, p)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "performance reviews retrieved", page)
}

// CreateReview opens a review about an employee. Reviews always start in pending_review.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID int64        `json:"employee" validate:"required,gt=0"`
		ReviewerID *int64       `json:"reviewer" validate:"omitnil,gt=0"`
		ReviewDate *domain.Date `json:"reviewDate"`
		Rating     *int         `json:"rating" validate:"omitnil,min=1,max=5"`
		Feedback   string       `json:"feedback" validate:"max=5000"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	subject, err := h.repository.GetEmployeeByID(r.Context(), req.EmployeeID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.badRequest(w, r, domain.NewFieldError("employee", "employee does not exist"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	review := &domain.PerformanceReview{
		EmployeeID:   subject.ID,
		EmployeeName: subject.Name,
		DepartmentID: subject.DepartmentID,
		ReviewerID:   req.ReviewerID,
		ReviewDate:   req.ReviewDate,
		Rating:       req.Rating,
		Feedback:     req.Feedback,
	}

	if !policy.CanCreate(principalFrom(r), policy.ResourceReview, reviewTarget(review)) {
		h.forbidden(w, r)
		return
	}

	if err := h.repository.CreateReview(r.Context(), review); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.createdResponse(w, r, "performance review created", review)
}

func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	review := r.Context().Value(ReviewCtx).(*domain.PerformanceReview)
	h.successResponse(w, r, "performance review retrieved", review)
}

// writeCheck re-evaluates the write rule against the locked row.
func writeCheck(p *policy.Principal) func(pr *domain.PerformanceReview) error {
	return func(pr *domain.PerformanceReview) error {
		if !policy.Can(p, policy.ActionWrite, policy.ResourceReview, reviewTarget(pr)) {
			return domain.ErrForbidden
		}
		return nil
	}
}

// UpdateReview edits a review. A stage in the body goes through the transition table like
// the transition endpoint does.
func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	review := r.Context().Value(ReviewCtx).(*domain.PerformanceReview)
	if !h.authorize(w, r, policy.ActionWrite, policy.ResourceReview, reviewTarget(review)) {
		return
	}

	var req struct {
		ReviewerID *int64        `json:"reviewer" validate:"omitnil,gt=0"`
		Stage      *domain.Stage `json:"stage"`
		ReviewDate *domain.Date  `json:"reviewDate"`
		Rating     *int          `json:"rating" validate:"omitnil,min=1,max=5"`
		Feedback   *string       `json:"feedback" validate:"omitnil,max=5000"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.Stage != nil && !req.Stage.Valid() {
		h.badRequest(w, r, domain.NewFieldError("stage", "unknown stage"))
		return
	}

	check := writeCheck(principalFrom(r))
	var from domain.Stage
	updated, err := h.repository.UpdateReview(r.Context(), review.ID, func(pr *domain.PerformanceReview) error {
		if err := check(pr); err != nil {
			return err
		}
		from = pr.Stage

		if req.ReviewerID != nil {
			pr.ReviewerID = req.ReviewerID
		}
		if req.ReviewDate != nil {
			pr.ReviewDate = req.ReviewDate
		}
		if req.Rating != nil {
			pr.Rating = req.Rating
		}
		if req.Feedback != nil {
			pr.Feedback = *req.Feedback
		}
		if req.Stage != nil && *req.Stage != pr.Stage {
			return pr.AttemptTransition(*req.Stage)
		}
		return nil
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if updated.Stage != from {
		h.notifyStageChanged(r.Context(), updated, from)
	}

	h.successResponse(w, r, "performance review updated", updated)
}

// TransitionReview moves a review to the requested stage, answering 400 with the allowed
// stages when the table forbids it.
func (h *Handler) TransitionReview(w http.ResponseWriter, r *http.Request) {
	review := r.Context().Value(ReviewCtx).(*domain.PerformanceReview)
	if !h.authorize(w, r, policy.ActionWrite, policy.ResourceReview, reviewTarget(review)) {
		return
	}

	var req struct {
		Stage domain.Stage `json:"stage" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if !req.Stage.Valid() {
		h.badRequest(w, r, domain.NewFieldError("stage", "unknown stage"))
		return
	}

	check := writeCheck(principalFrom(r))
	var from domain.Stage
	updated, err := h.repository.TransitionReview(r.Context(), review.ID, req.Stage, func(pr *domain.PerformanceReview) error {
		from = pr.Stage
		return check(pr)
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.notifyStageChanged(r.Context(), updated, from)

	h.successResponse(w, r, "performance review stage updated", updated)
}

func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	review := r.Context().Value(ReviewCtx).(*domain.PerformanceReview)
	if !h.authorize(w, r, policy.ActionWrite, policy.ResourceReview, reviewTarget(review)) {
		return
	}

	if err := h.repository.DeleteReview(r.Context(), review.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "performance review deleted", nil)
}

// notifyStageChanged mails the review subject about a committed stage change. Failures are
// logged only; the change itself already succeeded.
func (h *Handler) notifyStageChanged(ctx context.Context, pr *domain.PerformanceReview, from domain.Stage) {
	subject, err := h.repository.GetEmployeeByID(ctx, pr.EmployeeID)
	if err != nil {
		slog.Warn("failed to load review subject for notification", "review", pr.ID, "error", err)
		return
	}

	if err := h.publisher.Publish(ctx, domain.MailMessage{
		Type: domain.MailReviewStageChanged,
		To:   subject.Email,
		Data: domain.ReviewStageChangedMailData{
			EmployeeName: subject.Name,
			ReviewID:     pr.ID,
			From:         from,
			To:           pr.Stage,
		},
	}); err != nil {
		slog.Warn("failed to queue review stage notification", "review", pr.ID, "error", err)
	}
}
