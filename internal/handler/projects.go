package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/utils"
)

var projectListFilters = listFilters{ids: []string{"company", "department"}}

func (h *Handler) GetAllProjects(w http.ResponseWriter, r *http.Request) {
	p, err := h.readListParams(r, projectListFilters)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	scope := policy.ListScope(principalFrom(r), policy.ResourceProject)
	page, err := h.repository.ListProjects(r.Context(), scope, p)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "projects retrieved", page)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DepartmentID      int64       `json:"department" validate:"required,gt=0"`
		Name              string      `json:"name" validate:"required,max=255"`
		Description       string      `json:"description" validate:"max=5000"`
		StartDate         domain.Date `json:"startDate" validate:"required"`
		EndDate           domain.Date `json:"endDate" validate:"required"`
		AssignedEmployees []int64     `json:"assignedEmployees" validate:"omitempty,dive,gt=0"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateProjectDates(req.StartDate, req.EndDate); err != nil {
		h.badRequest(w, r, err)
		return
	}

	department, err := h.repository.GetDepartmentByID(r.Context(), req.DepartmentID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.badRequest(w, r, domain.NewFieldError("department", "department does not exist"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	project := &domain.Project{
		CompanyID:         department.CompanyID,
		CompanyName:       department.CompanyName,
		DepartmentID:      department.ID,
		DepartmentName:    department.Name,
		Name:              req.Name,
		Description:       req.Description,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		AssignedEmployees: req.AssignedEmployees,
	}

	principal := principalFrom(r)
	if !policy.CanCreate(principal, policy.ResourceProject, projectTarget(project)) {
		h.forbidden(w, r)
		return
	}
	if principal.Employee != nil {
		project.CreatedBy = &principal.Employee.ID
	}

	if err := h.repository.CreateProject(r.Context(), project); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.createdResponse(w, r, "project created", project)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project := r.Context().Value(ProjectCtx).(*domain.Project)
	h.successResponse(w, r, "project retrieved", project)
}

// UpdateProject edits a project; assignedEmployees, when present, replaces the whole set.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	project := r.Context().Value(ProjectCtx).(*domain.Project)
	if !h.authorize(w, r, policy.ActionWrite, policy.ResourceProject, projectTarget(project)) {
		return
	}

	var req struct {
		DepartmentID      *int64       `json:"department" validate:"omitnil,gt=0"`
		Name              *string      `json:"name" validate:"omitnil,min=1,max=255"`
		Description       *string      `json:"description" validate:"omitnil,max=5000"`
		StartDate         *domain.Date `json:"startDate"`
		EndDate           *domain.Date `json:"endDate"`
		AssignedEmployees *[]int64     `json:"assignedEmployees" validate:"omitnil,dive,gt=0"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated := *project

	if req.DepartmentID != nil && *req.DepartmentID != project.DepartmentID {
		department, err := h.repository.GetDepartmentByID(r.Context(), *req.DepartmentID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.badRequest(w, r, domain.NewFieldError("department", "department does not exist"))
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
		if department.CompanyID != project.CompanyID {
			h.badRequest(w, r, domain.NewFieldError("department", "department must belong to the project's company"))
			return
		}

		updated.DepartmentID = department.ID
		updated.DepartmentName = department.Name
		if !h.authorize(w, r, policy.ActionWrite, policy.ResourceProject, projectTarget(&updated)) {
			return
		}
	}
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.StartDate != nil {
		updated.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		updated.EndDate = *req.EndDate
	}
	if req.AssignedEmployees != nil {
		updated.AssignedEmployees = *req.AssignedEmployees
	}

	if err := utils.ValidateProjectDates(updated.StartDate, updated.EndDate); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.UpdateProject(r.Context(), &updated, req.AssignedEmployees != nil); err != nil {
		h.handleError(w, r, staleAsConflict(err))
		return
	}

	h.successResponse(w, r, "project updated", &updated)
}

func (h *Handler) ReplaceProjectAssignees(w http.ResponseWriter, r *http.Request) {
	project := r.Context().Value(ProjectCtx).(*domain.Project)
	if !h.authorize(w, r, policy.ActionWrite, policy.ResourceProject, projectTarget(project)) {
		return
	}

	var req struct {
		AssignedEmployees []int64 `json:"assignedEmployees" validate:"required,dive,gt=0"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated := *project
	updated.AssignedEmployees = req.AssignedEmployees

	if err := h.repository.UpdateProject(r.Context(), &updated, true); err != nil {
		h.handleError(w, r, staleAsConflict(err))
		return
	}

	h.successResponse(w, r, "project assignees updated", &updated)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	project := r.Context().Value(ProjectCtx).(*domain.Project)
	if !h.authorize(w, r, policy.ActionWrite, policy.ResourceProject, projectTarget(project)) {
		return
	}

	if err := h.repository.DeleteProject(r.Context(), project.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "project deleted", nil)
}
