package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
)

var departmentListFilters = listFilters{ids: []string{"company"}, texts: []string{"name"}}

func (h *Handler) GetAllDepartments(w http.ResponseWriter, r *http.Request) {
	p, err := h.readListParams(r, departmentListFilters)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	scope := policy.ListScope(principalFrom(r), policy.ResourceDepartment)
	page, err := h.repository.ListDepartments(r.Context(), scope, p)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "departments retrieved", page)
}

// CreateDepartment adds a department to an existing company. Creation is gated at
// collection level only, there is no department yet to scope a manager to.
func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID int64  `json:"company" validate:"required,gt=0"`
		Name      string `json:"name" validate:"required,max=255"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	company, err := h.repository.GetCompanyByID(r.Context(), req.CompanyID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.badRequest(w, r, domain.NewFieldError("company", "company does not exist"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	department := &domain.Department{CompanyID: company.ID, CompanyName: company.Name, Name: req.Name}
	if err := h.repository.CreateDepartment(r.Context(), department); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.createdResponse(w, r, "department created", department)
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	department := r.Context().Value(DepartmentCtx).(*domain.Department)
	h.successResponse(w, r, "department retrieved", department)
}

// UpdateDepartment renames a department. Moving a department to another company is not
// supported.
func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	department := r.Context().Value(DepartmentCtx).(*domain.Department)
	if !h.authorize(w, r, policy.ActionWrite, policy.ResourceDepartment, departmentTarget(department)) {
		return
	}

	var req struct {
		Name *string `json:"name" validate:"omitnil,min=1,max=255"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Name != nil {
		department.Name = *req.Name
	}

	if err := h.repository.UpdateDepartment(r.Context(), department); err != nil {
		h.handleError(w, r, staleAsConflict(err))
		return
	}

	h.successResponse(w, r, "department updated", department)
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	department := r.Context().Value(DepartmentCtx).(*domain.Department)
	if !h.authorize(w, r, policy.ActionWrite, policy.ResourceDepartment, departmentTarget(department)) {
		return
	}

	if err := h.repository.DeleteDepartment(r.Context(), department.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "department deleted", nil)
}
