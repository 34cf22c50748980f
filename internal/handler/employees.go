package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/repository"
)

var employeeListFilters = listFilters{ids: []string{"company", "department"}, texts: []string{"designation"}}

type employeeResponse struct {
	*domain.Employee
	DaysEmployed int `json:"daysEmployed"`
}

func newEmployeeResponse(e *domain.Employee) employeeResponse {
	return employeeResponse{Employee: e, DaysEmployed: e.DaysEmployed(time.Now())}
}

// departmentForEmployee loads a department referenced by an employee payload.
func (h *Handler) departmentForEmployee(r *http.Request, id int64) (*domain.Department, error) {
	department, err := h.repository.GetDepartmentByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewFieldError("department", "department does not exist")
		}
		return nil, err
	}
	return department, nil
}

func (h *Handler) GetAllEmployees(w http.ResponseWriter, r *http.Request) {
	p, err := h.readListParams(r, employeeListFilters)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	scope := policy.ListScope(principalFrom(r), policy.ResourceEmployee)
	page, err := h.repository.ListEmployees(r.Context(), scope, p)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	results := make([]employeeResponse, 0, len(page.Results))
	for _, e := range page.Results {
		results = append(results, newEmployeeResponse(e))
	}

	h.successResponse(w, r, "employees retrieved", &repository.Page[employeeResponse]{
		Count:    page.Count,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  results,
	})
}

// CreateEmployee links a user to a department. The company is taken from the department.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID       int64        `json:"user" validate:"required,gt=0"`
		DepartmentID int64        `json:"department" validate:"required,gt=0"`
		Name         string       `json:"name" validate:"required,max=255"`
		Email        string       `json:"email" validate:"required,email,max=254"`
		MobileNumber string       `json:"mobileNumber" validate:"max=20"`
		Address      string       `json:"address" validate:"max=500"`
		Designation  string       `json:"designation" validate:"max=100"`
		HiredOn      *domain.Date `json:"hiredOn"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	department, err := h.departmentForEmployee(r, req.DepartmentID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	employee := &domain.Employee{
		UserID:         req.UserID,
		CompanyID:      department.CompanyID,
		CompanyName:    department.CompanyName,
		DepartmentID:   department.ID,
		DepartmentName: department.Name,
		Name:           req.Name,
		Email:          req.Email,
		MobileNumber:   req.MobileNumber,
		Address:        req.Address,
		Designation:    req.Designation,
		HiredOn:        req.HiredOn,
	}

	if !policy.CanCreate(principalFrom(r), policy.ResourceEmployee, employeeTarget(employee)) {
		h.forbidden(w, r)
		return
	}

	if _, err := h.repository.GetUserByID(r.Context(), req.UserID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.badRequest(w, r, domain.NewFieldError("user", "user does not exist"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.repository.CreateEmployee(r.Context(), employee); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.createdResponse(w, r, "employee created", newEmployeeResponse(employee))
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	employee := r.Context().Value(EmployeeCtx).(*domain.Employee)
	h.successResponse(w, r, "employee retrieved", newEmployeeResponse(employee))
}

// UpdateEmployee edits an employee record. Through /employees/profile anyone may edit their
// own record; elsewhere the write rule applies. A new department must belong to the same
// company and be inside the requester's write scope too.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	employee := r.Context().Value(EmployeeCtx).(*domain.Employee)
	ownProfile, _ := r.Context().Value(OwnProfileCtx).(bool)
	if ownProfile {
		if !policy.CanEditOwnProfile(principalFrom(r), employeeTarget(employee)) {
			h.forbidden(w, r)
			return
		}
	} else if !h.authorize(w, r, policy.ActionWrite, policy.ResourceEmployee, employeeTarget(employee)) {
		return
	}

	var req struct {
		DepartmentID *int64       `json:"department" validate:"omitnil,gt=0"`
		Name         *string      `json:"name" validate:"omitnil,min=1,max=255"`
		Email        *string      `json:"email" validate:"omitnil,email,max=254"`
		MobileNumber *string      `json:"mobileNumber" validate:"omitnil,max=20"`
		Address      *string      `json:"address" validate:"omitnil,max=500"`
		Designation  *string      `json:"designation" validate:"omitnil,max=100"`
		HiredOn      *domain.Date `json:"hiredOn"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated := *employee

	if req.DepartmentID != nil && *req.DepartmentID != employee.DepartmentID {
		if principalFrom(r).Role == domain.RoleEmployee {
			h.badRequest(w, r, domain.NewFieldError("department", "you cannot change your own department"))
			return
		}

		department, err := h.departmentForEmployee(r, *req.DepartmentID)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		if department.CompanyID != employee.CompanyID {
			h.badRequest(w, r, domain.NewFieldError("department", "department must belong to the employee's company"))
			return
		}

		updated.DepartmentID = department.ID
		updated.DepartmentName = department.Name
		if !h.authorize(w, r, policy.ActionWrite, policy.ResourceEmployee, employeeTarget(&updated)) {
			return
		}
	}
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Email != nil {
		updated.Email = *req.Email
	}
	if req.MobileNumber != nil {
		updated.MobileNumber = *req.MobileNumber
	}
	if req.Address != nil {
		updated.Address = *req.Address
	}
	if req.Designation != nil {
		updated.Designation = *req.Designation
	}
	if req.HiredOn != nil {
		updated.HiredOn = req.HiredOn
	}

	if err := h.repository.UpdateEmployee(r.Context(), &updated); err != nil {
		h.handleError(w, r, staleAsConflict(err))
		return
	}

	h.successResponse(w, r, "employee updated", newEmployeeResponse(&updated))
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	employee := r.Context().Value(EmployeeCtx).(*domain.Employee)
	if !h.authorize(w, r, policy.ActionWrite, policy.ResourceEmployee, employeeTarget(employee)) {
		return
	}

	if err := h.repository.DeleteEmployee(r.Context(), employee.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "employee deleted", nil)
}
